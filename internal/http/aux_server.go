package http

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// AuxServer serves the operational endpoints next to the API.
type AuxServer struct {
	name    string
	timeout time.Duration
	server  *http.Server
	log     *log.Logger
}

func NewMetricsServer(host string, timeout time.Duration, log *log.Logger) *AuxServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.MetricsRegister(), promhttp.HandlerOpts{}))
	return newAuxServer(`metrics`, host, mux, timeout, log)
}

func NewPprofServer(host string, timeout time.Duration, log *log.Logger) *AuxServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return newAuxServer(`pprof`, host, mux, timeout, log)
}

func newAuxServer(name, host string, handler http.Handler, timeout time.Duration, log *log.Logger) *AuxServer {
	return &AuxServer{
		name: name,
		server: &http.Server{
			Addr:              host,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		timeout: timeout,
		log:     log,
	}
}

func (s *AuxServer) Start() error {
	s.log.WithField(`addr`, s.server.Addr).Infof(`%s server starting`, s.name)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AuxServer) Stop() error {
	if s.server == nil {
		return errors.New("server is not initialized")
	}
	s.log.Infof(`shutting down %s server...`, s.name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, `failed to shutdown `+s.name+` server`)
	}

	s.log.Infof(`%s server exiting`, s.name)
	return nil
}
