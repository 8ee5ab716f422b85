package main

import (
	"context"
	"time"

	"site_auditor/internal/application/config"
	"site_auditor/internal/http"

	log "github.com/sirupsen/logrus"
)

func main() {
	logInstance := log.New()
	cfg, err := config.NewAppConfig()
	if err != nil {
		logInstance.WithError(err).Fatal(`Failed to load config`)
		return
	}

	if err := configureLogger(logInstance, cfg); err != nil {
		logInstance.WithError(err).Fatal(`Failed to configure logger`)
		return
	}
	logInstance.WithField(`debug`, cfg.DebugMode).Info(`site auditor starting`)

	// Init HTTP; blocks until SIGINT or SIGTERM
	http.Init(context.WithoutCancel(context.Background()), logInstance, cfg)
}

func configureLogger(l *log.Logger, cfg *config.AppConfig) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	l.SetFormatter(&log.JSONFormatter{
		TimestampFormat:   time.RFC3339,
		DisableHTMLEscape: true,
	})
	l.SetLevel(level)
	l.SetReportCaller(cfg.DebugMode)
	return nil
}
