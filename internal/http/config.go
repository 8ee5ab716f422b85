package http

import (
	"os"
	"strings"
	"time"

	"site_auditor/internal/application/config"
	"site_auditor/internal/pkg/errors"
)

type HTTPServerConfig struct {
	Host     string
	Timeouts struct {
		Read         time.Duration
		ReadHeader   time.Duration
		Write        time.Duration
		Idle         time.Duration
		ShutdownWait time.Duration
	}
}

// NewHTTPServerConfig reads HTTP_* variables. The write timeout has to cover a
// whole synchronous analysis run.
func NewHTTPServerConfig() (*HTTPServerConfig, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}

	var errMsg []string
	cfg := &HTTPServerConfig{}

	cfg.Host = os.Getenv("HTTP_SERVER_HOST")
	if cfg.Host == "" {
		cfg.Host = ":8080"
	}

	parseDuration := func(envVar string, def time.Duration) time.Duration {
		value := os.Getenv(envVar)
		if value == "" {
			return def
		}
		duration, err := time.ParseDuration(value)
		if err != nil {
			errMsg = append(errMsg, envVar+": invalid duration format: "+err.Error())
			return def
		}
		return duration
	}

	cfg.Timeouts.Read = parseDuration("HTTP_APP_READ_TIMEOUT_DURATION", 15*time.Second)
	cfg.Timeouts.ReadHeader = parseDuration("HTTP_APP_READ_HEADER_TIMEOUT_DURATION", 5*time.Second)
	cfg.Timeouts.Write = parseDuration("HTTP_APP_WRITE_TIMEOUT_DURATION", 6*time.Minute)
	cfg.Timeouts.Idle = parseDuration("HTTP_APP_IDLE_TIMEOUT_DURATION", 60*time.Second)
	cfg.Timeouts.ShutdownWait = parseDuration("HTTP_APP_SHUTDOWN_TIMEOUT_DURATION", 30*time.Second)

	if len(errMsg) > 0 {
		return nil, errors.Errorf("configuration validation failed:\n%s", strings.Join(errMsg, "\n"))
	}

	return cfg, nil
}
