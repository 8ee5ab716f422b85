package config

import (
	"io/fs"
	"os"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/pkg/errors"

	"github.com/joho/godotenv"
)

const envFile = `config.env`

type AppConfig struct {
	LogLevel    string
	DebugMode   bool
	MetricsHost string
	PprofHost   string
}

// LoadEnvFile loads config.env into the process environment. A missing file is
// not an error; variables already set win over the file.
func LoadEnvFile() error {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, `failed to load `+envFile)
	}
	return nil
}

func NewAppConfig() (*AppConfig, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	cfg := AppConfig{}
	cfg.LogLevel = strings.ToLower(os.Getenv("APP_LOG_LEVEL"))
	cfg.DebugMode = os.Getenv("APP_ENABLE_DEBUG") == "true"
	cfg.MetricsHost = os.Getenv("HTTP_APP_METRICS_HOST")
	cfg.PprofHost = os.Getenv("HTTP_APP_PPROF_HOST")
	if cfg.PprofHost == "" {
		cfg.PprofHost = `:6060`
	}

	err := validate(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	var errMsg []string
	switch adaptors.LogLevel(cfg.LogLevel) {
	case adaptors.Trace, adaptors.Debug, adaptors.Info, adaptors.Warn, adaptors.Error:
	case "":
		errMsg = append(errMsg, `log level is empty`)
	default:
		errMsg = append(errMsg, `log level `+cfg.LogLevel+` is not supported`)
	}

	if cfg.MetricsHost == "" {
		errMsg = append(errMsg, `metrics host is empty`)
	}

	if len(errMsg) != 0 {
		return errors.Errorf(`validation failed: %s`, strings.Join(errMsg, "\n"))
	}
	return nil
}
