package config

import (
	"time"

	"github.com/Netflix/go-env"
)

// envConfig mirrors the variables parseEnv understands. Durations are kept as
// strings so unset variables are distinguishable from zero.
type envConfig struct {
	ServerEndpointAddr   string `env:"TUTORSIM_SERVER_ADDR"`
	AccessToken          string `env:"TUTORSIM_ACCESS_TOKEN"`
	DatabasePath         string `env:"TUTORSIM_DB_PATH"`
	OnlineCheckInterval  string `env:"TUTORSIM_ONLINE_CHECK_INTERVAL"`
	RequestTimeout       string `env:"TUTORSIM_REQUEST_TIMEOUT"`
	RetryMaxAttempts     int    `env:"TUTORSIM_RETRY_MAX_ATTEMPTS"`
	RetryInitialInterval string `env:"TUTORSIM_RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     string `env:"TUTORSIM_RETRY_MAX_INTERVAL"`
	StatusAddr           string `env:"TUTORSIM_STATUS_ADDR"`
	LogLevel             string `env:"TUTORSIM_LOG_LEVEL"`
}

// parseEnv overlays Config with TUTORSIM_* variables from environ. It panics
// on malformed values.
func parseEnv(cfg *Config, environ []string) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		panic(err)
	}
	var ec envConfig
	if err := env.Unmarshal(es, &ec); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, ec.ServerEndpointAddr)
	setString(&cfg.AccessToken, ec.AccessToken)
	setString(&cfg.DatabasePath, ec.DatabasePath)
	setString(&cfg.StatusAddr, ec.StatusAddr)
	setString(&cfg.LogLevel, ec.LogLevel)
	setDuration(&cfg.OnlineCheckInterval, ec.OnlineCheckInterval)
	setDuration(&cfg.RequestTimeout, ec.RequestTimeout)
	setDuration(&cfg.Retry.InitialInterval, ec.RetryInitialInterval)
	setDuration(&cfg.Retry.MaxInterval, ec.RetryMaxInterval)
	if ec.RetryMaxAttempts != 0 {
		cfg.Retry.MaxAttempts = ec.RetryMaxAttempts
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
