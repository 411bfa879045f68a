package config

import (
	"time"

	"github.com/Netflix/go-env"
)

type envConfig struct {
	GrpcListenAddress   string `env:"GRPC_LISTEN_ADDRESS"`
	DatabaseURL         string `env:"DATABASE_URL"`
	SecretKey           string `env:"SECRET_KEY"`
	AccessTokenValidity string `env:"ACCESS_TOKEN_VALIDITY"`
	S3RootUser          string `env:"S3_ROOT_USER"`
	S3RootPassword      string `env:"S3_ROOT_PASSWORD"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3Region            string `env:"S3_REGION"`
	S3BaseEndpoint      string `env:"S3_BASE_ENDPOINT"`
	PresignExpiry       string `env:"PRESIGN_EXPIRY"`
	GrpcWebAddress      string `env:"GRPC_WEB_LISTEN_ADDRESS"`
	MetricsAddress      string `env:"METRICS_LISTEN_ADDRESS"`
	LogLevel            string `env:"LOG_LEVEL"`
}

// parseEnv overlays Config with variables from environ. It panics on
// malformed durations.
func parseEnv(cfg *Config, environ []string) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		panic(err)
	}
	var ec envConfig
	if err := env.Unmarshal(es, &ec); err != nil {
		panic(err)
	}

	setString(&cfg.EndpointAddrGRPC, ec.GrpcListenAddress)
	setString(&cfg.DatabaseDSN, ec.DatabaseURL)
	setString(&cfg.SecretKey, ec.SecretKey)
	setString(&cfg.S3RootUser, ec.S3RootUser)
	setString(&cfg.S3RootPassword, ec.S3RootPassword)
	setString(&cfg.S3Bucket, ec.S3Bucket)
	setString(&cfg.S3Region, ec.S3Region)
	setString(&cfg.S3BaseEndpoint, ec.S3BaseEndpoint)
	setString(&cfg.GRPCWebAddr, ec.GrpcWebAddress)
	setString(&cfg.MetricsAddr, ec.MetricsAddress)
	setString(&cfg.LogLevel, ec.LogLevel)
	setDuration(&cfg.AccessTokenValidityDuration, ec.AccessTokenValidity)
	setDuration(&cfg.PresignExpiry, ec.PresignExpiry)
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
