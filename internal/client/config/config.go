package config

import (
	"os"
	"time"
)

// Retry bounds redelivery of queued items.
type Retry struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config holds runtime settings for the sync client.
type Config struct {
	ServerEndpointAddr  string
	AccessToken         string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	Retry               Retry
	StatusAddr          string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "tutorsim.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.Retry = Retry{MaxAttempts: 10, InitialInterval: 2 * time.Second, MaxInterval: 5 * time.Minute}
	c.StatusAddr = "127.0.0.1:8787"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg, os.Environ())
	parseFlags(cfg)
	return cfg
}
