package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/flagx"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/timex"
)

type jsonRetry struct {
	MaxAttempts     int            `json:"max_attempts"`
	InitialInterval timex.Duration `json:"initial_interval"`
	MaxInterval     timex.Duration `json:"max_interval"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the corresponding Config values untouched.
type JsonConfig struct {
	ServerEndpointAddr  string          `json:"server_endpoint_addr"`
	AccessToken         string          `json:"access_token"`
	DatabasePath        string          `json:"database_path"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	Retry               *jsonRetry      `json:"retry"`
	StatusAddr          *string         `json:"status_addr"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.StatusAddr != nil {
		cfg.StatusAddr = *jc.StatusAddr
	}
	if jc.Retry != nil {
		cfg.Retry = Retry{
			MaxAttempts:     jc.Retry.MaxAttempts,
			InitialInterval: time.Duration(jc.Retry.InitialInterval.Duration),
			MaxInterval:     time.Duration(jc.Retry.MaxInterval.Duration),
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
