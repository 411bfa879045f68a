// Package config loads runtime configuration for the sync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. TUTORSIM_* environment variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the sync server
//	-t string   access token
//	-d string   path of the local queue database
//	-i int      online status check interval (seconds)
//	-r int      delivery attempts before an item is dead-lettered
//	-s string   listen address of the local status endpoint ("" disables it)
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "...",
//	  "database_path": "tutorsim.db",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "retry": {"max_attempts": 10, "initial_interval": "2s", "max_interval": "5m"},
//	  "status_addr": "127.0.0.1:8787",
//	  "log_level": "info"
//	}
package config
