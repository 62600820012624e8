// Package config loads runtime configuration for the fintrack client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "db_path": "fintrack.db",
//	  "online_check_interval": "30s",
//	  "sync_interval": "1m",
//	  "request_timeout": "10s",
//	  "attention_threshold": 10,
//	  "done_retention": "168h",
//	  "s3": {"bucket": "fintrack-archive", "region": "us-east-1"}
//	}
//
// The package does not read environment variables.
package config
