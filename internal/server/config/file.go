package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/fintrack/internal/flagx"
	"github.com/dmitrijs2005/fintrack/internal/timex"
)

// fileConfig is the on-disk DTO. timex.Duration accepts both "1m" and
// integer nanoseconds. Empty fields keep the current value.
type fileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogBackend                   string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile loads the file at path into config. An empty path loads nothing.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	c := &fileConfig{}
	if flagx.DetectFormat(path) == flagx.FormatYAML {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogBackend, c.LogBackend)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	overlay(&config.ShutdownTimeout, c.ShutdownTimeout.Duration)
	return nil
}

func overlay[T string | time.Duration](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
