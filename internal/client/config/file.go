package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/flagx"
	"github.com/dmitrijs2005/fintrack/internal/timex"
)

// fileConfig is the on-disk shape. Durations use timex.Duration so a file can
// say "30s" or give integer nanoseconds. Zero values leave the current
// setting alone.
type fileConfig struct {
	ServerURL  string `json:"server_url" yaml:"server_url"`
	HealthAddr string `json:"health_addr" yaml:"health_addr"`
	DBPath     string `json:"db_path" yaml:"db_path"`

	LogFile    string `json:"log_file" yaml:"log_file"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogBackend string `json:"log_backend" yaml:"log_backend"`

	OnlineCheckInterval     timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	MaxOfflineCheckInterval timex.Duration `json:"max_offline_check_interval" yaml:"max_offline_check_interval"`
	SyncInterval            timex.Duration `json:"sync_interval" yaml:"sync_interval"`
	RequestTimeout          timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	AttentionThreshold      int            `json:"attention_threshold" yaml:"attention_threshold"`
	DoneRetention           timex.Duration `json:"done_retention" yaml:"done_retention"`

	S3 archive.S3Config `json:"s3" yaml:"s3"`
}

// parseFile overlays cfg with the file at path. An empty path is a no-op.
func parseFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	switch flagx.DetectFormat(path) {
	case flagx.FormatYAML:
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.HealthAddr, fc.HealthAddr)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogBackend, fc.LogBackend)

	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.MaxOfflineCheckInterval, fc.MaxOfflineCheckInterval)
	setDuration(&cfg.SyncInterval, fc.SyncInterval)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.DoneRetention, fc.DoneRetention)
	if fc.AttentionThreshold > 0 {
		cfg.AttentionThreshold = fc.AttentionThreshold
	}

	if fc.S3 != (archive.S3Config{}) {
		cfg.S3 = fc.S3
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
