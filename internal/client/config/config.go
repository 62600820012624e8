package config

import (
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/client/trigger"
	"github.com/dmitrijs2005/fintrack/internal/flagx"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

// Config holds runtime settings for the fintrack client.
//
// Units: every interval and timeout is a time.Duration.
type Config struct {
	// ServerURL is the base URL of the remote REST API.
	ServerURL string
	// HealthAddr is host:port of the server's gRPC health endpoint.
	HealthAddr string
	// DBPath is the local SQLite file.
	DBPath string

	LogFile    string
	LogLevel   string
	LogBackend string

	OnlineCheckInterval     time.Duration
	MaxOfflineCheckInterval time.Duration
	SyncInterval            time.Duration
	RequestTimeout          time.Duration
	AttentionThreshold      int
	DoneRetention           time.Duration

	S3 archive.S3Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.DBPath = "fintrack.db"
	c.LogFile = "fintrack.log"
	c.LogLevel = "info"
	c.LogBackend = "slog"
	c.OnlineCheckInterval = 30 * time.Second
	c.MaxOfflineCheckInterval = 5 * time.Minute
	c.SyncInterval = time.Minute
	c.RequestTimeout = 10 * time.Second
	c.AttentionThreshold = 10
	c.DoneRetention = archive.DefaultDoneRetention
}

// LoadConfig builds a Config from defaults, then the config file named by
// -c/-config (JSON or YAML), then flags. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, flagx.ConfigFileFlag(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Logging() logging.Options {
	return logging.Options{
		Backend:    c.LogBackend,
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

func (c *Config) Syncer() syncer.Config {
	return syncer.Config{
		RequestTimeout:     c.RequestTimeout,
		AttentionThreshold: c.AttentionThreshold,
	}
}

func (c *Config) Trigger() trigger.Config {
	return trigger.Config{
		OnlineCheckInterval:     c.OnlineCheckInterval,
		MaxOfflineCheckInterval: c.MaxOfflineCheckInterval,
		SyncInterval:            c.SyncInterval,
	}
}

func (c *Config) Archive() archive.Config {
	return archive.Config{DoneRetention: c.DoneRetention}
}
