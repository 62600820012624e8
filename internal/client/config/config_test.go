package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
)

func defaults() *Config {
	var c Config
	c.LoadDefaults()
	return &c
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, "127.0.0.1:50051", c.HealthAddr)
	assert.Equal(t, 30*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 10, c.AttentionThreshold)
	assert.Equal(t, archive.DefaultDoneRetention, c.DoneRetention)
	assert.False(t, c.S3.Enabled())
}

func TestLoadConfig_NoArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestLoadConfig_JSONThenFlags(t *testing.T) {
	path := writeFile(t, "client.json", `{
		"server_url": "https://api.example",
		"db_path": "/tmp/ft.db",
		"online_check_interval": "10s",
		"request_timeout": 2000000000,
		"attention_threshold": 3,
		"s3": {"bucket": "b", "region": "eu-west-1", "base_endpoint": "http://minio:9000"}
	}`)

	cfg, err := LoadConfig([]string{"-c", path, "-a", "http://override:1", "-s", "0s", "stray"})
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "http://override:1"
	want.DBPath = "/tmp/ft.db"
	want.OnlineCheckInterval = 10 * time.Second
	want.RequestTimeout = 2 * time.Second
	want.AttentionThreshold = 3
	want.SyncInterval = 0
	want.S3 = archive.S3Config{Bucket: "b", Region: "eu-west-1", BaseEndpoint: "http://minio:9000"}

	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "client.yaml", `
health_addr: "h:1"
sync_interval: 5m
log_level: debug
`)

	cfg, err := LoadConfig([]string{"-config=" + path})
	require.NoError(t, err)

	want := defaults()
	want.HealthAddr = "h:1"
	want.SyncInterval = 5 * time.Minute
	want.LogLevel = "debug"
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"-c", filepath.Join(t.TempDir(), "nope.json")}},
		{name: "invalid json", args: []string{"-c", writeFile(t, "bad.json", `{ not json`)}},
		{name: "invalid duration", args: []string{"-c", writeFile(t, "bad.yaml", `sync_interval: soon`)}},
		{name: "bad interval flag", args: []string{"-i", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, parseFlags(cfg, []string{"-a", "http://x", "-i", "7", "-t", "3s", "-log-level", "warn"}))

	want := &Config{
		ServerURL:           "http://x",
		OnlineCheckInterval: 7 * time.Second,
		RequestTimeout:      3 * time.Second,
		LogLevel:            "warn",
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestSubsystemConfigs(t *testing.T) {
	c := defaults()

	assert.Equal(t, c.RequestTimeout, c.Syncer().RequestTimeout)
	assert.Equal(t, c.AttentionThreshold, c.Syncer().AttentionThreshold)
	assert.Equal(t, c.SyncInterval, c.Trigger().SyncInterval)
	assert.Equal(t, c.DoneRetention, c.Archive().DoneRetention)
	assert.Equal(t, c.LogFile, c.Logging().File)
}
