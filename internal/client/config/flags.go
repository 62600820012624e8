package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-i", "-s", "-t", "-l", "-log-level"}

// parseFlags overlays cfg with command-line flags.
//
//	-a string     base URL of the REST API
//	-g string     host:port of the gRPC health endpoint
//	-d string     local database file
//	-i int        online check interval (seconds)
//	-s duration   periodic sync interval, 0 disables
//	-t duration   per-request timeout
//	-l string     log file
//	-log-level    debug, info, warn or error
//
// Only the flags above are picked out of args, so unrelated arguments do not
// make parsing fail.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("fintrack", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the REST API")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address and port of the gRPC health endpoint")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.SyncInterval, "s", cfg.SyncInterval, "periodic sync interval, 0 disables")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
