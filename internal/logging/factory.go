package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects a backend and a destination.
type Options struct {
	// Backend is "slog" (default) or "zerolog".
	Backend string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, sends output to a size-rotated file instead of Output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Output is used when File is empty. Defaults to os.Stdout.
	Output io.Writer
}

// New builds a Logger from opts. The returned closer releases the log file,
// if any.
func New(opts Options) (Logger, io.Closer, error) {
	w, closer := destination(opts)

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(levelOrDefault(opts.Level))); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
		return NewSlogLogger(slog.New(h)), closer, nil
	case "zerolog":
		lvl, err := zerolog.ParseLevel(levelOrDefault(opts.Level))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		return NewZerologLogger(w, lvl), closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func destination(opts Options) (io.Writer, io.Closer) {
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		return lj, lj
	}
	if opts.Output != nil {
		return opts.Output, nopCloser{}
	}
	return os.Stdout, nopCloser{}
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return strings.ToLower(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
