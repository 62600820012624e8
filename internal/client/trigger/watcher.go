// Package trigger decides when the sync queue is drained.
//
// A Watcher probes the server on a fixed interval while online and with a
// capped exponential backoff while offline. Drains are requested when
// connectivity comes back, when Notify is called after a local mutation, and
// on a periodic safety-net tick. All drains run on one goroutine and go
// through the processor's per-user guard, so extra triggers are harmless.
package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

// Drainer runs one sync pass for a user.
type Drainer interface {
	ProcessSyncQueue(ctx context.Context, userID string) syncer.RunResult
}

type Config struct {
	// OnlineCheckInterval is the probe period while the server is reachable.
	OnlineCheckInterval time.Duration
	// OfflineBaseInterval is the first retry delay after a failed probe.
	OfflineBaseInterval time.Duration
	// MaxOfflineCheckInterval caps the offline backoff.
	MaxOfflineCheckInterval time.Duration
	// SyncInterval triggers a drain periodically; 0 disables it.
	SyncInterval time.Duration
	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.OnlineCheckInterval <= 0 {
		c.OnlineCheckInterval = 30 * time.Second
	}
	if c.OfflineBaseInterval <= 0 {
		c.OfflineBaseInterval = 2 * time.Second
	}
	if c.MaxOfflineCheckInterval <= 0 {
		c.MaxOfflineCheckInterval = 5 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	return c
}

type Watcher struct {
	prober  client.Prober
	drainer Drainer
	// userID returns the logged-in user, or "" when there is none.
	userID func() string
	log    logging.Logger
	cfg    Config

	online atomic.Bool
	kick   chan struct{}
}

func NewWatcher(prober client.Prober, drainer Drainer, userID func() string, log logging.Logger, cfg Config) *Watcher {
	if log == nil {
		log = logging.Nop{}
	}
	return &Watcher{
		prober:  prober,
		drainer: drainer,
		userID:  userID,
		log:     log.With("component", "trigger"),
		cfg:     cfg.withDefaults(),
		kick:    make(chan struct{}, 1),
	}
}

// Online reports the result of the last probe.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Notify requests a drain if the server is reachable. It never blocks.
func (w *Watcher) Notify() {
	if w.Online() {
		w.request()
	}
}

func (w *Watcher) request() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run probes and drains until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.drainLoop(ctx)
	}()
	defer func() { <-done }()

	var tick <-chan time.Time
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		tick = t.C
	}

	backoff := w.newBackoff()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			w.Notify()
		case <-timer.C:
			timer.Reset(w.check(ctx, &backoff))
		}
	}
}

func (w *Watcher) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(w.cfg.MaxOfflineCheckInterval, retry.NewExponential(w.cfg.OfflineBaseInterval))
}

// check probes once, updates the online flag and returns the delay until the
// next probe. Going from offline to online requests a drain.
func (w *Watcher) check(ctx context.Context, backoff *retry.Backoff) time.Duration {
	pctx, cancel := context.WithTimeout(ctx, w.cfg.ProbeTimeout)
	err := w.prober.Probe(pctx)
	cancel()

	if err == nil {
		if !w.online.Swap(true) {
			w.log.Info(ctx, "server reachable")
			w.request()
		}
		*backoff = w.newBackoff()
		return w.cfg.OnlineCheckInterval
	}

	if w.online.Swap(false) {
		w.log.Warn(ctx, "server unreachable, working offline", "err", err)
	}
	next, _ := (*backoff).Next()
	w.log.Debug(ctx, "probe failed", "next_probe_in", next, "err", err)
	return next
}

func (w *Watcher) drainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		}

		userID := w.userID()
		if userID == "" {
			continue
		}
		res := w.drainer.ProcessSyncQueue(ctx, userID)
		if res.Busy {
			w.log.Debug(ctx, "drain skipped, run in progress")
		}
	}
}
