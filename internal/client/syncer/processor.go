// Package syncer replays the local sync queue against the Remote API.
//
// A run takes the user's pending and failed entries in timestamp order and
// dispatches them one at a time. Entries for the same record are never
// reordered: once an entry for a local id fails, or is held with a permanent
// error, later entries for that id wait for a later run. Entries for other
// records keep flowing.
//
// At most one run per user is active; a concurrent call returns at once with
// RunResult.Busy set. Queue bookkeeping is written with a context detached
// from cancellation, so a cancelled run stops between entries and never
// leaves one half-recorded. An entry left syncing by an earlier run whose
// bookkeeping failed is put back to pending before the batch is loaded; if
// that is not possible its record is held for the whole run.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

const (
	DefaultRequestTimeout     = 10 * time.Second
	DefaultAttentionThreshold = 10
)

// errEntryChanged means the entry was retried, discarded or otherwise moved
// between loading the batch and dispatching it.
var errEntryChanged = errors.New("queue entry changed during run")

type Config struct {
	// RequestTimeout bounds a single remote call.
	RequestTimeout time.Duration
	// AttentionThreshold is the retry count after which an entry is reported
	// as needing attention. It is still retried.
	AttentionThreshold int
	// BatchSize limits entries per run; 0 means all.
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.AttentionThreshold <= 0 {
		c.AttentionThreshold = DefaultAttentionThreshold
	}
	return c
}

// RunResult summarizes one ProcessSyncQueue call.
type RunResult struct {
	UserID string
	// Attempted entries were dispatched to the server.
	Attempted int
	Succeeded int
	// Terminal entries were finished because the server no longer had the record.
	Terminal  int
	Failed    int
	Permanent int
	// Skipped entries were held back by an earlier failure for the same record
	// or by their own permanent error.
	Skipped int
	// Attention counts dispatched entries past the attention threshold.
	Attention int
	// Busy is set when another run for the user was in progress.
	Busy     bool
	Err      error
	Started  time.Time
	Duration time.Duration
}

type Processor struct {
	store  *store.Store
	remote client.RemoteAPI
	log    logging.Logger
	cfg    Config

	mu      sync.Mutex
	running map[string]struct{}
	last    map[string]RunResult
}

func NewProcessor(st *store.Store, remote client.RemoteAPI, log logging.Logger, cfg Config) *Processor {
	if log == nil {
		log = logging.Nop{}
	}
	return &Processor{
		store:   st,
		remote:  remote,
		log:     log.With("component", "syncer"),
		cfg:     cfg.withDefaults(),
		running: make(map[string]struct{}),
		last:    make(map[string]RunResult),
	}
}

// AttentionThreshold is the effective threshold after defaults.
func (p *Processor) AttentionThreshold() int {
	return p.cfg.AttentionThreshold
}

// LastRun returns the result of the user's most recent completed run.
func (p *Processor) LastRun(userID string) (RunResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.last[userID]
	return r, ok
}

func (p *Processor) acquire(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.running[userID]; ok {
		return false
	}
	p.running[userID] = struct{}{}
	return true
}

func (p *Processor) release(res RunResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, res.UserID)
	p.last[res.UserID] = res
}

// ProcessSyncQueue runs one drain of the user's queue. It never panics on
// remote failures; problems are reported in the result.
func (p *Processor) ProcessSyncQueue(ctx context.Context, userID string) (res RunResult) {
	res = RunResult{UserID: userID, Started: time.Now()}

	if !p.acquire(userID) {
		res.Busy = true
		p.log.Debug(ctx, "sync run already in progress", "user", userID)
		return res
	}
	defer func() {
		res.Duration = time.Since(res.Started)
		p.release(res)
		p.logResult(ctx, res)
	}()

	blocked, err := p.releaseStale(ctx, userID)
	if err != nil {
		res.Err = err
		return res
	}

	entries, err := p.store.Queue(nil).NextBatch(ctx, userID, "", p.cfg.BatchSize)
	if err != nil {
		res.Err = fmt.Errorf("failed to load sync queue: %w", err)
		return res
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		if _, ok := blocked[e.LocalID]; ok {
			res.Skipped++
			continue
		}
		if e.PermanentError {
			blocked[e.LocalID] = struct{}{}
			res.Skipped++
			continue
		}

		if e.RetryCount > p.cfg.AttentionThreshold {
			res.Attention++
		}

		outcome, err := p.process(ctx, e)
		if errors.Is(err, errEntryChanged) {
			p.log.Debug(ctx, "queue entry changed, skipping", "entry", e.ID, "local_id", e.LocalID)
			blocked[e.LocalID] = struct{}{}
			res.Skipped++
			continue
		}
		if err != nil {
			res.Err = err
			return res
		}

		res.Attempted++
		switch outcome {
		case OutcomeSuccess:
			res.Succeeded++
		case OutcomeTerminal:
			res.Terminal++
		case OutcomeTransient:
			res.Failed++
			blocked[e.LocalID] = struct{}{}
		case OutcomePermanent:
			res.Permanent++
			blocked[e.LocalID] = struct{}{}
		}
	}

	return res
}

// releaseStale puts the user's syncing entries back to pending. The per-user
// lock is held, so none of them is in flight. Records whose entry could not
// be released are returned as blocked: sending their later entries would
// overtake the stuck one.
func (p *Processor) releaseStale(ctx context.Context, userID string) (map[string]struct{}, error) {
	queue := p.store.Queue(nil)
	blocked := make(map[string]struct{})

	stale, err := queue.ListByStatus(ctx, userID, models.StatusSyncing)
	if err != nil {
		return nil, fmt.Errorf("failed to load syncing entries: %w", err)
	}
	for _, e := range stale {
		if err := queue.ReleaseSyncing(context.WithoutCancel(ctx), e.ID); err != nil {
			p.log.Warn(ctx, "failed to release stale entry, holding its record", "entry", e.ID, "local_id", e.LocalID, "err", err)
			blocked[e.LocalID] = struct{}{}
			continue
		}
		p.log.Info(ctx, "released stale syncing entry", "entry", e.ID, "local_id", e.LocalID)
	}
	return blocked, nil
}

// process dispatches one entry and records the outcome. The returned error is
// a local bookkeeping failure, which ends the run, or errEntryChanged.
func (p *Processor) process(ctx context.Context, e *models.QueueEntry) (Outcome, error) {
	bctx := context.WithoutCancel(ctx)
	queue := p.store.Queue(nil)

	if err := queue.MarkSyncing(bctx, e.ID); err != nil {
		if errors.Is(err, syncqueue.ErrInvalidTransition) {
			return 0, errEntryChanged
		}
		return 0, err
	}

	canonical, err := p.dispatch(bctx, e)
	outcome := Classify(e.Action, err)

	log := p.log.With("entry", e.ID, "action", e.Action, "collection", e.Collection, "local_id", e.LocalID)

	if outcome.Done() {
		if outcome == OutcomeTerminal {
			log.Info(ctx, "record gone on server, finishing entry", "err", err)
			canonical = nil
		}
		synced, cerr := p.store.Confirm(bctx, e, canonical)
		if cerr != nil {
			p.unstick(bctx, e)
			return 0, fmt.Errorf("failed to confirm entry %d: %w", e.ID, cerr)
		}
		log.Debug(ctx, "entry synced", "record_synced", synced)
		return outcome, nil
	}

	permanent := outcome == OutcomePermanent
	if ferr := queue.MarkFailed(bctx, e.ID, err.Error(), permanent); ferr != nil {
		p.unstick(bctx, e)
		return 0, fmt.Errorf("failed to record failure of entry %d: %w", e.ID, ferr)
	}
	if permanent {
		log.Warn(ctx, "entry rejected by server, holding for user", "status", client.StatusCode(err), "err", err)
	} else {
		log.Info(ctx, "entry failed, will retry", "retry", e.RetryCount+1, "err", err)
	}

	return outcome, nil
}

// unstick tries to put e back to pending after its outcome could not be
// recorded. If that fails too, the next run releases it.
func (p *Processor) unstick(ctx context.Context, e *models.QueueEntry) {
	if err := p.store.Queue(nil).ReleaseSyncing(ctx, e.ID); err != nil {
		p.log.Warn(ctx, "failed to release entry", "entry", e.ID, "err", err)
	}
}

func (p *Processor) dispatch(ctx context.Context, e *models.QueueEntry) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	switch e.Action {
	case models.ActionCreate:
		return p.remote.Create(ctx, e.Collection, e.Data)
	case models.ActionUpdate:
		return p.remote.Update(ctx, e.Collection, e.LocalID, e.Data)
	case models.ActionDelete:
		return p.remote.Delete(ctx, e.Collection, e.LocalID)
	}
	return nil, fmt.Errorf("unknown action %q", e.Action)
}

func (p *Processor) logResult(ctx context.Context, r RunResult) {
	args := []any{
		"user", r.UserID,
		"attempted", r.Attempted,
		"succeeded", r.Succeeded,
		"terminal", r.Terminal,
		"failed", r.Failed,
		"permanent", r.Permanent,
		"skipped", r.Skipped,
		"attention", r.Attention,
		"duration", r.Duration,
	}
	switch {
	case r.Err != nil:
		p.log.Error(ctx, "sync run aborted", append(args, "err", r.Err)...)
	case r.Attempted > 0 || r.Skipped > 0:
		p.log.Info(ctx, "sync run finished", args...)
	default:
		p.log.Debug(ctx, "sync run finished", args...)
	}
}
