package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// ConnectivityReporter tells whether the server was reachable at the last probe.
type ConnectivityReporter interface {
	Online() bool
}

// SyncStatus feeds the sync-health indicator.
type SyncStatus struct {
	Counts   models.StatusCounts
	Unsynced int
	Online   bool
	LastRun  *syncer.RunResult
	LastSync time.Time
}

// Healthy means nothing is waiting and nothing needs the user.
func (s SyncStatus) Healthy() bool {
	return s.Counts.Outstanding() == 0 && s.Counts.Attention == 0 && s.Unsynced == 0
}

// SyncService exposes queue inspection and the user's manual controls.
type SyncService struct {
	store        *store.Store
	session      *Session
	processor    *syncer.Processor
	compactor    *archive.Compactor
	connectivity ConnectivityReporter
	notifier     Notifier
}

func NewSyncService(st *store.Store, session *Session, processor *syncer.Processor, compactor *archive.Compactor,
	connectivity ConnectivityReporter, notifier Notifier) *SyncService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SyncService{
		store:        st,
		session:      session,
		processor:    processor,
		compactor:    compactor,
		connectivity: connectivity,
		notifier:     notifier,
	}
}

func (s *SyncService) Status(ctx context.Context) (SyncStatus, error) {
	userID, err := s.session.require()
	if err != nil {
		return SyncStatus{}, err
	}

	var st SyncStatus
	st.Counts, err = s.store.Queue(nil).CountByStatus(ctx, userID, s.processor.AttentionThreshold())
	if err != nil {
		return st, err
	}

	unsynced, err := s.store.Records(nil).ListUnsynced(ctx, userID)
	if err != nil {
		return st, err
	}
	st.Unsynced = len(unsynced)

	if s.connectivity != nil {
		st.Online = s.connectivity.Online()
	}
	if r, ok := s.processor.LastRun(userID); ok {
		st.LastRun = &r
	}

	last, ok, err := metadata.LastSyncAt(ctx, s.store.Metadata(nil))
	if err != nil {
		return st, err
	}
	if ok {
		st.LastSync = last
	}
	return st, nil
}

// Entries lists the user's queue entries, optionally by status.
func (s *SyncService) Entries(ctx context.Context, statuses ...models.Status) ([]*models.QueueEntry, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	return s.store.Queue(nil).ListByStatus(ctx, userID, statuses...)
}

// Unsynced lists records the server has not confirmed yet.
func (s *SyncService) Unsynced(ctx context.Context) ([]*models.Record, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	return s.store.Records(nil).ListUnsynced(ctx, userID)
}

// Reconcile re-enqueues unsynced records that lost their queue entry.
func (s *SyncService) Reconcile(ctx context.Context) (int, error) {
	userID, err := s.session.require()
	if err != nil {
		return 0, err
	}
	return s.store.Reconcile(ctx, userID)
}

// SyncNow drains the queue in the foreground.
func (s *SyncService) SyncNow(ctx context.Context) (syncer.RunResult, error) {
	userID, err := s.session.require()
	if err != nil {
		return syncer.RunResult{}, err
	}

	res := s.processor.ProcessSyncQueue(ctx, userID)
	if res.Err == nil && !res.Busy && res.Failed == 0 && res.Permanent == 0 {
		if err := metadata.SetLastSyncAt(ctx, s.store.Metadata(nil), time.Now()); err != nil {
			return res, err
		}
	}
	return res, res.Err
}

// Retry releases a failed entry for the next run. With refresh, its payload
// is rebuilt from the record's current local state first.
func (s *SyncService) Retry(ctx context.Context, entryID int64, refresh bool) error {
	entry, err := s.ownEntry(ctx, entryID)
	if err != nil {
		return err
	}

	var data json.RawMessage
	if refresh {
		rec, err := s.store.Records(nil).Get(ctx, entry.Collection, entry.LocalID)
		if err != nil {
			return err
		}
		if entry.Action == models.ActionDelete {
			data, err = ledger.KeyPayload(rec.Envelope())
		} else {
			data, err = rec.Payload()
		}
		if err != nil {
			return err
		}
	}

	if err := s.store.Queue(nil).Retry(ctx, entryID, data); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

// Discard drops a failed entry; see store.DiscardEntry for what happens to
// the record.
func (s *SyncService) Discard(ctx context.Context, entryID int64) error {
	userID, err := s.session.require()
	if err != nil {
		return err
	}
	return s.store.DiscardEntry(ctx, userID, entryID)
}

// Compact removes old done entries, archiving them if storage is configured.
func (s *SyncService) Compact(ctx context.Context) (archive.Result, error) {
	userID, err := s.session.require()
	if err != nil {
		return archive.Result{}, err
	}
	return s.compactor.Compact(ctx, userID)
}

func (s *SyncService) ownEntry(ctx context.Context, id int64) (*models.QueueEntry, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	entry, err := s.store.Queue(nil).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, common.ErrNotFound
	}
	return entry, nil
}
