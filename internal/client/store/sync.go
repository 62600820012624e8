package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// RecordAndEnqueue persists rec (with synced=false) and appends the queue
// entry for action in one transaction. The caller sets UpdatedAt. If either
// write fails nothing is stored.
func (s *Store) RecordAndEnqueue(ctx context.Context, rec *models.Record, action models.Action) (*models.QueueEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	payload, err := queuePayload(rec, action)
	if err != nil {
		return nil, err
	}

	rec.Synced = false
	rec.EventDate = ledger.EventDate(rec.Data)

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.QueueEntry, error) {
		recs := s.Records(tx)
		if action == models.ActionCreate {
			if err := recs.Add(ctx, rec); err != nil {
				return nil, err
			}
		} else if err := recs.Put(ctx, rec); err != nil {
			return nil, err
		}

		return s.Queue(tx).Enqueue(ctx, &models.QueueEntry{
			UserID:     rec.UserID,
			Action:     action,
			Collection: rec.Collection,
			Data:       payload,
			LocalID:    rec.ID,
		})
	})
}

func queuePayload(rec *models.Record, action models.Action) (json.RawMessage, error) {
	if action == models.ActionDelete {
		return ledger.KeyPayload(rec.Envelope())
	}
	return rec.Payload()
}

// Confirm records a terminal outcome for entry: the entry becomes done and,
// if no other entry for the same record is outstanding, the record is marked
// synced. A non-nil canonical payload from the server replaces the local
// fields at that point. It reports whether the record is now synced.
func (s *Store) Confirm(ctx context.Context, entry *models.QueueEntry, canonical json.RawMessage) (bool, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		queue := s.Queue(tx)
		if err := queue.MarkDone(ctx, entry.ID); err != nil {
			return false, err
		}

		outstanding, err := queue.HasOutstanding(ctx, entry.LocalID)
		if err != nil {
			return false, err
		}
		if outstanding {
			return false, nil
		}

		return true, s.markSynced(ctx, tx, entry, canonical)
	})
}

func (s *Store) markSynced(ctx context.Context, tx dbx.DBTX, entry *models.QueueEntry, canonical json.RawMessage) error {
	recs := s.Records(tx)

	local, err := recs.Get(ctx, entry.Collection, entry.LocalID)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if len(canonical) > 0 {
		merged, err := models.RecordFromPayload(entry.Collection, canonical)
		if err != nil {
			s.log.Warn(ctx, "ignoring unreadable server payload", "entry", entry.ID, "err", err)
		} else if merged.ID == local.ID {
			// Ownership and creation time are local facts.
			merged.UserID = local.UserID
			if merged.CreatedAt.IsZero() {
				merged.CreatedAt = local.CreatedAt
			}
			if merged.UpdatedAt.IsZero() {
				merged.UpdatedAt = local.UpdatedAt
			}
			merged.Synced = true
			return recs.Put(ctx, merged)
		}
	}

	return recs.MarkSynced(ctx, entry.Collection, entry.LocalID)
}

// Recover resets entries a previous process left in syncing back to
// pending. Call once at startup, before the first sync run.
func (s *Store) Recover(ctx context.Context) (int64, error) {
	n, err := s.Queue(nil).ResetSyncing(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Warn(ctx, "reset interrupted sync entries", "count", n)
	}
	return n, nil
}

// Reconcile finds the user's unsynced records that have no outstanding queue
// entry and enqueues a CREATE carrying their current state. The server
// treats a repeated create by the same owner as an upsert, so this is safe
// even if an earlier create did reach it. It returns the number of records
// re-enqueued.
func (s *Store) Reconcile(ctx context.Context, userID string) (int, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (int, error) {
		unsynced, err := s.Records(tx).ListUnsynced(ctx, userID)
		if err != nil {
			return 0, err
		}
		if len(unsynced) == 0 {
			return 0, nil
		}

		queue := s.Queue(tx)
		outstanding, err := queue.OutstandingLocalIDs(ctx, userID)
		if err != nil {
			return 0, err
		}

		n := 0
		for _, rec := range unsynced {
			if _, ok := outstanding[rec.ID]; ok {
				continue
			}
			payload, err := rec.Payload()
			if err != nil {
				return 0, fmt.Errorf("failed to build payload for %s/%s: %w", rec.Collection, rec.ID, err)
			}
			if _, err := queue.Enqueue(ctx, &models.QueueEntry{
				UserID:     userID,
				Action:     models.ActionCreate,
				Collection: rec.Collection,
				Data:       payload,
				LocalID:    rec.ID,
			}); err != nil {
				return 0, err
			}
			s.log.Warn(ctx, "re-enqueued orphaned record", "collection", rec.Collection, "id", rec.ID)
			n++
		}
		return n, nil
	})
}

// DiscardEntry removes a failed entry at the user's request. Discarding a
// CREATE abandons the record: its remaining entries are dropped and, since
// the server never accepted it, the local row is deleted. Discarding an
// UPDATE or DELETE keeps local state and, if nothing else is outstanding,
// marks the record synced.
func (s *Store) DiscardEntry(ctx context.Context, userID string, id int64) error {
	return s.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		queue := s.Queue(tx)
		entry, err := queue.Get(ctx, id)
		if err != nil {
			return err
		}
		if entry.UserID != userID {
			return common.ErrNotFound
		}
		if err := queue.Discard(ctx, id); err != nil {
			return err
		}

		recs := s.Records(tx)
		if entry.Action == models.ActionCreate {
			if _, err := queue.DiscardOutstanding(ctx, entry.LocalID); err != nil {
				return err
			}
			return recs.Delete(ctx, entry.Collection, entry.LocalID)
		}

		outstanding, err := queue.HasOutstanding(ctx, entry.LocalID)
		if err != nil || outstanding {
			return err
		}
		err = recs.MarkSynced(ctx, entry.Collection, entry.LocalID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	})
}
