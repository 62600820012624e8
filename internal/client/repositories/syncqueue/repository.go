// Package syncqueue persists the ordered log of local mutations waiting to
// be replayed against the server.
//
// # Ordering
//
// Enqueue assigns each entry a timestamp in unix nanoseconds that is strictly
// greater than every timestamp already in the table, computed in the same
// INSERT statement. Replay order is (timestamp, id) ascending, so entries for
// the same record are always seen in the order they were made, even if the
// wall clock goes backwards.
//
// # Transitions
//
// Status updates are guarded in SQL:
//
//	MarkSyncing    pending|failed -> syncing
//	MarkDone       syncing -> done
//	MarkFailed     syncing -> failed (retry_count + 1)
//	ReleaseSyncing syncing -> pending (one entry whose outcome was not recorded)
//	ResetSyncing   syncing -> pending (startup recovery)
//
// An update that matches no row returns ErrInvalidTransition. done rows are
// never modified, only removed by compaction.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// ErrInvalidTransition is returned when a status change is not allowed from
// the entry's current status (or the entry does not exist).
var ErrInvalidTransition = errors.New("invalid queue status transition")

// Repository is the sync queue storage contract.
type Repository interface {
	// Enqueue appends a pending entry and returns it with ID and Timestamp set.
	Enqueue(ctx context.Context, e *models.QueueEntry) (*models.QueueEntry, error)

	// Get returns one entry; common.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*models.QueueEntry, error)

	// NextBatch returns pending and failed entries of the user in replay
	// order, optionally restricted to one collection ("" for all). limit <= 0
	// means no limit.
	NextBatch(ctx context.Context, userID string, c ledger.Collection, limit int) ([]*models.QueueEntry, error)

	MarkSyncing(ctx context.Context, id int64) error
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, msg string, permanent bool) error

	// ReleaseSyncing puts one syncing entry back to pending without counting
	// a retry.
	ReleaseSyncing(ctx context.Context, id int64) error

	// ResetSyncing moves every syncing entry back to pending and reports how
	// many were reset.
	ResetSyncing(ctx context.Context) (int64, error)

	// CountByStatus aggregates the user's entries. Outstanding entries with
	// retry_count above attentionThreshold count towards Attention.
	CountByStatus(ctx context.Context, userID string, attentionThreshold int) (models.StatusCounts, error)

	// ListByStatus returns the user's entries in replay order, filtered by
	// status when any are given.
	ListByStatus(ctx context.Context, userID string, statuses ...models.Status) ([]*models.QueueEntry, error)

	// HasOutstanding reports whether any non-done entry references localID.
	HasOutstanding(ctx context.Context, localID string) (bool, error)

	// OutstandingLocalIDs returns the set of local ids with non-done entries.
	OutstandingLocalIDs(ctx context.Context, userID string) (map[string]struct{}, error)

	// Retry clears the permanent flag of a failed entry so the next run
	// dispatches it again. A non-nil data replaces the payload.
	Retry(ctx context.Context, id int64, data json.RawMessage) error

	// Discard removes one failed entry at the user's request.
	Discard(ctx context.Context, id int64) error

	// DiscardOutstanding removes every pending or failed entry for localID.
	DiscardOutstanding(ctx context.Context, localID string) (int64, error)

	// ListDone returns done entries last touched before the cutoff.
	ListDone(ctx context.Context, userID string, before time.Time, limit int) ([]*models.QueueEntry, error)

	// DeleteDone removes the given entries if they are done.
	DeleteDone(ctx context.Context, ids []int64) (int64, error)
}
