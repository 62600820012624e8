package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// Action is the remote operation a queue entry replays.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParseAction accepts the upper-case action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Status is the lifecycle state of a queue entry.
//
//	pending -> syncing -> done
//	                   -> failed -> syncing -> ...
//
// done is final.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusFailed  Status = "failed"
	StatusDone    Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusFailed, StatusDone:
		return true
	}
	return false
}

// QueueEntry is one recorded mutation waiting to be replayed remotely.
type QueueEntry struct {
	// ID is assigned by the store and never leaves the device.
	ID         int64
	UserID     string
	Action     Action
	Collection ledger.Collection
	// Data is the full flat payload for CREATE/UPDATE, the key set for DELETE.
	Data    json.RawMessage
	LocalID string
	// Timestamp orders replay. Unix nanoseconds, strictly increasing per store.
	Timestamp  int64
	RetryCount int
	Status     Status
	LastError  string
	// PermanentError marks a failure that retrying will not fix; the entry is
	// held until the user retries or discards it.
	PermanentError bool
	UpdatedAt      time.Time
}

// EnqueuedAt converts Timestamp to a time.
func (e *QueueEntry) EnqueuedAt() time.Time {
	return time.Unix(0, e.Timestamp)
}

// StatusCounts feeds the sync-health indicator.
type StatusCounts struct {
	Pending int
	Syncing int
	Failed  int
	Done    int
	// Permanent counts failed entries flagged as permanent.
	Permanent int
	// Attention counts outstanding entries whose retry count went past the
	// configured threshold, plus permanent failures.
	Attention int
}

// Outstanding is everything not yet confirmed by the server.
func (c StatusCounts) Outstanding() int {
	return c.Pending + c.Syncing + c.Failed
}
