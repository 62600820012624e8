// Package models defines the client-side records and sync queue entries
// persisted in the local SQLite store.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// Record is a local copy of one finance record.
type Record struct {
	Collection ledger.Collection
	ID         string
	UserID     string

	// Data holds the domain fields only (no envelope keys).
	Data json.RawMessage

	// EventDate is copied from Data's "date" field for range queries.
	EventDate string

	IsArchived bool

	// Synced is false from the first local write until the server confirms
	// every queued mutation of the record. Never sent to the server.
	Synced bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Envelope returns the sync-owned fields of r.
func (r *Record) Envelope() ledger.Envelope {
	return ledger.Envelope{
		ID:         r.ID,
		UserID:     r.UserID,
		IsArchived: r.IsArchived,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Payload renders the flat JSON object sent to the server.
func (r *Record) Payload() (json.RawMessage, error) {
	return ledger.MergePayload(r.Envelope(), r.Data)
}

// RecordFromPayload rebuilds a record of collection c from a flat payload,
// such as the canonical state returned by the server.
func RecordFromPayload(c ledger.Collection, payload json.RawMessage) (*Record, error) {
	env, data, err := ledger.SplitPayload(payload)
	if err != nil {
		return nil, err
	}
	if env.ID == "" {
		return nil, fmt.Errorf("payload has no id")
	}
	return &Record{
		Collection: c,
		ID:         env.ID,
		UserID:     env.UserID,
		Data:       data,
		EventDate:  ledger.EventDate(data),
		IsArchived: env.IsArchived,
		CreatedAt:  env.CreatedAt,
		UpdatedAt:  env.UpdatedAt,
	}, nil
}

// RecordQuery filters ListByUser.
type RecordQuery struct {
	UserID string
	// From and To bound EventDate inclusively (YYYY-MM-DD). Empty means open.
	From string
	To   string
	// IncludeArchived returns archived records too.
	IncludeArchived bool
	Limit           int
}
