package models

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// Record is the server's copy of one finance record. Data holds the domain
// fields only; the envelope lives in the columns.
type Record struct {
	Collection ledger.Collection
	ID         string
	UserID     string
	Data       json.RawMessage
	EventDate  string
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Record) Envelope() ledger.Envelope {
	return ledger.Envelope{
		ID:         r.ID,
		UserID:     r.UserID,
		IsArchived: r.IsArchived,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Payload is the flat JSON object returned to clients.
func (r *Record) Payload() (json.RawMessage, error) {
	return ledger.MergePayload(r.Envelope(), r.Data)
}

// RecordQuery filters ListByUser. From and To bound the event date
// (inclusive, 2006-01-02) and are ignored when empty.
type RecordQuery struct {
	UserID          string
	From            string
	To              string
	IncludeArchived bool
}
