// Package records persists local copies of finance records, one SQLite table
// per collection.
//
// # Overview
//
// Every table has the same shape: the envelope columns (id, user_id,
// is_archived, created_at, updated_at), the domain body as JSON in data, the
// copied event_date for range queries, and the synced flag. Records are
// never hard-deleted by user actions; archiving sets is_archived.
//
// The repository is bound to a dbx.DBTX, so the store can write a record and
// its sync queue entry in one transaction.
package records

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// Repository describes storage of local records.
type Repository interface {
	// Get returns one record; common.ErrNotFound if absent.
	Get(ctx context.Context, c ledger.Collection, id string) (*models.Record, error)

	// Add inserts a new record and fails if the id already exists.
	Add(ctx context.Context, r *models.Record) error

	// Put inserts or replaces a record by id.
	Put(ctx context.Context, r *models.Record) error

	// Delete removes a record row. Only used when a never-synced creation is
	// discarded.
	Delete(ctx context.Context, c ledger.Collection, id string) error

	// ListByUser returns the user's records ordered by event date then id.
	ListByUser(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error)

	// ListUnsynced returns every record of the user, in every collection,
	// that has not been confirmed by the server.
	ListUnsynced(ctx context.Context, userID string) ([]*models.Record, error)

	// MarkSynced flips synced=true without touching other fields.
	MarkSynced(ctx context.Context, c ledger.Collection, id string) error
}
