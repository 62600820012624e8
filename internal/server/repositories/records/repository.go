// Package records stores the server copy of every finance collection in a
// single table keyed by (collection, id).
package records

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	// Get returns the caller's record, or common.ErrNotFound when the id is
	// unknown or owned by someone else.
	Get(ctx context.Context, c ledger.Collection, id, userID string) (*models.Record, error)

	// Upsert inserts rec, or replaces it when rec.UserID already owns the id.
	// An id owned by another user yields common.ErrConflict. rec.CreatedAt is
	// set to the stored value.
	Upsert(ctx context.Context, rec *models.Record) error

	// Update replaces an existing record of rec.UserID. An unknown id yields
	// common.ErrNotFound.
	Update(ctx context.Context, rec *models.Record) error

	// ListByUser returns q.UserID's records of c ordered by event date, then id.
	ListByUser(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error)
}
