package records

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type key struct {
	collection ledger.Collection
	id         string
}

// MemoryRepository keeps records in a map. It follows PostgresRepository's
// semantics and backs service and handler tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[key]models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[key]models.Record)}
}

func (r *MemoryRepository) Get(_ context.Context, c ledger.Collection, id, userID string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[key{c, id}]
	if !ok || rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	return clone(rec), nil
}

func (r *MemoryRepository) Upsert(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{rec.Collection, rec.ID}
	if cur, ok := r.rows[k]; ok {
		if cur.UserID != rec.UserID {
			return fmt.Errorf("%w: %s %s belongs to another user", common.ErrConflict, rec.Collection, rec.ID)
		}
		rec.CreatedAt = cur.CreatedAt
	}
	r.rows[k] = *clone(*rec)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{rec.Collection, rec.ID}
	cur, ok := r.rows[k]
	if !ok || cur.UserID != rec.UserID {
		return common.ErrNotFound
	}
	rec.CreatedAt = cur.CreatedAt
	r.rows[k] = *clone(*rec)
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Record
	for k, rec := range r.rows {
		switch {
		case k.collection != c, rec.UserID != q.UserID:
			continue
		case rec.IsArchived && !q.IncludeArchived:
			continue
		case q.From != "" && rec.EventDate < q.From:
			continue
		case q.To != "" && rec.EventDate > q.To:
			continue
		}
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate < out[j].EventDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func clone(rec models.Record) *models.Record {
	rec.Data = bytes.Clone(rec.Data)
	return &rec
}
