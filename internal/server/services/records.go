package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/idgen"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
)

// RecordService stores the records clients push. Requests and responses are
// the flat payloads built by ledger.MergePayload; every write returns the
// stored, canonical payload.
//
// Errors: common.ErrValidation for a malformed payload, common.ErrNotFound
// for an id the caller does not own, common.ErrConflict when POST names an
// id owned by another user.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *RecordService {
	if log == nil {
		log = logging.Nop{}
	}
	return &RecordService{
		db:          db,
		repomanager: m,
		log:         log.With("component", "records"),
		now:         time.Now,
	}
}

// Create stores a client-created record. Repeating the call with the same id
// replaces the record, so a retried CREATE never makes a duplicate.
func (s *RecordService) Create(ctx context.Context, userID string, c ledger.Collection, payload json.RawMessage) (json.RawMessage, error) {
	env, data, err := s.decode(c, payload)
	if err != nil {
		return nil, err
	}
	if !idgen.IsValid(env.ID) {
		return nil, fmt.Errorf("%w: invalid record id %q", common.ErrValidation, env.ID)
	}

	now := s.now().UTC()
	rec := &models.Record{
		Collection: c,
		ID:         env.ID,
		UserID:     userID,
		Data:       data,
		EventDate:  ledger.EventDate(data),
		IsArchived: env.IsArchived,
		CreatedAt:  orNow(env.CreatedAt, now),
		UpdatedAt:  orNow(env.UpdatedAt, now),
	}
	if err := s.repomanager.Records(s.db).Upsert(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "record stored", "collection", c, "id", rec.ID, "user_id", userID)
	return rec.Payload()
}

// Update replaces the domain fields and archive flag of an existing record.
func (s *RecordService) Update(ctx context.Context, userID string, c ledger.Collection, id string, payload json.RawMessage) (json.RawMessage, error) {
	env, data, err := s.decode(c, payload)
	if err != nil {
		return nil, err
	}
	if env.ID != "" && env.ID != id {
		return nil, fmt.Errorf("%w: payload id %q does not match %q", common.ErrValidation, env.ID, id)
	}

	rec, err := s.repomanager.Records(s.db).Get(ctx, c, id, userID)
	if err != nil {
		return nil, err
	}
	rec.Data = data
	rec.EventDate = ledger.EventDate(data)
	rec.IsArchived = env.IsArchived
	rec.UpdatedAt = orNow(env.UpdatedAt, s.now().UTC())

	if err := s.repomanager.Records(s.db).Update(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "record updated", "collection", c, "id", id, "user_id", userID)
	return rec.Payload()
}

// Archive soft-deletes a record. Archiving an archived record returns it
// unchanged.
func (s *RecordService) Archive(ctx context.Context, userID string, c ledger.Collection, id string) (json.RawMessage, error) {
	rec, err := s.repomanager.Records(s.db).Get(ctx, c, id, userID)
	if err != nil {
		return nil, err
	}
	if !rec.IsArchived {
		rec.IsArchived = true
		rec.UpdatedAt = s.now().UTC()
		if err := s.repomanager.Records(s.db).Update(ctx, rec); err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "record archived", "collection", c, "id", id, "user_id", userID)
	}
	return rec.Payload()
}

// List returns the caller's records of c as payloads.
func (s *RecordService) List(ctx context.Context, userID string, c ledger.Collection, q models.RecordQuery) ([]json.RawMessage, error) {
	q.UserID = userID
	recs, err := s.repomanager.Records(s.db).ListByUser(ctx, c, q)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.Payload()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *RecordService) decode(c ledger.Collection, payload json.RawMessage) (ledger.Envelope, json.RawMessage, error) {
	env, data, err := ledger.SplitPayload(payload)
	if err != nil {
		return env, nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	data, err = ledger.Normalize(c, data)
	if err != nil {
		return env, nil, err
	}
	return env, data, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
