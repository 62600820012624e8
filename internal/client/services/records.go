package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/idgen"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

// Notifier is told about every new queue entry so it can sync eagerly.
type Notifier interface {
	Notify()
}

type nopNotifier struct{}

func (nopNotifier) Notify() {}

// RecordService is where every user mutation of finance records happens.
// Each mutation writes the record and its queue entry atomically and then
// pokes the notifier.
type RecordService struct {
	store    *store.Store
	session  *Session
	ids      *idgen.Generator
	notifier Notifier
	log      logging.Logger
	now      func() time.Time
}

func NewRecordService(st *store.Store, session *Session, notifier Notifier, log logging.Logger) *RecordService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &RecordService{
		store:    st,
		session:  session,
		ids:      idgen.New(),
		notifier: notifier,
		log:      log.With("component", "records"),
		now:      time.Now,
	}
}

// Create validates data for collection c and stores it as a new record.
func (s *RecordService) Create(ctx context.Context, c ledger.Collection, data json.RawMessage) (*models.Record, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	normalized, err := ledger.Normalize(c, data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &models.Record{
		Collection: c,
		ID:         s.ids.NewID(),
		UserID:     userID,
		Data:       normalized,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return rec, s.save(ctx, rec, models.ActionCreate)
}

// Update replaces the domain fields of an existing record.
func (s *RecordService) Update(ctx context.Context, c ledger.Collection, id string, data json.RawMessage) (*models.Record, error) {
	rec, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if rec.IsArchived {
		return nil, fmt.Errorf("%w: %s %s is archived, restore it first", common.ErrConflict, c, id)
	}
	normalized, err := ledger.Normalize(c, data)
	if err != nil {
		return nil, err
	}

	rec.Data = normalized
	rec.UpdatedAt = s.now().UTC()
	return rec, s.save(ctx, rec, models.ActionUpdate)
}

// Archive soft-deletes a record. Archiving an archived record is a no-op.
func (s *RecordService) Archive(ctx context.Context, c ledger.Collection, id string) (*models.Record, error) {
	return s.setArchived(ctx, c, id, true, models.ActionDelete)
}

// Restore brings an archived record back.
func (s *RecordService) Restore(ctx context.Context, c ledger.Collection, id string) (*models.Record, error) {
	return s.setArchived(ctx, c, id, false, models.ActionUpdate)
}

func (s *RecordService) setArchived(ctx context.Context, c ledger.Collection, id string, archived bool, action models.Action) (*models.Record, error) {
	rec, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if rec.IsArchived == archived {
		return rec, nil
	}

	rec.IsArchived = archived
	rec.UpdatedAt = s.now().UTC()
	return rec, s.save(ctx, rec, action)
}

// Get returns one of the current user's records.
func (s *RecordService) Get(ctx context.Context, c ledger.Collection, id string) (*models.Record, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Records(nil).Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

// List returns the current user's records of c; q.UserID is ignored.
func (s *RecordService) List(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error) {
	userID, err := s.session.require()
	if err != nil {
		return nil, err
	}
	q.UserID = userID
	return s.store.Records(nil).ListByUser(ctx, c, q)
}

func (s *RecordService) save(ctx context.Context, rec *models.Record, action models.Action) error {
	entry, err := s.store.RecordAndEnqueue(ctx, rec, action)
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "mutation queued", "entry", entry.ID, "action", action, "collection", rec.Collection, "id", rec.ID)
	s.notifier.Notify()
	return nil
}
