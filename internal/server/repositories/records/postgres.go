package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `collection, id, user_id, data, event_date, is_archived, created_at, updated_at`

func (r *PostgresRepository) Get(ctx context.Context, c ledger.Collection, id, userID string) (*models.Record, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM records
		WHERE collection = $1 AND id = $2 AND user_id = $3
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, string(c), id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Upsert leans on ON CONFLICT ... WHERE: when the row belongs to another
// user the update is skipped and RETURNING yields no row.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (collection, id, user_id, data, event_date, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data,
		    event_date = EXCLUDED.event_date,
		    is_archived = EXCLUDED.is_archived,
		    updated_at = EXCLUDED.updated_at
		WHERE records.user_id = EXCLUDED.user_id
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		string(rec.Collection), rec.ID, rec.UserID, []byte(rec.Data), rec.EventDate,
		rec.IsArchived, rec.CreatedAt, rec.UpdatedAt).Scan(&rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s %s belongs to another user", common.ErrConflict, rec.Collection, rec.ID)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) error {
	query := `
		UPDATE records
		SET data = $1, event_date = $2, is_archived = $3, updated_at = $4
		WHERE collection = $5 AND id = $6 AND user_id = $7
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		[]byte(rec.Data), rec.EventDate, rec.IsArchived, rec.UpdatedAt,
		string(rec.Collection), rec.ID, rec.UserID).Scan(&rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error) {
	var sb strings.Builder
	args := []any{string(c), q.UserID}
	sb.WriteString(`SELECT ` + selectColumns + ` FROM records WHERE collection = $1 AND user_id = $2`)

	if !q.IncludeArchived {
		sb.WriteString(` AND NOT is_archived`)
	}
	if q.From != "" {
		args = append(args, q.From)
		sb.WriteString(` AND event_date >= $` + strconv.Itoa(len(args)))
	}
	if q.To != "" {
		args = append(args, q.To)
		sb.WriteString(` AND event_date <= $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY event_date, id`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec        models.Record
		collection string
		data       []byte
	)
	if err := s.Scan(&collection, &rec.ID, &rec.UserID, &data, &rec.EventDate,
		&rec.IsArchived, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Collection = ledger.Collection(collection)
	rec.Data = data
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
