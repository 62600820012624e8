package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, user_id, data, event_date, is_archived, synced, created_at, updated_at`

func table(c ledger.Collection) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", c)
	}
	return c.Table(), nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c ledger.Collection, id string) (*models.Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM `+t+` WHERE id = ?`, id)
	rec, err := scanRecord(c, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, rec *models.Record) error {
	t, err := table(rec.Collection)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO `+t+` (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, args(rec)...)
	if err != nil {
		return fmt.Errorf("failed to insert %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Record) error {
	t, err := table(rec.Collection)
	if err != nil {
		return err
	}

	query := `INSERT INTO ` + t + ` (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			event_date = excluded.event_date,
			is_archived = excluded.is_archived,
			synced = excluded.synced,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		WHERE ` + t + `.user_id = excluded.user_id`

	res, err := r.db.ExecContext(ctx, query, args(rec)...)
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", rec.Collection, rec.ID, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("%w: %s/%s belongs to another user", common.ErrConflict, rec.Collection, rec.ID)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, c ledger.Collection, id string) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	var (
		where = []string{"user_id = ?"}
		vals  = []any{q.UserID}
	)
	if q.From != "" {
		where = append(where, "event_date >= ?")
		vals = append(vals, q.From)
	}
	if q.To != "" {
		where = append(where, "event_date <= ?")
		vals = append(vals, q.To)
	}
	if !q.IncludeArchived {
		where = append(where, "is_archived = 0")
	}

	query := `SELECT ` + columns + ` FROM ` + t + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY event_date, id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		vals = append(vals, q.Limit)
	}

	return r.query(ctx, c, query, vals...)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context, userID string) ([]*models.Record, error) {
	var out []*models.Record
	for _, c := range ledger.All {
		recs, err := r.query(ctx, c,
			`SELECT `+columns+` FROM `+c.Table()+` WHERE user_id = ? AND synced = 0 ORDER BY updated_at, id`, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, c ledger.Collection, id string) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE `+t+` SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s/%s synced: %w", c, id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, c ledger.Collection, query string, vals ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", c, err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(c, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", c, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(c ledger.Collection, s scanner) (*models.Record, error) {
	var (
		rec                  = &models.Record{Collection: c}
		data                 string
		created, updated     string
		archived, syncedFlag int
	)
	if err := s.Scan(&rec.ID, &rec.UserID, &data, &rec.EventDate, &archived, &syncedFlag, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = models.ParseTime(created); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if rec.UpdatedAt, err = models.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	rec.Data = []byte(data)
	rec.IsArchived = archived == 1
	rec.Synced = syncedFlag == 1
	return rec, nil
}

func args(rec *models.Record) []any {
	data := string(rec.Data)
	if data == "" {
		data = "{}"
	}
	return []any{
		rec.ID, rec.UserID, data, rec.EventDate,
		boolInt(rec.IsArchived), boolInt(rec.Synced),
		models.FormatTime(rec.CreatedAt), models.FormatTime(rec.UpdatedAt),
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
