package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

const columns = `id, user_id, action, collection, data, local_id, timestamp,
	retry_count, status, last_error, permanent_error, updated_at`

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.QueueEntry) (*models.QueueEntry, error) {
	if !e.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", e.Action)
	}
	if !e.Collection.Valid() {
		return nil, fmt.Errorf("unknown collection %q", e.Collection)
	}

	now := r.now()
	query := `
		INSERT INTO sync_queue (user_id, action, collection, data, local_id, timestamp,
			retry_count, status, last_error, permanent_error, updated_at)
		SELECT ?, ?, ?, ?, ?, MAX(?, COALESCE(MAX(timestamp), 0) + 1), 0, 'pending', '', 0, ?
		FROM sync_queue
		RETURNING id, timestamp`

	out := *e
	err := r.db.QueryRowContext(ctx, query,
		e.UserID, string(e.Action), string(e.Collection), string(e.Data), e.LocalID,
		now.UnixNano(), models.FormatTime(now),
	).Scan(&out.ID, &out.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s/%s: %w", e.Action, e.Collection, e.LocalID, err)
	}

	out.RetryCount = 0
	out.Status = models.StatusPending
	out.LastError = ""
	out.PermanentError = false
	out.UpdatedAt = now.UTC()
	return &out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.QueueEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM sync_queue WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) NextBatch(ctx context.Context, userID string, c ledger.Collection, limit int) ([]*models.QueueEntry, error) {
	query := `SELECT ` + columns + ` FROM sync_queue
		WHERE user_id = ? AND status IN ('pending', 'failed')`
	vals := []any{userID}
	if c != "" {
		query += ` AND collection = ?`
		vals = append(vals, string(c))
	}
	query += ` ORDER BY timestamp, id`
	if limit > 0 {
		query += ` LIMIT ?`
		vals = append(vals, limit)
	}
	return r.list(ctx, query, vals...)
}

func (r *SQLiteRepository) MarkSyncing(ctx context.Context, id int64) error {
	return r.transition(ctx, id, "syncing",
		`UPDATE sync_queue SET status = 'syncing', updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'failed')`,
		models.FormatTime(r.now()), id)
}

func (r *SQLiteRepository) MarkDone(ctx context.Context, id int64) error {
	return r.transition(ctx, id, "done",
		`UPDATE sync_queue SET status = 'done', permanent_error = 0, updated_at = ?
		 WHERE id = ? AND status = 'syncing'`,
		models.FormatTime(r.now()), id)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, msg string, permanent bool) error {
	return r.transition(ctx, id, "failed",
		`UPDATE sync_queue SET status = 'failed', retry_count = retry_count + 1,
			last_error = ?, permanent_error = ?, updated_at = ?
		 WHERE id = ? AND status = 'syncing'`,
		msg, boolInt(permanent), models.FormatTime(r.now()), id)
}

func (r *SQLiteRepository) ReleaseSyncing(ctx context.Context, id int64) error {
	return r.transition(ctx, id, "pending",
		`UPDATE sync_queue SET status = 'pending', updated_at = ?
		 WHERE id = ? AND status = 'syncing'`,
		models.FormatTime(r.now()), id)
}

func (r *SQLiteRepository) transition(ctx context.Context, id int64, to string, query string, vals ...any) error {
	res, err := r.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("failed to mark queue entry %d %s: %w", id, to, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: entry %d to %s", ErrInvalidTransition, id, to)
	}
	return nil
}

func (r *SQLiteRepository) ResetSyncing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = 'pending', updated_at = ? WHERE status = 'syncing'`,
		models.FormatTime(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to reset syncing entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context, userID string, attentionThreshold int) (models.StatusCounts, error) {
	var c models.StatusCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'syncing'), 0),
			COALESCE(SUM(status = 'failed'), 0),
			COALESCE(SUM(status = 'done'), 0),
			COALESCE(SUM(status = 'failed' AND permanent_error = 1), 0),
			COALESCE(SUM(status <> 'done' AND (permanent_error = 1 OR retry_count > ?)), 0)
		FROM sync_queue WHERE user_id = ?`, attentionThreshold, userID,
	).Scan(&c.Pending, &c.Syncing, &c.Failed, &c.Done, &c.Permanent, &c.Attention)
	if err != nil {
		return c, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, userID string, statuses ...models.Status) ([]*models.QueueEntry, error) {
	query := `SELECT ` + columns + ` FROM sync_queue WHERE user_id = ?`
	vals := []any{userID}
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, s := range statuses {
			marks[i] = "?"
			vals = append(vals, string(s))
		}
		query += ` AND status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY timestamp, id`
	return r.list(ctx, query, vals...)
}

func (r *SQLiteRepository) HasOutstanding(ctx context.Context, localID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sync_queue WHERE local_id = ? AND status <> 'done')`, localID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check outstanding entries for %s: %w", localID, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) OutstandingLocalIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT local_id FROM sync_queue WHERE user_id = ? AND status <> 'done'`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding local ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan local id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate local ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Retry(ctx context.Context, id int64, data json.RawMessage) error {
	var payload any
	if data != nil {
		payload = string(data)
	}
	return r.transition(ctx, id, "retry",
		`UPDATE sync_queue SET permanent_error = 0, data = COALESCE(?, data), updated_at = ?
		 WHERE id = ? AND status = 'failed'`,
		payload, models.FormatTime(r.now()), id)
}

func (r *SQLiteRepository) Discard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ? AND status = 'failed'`, id)
	if err != nil {
		return fmt.Errorf("failed to discard queue entry %d: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: only failed entries can be discarded (entry %d)", ErrInvalidTransition, id)
	}
	return nil
}

func (r *SQLiteRepository) DiscardOutstanding(ctx context.Context, localID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE local_id = ? AND status IN ('pending', 'failed')`, localID)
	if err != nil {
		return 0, fmt.Errorf("failed to discard entries for %s: %w", localID, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ListDone(ctx context.Context, userID string, before time.Time, limit int) ([]*models.QueueEntry, error) {
	query := `SELECT ` + columns + ` FROM sync_queue
		WHERE user_id = ? AND status = 'done' AND updated_at < ? ORDER BY timestamp, id`
	vals := []any{userID, models.FormatTime(before)}
	if limit > 0 {
		query += ` LIMIT ?`
		vals = append(vals, limit)
	}
	return r.list(ctx, query, vals...)
}

func (r *SQLiteRepository) DeleteDone(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := make([]string, len(ids))
	vals := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		vals[i] = id
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE status = 'done' AND id IN (`+strings.Join(marks, ", ")+`)`, vals...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete done entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) list(ctx context.Context, query string, vals ...any) ([]*models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.QueueEntry, error) {
	var (
		e                          models.QueueEntry
		action, collection, status string
		data, updated              string
		permanent                  int
	)
	err := s.Scan(&e.ID, &e.UserID, &action, &collection, &data, &e.LocalID, &e.Timestamp,
		&e.RetryCount, &status, &e.LastError, &permanent, &updated)
	if err != nil {
		return nil, err
	}

	e.Action = models.Action(action)
	e.Collection = ledger.Collection(collection)
	e.Status = models.Status(status)
	e.Data = json.RawMessage(data)
	e.PermanentError = permanent == 1
	if e.UpdatedAt, err = models.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
