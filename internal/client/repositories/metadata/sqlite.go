package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

// SQLiteRepository implements Repository over dbx.DBTX, so it can join a
// transaction. Multi-key writes go out as a single statement and are atomic
// even without one.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata get %q: %w", key, err)
	}
	return value, nil
}

// GetMany returns the present keys among keys. Absent keys are missing from
// the map rather than mapped to nil.
func (r *SQLiteRepository) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	return r.query(ctx,
		`SELECT key, value FROM metadata WHERE key IN (`+placeholders(len(keys))+`)`,
		anySlice(keys)...)
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string][]byte, error) {
	return r.query(ctx, `SELECT key, value FROM metadata`)
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany upserts all values in one statement, in key order.
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([]string, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		rows[i] = "(?, ?)"
		args = append(args, k, values[k])
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES `+strings.Join(rows, ", ")+`
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, args...)
	if err != nil {
		return fmt.Errorf("metadata set %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

// Delete removes keys; absent ones are ignored.
func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM metadata WHERE key IN (`+placeholders(len(keys))+`)`, anySlice(keys)...)
	if err != nil {
		return fmt.Errorf("metadata delete %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("metadata clear: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("metadata query: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("metadata scan: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata rows: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice(keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
