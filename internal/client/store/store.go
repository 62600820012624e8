// Package store is the client's local durable store: a SQLite database with
// one table per record collection, the sync queue, and session metadata.
//
// # Overview
//
// Store owns the *sql.DB and hands out repositories bound either to the
// database or to a transaction. The operations that must touch more than one
// table live here so they can run in one transaction:
//
//   - RecordAndEnqueue writes a record and its queue entry atomically.
//   - Confirm marks a queue entry done and, when nothing else is outstanding
//     for the record, flags the record synced and merges server state.
//   - Recover resets entries left in syncing by a crash.
//   - Reconcile re-enqueues unsynced records that lost their queue entry.
//
// # Concurrency
//
// SQLite allows one writer. The pool is limited to a single connection so
// that statements issued by different goroutines are serialized instead of
// failing with SQLITE_BUSY.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/migrations"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/records"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/logging"

	_ "modernc.org/sqlite"
)

// Store is the local database plus the multi-table operations on it.
type Store struct {
	db  *sql.DB
	log logging.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// migrations. Use ":memory:" only in tests.
func Open(ctx context.Context, path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop{}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return &Store{db: db, log: log.With("component", "store")}, nil
}

// New wraps an already migrated database.
func New(db *sql.DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{db: db, log: log.With("component", "store")}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Records returns the records repository bound to tx, or to the database
// when tx is nil.
func (s *Store) Records(tx dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(s.handle(tx))
}

// Queue returns the sync queue repository bound to tx or the database.
func (s *Store) Queue(tx dbx.DBTX) syncqueue.Repository {
	return syncqueue.NewSQLiteRepository(s.handle(tx))
}

// Metadata returns the metadata repository bound to tx or the database.
func (s *Store) Metadata(tx dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(s.handle(tx))
}

// InTx runs fn in a transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *Store) handle(tx dbx.DBTX) dbx.DBTX {
	if tx == nil {
		return s.db
	}
	return tx
}
