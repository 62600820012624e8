package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// switchRemote fails every call with err while it is set.
type switchRemote struct {
	mu       sync.Mutex
	err      error
	payloads []json.RawMessage
}

func (r *switchRemote) set(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *switchRemote) do(payload json.RawMessage) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.err != nil {
		return nil, r.err
	}
	return payload, nil
}

func (r *switchRemote) Create(_ context.Context, _ ledger.Collection, p json.RawMessage) (json.RawMessage, error) {
	return r.do(p)
}

func (r *switchRemote) Update(_ context.Context, _ ledger.Collection, _ string, p json.RawMessage) (json.RawMessage, error) {
	return r.do(p)
}

func (r *switchRemote) Delete(context.Context, ledger.Collection, string) (json.RawMessage, error) {
	return r.do(nil)
}

type fixedConnectivity bool

func (f fixedConnectivity) Online() bool { return bool(f) }

type syncFixture struct {
	store   *store.Store
	records *RecordService
	sync    *SyncService
	remote  *switchRemote
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	st := openStore(t)
	session := loggedIn("u1")
	remote := &switchRemote{}
	proc := syncer.NewProcessor(st, remote, nil, syncer.Config{AttentionThreshold: 3})
	comp := archive.NewCompactor(st, nil, archive.S3Config{}, nil, archive.Config{DoneRetention: time.Nanosecond})
	return &syncFixture{
		store:   st,
		records: NewRecordService(st, session, nil, nil),
		sync:    NewSyncService(st, session, proc, comp, fixedConnectivity(true), nil),
		remote:  remote,
	}
}

func TestSyncService_StatusAndSyncNow(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.records.Create(ctx, ledger.Expenses, json.RawMessage(`{"amount":"5","date":"2026-06-01"}`))
	require.NoError(t, err)
	_, err = f.records.Create(ctx, ledger.Categories, json.RawMessage(`{"name":"Food","kind":"expense"}`))
	require.NoError(t, err)

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Counts.Pending)
	assert.Equal(t, 2, st.Unsynced)
	assert.True(t, st.Online)
	assert.False(t, st.Healthy())
	assert.Nil(t, st.LastRun)
	assert.True(t, st.LastSync.IsZero())

	res, err := f.sync.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	st, err = f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Counts.Done)
	assert.Zero(t, st.Unsynced)
	assert.True(t, st.Healthy())
	require.NotNil(t, st.LastRun)
	assert.Equal(t, 2, st.LastRun.Succeeded)
	assert.False(t, st.LastSync.IsZero())
}

func TestSyncService_RetryWithRefresh(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.remote.set(&client.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "currency required"})
	rec, err := f.records.Create(ctx, ledger.Expenses, json.RawMessage(`{"amount":"5","date":"2026-06-01"}`))
	require.NoError(t, err)

	res, err := f.sync.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Permanent)

	failed, err := f.sync.Entries(ctx, models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].PermanentError)

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Counts.Attention)

	// The user fixes the record locally; the CREATE is still held, so the
	// fix is queued behind it.
	_, err = f.records.Update(ctx, ledger.Expenses, rec.ID, json.RawMessage(`{"amount":"5","currency":"EUR","date":"2026-06-01"}`))
	require.NoError(t, err)

	f.remote.set(nil)
	require.NoError(t, f.sync.Retry(ctx, failed[0].ID, true))

	res, err = f.sync.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(f.remote.payloads[1], &sent))
	assert.Equal(t, "EUR", sent["currency"], "refreshed payload carries the fix")

	unsynced, err := f.sync.Unsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestSyncService_RetryRejectsOtherUsersAndNonFailed(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.records.Create(ctx, ledger.Expenses, json.RawMessage(`{"amount":"5","date":"2026-06-01"}`))
	require.NoError(t, err)
	pending, err := f.sync.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	assert.Error(t, f.sync.Retry(ctx, pending[0].ID, false), "pending entries cannot be retried")

	other := NewSyncService(f.store, loggedIn("u2"), syncer.NewProcessor(f.store, f.remote, nil, syncer.Config{}), nil, nil, nil)
	assert.ErrorIs(t, other.Retry(ctx, pending[0].ID, false), common.ErrNotFound)
	assert.ErrorIs(t, other.Discard(ctx, pending[0].ID), common.ErrNotFound)
}

func TestSyncService_DiscardCreate(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.remote.set(&client.APIError{StatusCode: http.StatusBadRequest})
	rec, err := f.records.Create(ctx, ledger.Budgets, json.RawMessage(`{"amount":"300","month":"2026-06"}`))
	require.NoError(t, err)
	_, err = f.sync.SyncNow(ctx)
	require.NoError(t, err)

	failed, err := f.sync.Entries(ctx, models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	require.NoError(t, f.sync.Discard(ctx, failed[0].ID))

	_, err = f.records.Get(ctx, ledger.Budgets, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Healthy())
}

func TestSyncService_ReconcileAndCompact(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, f.store.Records(nil).Add(ctx, &models.Record{
		Collection: ledger.Expenses, ID: "orphan", UserID: "u1",
		Data:      json.RawMessage(`{"amount":"1","date":"2026-06-01"}`),
		CreatedAt: now, UpdatedAt: now,
	}))

	n, err := f.sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.sync.SyncNow(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	res, err := f.sync.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)

	entries, err := f.sync.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
