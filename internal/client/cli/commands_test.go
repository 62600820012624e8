package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// ------------ fakes ------------

type fakeIdentity struct{ user string }

func (f *fakeIdentity) LoggedIn() bool { return f.user != "" }
func (f *fakeIdentity) Username() string { return f.user }

type call struct {
	op   string
	c    ledger.Collection
	id   string
	data map[string]any
}

type fakeRecords struct {
	calls  []call
	stored *models.Record
	query  models.RecordQuery
	list   []*models.Record
}

func (f *fakeRecords) record(op string, c ledger.Collection, id string, data json.RawMessage) *models.Record {
	var m map[string]any
	if data != nil {
		_ = json.Unmarshal(data, &m)
	}
	f.calls = append(f.calls, call{op: op, c: c, id: id, data: m})
	return &models.Record{Collection: c, ID: "65f1c0de0000000000000001", Data: data}
}

func (f *fakeRecords) Create(_ context.Context, c ledger.Collection, data json.RawMessage) (*models.Record, error) {
	return f.record("create", c, "", data), nil
}
func (f *fakeRecords) Update(_ context.Context, c ledger.Collection, id string, data json.RawMessage) (*models.Record, error) {
	return f.record("update", c, id, data), nil
}
func (f *fakeRecords) Archive(_ context.Context, c ledger.Collection, id string) (*models.Record, error) {
	return f.record("archive", c, id, nil), nil
}
func (f *fakeRecords) Restore(_ context.Context, c ledger.Collection, id string) (*models.Record, error) {
	return f.record("restore", c, id, nil), nil
}
func (f *fakeRecords) Get(_ context.Context, c ledger.Collection, id string) (*models.Record, error) {
	if f.stored == nil || f.stored.ID != id {
		return nil, common.ErrNotFound
	}
	return f.stored, nil
}
func (f *fakeRecords) List(_ context.Context, _ ledger.Collection, q models.RecordQuery) ([]*models.Record, error) {
	f.query = q
	return f.list, nil
}

type fakeSync struct {
	status   services.SyncStatus
	filter   []models.Status
	entries  []*models.QueueEntry
	run      syncer.RunResult
	retried  []int64
	refresh  []bool
	discards []int64
	compact  archive.Result

	reconciled int
}

func (f *fakeSync) Status(context.Context) (services.SyncStatus, error) { return f.status, nil }
func (f *fakeSync) Entries(_ context.Context, statuses ...models.Status) ([]*models.QueueEntry, error) {
	f.filter = statuses
	return f.entries, nil
}
func (f *fakeSync) Unsynced(context.Context) ([]*models.Record, error) { return nil, nil }
func (f *fakeSync) Reconcile(context.Context) (int, error) { return f.reconciled, nil }
func (f *fakeSync) SyncNow(context.Context) (syncer.RunResult, error) { return f.run, f.run.Err }
func (f *fakeSync) Retry(_ context.Context, id int64, refresh bool) error {
	f.retried = append(f.retried, id)
	f.refresh = append(f.refresh, refresh)
	return nil
}
func (f *fakeSync) Discard(_ context.Context, id int64) error {
	f.discards = append(f.discards, id)
	return nil
}
func (f *fakeSync) Compact(context.Context) (archive.Result, error) { return f.compact, nil }

// ------------ helpers ------------

type testApp struct {
	*App
	records *fakeRecords
	sync    *fakeSync
	out     *bytes.Buffer
}

func newTestApp() *testApp {
	recs, sync, out := &fakeRecords{}, &fakeSync{}, &bytes.Buffer{}
	a := &App{
		authService: &fakeAuth{},
		records:     recs,
		sync:        sync,
		session:     &fakeIdentity{user: "alice"},
		out:         out,
		now:         func() time.Time { return time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC) },
	}
	return &testApp{App: a, records: recs, sync: sync, out: out}
}

func (a *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	return a.Execute(context.Background(), args)
}

// ------------ tests ------------

func TestCommands_RequireLogin(t *testing.T) {
	a := newTestApp()
	a.session = &fakeIdentity{}

	for _, args := range [][]string{
		{"add", "expenses", "amount=1"},
		{"list", "expenses"},
		{"status"},
		{"sync"},
		{"logout"},
	} {
		require.ErrorIs(t, a.run(t, args...), services.ErrNotLoggedIn, args)
	}
	assert.Empty(t, a.records.calls)
}

func TestAdd_DefaultsToToday(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "add", "expenses", "amount=12.50", "currency=EUR"))
	require.Len(t, a.records.calls, 1)
	c := a.records.calls[0]
	assert.Equal(t, ledger.Expenses, c.c)
	assert.Equal(t, map[string]any{"amount": "12.50", "currency": "EUR", "date": "2026-06-10"}, c.data)
	assert.Contains(t, a.out.String(), "queued for sync")
}

func TestAdd_NaturalLanguageDate(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "add", "incomes", "amount=100", "--date", "yesterday"))
	assert.Equal(t, "2026-06-09", a.records.calls[0].data["date"])
}

func TestAdd_BudgetMonth(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "add", "budgets", "amount=300", "-d", "2026-07-15"))
	assert.Equal(t, "2026-07", a.records.calls[0].data["month"])
	assert.NotContains(t, a.records.calls[0].data, "date")
}

func TestAdd_ContactFields(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "add", "contacts", "name=Ann Lee", "phones=+371 1, +371 2"))
	assert.Equal(t, []any{"+371 1", "+371 2"}, a.records.calls[0].data["phones"])
	assert.NotContains(t, a.records.calls[0].data, "date")

	require.Error(t, a.run(t, "add", "contacts", "name=Bob", "--date", "today"), "contacts have no date")
}

func TestAdd_Errors(t *testing.T) {
	a := newTestApp()

	require.Error(t, a.run(t, "add", "groceries", "amount=1"))
	require.Error(t, a.run(t, "add", "expenses", "amount"))
	require.Error(t, a.run(t, "add", "expenses", "amount=1", "--date", "whenever"))
	require.Error(t, a.run(t, "add"))
	assert.Empty(t, a.records.calls)
}

func TestEdit_MergesFields(t *testing.T) {
	a := newTestApp()
	a.records.stored = &models.Record{
		Collection: ledger.Loans,
		ID:         "rec1",
		Data:       json.RawMessage(`{"contactId":"c1","direction":"lent","principal":"50","currency":"EUR","date":"2026-05-01"}`),
	}

	require.NoError(t, a.run(t, "edit", "loans", "rec1", "principal=75", "currency=", "closed=true"))
	require.Len(t, a.records.calls, 1)
	c := a.records.calls[0]
	assert.Equal(t, "update", c.op)
	assert.Equal(t, "rec1", c.id)
	assert.Equal(t, map[string]any{
		"contactId": "c1", "direction": "lent", "principal": "75", "date": "2026-05-01", "closed": true,
	}, c.data)

	require.ErrorIs(t, a.run(t, "edit", "loans", "missing", "principal=1"), common.ErrNotFound)
}

func TestArchiveRestore(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "archive", "expenses", "r1"))
	require.NoError(t, a.run(t, "rm", "expenses", "r2"))
	require.NoError(t, a.run(t, "restore", "expenses", "r1"))

	var ops []string
	for _, c := range a.records.calls {
		ops = append(ops, c.op+":"+c.id)
	}
	assert.Equal(t, []string{"archive:r1", "archive:r2", "restore:r1"}, ops)
}

func TestList_Query(t *testing.T) {
	a := newTestApp()
	a.records.list = []*models.Record{{ID: "r1", EventDate: "2026-06-09", Data: json.RawMessage(`{"amount":"1"}`)}}

	require.NoError(t, a.run(t, "list", "expenses", "--from", "yesterday", "--to", "2026-06-30", "--all", "--limit", "5"))
	assert.Equal(t, models.RecordQuery{From: "2026-06-09", To: "2026-06-30", IncludeArchived: true, Limit: 5}, a.records.query)
	assert.Contains(t, a.out.String(), "r1")

	a.records.list = nil
	require.NoError(t, a.run(t, "ls", "expenses"))
	assert.Equal(t, models.RecordQuery{}, a.records.query, "flags do not carry over between lines")
	assert.Contains(t, a.out.String(), "No records.")
}

func TestQueue_StatusFilter(t *testing.T) {
	a := newTestApp()
	a.sync.entries = []*models.QueueEntry{{
		ID: 7, Action: models.ActionCreate, Collection: ledger.Budgets, LocalID: "r1",
		Status: models.StatusFailed, PermanentError: true, RetryCount: 1, LastError: "422 month required",
	}}

	require.NoError(t, a.run(t, "queue", "--status", "failed", "-s", "pending"))
	assert.Equal(t, []models.Status{models.StatusFailed, models.StatusPending}, a.sync.filter)
	assert.Contains(t, a.out.String(), "failed (held)")

	require.Error(t, a.run(t, "queue", "--status", "stuck"))
}

func TestRetryDiscard(t *testing.T) {
	a := newTestApp()

	require.NoError(t, a.run(t, "retry", "3", "--refresh"))
	require.NoError(t, a.run(t, "retry", "4"))
	require.NoError(t, a.run(t, "discard", "5"))
	require.Error(t, a.run(t, "retry", "abc"))
	require.Error(t, a.run(t, "discard", "-1"))

	assert.Equal(t, []int64{3, 4}, a.sync.retried)
	assert.Equal(t, []bool{true, false}, a.sync.refresh)
	assert.Equal(t, []int64{5}, a.sync.discards)
}

func TestSyncAndStatus(t *testing.T) {
	a := newTestApp()

	a.sync.run = syncer.RunResult{Busy: true}
	require.NoError(t, a.run(t, "sync"))
	assert.Contains(t, a.out.String(), "already running")

	a.sync.run = syncer.RunResult{Attempted: 3, Succeeded: 2, Permanent: 1}
	require.NoError(t, a.run(t, "sync"))
	assert.Contains(t, a.out.String(), "3 sent, 2 ok")

	a.sync.status = services.SyncStatus{
		Counts: models.StatusCounts{Failed: 1, Permanent: 1, Attention: 1},
		Online: true,
	}
	require.NoError(t, a.run(t, "status"))
	assert.Contains(t, a.out.String(), "1 need attention")
	assert.Contains(t, a.out.String(), "online")
}

func TestCompactAndExit(t *testing.T) {
	a := newTestApp()
	a.sync.compact = archive.Result{Archived: 2, Deleted: 2, Keys: []string{"queue/u1/2026/06/10/x.jsonl"}}

	require.NoError(t, a.run(t, "compact"))
	assert.Contains(t, a.out.String(), "Removed 2 entries, archived 2.")
	assert.Contains(t, a.out.String(), "x.jsonl")

	require.ErrorIs(t, a.run(t, "exit"), errExit)
	require.ErrorIs(t, a.run(t, "quit"), errExit)
}

func TestPrompt(t *testing.T) {
	a := newTestApp()
	a.sync.status.Online = true
	assert.Equal(t, "(alice online)", a.prompt())

	a.session = &fakeIdentity{}
	assert.Empty(t, a.prompt())
}
