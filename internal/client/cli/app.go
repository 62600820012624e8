package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// RecordService is the part of services.RecordService the commands use.
type RecordService interface {
	Create(ctx context.Context, c ledger.Collection, data json.RawMessage) (*models.Record, error)
	Update(ctx context.Context, c ledger.Collection, id string, data json.RawMessage) (*models.Record, error)
	Archive(ctx context.Context, c ledger.Collection, id string) (*models.Record, error)
	Restore(ctx context.Context, c ledger.Collection, id string) (*models.Record, error)
	Get(ctx context.Context, c ledger.Collection, id string) (*models.Record, error)
	List(ctx context.Context, c ledger.Collection, q models.RecordQuery) ([]*models.Record, error)
}

// SyncService is the part of services.SyncService the commands use.
type SyncService interface {
	Status(ctx context.Context) (services.SyncStatus, error)
	Entries(ctx context.Context, statuses ...models.Status) ([]*models.QueueEntry, error)
	Unsynced(ctx context.Context) ([]*models.Record, error)
	Reconcile(ctx context.Context) (int, error)
	SyncNow(ctx context.Context) (syncer.RunResult, error)
	Retry(ctx context.Context, entryID int64, refresh bool) error
	Discard(ctx context.Context, entryID int64) error
	Compact(ctx context.Context) (archive.Result, error)
}

// Identity reports who is logged in.
type Identity interface {
	LoggedIn() bool
	Username() string
}

type App struct {
	authService services.AuthService
	records     RecordService
	sync        SyncService
	session     Identity
	reader      *bufio.Reader
	out         io.Writer
	now         func() time.Time
}

func NewApp(auth services.AuthService, records RecordService, sync SyncService, session Identity) *App {
	return &App{
		authService: auth,
		records:     records,
		sync:        sync,
		session:     session,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		now:         time.Now,
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)

	printlnFn("Welcome to fintrack (type 'help' for commands)")
	runREPL(ctx, a, a.prompt, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.LoggedIn()
}

// prompt renders the user and connectivity part of the prompt.
func (a *App) prompt() string {
	if !a.session.LoggedIn() {
		return ""
	}
	mode := "offline"
	if st, err := a.sync.Status(context.Background()); err == nil && st.Online {
		mode = "online"
	}
	return "(" + a.session.Username() + " " + mode + ")"
}
