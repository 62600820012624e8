// Package server wires the sync server together: storage, migrations, the
// REST API and the gRPC health endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/config"
	"github.com/dmitrijs2005/fintrack/internal/server/httpapi"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fintrack/internal/server/services"

	gs "github.com/dmitrijs2005/fintrack/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer
	db        *sql.DB
	http      *httpapi.Server
	grpc      *gs.GRPCServer
}

// NewApp opens the database, applies pending migrations and builds the
// servers. Close releases what NewApp acquired.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser, err := logging.New(c.Logging())
	if err != nil {
		return nil, err
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	us := services.NewUserService(db, m, c, logger)
	rs := services.NewRecordService(db, m, logger)

	return &App{
		config:    c,
		logger:    logger,
		logCloser: logCloser,
		db:        db,
		http:      httpapi.NewServer(c.EndpointAddrHTTP, us, rs, logger, c.ShutdownTimeout),
		grpc:      gs.NewGRPCServer(c.EndpointAddrGRPC, logger),
	}, nil
}

// Run serves until ctx is cancelled or one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.grpc.Run(gctx) })

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) Close() error {
	return multierr.Combine(app.db.Close(), app.logCloser.Close())
}
