package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/fintrack/internal/client/archive"
	"github.com/dmitrijs2005/fintrack/internal/client/cli"
	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/config"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/client/trigger"
	"github.com/dmitrijs2005/fintrack/internal/filex"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dbPath, err := filex.EnsureParentDir(cfg.DBPath)
	if err != nil {
		return err
	}
	logOpts := cfg.Logging()
	if logOpts.File != "" {
		if logOpts.File, err = filex.EnsureParentDir(logOpts.File); err != nil {
			return err
		}
	}

	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	st, err := store.Open(ctx, dbPath, logger)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer st.Close()

	if _, err := st.Recover(ctx); err != nil {
		return fmt.Errorf("recover sync queue: %w", err)
	}

	session := &services.Session{}

	// The token listener needs the auth service, which needs the client.
	var authSvc services.AuthService
	api := client.NewHTTPClient(cfg.ServerURL,
		client.WithLogger(logger),
		client.WithTokenListener(func(access, refresh string) {
			if err := authSvc.SaveTokens(context.WithoutCancel(ctx), access, refresh); err != nil {
				logger.Error(ctx, "failed to persist refreshed tokens", "error", err)
			}
		}),
	)
	authSvc = services.NewAuthService(api, st, session)

	probe, err := client.NewGRPCHealthProbe(cfg.HealthAddr, "")
	if err != nil {
		return err
	}
	defer probe.Close()

	var uploader archive.Uploader
	if cfg.S3.Enabled() {
		s3c, err := archive.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		uploader = s3c
	}

	processor := syncer.NewProcessor(st, api, logger, cfg.Syncer())
	compactor := archive.NewCompactor(st, uploader, cfg.S3, logger, cfg.Archive())
	watcher := trigger.NewWatcher(probe, processor, session.UserID, logger, cfg.Trigger())

	records := services.NewRecordService(st, session, watcher, logger)
	syncSvc := services.NewSyncService(st, session, processor, compactor, watcher, watcher)
	app := cli.NewApp(authSvc, records, syncSvc, session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })

	// The REPL blocks on stdin, so it is not part of the group: a signal
	// must be able to end the program while a read is pending.
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(gctx)
	}()

	select {
	case <-done:
	case <-gctx.Done():
	}
	cancel()
	return g.Wait()
}
