// Package httpapi serves the REST API that clients sync against. Routes are
// registered on a net/http ServeMux with method and wildcard patterns.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/api"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/services"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	UserIDFromAccessToken(token string) (string, error)
}

type RecordService interface {
	Create(ctx context.Context, userID string, c ledger.Collection, payload json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, userID string, c ledger.Collection, id string, payload json.RawMessage) (json.RawMessage, error)
	Archive(ctx context.Context, userID string, c ledger.Collection, id string) (json.RawMessage, error)
	List(ctx context.Context, userID string, c ledger.Collection, q models.RecordQuery) ([]json.RawMessage, error)
}

type Server struct {
	address         string
	users           UserService
	records         RecordService
	logger          logging.Logger
	shutdownTimeout time.Duration
	now             func() time.Time
}

func NewServer(address string, users UserService, records RecordService, l logging.Logger, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		users:           users,
		records:         records,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
		now:             time.Now,
	}
}

// Handler returns the API with its middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+api.PathRegister, s.register)
	mux.HandleFunc("POST "+api.PathSalt, s.salt)
	mux.HandleFunc("POST "+api.PathLogin, s.login)
	mux.HandleFunc("POST "+api.PathRefresh, s.refresh)
	mux.HandleFunc("GET "+api.PathPing, s.ping)

	mux.Handle("GET /api/{collection}", s.requireAuth(s.listRecords))
	mux.Handle("POST /api/{collection}", s.requireAuth(s.createRecord))
	mux.Handle("PUT /api/{collection}/{id}", s.requireAuth(s.updateRecord))
	mux.Handle("DELETE /api/{collection}/{id}", s.requireAuth(s.archiveRecord))

	return s.withRequestLog(s.withRecover(mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		errCh <- srv.Serve(listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
