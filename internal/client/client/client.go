package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

// RemoteAPI is what the sync processor dispatches queue entries to. Each call
// sends a flat record payload and returns the server's canonical copy.
type RemoteAPI interface {
	Create(ctx context.Context, c ledger.Collection, payload json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, c ledger.Collection, id string, payload json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, c ledger.Collection, id string) (json.RawMessage, error)
}

// Prober reports whether the server is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

type Client interface {
	RemoteAPI
	Close() error
	Register(ctx context.Context, username string, salt []byte, key []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, key []byte) (string, error)
	Ping(ctx context.Context) error
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
}
