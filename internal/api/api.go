// Package api holds the REST wire types shared by the client and the server.
//
// Record payloads are not typed here: they travel as the flat JSON objects
// produced by ledger.MergePayload, and every response for a record operation
// carries the server's canonical copy of that object.
package api

import (
	"net/url"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

const (
	PathRegister = "/api/auth/register"
	PathSalt     = "/api/auth/salt"
	PathLogin    = "/api/auth/login"
	PathRefresh  = "/api/auth/refresh"
	PathPing     = "/api/ping"
)

// CollectionPath is the endpoint for listing and creating records of c.
func CollectionPath(c ledger.Collection) string {
	return "/api/" + url.PathEscape(string(c))
}

// RecordPath is the endpoint for updating and archiving one record.
func RecordPath(c ledger.Collection, id string) string {
	return CollectionPath(c) + "/" + url.PathEscape(id)
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type SaltRequest struct {
	Username string `json:"username"`
}

type SaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type LoginResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type PingResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
