// Package client talks to the fintrack Remote API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract. RemoteAPI is the narrow surface the sync
//     processor needs (Create, Update, Delete); Client adds the session calls
//     used by the services (Register, GetSalt, Login, Ping).
//  2. HTTPClient, a REST implementation that injects the bearer token and a
//     request id into every call, refreshes an expired access token once and
//     retries, and maps HTTP failures to *APIError and sentinel errors.
//  3. GRPCHealthProbe, a reachability probe against the standard gRPC health
//     service the server exposes next to its REST listener.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx responses are returned as
// *APIError, which also matches ErrUnauthorized, ErrNotFound, ErrUnavailable
// and the common conflict/validation sentinels through errors.Is.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation.
package client
