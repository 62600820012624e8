package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fintrack/internal/api"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	// refreshMu serializes token refreshes so concurrent 401s trigger one.
	refreshMu sync.Mutex
	onRefresh func(access, refresh string)
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(log logging.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

// WithTokenListener registers fn to be called after a successful token
// refresh so the new pair can be persisted.
func WithTokenListener(fn func(access, refresh string)) Option {
	return func(c *HTTPClient) { c.onRefresh = fn }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *HTTPClient) Tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username string, salt []byte, key []byte) error {
	req := api.RegisterRequest{Username: username, Salt: salt, Verifier: key}
	err := c.call(ctx, http.MethodPost, api.PathRegister, req, nil, false)
	if errors.Is(err, common.ErrConflict) {
		return common.ErrUserExists
	}
	return err
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp api.SaltResponse
	if err := c.call(ctx, http.MethodPost, api.PathSalt, api.SaltRequest{Username: username}, &resp, false); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

// Login authenticates with the derived verifier, keeps the issued tokens and
// returns the server-side user id.
func (c *HTTPClient) Login(ctx context.Context, username string, key []byte) (string, error) {
	var resp api.LoginResponse
	if err := c.call(ctx, http.MethodPost, api.PathLogin, api.LoginRequest{Username: username, Verifier: key}, &resp, false); err != nil {
		return "", err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return resp.UserID, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp api.PingResponse
	if err := c.call(ctx, http.MethodGet, api.PathPing, nil, &resp, false); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

// Probe implements Prober with Ping.
func (c *HTTPClient) Probe(ctx context.Context) error {
	return c.Ping(ctx)
}

func (c *HTTPClient) Create(ctx context.Context, coll ledger.Collection, payload json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodPost, api.CollectionPath(coll), payload, &out, true)
	return out, err
}

func (c *HTTPClient) Update(ctx context.Context, coll ledger.Collection, id string, payload json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodPut, api.RecordPath(coll, id), payload, &out, true)
	return out, err
}

func (c *HTTPClient) Delete(ctx context.Context, coll ledger.Collection, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodDelete, api.RecordPath(coll, id), nil, &out, true)
	return out, err
}

// call sends in as JSON and decodes a 2xx body into out. On an authenticated
// call rejected with an expired token, the token pair is refreshed once and
// the request repeated.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = b
	}

	token := ""
	if authed {
		token, _ = c.Tokens()
	}

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if authed && resp.StatusCode == http.StatusUnauthorized {
		apiErr := readAPIError(resp)
		if !errors.Is(apiErr, common.ErrTokenExpired) {
			return apiErr
		}
		if err := c.refresh(ctx, token); err != nil {
			c.log.Warn(ctx, "token refresh failed", "err", err)
			return apiErr
		}
		token, _ = c.Tokens()
		if resp, err = c.send(ctx, method, path, body, token); err != nil {
			return err
		}
	}

	return decodeResponse(resp, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeader, requestID)
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.log.Debug(ctx, "request done", "method", method, "path", path, "request_id", requestID,
		"status", resp.StatusCode, "duration", time.Since(start))

	return resp, nil
}

// refresh swaps the token pair unless another caller already did so after
// used was read.
func (c *HTTPClient) refresh(ctx context.Context, used string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, refresh := c.Tokens()
	if access != used {
		return nil
	}
	if refresh == "" {
		return ErrUnauthorized
	}

	var resp api.RefreshResponse
	if err := c.call(ctx, http.MethodPost, api.PathRefresh, api.RefreshRequest{RefreshToken: refresh}, &resp, false); err != nil {
		return err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	if c.onRefresh != nil {
		c.onRefresh(resp.AccessToken, resp.RefreshToken)
	}
	return nil
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
		}
		if len(bytes.TrimSpace(b)) > 0 {
			*raw = b
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body api.ErrorResponse
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	return apiErr
}
