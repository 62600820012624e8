package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/api"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

// errBadRequest marks bodies that are not valid JSON.
var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readBody returns the raw body, or nil for an empty one.
func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(b) > 0 && !json.Valid(b) {
		return nil, fmt.Errorf("%w: body is not valid JSON", errBadRequest)
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusOf maps service errors to HTTP statuses. The message of a 401 for an
// expired access token is exactly common.ErrTokenExpired's text, which is
// what clients key their refresh on.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrUserExists):
		return http.StatusConflict, common.ErrUserExists.Error()
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, common.ErrTokenExpired.Error()
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error()
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, common.ErrUnauthorized.Error()
	default:
		return http.StatusInternalServerError, common.ErrInternal.Error()
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "err", err)
	}
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}
