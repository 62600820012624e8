package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrUnauthorized
	ErrNotFound     = common.ErrNotFound
)

// APIError is a non-2xx response from the Remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote api: %d %s", e.StatusCode, e.Message)
}

// Is lets callers match an APIError against the package and common sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnavailable:
		return e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	case common.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case common.ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case common.ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized && e.Message == common.ErrTokenExpired.Error()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
