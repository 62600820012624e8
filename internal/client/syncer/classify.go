package syncer

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

// Outcome is how a dispatch result affects its queue entry.
type Outcome int

const (
	// OutcomeSuccess: the server applied the mutation.
	OutcomeSuccess Outcome = iota
	// OutcomeTerminal: the server no longer has the record (404 on UPDATE or
	// DELETE). Nothing is left to apply, so the entry is finished.
	OutcomeTerminal
	// OutcomeTransient: retry on a later run.
	OutcomeTransient
	// OutcomePermanent: retrying will not help; hold for the user.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	}
	return "unknown"
}

// Done reports whether the entry can be marked done.
func (o Outcome) Done() bool {
	return o == OutcomeSuccess || o == OutcomeTerminal
}

// Classify maps the result of dispatching action to an Outcome.
//
// Network errors, timeouts, 5xx, 408, 429 and 401 are transient. A 401 is
// retried because the token may be refreshed by the next login. 404 is
// terminal for UPDATE and DELETE but permanent for CREATE, where it means the
// collection endpoint itself is missing. Other 4xx are permanent. Errors
// that carry no status are treated as transient.
func Classify(action models.Action, err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(action, apiErr.StatusCode)
	}

	// Transport failures (client.ErrUnavailable, context deadlines, net.Error)
	// and anything unrecognized.
	return OutcomeTransient
}

func classifyStatus(action models.Action, status int) Outcome {
	switch {
	case status < http.StatusBadRequest:
		return OutcomeSuccess
	case status >= http.StatusInternalServerError,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status == http.StatusUnauthorized:
		return OutcomeTransient
	case status == http.StatusNotFound:
		if action == models.ActionCreate {
			return OutcomePermanent
		}
		return OutcomeTerminal
	default:
		return OutcomePermanent
	}
}
