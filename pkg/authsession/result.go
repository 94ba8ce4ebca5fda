package authsession

import "errors"

// Result is the outcome of a manager operation.
type Result struct {
	Success bool
	// Message is safe to show to the user. Empty on success.
	Message string
	// Err joins a taxonomy sentinel (ErrAuthentication, ...) with the backend cause.
	Err error
}

// Outcome labels the result for logs and metrics.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	switch {
	case errors.Is(r.Err, ErrBusy):
		return "busy"
	case errors.Is(r.Err, ErrClosed):
		return "closed"
	case errors.Is(r.Err, ErrAuthentication):
		return "authentication"
	case errors.Is(r.Err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(r.Err, ErrValidation):
		return "validation"
	case errors.Is(r.Err, ErrConflict):
		return "conflict"
	default:
		return "unknown"
	}
}
