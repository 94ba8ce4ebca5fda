package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure reported by the identity backend.
type Error struct {
	Code    int    // HTTP-style status code
	Type    string // machine readable reason, e.g. "user_invalid_credentials"
	Message string // human readable backend message
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("identity: %d %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("identity: %d: %s", e.Code, e.Message)
}

// Backend error types shared by the implementations.
const (
	TypeUnauthorized       = "general_unauthorized_scope"
	TypeInvalidCredentials = "user_invalid_credentials"
	TypeRateLimited        = "general_rate_limit_exceeded"
	TypeArgumentInvalid    = "general_argument_invalid"
	TypePasswordInvalid    = "password_invalid"
	TypeUserExists         = "user_already_exists"
	TypeSessionNotFound    = "user_session_not_found"
	TypeUserNotFound       = "user_not_found"
)

// NewError constructs an *Error.
func NewError(code int, typ, message string) *Error {
	return &Error{Code: code, Type: typ, Message: message}
}

// ErrUnauthorized is returned for calls that need a session but have none.
func ErrUnauthorized() *Error {
	return NewError(http.StatusUnauthorized, TypeUnauthorized, "User (role: guests) missing scope (account)")
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the backend status code carried by err, or 0.
func CodeOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return 0
}

// MessageOf returns the backend message carried by err, falling back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Message
	}
	return err.Error()
}

// MessageContains reports whether the backend message of err contains word.
// The match is case sensitive.
func MessageContains(err error, word string) bool {
	return strings.Contains(MessageOf(err), word)
}
