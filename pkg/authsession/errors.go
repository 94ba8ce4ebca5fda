package authsession

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/authgate/pkg/identity"
)

var (
	ErrAuthentication = errors.New("authsession.authentication_failed")
	ErrRateLimited    = errors.New("authsession.rate_limited")
	ErrValidation     = errors.New("authsession.validation_failed")
	ErrConflict       = errors.New("authsession.conflict")
	ErrUnknownBackend = errors.New("authsession.unknown_backend_error")
	ErrBusy           = errors.New("authsession.operation_in_progress")
	ErrClosed         = errors.New("authsession.closed")
)

// User-facing messages.
const (
	MsgIncorrectCredentials = "Incorrect email or password"
	MsgTooManyAttempts      = "Too many login attempts. Please try again later."
	MsgInvalidEmail         = "Invalid email format"
	MsgLoginFailed          = "Failed to login. Please check your credentials."

	MsgAccountExists   = "An account with this email already exists"
	MsgPasswordTooWeak = "Password must be at least 8 characters"
	MsgRegisterFailed  = "Failed to create account. Please try again."
	MsgAutoLoginFailed = "Account created but failed to log in automatically"

	MsgInvalidProfile = "Invalid information provided"
	MsgProfileFailed  = "Failed to update profile. Please try again."

	MsgLogoutFailed = "Failed to log out. Please try again."
	MsgLogoutLocal  = "Signed out locally, but the server session could not be closed"

	MsgBusy   = "Another request is in progress. Please wait."
	MsgClosed = "Session has ended. Please reload the page."
)

func failure(kind error, msg string, cause error) Result {
	return Result{Message: msg, Err: errors.Join(kind, cause)}
}

func loginFailure(err error) Result {
	switch identity.CodeOf(err) {
	case http.StatusUnauthorized:
		return failure(ErrAuthentication, MsgIncorrectCredentials, err)
	case http.StatusTooManyRequests:
		return failure(ErrRateLimited, MsgTooManyAttempts, err)
	case http.StatusBadRequest:
		return failure(ErrValidation, MsgInvalidEmail, err)
	default:
		return failure(ErrUnknownBackend, MsgLoginFailed, err)
	}
}

// registerFailure maps account creation errors. Order matters: a 400
// about the password must not be reported as an email problem.
func registerFailure(err error) Result {
	code := identity.CodeOf(err)
	switch {
	case code == http.StatusConflict:
		return failure(ErrConflict, MsgAccountExists, err)
	case identity.MessageContains(err, "password"):
		return failure(ErrValidation, MsgPasswordTooWeak, err)
	case code == http.StatusBadRequest && identity.MessageContains(err, "email"):
		return failure(ErrValidation, MsgInvalidEmail, err)
	default:
		return failure(ErrUnknownBackend, MsgRegisterFailed, err)
	}
}

func profileFailure(err error) Result {
	switch identity.CodeOf(err) {
	case http.StatusBadRequest:
		return failure(ErrValidation, MsgInvalidProfile, err)
	case http.StatusUnauthorized:
		return failure(ErrAuthentication, MsgProfileFailed, err)
	default:
		return failure(ErrUnknownBackend, MsgProfileFailed, err)
	}
}

func logoutKind(err error) error {
	if identity.CodeOf(err) == http.StatusUnauthorized {
		return ErrAuthentication
	}
	return ErrUnknownBackend
}
