package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler.nil_response")

// HTTPError carries a status code and a message safe to show to the user.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(code int, message string) HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return HTTPError{Code: code, Message: message}
}

var (
	ErrBadRequest = NewHTTPError(http.StatusBadRequest, "")
	ErrNotFound   = NewHTTPError(http.StatusNotFound, "")
	ErrInternal   = NewHTTPError(http.StatusInternalServerError, "Something went wrong. Please try again.")
)
