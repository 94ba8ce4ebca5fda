package handler

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

type redirectResponse struct {
	url    string
	status int
}

func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return datastar.NewSSE(w, r).Redirect(rr.url)
	}
	http.Redirect(w, r, rr.url, rr.status)
	return nil
}

// Redirect answers with 303 See Other, or a navigation script for datastar
// requests.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusSeeOther}
}

// RedirectWithStatus is Redirect with a custom 3xx status for plain requests.
func RedirectWithStatus(url string, status int) Response {
	return redirectResponse{url: url, status: status}
}

type errorResponse struct{ err error }

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error hands err to the error handler configured on Wrap.
func Error(err error) Response {
	if err == nil {
		err = ErrInternal
	}
	return errorResponse{err: err}
}
