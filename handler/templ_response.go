package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

type TemplOption = datastar.PatchElementOption

// WithTarget patches the element matching selector instead of the
// element matching the component's root id.
func WithTarget(selector string) TemplOption {
	return datastar.WithSelector(selector)
}

func WithPatchMode(mode datastar.ElementPatchMode) TemplOption {
	return datastar.WithMode(mode)
}

type templResponse struct {
	partial templ.Component
	full    templ.Component
	status  int
	options []TemplOption
}

func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return datastar.NewSSE(w, r).PatchElementTempl(t.partial, t.options...)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if t.status != 0 && t.status != http.StatusOK {
		w.WriteHeader(t.status)
	}
	return t.full.Render(r.Context(), w)
}

// Templ renders component as a full response, or patches it into the page
// for datastar requests.
func Templ(component templ.Component, opts ...TemplOption) Response {
	return templResponse{partial: component, full: component, options: opts}
}

// TemplStatus is Templ with a status code for plain requests. SSE responses
// are always 200.
func TemplStatus(status int, component templ.Component, opts ...TemplOption) Response {
	return templResponse{partial: component, full: component, status: status, options: opts}
}

// TemplPartial patches partial for datastar requests and renders full
// otherwise.
func TemplPartial(partial, full templ.Component, opts ...TemplOption) Response {
	return templResponse{partial: partial, full: full, options: opts}
}

// TemplPartialStatus is TemplPartial with a status code for plain requests.
func TemplPartialStatus(status int, partial, full templ.Component, opts ...TemplOption) Response {
	return templResponse{partial: partial, full: full, status: status, options: opts}
}
