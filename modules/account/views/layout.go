// Package views holds the default account pages. Components are plain
// templ.Component values so they can be swapped for generated templ code.
package views

import (
	"context"

	"github.com/a-h/templ"
)

// DatastarScript is the client bundle loaded by every page.
var DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

func layout(title string, authenticated bool, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · authgate</title>`)
		h.raw(`<script type="module"`)
		h.attr("src", DatastarScript)
		h.raw(`></script></head><body>`)

		h.raw(`<header><nav><a href="/">authgate</a>`)
		if authenticated {
			h.raw(`<a href="/dashboard">Dashboard</a><a href="/dashboard/profile">Profile</a>`)
			h.raw(`<form method="post" action="/logout" data-on:submit__prevent="@post('/logout')">`)
			h.raw(`<button type="submit">Sign out</button></form>`)
		} else {
			h.raw(`<a href="/login">Sign in</a><a href="/register">Create account</a>`)
		}
		h.raw(`</nav></header>`)

		h.raw(`<main>`)
		h.child(ctx, body)
		h.raw(`</main><div id="toasts" aria-live="polite"></div></body></html>`)
	})
}

func notice(h *html, class, msg string) {
	if msg == "" {
		return
	}
	h.raw(`<p role="status"`)
	h.attr("class", class)
	h.raw(`>`)
	h.text(msg)
	h.raw(`</p>`)
}

// field renders a labelled input with its error message.
func field(h *html, label, typ, name, value, errMsg string, extra ...string) {
	id := "f-" + name
	h.raw(`<div class="field"><label`)
	h.attr("for", id)
	h.raw(`>`)
	h.text(label)
	h.raw(`</label><input`)
	h.attr("id", id)
	h.attr("type", typ)
	h.attr("name", name)
	if value != "" {
		h.attr("value", value)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		h.attr(extra[i], extra[i+1])
	}
	if errMsg != "" {
		h.raw(` aria-invalid="true"`)
	}
	h.raw(`>`)
	fieldError(h, errMsg)
	h.raw(`</div>`)
}

func fieldError(h *html, msg string) {
	if msg == "" {
		return
	}
	h.raw(`<small class="error">`)
	h.text(msg)
	h.raw(`</small>`)
}

// formOpen starts a form that posts natively and through datastar. The
// submit button is disabled while loading or while datastar has a request
// in flight.
func formOpen(h *html, id, action string) {
	h.raw(`<form method="post"`)
	h.attr("id", id)
	h.attr("action", action)
	h.attr("data-on:submit__prevent", "@post('"+action+"', {contentType: 'form'})")
	h.raw(` data-indicator:_loading>`)
}

func submit(h *html, label, busyLabel string, loading bool) {
	h.raw(`<button type="submit" data-attr:disabled="$_loading"`)
	h.flag("disabled", loading)
	h.raw(`>`)
	if loading {
		h.text(busyLabel)
	} else {
		h.text(label)
	}
	h.raw(`</button>`)
}
