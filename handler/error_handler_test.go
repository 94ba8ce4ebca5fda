package handler_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authgate/handler"
	"github.com/dmitrymomot/authgate/pkg/validator"
)

func testErrorHandler(buf *bytes.Buffer) handler.ErrorHandler[handler.Context] {
	log := slog.New(slog.NewTextHandler(buf, nil))
	return handler.NewErrorHandler(log, handler.ErrorHandlerConfig{
		ErrorPage: func(p handler.ErrorPageParams) templ.Component {
			return html("page:" + strconv.Itoa(p.StatusCode) + ":" + p.Message)
		},
		ErrorToast: func(p handler.ErrorToastParams) templ.Component {
			return html(`<div id="toast">` + p.Type + ":" + p.Message + `</div>`)
		},
	})
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		level   string
	}{
		{"generic error hides details", errors.New("db exploded"), http.StatusInternalServerError, handler.ErrInternal.Message, "ERROR"},
		{"http error", handler.ErrNotFound, http.StatusNotFound, "Not Found", "WARN"},
		{"validation error", validator.ValidationErrors{{Field: "email", Message: "Email is required"}}, http.StatusUnprocessableEntity, "Email is required", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			rec := httptest.NewRecorder()
			ctx := handler.NewContext(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			testErrorHandler(buf)(ctx, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "page:"+strconv.Itoa(tt.status)+":"+tt.message, rec.Body.String())
			assert.Contains(t, buf.String(), "level="+tt.level)
		})
	}

	t.Run("datastar toast", func(t *testing.T) {
		buf := &bytes.Buffer{}
		rec := httptest.NewRecorder()
		ctx := handler.NewContext(rec, datastarRequest(http.MethodPost, "/x"))

		testErrorHandler(buf)(ctx, errors.New("boom"))

		body := rec.Body.String()
		assert.Contains(t, body, "datastar-patch-elements")
		assert.Contains(t, body, "#toasts")
		assert.Contains(t, body, "error:"+handler.ErrInternal.Message)
	})

	t.Run("no page configured", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ctx := handler.NewContext(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{})(ctx, handler.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
