package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/validator"
)

type ErrorPageParams struct {
	Message    string
	StatusCode int
	RequestID  string
}

type ErrorToastParams struct {
	Message   string
	Type      string // "error" or "warning"
	RequestID string
}

type ErrorHandlerConfig struct {
	// ErrorPage renders plain requests. Nil falls back to http.Error.
	ErrorPage func(ErrorPageParams) templ.Component
	// ErrorToast renders datastar requests. Nil drops the error silently.
	ErrorToast func(ErrorToastParams) templ.Component
	// ToastTarget defaults to "#toasts".
	ToastTarget string
	// ToastMode defaults to PatchAppend.
	ToastMode datastar.ElementPatchMode
}

type errorInfo struct {
	status  int
	message string
}

func classify(err error) errorInfo {
	info := errorInfo{
		status:  ErrInternal.Code,
		message: ErrInternal.Message,
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.status = httpErr.Code
		info.message = httpErr.Message
	}

	if verrs := validator.ExtractValidationErrors(err); len(verrs) > 0 {
		info.status = http.StatusUnprocessableEntity
		info.message = verrs[0].Message
	}
	return info
}

func toastType(status int) string {
	if status < http.StatusInternalServerError {
		return "warning"
	}
	return "error"
}

// NewErrorHandler renders errors as a page for plain requests and as a toast
// patch for datastar requests. Client errors log at warn, server errors at
// error.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.ToastTarget == "" {
		cfg.ToastTarget = "#toasts"
	}
	if cfg.ToastMode == "" {
		cfg.ToastMode = PatchAppend
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		w := ctx.ResponseWriter()
		reqID := middleware.GetReqID(r.Context())
		info := classify(err)

		level := slog.LevelError
		if info.status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Component("http"),
			logger.RequestID(reqID),
			logger.StatusCode(info.status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)

		if IsDataStar(r) {
			if cfg.ErrorToast == nil {
				return
			}
			toast := cfg.ErrorToast(ErrorToastParams{
				Message:   info.message,
				Type:      toastType(info.status),
				RequestID: reqID,
			})
			if rerr := Templ(toast, WithTarget(cfg.ToastTarget), WithPatchMode(cfg.ToastMode)).Render(w, r); rerr != nil {
				log.ErrorContext(r.Context(), "render error toast", logger.Error(rerr))
			}
			return
		}

		if cfg.ErrorPage == nil {
			http.Error(w, info.message, info.status)
			return
		}
		page := cfg.ErrorPage(ErrorPageParams{
			Message:    info.message,
			StatusCode: info.status,
			RequestID:  reqID,
		})
		if rerr := TemplStatus(info.status, page).Render(w, r); rerr != nil {
			log.ErrorContext(r.Context(), "render error page", logger.Error(rerr))
		}
	}
}
