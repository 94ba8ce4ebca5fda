// Package account serves the landing, login, registration, dashboard and
// profile pages on top of an authsession.Registry.
//
// Each browser session owns one authsession.Manager; the backend credential
// the manager holds is persisted in the browser session under SecretKey
// after every operation.
package account

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authgate/binder"
	"github.com/dmitrymomot/authgate/handler"
	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/cookie"
	"github.com/dmitrymomot/authgate/pkg/forms"
	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/ratelimiter"
	"github.com/dmitrymomot/authgate/pkg/session"
)

// SecretKey is the browser session data key holding the backend credential.
const SecretKey = "identity_secret"

const (
	DefaultHomeRoute = "/dashboard"
	flashNotice      = "notice"
)

// Messages shown by the pages themselves.
const (
	MsgProfileUpdated = "Profile updated successfully"
	MsgSessionExpired = "Your session has expired. Please sign in again."
)

type Service struct {
	registry     *authsession.Registry
	sessions     *session.Manager
	cookies      *cookie.Manager
	views        *Views
	errorHandler handler.ErrorHandler[handler.Context]
	limiter      *ratelimiter.Bucket
	logger       *slog.Logger
	now          func() time.Time
	loginRoute   string
	homeRoute    string
}

type Option func(*Service)

func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// WithFormLimiter throttles login and registration submissions per client IP.
func WithFormLimiter(b *ratelimiter.Bucket) Option {
	return func(s *Service) { s.limiter = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.With(logger.Component("account"))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLoginRoute must match the route given to authsession.WithLoginRoute.
func WithLoginRoute(route string) Option {
	return func(s *Service) {
		if route != "" {
			s.loginRoute = route
		}
	}
}

func NewService(registry *authsession.Registry, sessions *session.Manager, cookies *cookie.Manager, views *Views, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		sessions:     sessions,
		cookies:      cookies,
		views:        views,
		errorHandler: handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{}),
		logger:       logger.Discard(),
		now:          time.Now,
		loginRoute:   authsession.DefaultLoginRoute,
		homeRoute:    DefaultHomeRoute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the account router. The browser session middleware must
// run before it.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loadManager)

	r.Get("/", handler.Wrap(s.landing,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(s.guestOnly)

		login := handler.Wrap(s.login,
			handler.WithBinders[handler.Context, forms.Login](binder.Form()),
			handler.WithErrorHandler[handler.Context, forms.Login](s.errorHandler),
		)
		r.Get("/login", login)
		r.Post("/login", login)

		register := handler.Wrap(s.register,
			handler.WithBinders[handler.Context, forms.Register](binder.Form()),
			handler.WithErrorHandler[handler.Context, forms.Register](s.errorHandler),
		)
		r.Get("/register", register)
		r.Post("/register", register)
	})

	r.Post("/logout", handler.Wrap(s.logout,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/", handler.Wrap(s.dashboard,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))

		profile := handler.Wrap(s.profile,
			handler.WithBinders[handler.Context, forms.Profile](binder.Form()),
			handler.WithErrorHandler[handler.Context, forms.Profile](s.errorHandler),
		)
		r.Get("/profile", profile)
		r.Post("/profile", profile)
	})

	return r
}
