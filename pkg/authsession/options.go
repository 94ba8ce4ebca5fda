package authsession

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation names passed to observers.
const (
	OpBootstrap     = "bootstrap"
	OpLogin         = "login"
	OpLogout        = "logout"
	OpRegister      = "register"
	OpUpdateProfile = "update_profile"
)

// Navigator moves the presentation layer to another route.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Navigate(ctx context.Context, route string) { f(ctx, route) }

// Observer receives one call per finished operation.
type Observer interface {
	ObserveOperation(op string, res Result, elapsed time.Duration)
}

// PreferenceMode selects how UpdateProfile writes preferences.
type PreferenceMode int

const (
	// MergePreferences keeps stored keys that the update does not mention.
	MergePreferences PreferenceMode = iota
	// ReplacePreferences stores only the keys of the update.
	ReplacePreferences
)

// LogoutPolicy selects what Logout does when the backend call fails.
type LogoutPolicy int

const (
	// LogoutOptimistic clears local state and navigates anyway.
	LogoutOptimistic LogoutPolicy = iota
	// LogoutStrict keeps local state untouched.
	LogoutStrict
)

const DefaultLoginRoute = "/login"

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) { m.navigator = n }
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

func WithPreferenceMode(mode PreferenceMode) Option {
	return func(m *Manager) { m.prefMode = mode }
}

func WithLogoutPolicy(p LogoutPolicy) Option {
	return func(m *Manager) { m.logoutPolicy = p }
}

// WithLoginRoute sets where Logout navigates to.
func WithLoginRoute(route string) Option {
	return func(m *Manager) {
		if route != "" {
			m.loginRoute = route
		}
	}
}

// WithIDGenerator overrides how new account IDs are produced.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

func newAccountID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
