package authsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
)

// ProfileUpdate carries the editable profile fields. Empty fields are left alone.
type ProfileUpdate struct {
	Name        string
	DateOfBirth string
	Gender      string
}

// Manager owns the authentication state of one visitor.
type Manager struct {
	backend      identity.Backend
	logger       *slog.Logger
	navigator    Navigator
	observer     Observer
	prefMode     PreferenceMode
	logoutPolicy LogoutPolicy
	loginRoute   string
	newID        func() string

	busy   atomic.Bool
	closed atomic.Bool

	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates a manager in PhaseUnknown with Loading set. Call Start or
// Bootstrap to resolve the current account.
func New(backend identity.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		logger:     logger.Discard(),
		loginRoute: DefaultLoginRoute,
		newID:      newAccountID,
		state:      State{Loading: true, Phase: PhaseUnknown},
		subs:       make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs Bootstrap in the background. The returned channel is closed
// when it finishes.
func (m *Manager) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Bootstrap(ctx)
	}()
	return done
}

// Bootstrap loads the account of the bound credential. Any failure leaves
// the manager anonymous.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.run(ctx, OpBootstrap, func(ctx context.Context) Result {
		m.update(func(s *State) { s.Phase = PhaseBootstrapping })

		acc, err := m.backend.GetAccount(ctx)
		if err != nil {
			m.logger.DebugContext(ctx, "no active session", logger.Error(err))
			m.setUser(nil)
			return Result{Success: true}
		}
		m.setUser(acc)
		return Result{Success: true}
	})
}

// Login opens a session with the given credentials and loads the account.
// It does not navigate.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	return m.run(ctx, OpLogin, func(ctx context.Context) Result {
		return m.login(ctx, email, password)
	})
}

func (m *Manager) login(ctx context.Context, email, password string) Result {
	if _, err := m.backend.CreateSession(ctx, email, password); err != nil {
		return loginFailure(err)
	}
	acc, err := m.backend.GetAccount(ctx)
	if err != nil {
		return loginFailure(err)
	}
	m.setUser(acc)
	return Result{Success: true}
}

// Logout terminates the current session and navigates to the login route.
func (m *Manager) Logout(ctx context.Context) Result {
	cleared := false
	res := m.run(ctx, OpLogout, func(ctx context.Context) Result {
		err := m.backend.DeleteSession(ctx, identity.CurrentSession)
		if err == nil {
			m.setUser(nil)
			cleared = true
			return Result{Success: true}
		}

		m.logger.WarnContext(ctx, "failed to close backend session", logger.Error(err))
		if m.logoutPolicy == LogoutStrict {
			return failure(logoutKind(err), MsgLogoutFailed, err)
		}
		m.setUser(nil)
		cleared = true
		return failure(logoutKind(err), MsgLogoutLocal, err)
	})

	if cleared && m.navigator != nil {
		m.navigator.Navigate(ctx, m.loginRoute)
	}
	return res
}

// Register creates an account and logs into it with the same credentials.
func (m *Manager) Register(ctx context.Context, name, email, password string) Result {
	return m.run(ctx, OpRegister, func(ctx context.Context) Result {
		acc, err := m.backend.CreateAccount(ctx, m.newID(), email, password, name)
		if err != nil {
			return registerFailure(err)
		}
		m.logger.InfoContext(ctx, "account created", logger.AccountID(acc.ID))

		if res := m.login(ctx, email, password); !res.Success {
			return Result{Message: MsgAutoLoginFailed, Err: res.Err}
		}
		return Result{Success: true}
	})
}

// UpdateProfile writes the changed profile fields and reloads the account.
func (m *Manager) UpdateProfile(ctx context.Context, in ProfileUpdate) Result {
	return m.run(ctx, OpUpdateProfile, func(ctx context.Context) Result {
		current := m.CurrentUser()

		if in.Name != "" && (current == nil || in.Name != current.Name) {
			if err := m.backend.UpdateName(ctx, in.Name); err != nil {
				return profileFailure(err)
			}
		}

		patch := identity.Preferences{}
		if in.DateOfBirth != "" {
			patch[identity.PrefDateOfBirth] = in.DateOfBirth
		}
		if in.Gender != "" {
			patch[identity.PrefGender] = in.Gender
		}

		if len(patch) > 0 {
			prefs := patch
			if m.prefMode == MergePreferences {
				// Merge onto the stored record, not the local copy, so keys
				// written by other clients survive.
				stored, err := m.backend.GetAccount(ctx)
				if err != nil {
					return profileFailure(err)
				}
				prefs = stored.Preferences.Merge(patch)
			}
			if err := m.backend.UpdatePreferences(ctx, prefs); err != nil {
				return profileFailure(err)
			}
		}

		acc, err := m.backend.GetAccount(ctx)
		if err != nil {
			return profileFailure(err)
		}
		m.setUser(acc)
		return Result{Success: true}
	})
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// CurrentUser returns a copy of the signed-in account, or nil.
func (m *Manager) CurrentUser() *identity.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User.Clone()
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Loading
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Authenticated()
}

// Secret returns the credential the backend is currently bound to.
func (m *Manager) Secret() string {
	return m.backend.Secret()
}

// Busy reports whether an operation is in flight.
func (m *Manager) Busy() bool {
	return m.busy.Load()
}

// Subscribe registers fn to receive every state change. fn runs on the
// goroutine that changed the state and must not block.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Close drops subscribers and rejects further operations.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.mu.Lock()
	clear(m.subs)
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, op string, fn func(context.Context) Result) (res Result) {
	if m.closed.Load() {
		res = Result{Message: MsgClosed, Err: ErrClosed}
		m.observe(op, res, 0)
		return res
	}
	if !m.busy.CompareAndSwap(false, true) {
		res = Result{Message: MsgBusy, Err: ErrBusy}
		m.observe(op, res, 0)
		return res
	}

	start := time.Now()
	m.update(func(s *State) { s.Loading = true })

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			m.logger.ErrorContext(ctx, "operation panicked", logger.Operation(op), logger.Error(err))
			res = failure(ErrUnknownBackend, genericMessage(op), err)
			if op == OpBootstrap {
				m.setUser(nil)
				res = Result{Success: true}
			}
		}
		m.update(func(s *State) { s.Loading = false })
		m.busy.Store(false)

		elapsed := time.Since(start)
		m.observe(op, res, elapsed)
		m.logger.DebugContext(ctx, "operation finished",
			logger.Operation(op),
			slog.String("outcome", res.Outcome()),
			logger.Duration(elapsed),
		)
	}()

	return fn(ctx)
}

func (m *Manager) observe(op string, res Result, elapsed time.Duration) {
	if m.observer != nil {
		m.observer.ObserveOperation(op, res, elapsed)
	}
}

func (m *Manager) setUser(acc *identity.Account) {
	m.update(func(s *State) {
		s.User = acc.Clone()
		if acc != nil {
			s.Phase = PhaseAuthenticated
		} else {
			s.Phase = PhaseAnonymous
		}
	})
}

func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	subs := make([]func(State), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(snapshot.clone())
	}
}

func genericMessage(op string) string {
	switch op {
	case OpLogin:
		return MsgLoginFailed
	case OpRegister:
		return MsgRegisterFailed
	case OpUpdateProfile:
		return MsgProfileFailed
	case OpLogout:
		return MsgLogoutFailed
	default:
		return ""
	}
}

// IsBusy reports whether err is the single-flight rejection.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
