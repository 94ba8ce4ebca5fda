package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/pkg/cookie"
	"github.com/dmitrymomot/authgate/pkg/logger"
)

// Manager creates, loads and persists browser sessions.
type Manager struct {
	store     Store
	transport Transport
	config    Config
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a manager over store and transport.
func New(store Store, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		transport: transport,
		config:    DefaultConfig(),
		now:       time.Now,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig creates a manager with a cookie transport named after cfg.CookieName.
func NewFromConfig(cfg Config, store Store, cookies *cookie.Manager, opts ...Option) *Manager {
	transport := NewCookieTransport(cookies, cfg.CookieName)
	return New(store, transport, append([]Option{WithConfig(cfg)}, opts...)...)
}

// Load returns the session referenced by the request.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.IsExpired(m.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Ensure returns the current session or starts an anonymous one. Missing,
// expired and undecodable sessions are replaced.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Load(ctx, r)
	if err == nil {
		return s, nil
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
	case errors.Is(err, ErrInvalidSession):
		m.logger.WarnContext(ctx, "discarding undecodable session", logger.Error(err))
		if token, terr := m.transport.GetToken(r); terr == nil {
			_ = m.store.Delete(ctx, token)
		}
	default:
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s = &Session{
		ID:             uuid.NewString(),
		Token:          token,
		Data:           make(map[string]string),
		LastActivityAt: now,
		CreatedAt:      now,
	}
	s.ExpiresAt = m.expiry(s, now)

	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(now)); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// Save persists s and slides its expiry.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := m.now()
	s.LastActivityAt = now
	s.ExpiresAt = m.expiry(s, now)

	if err := m.store.Update(ctx, s); err != nil {
		return err
	}
	return m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(now))
}

// Authenticate attaches accountID and rotates the token.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, s *Session, accountID string) error {
	s.AccountID = accountID
	return m.rotate(ctx, w, s)
}

// Anonymize detaches the account, clears data and rotates the token.
func (m *Manager) Anonymize(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.AccountID = ""
	s.Clear()
	return m.rotate(ctx, w, s)
}

// Destroy deletes s and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.transport.ClearToken(w)
	if s == nil {
		return nil
	}
	return m.store.Delete(ctx, s.Token)
}

func (m *Manager) rotate(ctx context.Context, w http.ResponseWriter, s *Session) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	old := s.Token
	s.Token = token

	now := m.now()
	s.LastActivityAt = now
	s.ExpiresAt = m.expiry(s, now)

	if err := m.store.Create(ctx, s); err != nil {
		s.Token = old
		return err
	}
	if err := m.store.Delete(ctx, old); err != nil {
		m.logger.WarnContext(ctx, "failed to delete rotated session", logger.Error(err))
	}
	return m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(now))
}

// expiry is the earlier of the idle deadline and the maximum lifetime.
func (m *Manager) expiry(s *Session, now time.Time) time.Time {
	idle, max := m.config.timeouts(s.IsAuthenticated())
	idleAt, maxAt := now.Add(idle), s.CreatedAt.Add(max)
	if maxAt.Before(idleAt) {
		return maxAt
	}
	return idleAt
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
