// Package memory provides an in-process identity backend with the same
// error surface as the hosted service. Accounts, sessions and preferences
// live in a shared Store; Client values are scoped to one credential.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/ratelimiter"
)

const (
	// UniqueID asks CreateAccount to generate the account ID.
	UniqueID = "unique()"

	minPasswordLength = 8
	maxPasswordLength = 256
	maxNameLength     = 128
)

type accountRecord struct {
	account identity.Account
	hash    []byte
}

type sessionRecord struct {
	session identity.Session
}

// Store is the shared state behind every Client.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*accountRecord // by account ID
	byEmail  map[string]string         // lowercase email -> account ID
	sessions map[string]*sessionRecord // by secret

	limiter    *ratelimiter.Bucket
	now        func() time.Time
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLoginLimiter throttles CreateSession per email. Denied attempts
// fail with a 429 error.
func WithLoginLimiter(b *ratelimiter.Bucket) Option {
	return func(s *Store) { s.limiter = b }
}

// WithSessionTTL sets the lifetime of new sessions. Default is one year.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts:   make(map[string]*accountRecord),
		byEmail:    make(map[string]string),
		sessions:   make(map[string]*sessionRecord),
		now:        time.Now,
		sessionTTL: 365 * 24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns a backend bound to secret. An empty secret is anonymous.
func (s *Store) Client(secret string) *Client {
	return &Client{store: s, secret: secret}
}

// Factory adapts Client to identity.Factory.
func (s *Store) Factory() identity.Factory {
	return func(secret string) identity.Backend {
		return s.Client(secret)
	}
}

// Sessions returns the number of live sessions.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, rec := range s.sessions {
		if rec.session.ExpiresAt.After(now) {
			n++
		}
	}
	return n
}

// DeleteExpired drops expired sessions and returns how many were removed.
// Expired sessions are also dropped whenever a new session is created.
func (s *Store) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteExpiredLocked()
}

func (s *Store) deleteExpiredLocked() int {
	now := s.now()
	n := 0
	for secret, rec := range s.sessions {
		if !rec.session.ExpiresAt.After(now) {
			delete(s.sessions, secret)
			n++
		}
	}
	return n
}

func (s *Store) lookup(secret string) (*accountRecord, *sessionRecord, error) {
	if secret == "" {
		return nil, nil, identity.ErrUnauthorized()
	}
	sess, ok := s.sessions[secret]
	if !ok || !sess.session.ExpiresAt.After(s.now()) {
		return nil, nil, identity.ErrUnauthorized()
	}
	acc, ok := s.accounts[sess.session.AccountID]
	if !ok {
		return nil, nil, identity.ErrUnauthorized()
	}
	return acc, sess, nil
}

func (s *Store) createAccount(id, email, password, name string) (*identity.Account, error) {
	if id == "" || id == UniqueID {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if !validEmail(email) {
		return nil, errInvalidParam("email", "Value must be a valid email address")
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength || n > maxPasswordLength {
		return nil, errInvalidParam("password",
			fmt.Sprintf("Password must be between %d and %d characters long.", minPasswordLength, maxPasswordLength))
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, errInvalidParam("name",
			fmt.Sprintf("Value must be a valid string and no longer than %d chars", maxNameLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, identity.NewError(http.StatusInternalServerError, "general_server_error", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, errUserExists()
	}
	if _, exists := s.accounts[id]; exists {
		return nil, errUserExists()
	}

	rec := &accountRecord{
		account: identity.Account{
			ID:          id,
			Name:        name,
			Email:       email,
			CreatedAt:   s.now().UTC(),
			Preferences: identity.Preferences{},
		},
		hash: hash,
	}
	s.accounts[id] = rec
	s.byEmail[key] = id

	s.logger.Debug("account created", logger.Component("identity.memory"), logger.AccountID(id))
	return rec.account.Clone(), nil
}

func (s *Store) createSession(ctx context.Context, email, password string) (*identity.Session, error) {
	if s.limiter != nil {
		res, err := s.limiter.Allow(ctx, "session:"+strings.ToLower(email))
		if err != nil {
			return nil, identity.NewError(http.StatusInternalServerError, "general_server_error", err.Error())
		}
		if !res.Allowed() {
			return nil, identity.NewError(http.StatusTooManyRequests, identity.TypeRateLimited,
				"Rate limit for the current endpoint has been exceeded. Please try again after some time.")
		}
	}
	if !validEmail(email) {
		return nil, errInvalidParam("email", "Value must be a valid email address")
	}

	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(email)]
	var rec *accountRecord
	if ok {
		rec = s.accounts[id]
	}
	s.mu.RUnlock()

	if rec == nil || bcrypt.CompareHashAndPassword(rec.hash, []byte(password)) != nil {
		return nil, identity.NewError(http.StatusUnauthorized, identity.TypeInvalidCredentials,
			"Invalid credentials. Please check the email and password.")
	}

	secret, err := newSecret()
	if err != nil {
		return nil, identity.NewError(http.StatusInternalServerError, "general_server_error", err.Error())
	}

	sess := identity.Session{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		AccountID: id,
		Secret:    secret,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}

	s.mu.Lock()
	s.deleteExpiredLocked()
	s.sessions[secret] = &sessionRecord{session: sess}
	s.mu.Unlock()

	return &sess, nil
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func newSecret() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func errInvalidParam(param, reason string) *identity.Error {
	return identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid,
		fmt.Sprintf("Invalid `%s` param: %s", param, reason))
}

func errUserExists() *identity.Error {
	return identity.NewError(http.StatusConflict, identity.TypeUserExists,
		"A user with the same id, email, or phone already exists in this project.")
}
