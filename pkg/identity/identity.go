package identity

import (
	"context"
	"maps"
	"time"
)

// CurrentSession addresses the session the backend credential belongs to.
const CurrentSession = "current"

// Recognized preference keys.
const (
	PrefDateOfBirth = "dateOfBirth"
	PrefGender      = "gender"
)

// Preferences is an open string-keyed map of auxiliary account attributes.
type Preferences map[string]string

// Clone returns an independent copy. A nil map clones to an empty one.
func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	maps.Copy(out, p)
	return out
}

// Merge returns a copy of p with every key of patch applied on top.
func (p Preferences) Merge(patch Preferences) Preferences {
	out := p.Clone()
	maps.Copy(out, patch)
	return out
}

// Account is the canonical account record held by the backend.
type Account struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	CreatedAt     time.Time
	Preferences   Preferences
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Preferences = a.Preferences.Clone()
	return &c
}

// Session describes a credentialed backend session.
type Session struct {
	ID        string
	AccountID string
	Secret    string
	ExpiresAt time.Time
}

// Backend is the account API of the identity service, scoped to one user.
type Backend interface {
	// GetAccount returns the account of the current session.
	GetAccount(ctx context.Context) (*Account, error)
	// CreateSession exchanges credentials for a new session and binds it
	// to this backend value.
	CreateSession(ctx context.Context, email, password string) (*Session, error)
	// DeleteSession terminates a session; pass CurrentSession for the bound one.
	DeleteSession(ctx context.Context, id string) error
	// CreateAccount registers a new account. It does not open a session.
	CreateAccount(ctx context.Context, id, email, password, name string) (*Account, error)
	// UpdateName changes the display name of the current account.
	UpdateName(ctx context.Context, name string) error
	// UpdatePreferences replaces the whole preferences map of the current account.
	UpdatePreferences(ctx context.Context, prefs Preferences) error
	// Secret returns the credential of the bound session, or "".
	Secret() string
}

// Factory builds a Backend bound to an existing session secret.
// An empty secret yields an anonymous backend.
type Factory func(secret string) Backend
