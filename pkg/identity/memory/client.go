package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/dmitrymomot/authgate/pkg/identity"
)

// Client is an identity.Backend scoped to one session secret.
type Client struct {
	store *Store

	mu     sync.RWMutex
	secret string
}

var _ identity.Backend = (*Client)(nil)

func (c *Client) Secret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secret
}

func (c *Client) GetAccount(ctx context.Context) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	acc, _, err := c.store.lookup(c.Secret())
	if err != nil {
		return nil, err
	}
	return acc.account.Clone(), nil
}

func (c *Client) CreateSession(ctx context.Context, email, password string) (*identity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := c.store.createSession(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.secret = sess.Secret
	c.mu.Unlock()
	return sess, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	secret := c.Secret()

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	_, current, err := c.store.lookup(secret)
	if err != nil {
		return err
	}

	target := ""
	if id == identity.CurrentSession || id == current.session.ID {
		target = secret
	} else {
		for key, rec := range c.store.sessions {
			if rec.session.ID == id && rec.session.AccountID == current.session.AccountID {
				target = key
				break
			}
		}
	}
	if target == "" {
		return identity.NewError(http.StatusNotFound, identity.TypeSessionNotFound, "The current user session could not be found.")
	}

	delete(c.store.sessions, target)
	if target == secret {
		c.mu.Lock()
		c.secret = ""
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) CreateAccount(ctx context.Context, id, email, password, name string) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.createAccount(id, email, password, name)
}

func (c *Client) UpdateName(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errInvalidParam("name", fmt.Sprintf("Value must be a valid string and no longer than %d chars", maxNameLength))
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	acc, _, err := c.store.lookup(c.Secret())
	if err != nil {
		return err
	}
	acc.account.Name = name
	return nil
}

func (c *Client) UpdatePreferences(ctx context.Context, prefs identity.Preferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	acc, _, err := c.store.lookup(c.Secret())
	if err != nil {
		return err
	}
	acc.account.Preferences = prefs.Clone()
	return nil
}
