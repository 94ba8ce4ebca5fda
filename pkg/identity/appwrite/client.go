// Package appwrite implements identity.Backend over the Appwrite account REST API.
//
//	factory := appwrite.NewFactory(cfg, appwrite.WithLogger(log))
//	backend := factory(secretFromCookie)
//	acc, err := backend.GetAccount(ctx)
//
// The bound session secret is sent as X-Appwrite-Session. After
// CreateSession the secret is taken from the response body when the
// server returns it (API key present) and from the a_session_<project>
// cookie otherwise.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
)

var (
	ErrRequestFailed   = errors.New("appwrite.request_failed")
	ErrInvalidResponse = errors.New("appwrite.invalid_response")
	ErrMissingSecret   = errors.New("appwrite.missing_session_secret")
)

// Config holds connection settings.
type Config struct {
	Endpoint  string        `env:"APPWRITE_ENDPOINT" envDefault:"http://localhost/v1"`
	ProjectID string        `env:"APPWRITE_PROJECT_ID"`
	APIKey    string        `env:"APPWRITE_API_KEY"`
	Timeout   time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"10s"`
}

// Client is a backend bound to at most one session secret.
type Client struct {
	endpoint string
	project  string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger

	mu     sync.RWMutex
	secret string
}

var _ identity.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

func WithSecret(secret string) Option {
	return func(c *Client) { c.secret = secret }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the given endpoint (".../v1") and project.
func New(endpoint, projectID string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		project:  projectID,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFactory returns an identity.Factory producing clients that share one
// HTTP client.
func NewFactory(cfg Config, opts ...Option) identity.Factory {
	base := append([]Option{WithTimeout(cfg.Timeout), WithAPIKey(cfg.APIKey)}, opts...)
	shared := New(cfg.Endpoint, cfg.ProjectID, base...)
	return func(secret string) identity.Backend {
		return &Client{
			endpoint: shared.endpoint,
			project:  shared.project,
			apiKey:   shared.apiKey,
			http:     shared.http,
			logger:   shared.logger,
			secret:   secret,
		}
	}
}

func (c *Client) Secret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secret
}

func (c *Client) setSecret(s string) {
	c.mu.Lock()
	c.secret = s
	c.mu.Unlock()
}

type accountPayload struct {
	ID                string         `json:"$id"`
	CreatedAt         string         `json:"$createdAt"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	EmailVerification bool           `json:"emailVerification"`
	Prefs             map[string]any `json:"prefs"`
}

func (p accountPayload) toAccount() *identity.Account {
	acc := &identity.Account{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		EmailVerified: p.EmailVerification,
		Preferences:   make(identity.Preferences, len(p.Prefs)),
	}
	if t, err := time.Parse(time.RFC3339Nano, p.CreatedAt); err == nil {
		acc.CreatedAt = t
	}
	for k, v := range p.Prefs {
		switch val := v.(type) {
		case string:
			acc.Preferences[k] = val
		case nil:
		default:
			acc.Preferences[k] = fmt.Sprint(val)
		}
	}
	return acc
}

type sessionPayload struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
	Secret string `json:"secret"`
	Expire string `json:"expire"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

func (c *Client) GetAccount(ctx context.Context) (*identity.Account, error) {
	var p accountPayload
	if _, err := c.do(ctx, http.MethodGet, "/account", nil, &p); err != nil {
		return nil, err
	}
	return p.toAccount(), nil
}

func (c *Client) CreateSession(ctx context.Context, email, password string) (*identity.Session, error) {
	var p sessionPayload
	resp, err := c.do(ctx, http.MethodPost, "/account/sessions/email", map[string]string{
		"email":    email,
		"password": password,
	}, &p)
	if err != nil {
		return nil, err
	}

	secret := p.Secret
	if secret == "" {
		secret = c.cookieSecret(resp)
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}
	c.setSecret(secret)

	sess := &identity.Session{ID: p.ID, AccountID: p.UserID, Secret: secret}
	if t, err := time.Parse(time.RFC3339Nano, p.Expire); err == nil {
		sess.ExpiresAt = t
	}
	return sess, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	if id == identity.CurrentSession {
		c.setSecret("")
	}
	return nil
}

func (c *Client) CreateAccount(ctx context.Context, id, email, password, name string) (*identity.Account, error) {
	var p accountPayload
	if _, err := c.do(ctx, http.MethodPost, "/account", map[string]string{
		"userId":   id,
		"email":    email,
		"password": password,
		"name":     name,
	}, &p); err != nil {
		return nil, err
	}
	return p.toAccount(), nil
}

func (c *Client) UpdateName(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodPatch, "/account/name", map[string]string{"name": name}, nil)
	return err
}

func (c *Client) UpdatePreferences(ctx context.Context, prefs identity.Preferences) error {
	_, err := c.do(ctx, http.MethodPatch, "/account/prefs", map[string]any{"prefs": prefs.Clone()}, nil)
	return err
}

func (c *Client) cookieSecret(resp *http.Response) string {
	name := "a_session_" + strings.ToLower(c.project)
	var legacy string
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case name:
			return ck.Value
		case name + "_legacy":
			legacy = ck.Value
		}
	}
	return legacy
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", c.project)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}
	if secret := c.Secret(); secret != "" {
		req.Header.Set("X-Appwrite-Session", secret)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "identity request",
		logger.Component("identity.appwrite"),
		slog.String("method", method),
		slog.String("path", path),
		logger.StatusCode(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, decodeError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var p errorPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return identity.NewError(resp.StatusCode, "", msg)
	}
	if p.Code == 0 {
		p.Code = resp.StatusCode
	}
	return identity.NewError(p.Code, p.Type, p.Message)
}
