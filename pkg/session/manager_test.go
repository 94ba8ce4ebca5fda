package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/pkg/cookie"
	"github.com/dmitrymomot/authgate/pkg/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(t *testing.T, store session.Store, opts ...session.Option) *session.Manager {
	t.Helper()
	cookies, err := cookie.New([]string{strings.Repeat("s", 32)})
	require.NoError(t, err)
	cfg := session.DefaultConfig()
	cfg.CookieName = "test-sid"
	return session.NewFromConfig(cfg, store, cookies, opts...)
}

// next builds a request carrying the cookies from rec.
func next(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	mgr := setup(t, store)

	rec := httptest.NewRecorder()
	s, err := mgr.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.Token)
	assert.False(t, s.IsAuthenticated())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test-sid", cookies[0].Name)
	assert.NotEqual(t, s.Token, cookies[0].Value)

	again, err := mgr.Ensure(ctx, httptest.NewRecorder(), next(rec))
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, 1, store.Len())
}

func TestSaveAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	mgr := setup(t, store)

	rec := httptest.NewRecorder()
	s, err := mgr.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	id, oldToken := s.ID, s.Token

	s.Set("identity_secret", "abc")
	rec2 := httptest.NewRecorder()
	require.NoError(t, mgr.Authenticate(ctx, rec2, s, "acc_1"))
	assert.NotEqual(t, oldToken, s.Token)
	assert.Equal(t, id, s.ID)

	_, err = store.Get(ctx, oldToken)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// The old cookie no longer resolves.
	_, err = mgr.Load(ctx, next(rec))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	loaded, err := mgr.Load(ctx, next(rec2))
	require.NoError(t, err)
	assert.True(t, loaded.IsAuthenticated())
	assert.Equal(t, "acc_1", loaded.AccountID)
	assert.Equal(t, "abc", loaded.GetString("identity_secret"))

	loaded.Set("k", "v")
	rec3 := httptest.NewRecorder()
	require.NoError(t, mgr.Save(ctx, rec3, loaded))
	reloaded, err := mgr.Load(ctx, next(rec3))
	require.NoError(t, err)
	assert.Equal(t, "v", reloaded.GetString("k"))

	rec4 := httptest.NewRecorder()
	require.NoError(t, mgr.Anonymize(ctx, rec4, reloaded))
	anon, err := mgr.Load(ctx, next(rec4))
	require.NoError(t, err)
	assert.False(t, anon.IsAuthenticated())
	assert.Empty(t, anon.Data)
	assert.Equal(t, id, anon.ID)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Now()}
	mgr := setup(t, session.NewMemoryStore(0), session.WithClock(c.Now))

	rec := httptest.NewRecorder()
	s, err := mgr.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, c.Now().Add(30*time.Minute), s.ExpiresAt)

	c.Advance(31 * time.Minute)
	_, err = mgr.Load(ctx, next(rec))
	assert.ErrorIs(t, err, session.ErrSessionExpired)

	fresh, err := mgr.Ensure(ctx, httptest.NewRecorder(), next(rec))
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, fresh.ID)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	mgr := setup(t, store)

	rec := httptest.NewRecorder()
	s, err := mgr.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec2 := httptest.NewRecorder()
	require.NoError(t, mgr.Destroy(ctx, rec2, s))
	assert.Equal(t, 0, store.Len())
	cookies := rec2.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMiddleware(t *testing.T) {
	mgr := setup(t, session.NewMemoryStore(0))

	var seen *session.Session
	h := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.MustFromContext(r.Context())
		attr, ok := session.LoggerExtractor()(r.Context())
		assert.True(t, ok)
		assert.Equal(t, seen.ID, attr.Value.String())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, seen)
	assert.Len(t, rec.Result().Cookies(), 1)

	assert.Panics(t, func() { session.MustFromContext(context.Background()) })
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	defer store.Close()

	require.NoError(t, store.Create(ctx, &session.Session{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, &session.Session{Token: "new", ExpiresAt: time.Now().Add(time.Hour)}))

	assert.Equal(t, 1, store.DeleteExpired())
	assert.Equal(t, 1, store.Len())

	assert.ErrorIs(t, store.Update(ctx, &session.Session{Token: "missing"}), session.ErrSessionNotFound)
	assert.ErrorIs(t, store.Create(ctx, &session.Session{}), session.ErrInvalidSession)
}
