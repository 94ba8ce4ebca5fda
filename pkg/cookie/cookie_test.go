package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/pkg/cookie"
)

var (
	secretA = strings.Repeat("a", 32)
	secretB = strings.Repeat("b", 32)
)

// roundTrip copies cookies set on rec into a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	_, err := cookie.New(nil)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"", ""})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)

	_, err = cookie.NewFromConfig(cookie.Config{Secrets: secretA + ", " + secretB, Secure: true})
	assert.NoError(t, err)
}

func TestEncrypted(t *testing.T) {
	mgr, err := cookie.New([]string{secretA}, cookie.WithSecure(true))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.SetEncrypted(rec, "sid", "token-123", cookie.WithMaxAge(60)))

	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	assert.NotContains(t, set[0].Value, "token-123")
	assert.True(t, set[0].HttpOnly)
	assert.True(t, set[0].Secure)
	assert.Equal(t, 60, set[0].MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, set[0].SameSite)

	got, err := mgr.GetEncrypted(roundTrip(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "token-123", got)

	t.Run("bound to name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "other", Value: set[0].Value})
		_, err := mgr.GetEncrypted(req, "other")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "not base64!"})
		_, err := mgr.GetEncrypted(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := mgr.GetEncrypted(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})
}

func TestRotation(t *testing.T) {
	old, err := cookie.New([]string{secretA})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secretB, secretA})
	require.NoError(t, err)
	fresh, err := cookie.New([]string{secretB})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, old.SetEncrypted(rec, "sid", "v"))
	req := roundTrip(rec)

	got, err := rotated.GetEncrypted(req, "sid")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = fresh.GetEncrypted(req, "sid")
	assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
}

func TestFlash(t *testing.T) {
	mgr, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.SetFlash(rec, "notice", "Account created"))

	rec2 := httptest.NewRecorder()
	var notice string
	require.NoError(t, mgr.GetFlash(rec2, roundTrip(rec), "notice", &notice))
	assert.Equal(t, "Account created", notice)

	deleted := rec2.Result().Cookies()
	require.Len(t, deleted, 1)
	assert.Equal(t, -1, deleted[0].MaxAge)
}
