package authsession_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/identity/memory"
)

func newMemory(t *testing.T) *memory.Store {
	t.Helper()
	return memory.NewStore(memory.WithBcryptCost(bcrypt.MinCost))
}

func seedAccount(t *testing.T, store *memory.Store, name, email, password string) {
	t.Helper()
	_, err := store.Client("").CreateAccount(context.Background(), memory.UniqueID, email, password, name)
	require.NoError(t, err)
}

func bootstrapped(t *testing.T, backend identity.Backend, opts ...authsession.Option) *authsession.Manager {
	t.Helper()
	m := authsession.New(backend, opts...)
	select {
	case <-m.Start(context.Background()):
	case <-time.After(time.Second):
		t.Fatal("bootstrap did not finish")
	}
	return m
}

func TestBootstrap(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		m := authsession.New(newMemory(t).Client(""))
		st := m.State()
		assert.True(t, st.Loading)
		assert.Equal(t, authsession.PhaseUnknown, st.Phase)
		assert.False(t, st.Authenticated())
	})

	t.Run("no prior session", func(t *testing.T) {
		m := bootstrapped(t, newMemory(t).Client(""))
		assert.False(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
		assert.Equal(t, authsession.PhaseAnonymous, m.State().Phase)
	})

	t.Run("restores session from secret", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		sess, err := store.Client("").CreateSession(context.Background(), "jane@example.com", "Secret123")
		require.NoError(t, err)

		m := bootstrapped(t, store.Client(sess.Secret))
		require.True(t, m.IsAuthenticated())
		assert.Equal(t, "Jane", m.CurrentUser().Name)
		assert.Equal(t, authsession.PhaseAuthenticated, m.State().Phase)
	})

	t.Run("network error is treated as anonymous", func(t *testing.T) {
		b := &MockBackend{}
		b.On("GetAccount", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

		m := authsession.New(b)
		assert.NotPanics(t, func() { m.Bootstrap(context.Background()) })
		assert.False(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		m := bootstrapped(t, store.Client(""))

		res := m.Login(ctx, "jane@example.com", "Secret123")
		require.True(t, res.Success, res.Message)
		assert.Empty(t, res.Message)
		assert.NoError(t, res.Err)
		assert.True(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
		assert.Equal(t, "jane@example.com", m.CurrentUser().Email)
		assert.NotEmpty(t, m.Secret())
	})

	t.Run("wrong password against memory backend", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		m := bootstrapped(t, store.Client(""))

		for _, pw := range []string{"wrong", "Secret1234", ""} {
			res := m.Login(ctx, "jane@example.com", pw)
			assert.False(t, res.Success)
			assert.Equal(t, authsession.MsgIncorrectCredentials, res.Message)
			assert.ErrorIs(t, res.Err, authsession.ErrAuthentication)
		}
		assert.False(t, m.IsAuthenticated())
	})

	tests := []struct {
		name    string
		err     error
		message string
		kind    error
	}{
		{"unauthorized", identity.NewError(http.StatusUnauthorized, identity.TypeInvalidCredentials, "Invalid credentials"), authsession.MsgIncorrectCredentials, authsession.ErrAuthentication},
		{"rate limited", identity.NewError(http.StatusTooManyRequests, identity.TypeRateLimited, "slow down"), authsession.MsgTooManyAttempts, authsession.ErrRateLimited},
		{"bad request", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid `email` param"), authsession.MsgInvalidEmail, authsession.ErrValidation},
		{"server error", identity.NewError(http.StatusInternalServerError, "general_server_error", "oops"), authsession.MsgLoginFailed, authsession.ErrUnknownBackend},
		{"transport error", errors.New("connection reset"), authsession.MsgLoginFailed, authsession.ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &MockBackend{}
			b.On("CreateSession", mock.Anything, "a@example.com", "Secret123").Return(nil, tt.err)

			m := authsession.New(b)
			res := m.Login(ctx, "a@example.com", "Secret123")
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.ErrorIs(t, res.Err, tt.kind)
			assert.ErrorIs(t, res.Err, tt.err)
			assert.False(t, m.IsLoading())
			b.AssertNotCalled(t, "GetAccount", mock.Anything)
		})
	}

	t.Run("does not navigate", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		nav := &navigation{}
		m := bootstrapped(t, store.Client(""), authsession.WithNavigator(nav))

		require.True(t, m.Login(ctx, "jane@example.com", "Secret123").Success)
		assert.Empty(t, nav.Routes())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("after login", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		nav := &navigation{}
		m := bootstrapped(t, store.Client(""), authsession.WithNavigator(nav))
		require.True(t, m.Login(ctx, "jane@example.com", "Secret123").Success)

		res := m.Logout(ctx)
		assert.True(t, res.Success)
		assert.False(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
		assert.Equal(t, authsession.PhaseAnonymous, m.State().Phase)
		assert.Equal(t, []string{authsession.DefaultLoginRoute}, nav.Routes())
		assert.Equal(t, 0, store.Sessions())
	})

	user := &identity.Account{ID: "u1", Email: "a@example.com"}
	backendErr := identity.NewError(http.StatusInternalServerError, "general_server_error", "oops")

	t.Run("optimistic on failure", func(t *testing.T) {
		b := &MockBackend{}
		b.On("GetAccount", mock.Anything).Return(user, nil)
		b.On("DeleteSession", mock.Anything, identity.CurrentSession).Return(backendErr)
		nav := &navigation{}

		m := bootstrapped(t, b, authsession.WithNavigator(nav), authsession.WithLoginRoute("/signin"))
		require.True(t, m.IsAuthenticated())

		res := m.Logout(ctx)
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgLogoutLocal, res.Message)
		assert.ErrorIs(t, res.Err, authsession.ErrUnknownBackend)
		assert.False(t, m.IsAuthenticated())
		assert.Equal(t, []string{"/signin"}, nav.Routes())
	})

	t.Run("strict on failure", func(t *testing.T) {
		b := &MockBackend{}
		b.On("GetAccount", mock.Anything).Return(user, nil)
		b.On("DeleteSession", mock.Anything, identity.CurrentSession).Return(backendErr)
		nav := &navigation{}

		m := bootstrapped(t, b, authsession.WithNavigator(nav), authsession.WithLogoutPolicy(authsession.LogoutStrict))

		res := m.Logout(ctx)
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgLogoutFailed, res.Message)
		assert.True(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
		assert.Empty(t, nav.Routes())
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("new account logs in", func(t *testing.T) {
		m := bootstrapped(t, newMemory(t).Client(""))

		res := m.Register(ctx, "Jane", "jane@example.com", "Secret123")
		require.True(t, res.Success, res.Message)
		require.True(t, m.IsAuthenticated())
		assert.Equal(t, "Jane", m.CurrentUser().Name)
		assert.False(t, m.IsLoading())
	})

	t.Run("existing email keeps current session", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		m := bootstrapped(t, store.Client(""))
		require.True(t, m.Login(ctx, "jane@example.com", "Secret123").Success)
		before := m.State()

		res := m.Register(ctx, "Other", "jane@example.com", "Secret123")
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgAccountExists, res.Message)
		assert.ErrorIs(t, res.Err, authsession.ErrConflict)
		assert.Equal(t, before.User, m.CurrentUser())
		assert.True(t, m.IsAuthenticated())
	})

	t.Run("existing email while anonymous", func(t *testing.T) {
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		m := bootstrapped(t, store.Client(""))

		res := m.Register(ctx, "Jane", "jane@example.com", "Secret123")
		assert.Equal(t, authsession.MsgAccountExists, res.Message)
		assert.False(t, m.IsAuthenticated())
	})

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"conflict", identity.NewError(http.StatusConflict, identity.TypeUserExists, "exists"), authsession.MsgAccountExists},
		{"password message", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid `password` param: too short"), authsession.MsgPasswordTooWeak},
		{"password wins over email", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "email and password invalid"), authsession.MsgPasswordTooWeak},
		{"capitalised password falls through to email", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "email and Password invalid"), authsession.MsgInvalidEmail},
		{"capitalised password only", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Password is too weak"), authsession.MsgRegisterFailed},
		{"uppercase email", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid EMAIL address"), authsession.MsgRegisterFailed},
		{"email message", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid `email` param"), authsession.MsgInvalidEmail},
		{"bad request without hint", identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid `name` param"), authsession.MsgRegisterFailed},
		{"email outside bad request", identity.NewError(http.StatusInternalServerError, "", "email service down"), authsession.MsgRegisterFailed},
		{"transport", errors.New("timeout"), authsession.MsgRegisterFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &MockBackend{}
			b.On("CreateAccount", mock.Anything, "id-1", "a@example.com", "Secret123", "A").Return(nil, tt.err)

			m := authsession.New(b, authsession.WithIDGenerator(func() string { return "id-1" }))
			res := m.Register(ctx, "A", "a@example.com", "Secret123")
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			b.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("chained login failure", func(t *testing.T) {
		b := &MockBackend{}
		b.On("CreateAccount", mock.Anything, mock.AnythingOfType("string"), "a@example.com", "Secret123", "A").
			Return(&identity.Account{ID: "u1"}, nil)
		b.On("CreateSession", mock.Anything, "a@example.com", "Secret123").
			Return(nil, identity.NewError(http.StatusTooManyRequests, identity.TypeRateLimited, "slow down"))

		m := authsession.New(b)
		res := m.Register(ctx, "A", "a@example.com", "Secret123")
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgAutoLoginFailed, res.Message)
		assert.ErrorIs(t, res.Err, authsession.ErrRateLimited)
		assert.False(t, m.IsAuthenticated())
		assert.False(t, m.IsLoading())
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	loggedIn := func(t *testing.T, opts ...authsession.Option) (*authsession.Manager, *memory.Store) {
		t.Helper()
		store := newMemory(t)
		seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
		m := bootstrapped(t, store.Client(""), opts...)
		require.True(t, m.Login(ctx, "jane@example.com", "Secret123").Success)
		return m, store
	}

	t.Run("gender", func(t *testing.T) {
		m, _ := loggedIn(t)
		res := m.UpdateProfile(ctx, authsession.ProfileUpdate{Gender: "female"})
		require.True(t, res.Success, res.Message)
		assert.Equal(t, "female", m.CurrentUser().Preferences[identity.PrefGender])
		assert.False(t, m.IsLoading())
	})

	t.Run("idempotent", func(t *testing.T) {
		m, _ := loggedIn(t)
		in := authsession.ProfileUpdate{Name: "Jane Doe", DateOfBirth: "1990-05-01", Gender: "female"}

		require.True(t, m.UpdateProfile(ctx, in).Success)
		first := m.State()
		require.True(t, m.UpdateProfile(ctx, in).Success)
		second := m.State()

		assert.Equal(t, first, second)
		assert.Equal(t, "Jane Doe", second.User.Name)
		assert.Equal(t, "1990-05-01", second.User.Preferences[identity.PrefDateOfBirth])
	})

	t.Run("merge keeps unknown keys", func(t *testing.T) {
		m, _ := loggedIn(t)
		require.True(t, m.UpdateProfile(ctx, authsession.ProfileUpdate{DateOfBirth: "1990-05-01"}).Success)
		require.True(t, m.UpdateProfile(ctx, authsession.ProfileUpdate{Gender: "other"}).Success)

		prefs := m.CurrentUser().Preferences
		assert.Equal(t, "1990-05-01", prefs[identity.PrefDateOfBirth])
		assert.Equal(t, "other", prefs[identity.PrefGender])
	})

	t.Run("replace drops omitted keys", func(t *testing.T) {
		m, _ := loggedIn(t, authsession.WithPreferenceMode(authsession.ReplacePreferences))
		require.True(t, m.UpdateProfile(ctx, authsession.ProfileUpdate{DateOfBirth: "1990-05-01"}).Success)
		require.True(t, m.UpdateProfile(ctx, authsession.ProfileUpdate{Gender: "other"}).Success)

		assert.Equal(t, identity.Preferences{identity.PrefGender: "other"}, m.CurrentUser().Preferences)
	})

	t.Run("unchanged name and no prefs only refetch", func(t *testing.T) {
		user := &identity.Account{ID: "u1", Name: "Jane"}
		b := &MockBackend{}
		b.On("GetAccount", mock.Anything).Return(user, nil)

		m := bootstrapped(t, b)
		res := m.UpdateProfile(ctx, authsession.ProfileUpdate{Name: "Jane"})
		assert.True(t, res.Success)
		b.AssertNotCalled(t, "UpdateName", mock.Anything, mock.Anything)
		b.AssertNotCalled(t, "UpdatePreferences", mock.Anything, mock.Anything)
		b.AssertNumberOfCalls(t, "GetAccount", 2)
	})

	t.Run("bad request", func(t *testing.T) {
		user := &identity.Account{ID: "u1", Name: "Jane"}
		b := &MockBackend{}
		b.On("GetAccount", mock.Anything).Return(user, nil)
		b.On("UpdateName", mock.Anything, "J").Return(identity.NewError(http.StatusBadRequest, identity.TypeArgumentInvalid, "Invalid `name` param"))

		m := bootstrapped(t, b)
		res := m.UpdateProfile(ctx, authsession.ProfileUpdate{Name: "J"})
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgInvalidProfile, res.Message)
		assert.ErrorIs(t, res.Err, authsession.ErrValidation)
		assert.Equal(t, "Jane", m.CurrentUser().Name)
	})

	t.Run("anonymous is rejected by backend", func(t *testing.T) {
		m := bootstrapped(t, newMemory(t).Client(""))
		res := m.UpdateProfile(ctx, authsession.ProfileUpdate{Gender: "male"})
		assert.False(t, res.Success)
		assert.Equal(t, authsession.MsgProfileFailed, res.Message)
		assert.False(t, m.IsAuthenticated())
	})
}

func TestSingleFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})

	b := &MockBackend{}
	b.On("CreateSession", mock.Anything, "a@example.com", "Secret123").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&identity.Session{ID: "s1"}, nil)
	b.On("GetAccount", mock.Anything).Return(&identity.Account{ID: "u1", Email: "a@example.com"}, nil)

	obs := &recordingObserver{}
	m := authsession.New(b, authsession.WithObserver(obs))

	var wg sync.WaitGroup
	var first authsession.Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = m.Login(ctx, "a@example.com", "Secret123")
	}()

	<-entered
	assert.True(t, m.IsLoading())
	assert.True(t, m.Busy())

	second := m.Logout(ctx)
	assert.False(t, second.Success)
	assert.Equal(t, authsession.MsgBusy, second.Message)
	assert.True(t, authsession.IsBusy(second.Err))

	close(release)
	wg.Wait()

	assert.True(t, first.Success)
	assert.False(t, m.IsLoading())
	assert.True(t, m.IsAuthenticated())
	b.AssertNotCalled(t, "DeleteSession", mock.Anything, mock.Anything)

	assert.Equal(t, []observation{
		{op: authsession.OpLogout, outcome: "busy"},
		{op: authsession.OpLogin, outcome: "success"},
	}, obs.All())
}

func TestPanicIsContained(t *testing.T) {
	b := &MockBackend{}
	b.On("CreateSession", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("sdk bug")
	}).Return(nil, nil)

	m := authsession.New(b)
	var res authsession.Result
	require.NotPanics(t, func() { res = m.Login(context.Background(), "a@example.com", "Secret123") })
	assert.False(t, res.Success)
	assert.Equal(t, authsession.MsgLoginFailed, res.Message)
	assert.ErrorIs(t, res.Err, authsession.ErrUnknownBackend)
	assert.False(t, m.IsLoading())
	assert.False(t, m.Busy())
}

func TestSubscribe(t *testing.T) {
	store := newMemory(t)
	seedAccount(t, store, "Jane", "jane@example.com", "Secret123")
	m := authsession.New(store.Client(""))

	var mu sync.Mutex
	var states []authsession.State
	unsubscribe := m.Subscribe(func(s authsession.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	m.Bootstrap(context.Background())
	require.True(t, m.Login(context.Background(), "jane@example.com", "Secret123").Success)

	mu.Lock()
	last := states[len(states)-1]
	sawLoading := false
	for _, s := range states {
		sawLoading = sawLoading || s.Loading
	}
	count := len(states)
	mu.Unlock()

	assert.True(t, sawLoading)
	assert.False(t, last.Loading)
	assert.True(t, last.Authenticated())

	unsubscribe()
	unsubscribe()
	m.Logout(context.Background())

	mu.Lock()
	assert.Len(t, states, count)
	mu.Unlock()
}

func TestStateIsCopied(t *testing.T) {
	b := &MockBackend{}
	b.On("GetAccount", mock.Anything).Return(&identity.Account{ID: "u1", Preferences: identity.Preferences{"k": "v"}}, nil)
	m := bootstrapped(t, b)

	u := m.CurrentUser()
	u.Preferences["k"] = "changed"
	u.Name = "changed"

	assert.Equal(t, "v", m.CurrentUser().Preferences["k"])
	assert.Empty(t, m.State().User.Name)
}

func TestClose(t *testing.T) {
	m := bootstrapped(t, newMemory(t).Client(""))
	m.Close()
	m.Close()

	res := m.Login(context.Background(), "a@example.com", "Secret123")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, authsession.ErrClosed)
	assert.Equal(t, "closed", res.Outcome())
}
