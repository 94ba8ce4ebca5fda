package authsession_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/identity"
)

func TestRegistryAcquire(t *testing.T) {
	ctx := context.Background()
	store := newMemory(t)
	seedAccount(t, store, "Jane", "jane@example.com", "Secret123")

	reg := authsession.NewRegistry(store.Factory(), authsession.WithIdleTTL(0))
	defer reg.Close()

	m1, err := reg.Acquire(ctx, "browser-1", "")
	require.NoError(t, err)
	assert.False(t, m1.IsLoading(), "acquire waits for bootstrap")
	assert.False(t, m1.IsAuthenticated())

	m2, err := reg.Acquire(ctx, "browser-1", "")
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	require.True(t, m1.Login(ctx, "jane@example.com", "Secret123").Success)
	secret := m1.Secret()

	// Same credential keeps the manager.
	m3, err := reg.Acquire(ctx, "browser-1", secret)
	require.NoError(t, err)
	assert.Same(t, m1, m3)

	// A different browser restoring the secret gets its own bootstrapped manager.
	other, err := reg.Acquire(ctx, "browser-2", secret)
	require.NoError(t, err)
	assert.NotSame(t, m1, other)
	assert.True(t, other.IsAuthenticated())
	assert.Equal(t, 2, reg.Len())

	// A stale credential replaces the manager.
	fresh, err := reg.Acquire(ctx, "browser-1", "")
	require.NoError(t, err)
	assert.NotSame(t, m1, fresh)
	assert.False(t, fresh.IsAuthenticated())
	assert.ErrorIs(t, m1.Login(ctx, "jane@example.com", "Secret123").Err, authsession.ErrClosed)

	reg.Release("browser-2")
	assert.Equal(t, 1, reg.Len())
	assert.ErrorIs(t, other.Logout(ctx).Err, authsession.ErrClosed)
}

func TestRegistryManagerOptions(t *testing.T) {
	obs := &recordingObserver{}
	reg := authsession.NewRegistry(newMemory(t).Factory(),
		authsession.WithIdleTTL(0),
		authsession.WithManagerOptions(authsession.WithObserver(obs)),
	)
	defer reg.Close()

	_, err := reg.Acquire(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, []observation{{op: authsession.OpBootstrap, outcome: "success"}}, obs.All())
}

func TestRegistryEvictIdle(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	reg := authsession.NewRegistry(newMemory(t).Factory(),
		authsession.WithIdleTTL(time.Hour),
		authsession.WithRegistryClock(clock),
	)
	defer reg.Close()

	ctx := context.Background()
	_, err := reg.Acquire(ctx, "a", "")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(45 * time.Minute)
	mu.Unlock()
	_, err = reg.Acquire(ctx, "b", "")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(30 * time.Minute)
	mu.Unlock()

	assert.Equal(t, 1, reg.EvictIdle())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryContextCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	b := &MockBackend{}
	b.On("GetAccount", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil, identity.ErrUnauthorized())
	b.On("Secret").Return("")

	reg := authsession.NewRegistry(func(string) identity.Backend { return b }, authsession.WithIdleTTL(0))
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := reg.Acquire(ctx, "k", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryClose(t *testing.T) {
	reg := authsession.NewRegistry(newMemory(t).Factory())
	m, err := reg.Acquire(context.Background(), "k", "")
	require.NoError(t, err)

	reg.Close()
	reg.Close()

	_, err = reg.Acquire(context.Background(), "k", "")
	assert.ErrorIs(t, err, authsession.ErrRegistryClosed)
	assert.ErrorIs(t, m.Login(context.Background(), "a@b.co", "x").Err, authsession.ErrClosed)
}
