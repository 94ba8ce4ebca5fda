package authsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
)

var ErrRegistryClosed = errors.New("authsession.registry_closed")

type registryEntry struct {
	manager  *Manager
	ready    <-chan struct{}
	lastUsed time.Time
}

// Registry keeps one Manager per browser session key.
type Registry struct {
	factory          identity.Factory
	managerOpts      []Option
	idleTTL          time.Duration
	bootstrapTimeout time.Duration
	now              func() time.Time
	logger           *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool

	stop     chan struct{}
	stopOnce sync.Once
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL evicts managers not acquired for d. Zero disables eviction.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d >= 0 {
			r.idleTTL = d
		}
	}
}

// WithBootstrapTimeout bounds the initial account lookup of new managers.
func WithBootstrapTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.bootstrapTimeout = d
		}
	}
}

// WithManagerOptions sets options applied to every manager the registry creates.
func WithManagerOptions(opts ...Option) RegistryOption {
	return func(r *Registry) { r.managerOpts = append(r.managerOpts, opts...) }
}

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry building backends with factory.
func NewRegistry(factory identity.Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:          factory,
		idleTTL:          30 * time.Minute,
		bootstrapTimeout: 15 * time.Second,
		now:              time.Now,
		logger:           logger.Discard(),
		entries:          make(map[string]*registryEntry),
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idleTTL > 0 {
		go r.sweep(max(r.idleTTL/2, time.Second))
	}
	return r
}

// Acquire returns the manager for key, creating and bootstrapping one
// bound to secret when none exists or the stored one holds a different
// credential. It waits for bootstrap as long as ctx allows.
func (r *Registry) Acquire(ctx context.Context, key, secret string) (*Manager, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}

	e, ok := r.entries[key]
	if ok && !e.manager.Busy() && e.manager.Secret() != secret {
		// The credential changed elsewhere (another replica, expired cookie).
		e.manager.Close()
		ok = false
	}
	if !ok {
		e = r.create(ctx, key, secret)
		r.entries[key] = e
	}
	e.lastUsed = r.now()
	r.mu.Unlock()

	select {
	case <-e.ready:
		return e.manager, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) create(ctx context.Context, key, secret string) *registryEntry {
	opts := append([]Option{WithLogger(r.logger.With(logger.SessionID(key)))}, r.managerOpts...)
	m := New(r.factory(secret), opts...)

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.bootstrapTimeout)
	ready := m.Start(bctx)
	go func() {
		<-ready
		cancel()
	}()

	return &registryEntry{manager: m, ready: ready}
}

// Release closes and forgets the manager for key.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		e.manager.Close()
	}
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every manager. Acquire fails afterwards.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range entries {
		e.manager.Close()
	}
}

// EvictIdle closes managers idle for longer than the TTL and returns how
// many were removed.
func (r *Registry) EvictIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var stale []*registryEntry
	for key, e := range r.entries {
		if now.Sub(e.lastUsed) > r.idleTTL && !e.manager.Busy() {
			stale = append(stale, e)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.manager.Close()
	}
	if len(stale) > 0 {
		r.logger.Debug("evicted idle session managers", slog.Int("count", len(stale)))
	}
	return len(stale)
}

func (r *Registry) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-r.stop:
			return
		}
	}
}
