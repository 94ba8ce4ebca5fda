package authsession_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/identity"
)

// MockBackend is a mock implementation of identity.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetAccount(ctx context.Context) (*identity.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockBackend) CreateSession(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockBackend) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) CreateAccount(ctx context.Context, id, email, password, name string) (*identity.Account, error) {
	args := m.Called(ctx, id, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockBackend) UpdateName(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockBackend) UpdatePreferences(ctx context.Context, prefs identity.Preferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *MockBackend) Secret() string {
	args := m.Called()
	return args.String(0)
}

type navigation struct {
	mu     sync.Mutex
	routes []string
}

func (n *navigation) Navigate(_ context.Context, route string) {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	n.mu.Unlock()
}

func (n *navigation) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type observation struct {
	op      string
	outcome string
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveOperation(op string, res authsession.Result, _ time.Duration) {
	o.mu.Lock()
	o.seen = append(o.seen, observation{op: op, outcome: res.Outcome()})
	o.mu.Unlock()
}

func (o *recordingObserver) All() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observation(nil), o.seen...)
}
