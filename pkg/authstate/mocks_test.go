package authstate_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/profilestore"
)

// mockProvider records the registered observer so tests can emit auth state
// changes; every other method goes through mock.Mock.
type mockProvider struct {
	mock.Mock

	mu           sync.Mutex
	observer     func(*identity.User)
	registered   atomic.Int32
	unsubscribed atomic.Bool
}

func (m *mockProvider) OnAuthStateChanged(fn func(*identity.User)) func() {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
	m.registered.Add(1)
	return func() { m.unsubscribed.Store(true) }
}

// emit delivers an auth state change synchronously.
func (m *mockProvider) emit(u *identity.User) {
	m.mu.Lock()
	fn := m.observer
	m.mu.Unlock()
	fn(u.Clone())
}

func (m *mockProvider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*identity.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockProvider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*identity.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockProvider) SignInWithFederated(ctx context.Context) (*identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockProvider) SendEmailVerification(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockProvider) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockProvider) CurrentUser() *identity.User {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*identity.User)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, uid string) (*profilestore.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profilestore.Profile), args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, uid string, p profilestore.Profile) error {
	args := m.Called(ctx, uid, p)
	return args.Error(0)
}
