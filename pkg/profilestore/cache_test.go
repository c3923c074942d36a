package profilestore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/profilestore"
)

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

func TestCachedStore_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("second read is served from cache", func(t *testing.T) {
		t.Parallel()
		next := &mockStore{}
		next.On("Get", mock.Anything, "u1").Return(&profilestore.Profile{UID: "u1", Name: "Ann"}, nil).Once()

		s := profilestore.NewCachedStore(next, time.Minute)

		for range 3 {
			p, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "Ann", p.Name)
		}
		next.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		t.Parallel()
		next := &mockStore{}
		next.On("Get", mock.Anything, "u1").Return(nil, profilestore.ErrNotFound).Twice()

		s := profilestore.NewCachedStore(next, time.Minute)

		_, err := s.Get(ctx, "u1")
		assert.ErrorIs(t, err, profilestore.ErrNotFound)
		_, err = s.Get(ctx, "u1")
		assert.ErrorIs(t, err, profilestore.ErrNotFound)
		next.AssertExpectations(t)
	})

	t.Run("backend error is returned", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		next := &mockStore{}
		next.On("Get", mock.Anything, "u1").Return(nil, boom)

		s := profilestore.NewCachedStore(next, time.Minute)

		_, err := s.Get(ctx, "u1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("concurrent misses share one read", func(t *testing.T) {
		t.Parallel()
		release := make(chan time.Time)
		next := &mockStore{}
		next.On("Get", mock.Anything, "u1").
			WaitUntil(release).
			Return(&profilestore.Profile{UID: "u1"}, nil)

		s := profilestore.NewCachedStore(next, time.Minute)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Get(ctx, "u1")
				assert.NoError(t, err)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.LessOrEqual(t, len(next.Calls), 2)
	})

	t.Run("entry expires", func(t *testing.T) {
		t.Parallel()
		next := &mockStore{}
		next.On("Get", mock.Anything, "u1").Return(&profilestore.Profile{UID: "u1"}, nil)

		s := profilestore.NewCachedStore(next, 10*time.Millisecond)

		_, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
		_, err = s.Get(ctx, "u1")
		require.NoError(t, err)

		next.AssertNumberOfCalls(t, "Get", 2)
	})
}

func TestCachedStore_Set(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("write through updates cache", func(t *testing.T) {
		t.Parallel()
		next := profilestore.NewMemoryStore()
		s := profilestore.NewCachedStore(next, time.Minute)

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Ann"}))
		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Bea"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Bea", p.Name)

		stored, err := next.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Bea", stored.Name)
	})

	t.Run("failed write drops cached entry", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		next := &mockStore{}
		next.On("Set", ctx, "u1", profilestore.Profile{UID: "u1", Name: "Ann"}).Return(nil).Once()
		next.On("Set", ctx, "u1", profilestore.Profile{UID: "u1", Name: "Bea"}).Return(boom).Once()
		next.On("Get", mock.Anything, "u1").Return(&profilestore.Profile{UID: "u1", Name: "Ann"}, nil).Once()

		s := profilestore.NewCachedStore(next, time.Minute)

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Ann"}))
		assert.ErrorIs(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Bea"}), boom)

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", p.Name)
		next.AssertExpectations(t)
	})

	t.Run("invalidate forces reread", func(t *testing.T) {
		t.Parallel()
		next := profilestore.NewMemoryStore()
		s := profilestore.NewCachedStore(next, time.Minute)

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Ann"}))
		require.NoError(t, next.Set(ctx, "u1", profilestore.Profile{Name: "Bea"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", p.Name)

		s.Invalidate("u1")
		p, err = s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Bea", p.Name)
	})
}

// gatedStore snapshots the stored profile and then holds the read until
// release is closed or ctx ends.
type gatedStore struct {
	*profilestore.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: profilestore.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, uid string) (*profilestore.Profile, error) {
	p, err := g.MemoryStore.Get(ctx, uid)
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return p, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedStore_Concurrency(t *testing.T) {
	t.Parallel()

	t.Run("cancelled caller does not fail shared read", func(t *testing.T) {
		t.Parallel()
		next := newGatedStore()
		require.NoError(t, next.Set(context.Background(), "u1", profilestore.Profile{UID: "u1", Name: "Ann"}))
		s := profilestore.NewCachedStore(next, time.Minute)

		firstCtx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := s.Get(firstCtx, "u1")
			firstErr <- err
		}()
		<-next.entered

		type result struct {
			p   *profilestore.Profile
			err error
		}
		second := make(chan result, 1)
		go func() {
			p, err := s.Get(context.Background(), "u1")
			second <- result{p, err}
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(next.release)
		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, "Ann", res.p.Name)
	})

	t.Run("read started before set does not overwrite cache", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		next := newGatedStore()
		require.NoError(t, next.MemoryStore.Set(ctx, "u1", profilestore.Profile{UID: "u1", Name: "Ann"}))
		s := profilestore.NewCachedStore(next, time.Minute)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.Get(ctx, "u1")
		}()
		<-next.entered

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Bea"}))
		close(next.release)
		<-done

		// Bypass the cache so only a cached entry can still answer "Bea".
		require.NoError(t, next.MemoryStore.Set(ctx, "u1", profilestore.Profile{UID: "u1", Name: "Cid"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Bea", p.Name)
	})
}
