package profilestore

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedStore is a read-through, write-through cache in front of another
// Store. Concurrent misses for the same uid share one backend read.
// Not-found results are not cached.
type CachedStore struct {
	next  Store
	cache *cache.Cache
	group singleflight.Group

	mu       sync.Mutex
	versions map[string]uint64
}

// NewCachedStore caches profiles for ttl. Expired entries are purged every
// 2*ttl.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:     next,
		cache:    cache.New(ttl, 2*ttl),
		versions: make(map[string]uint64),
	}
}

// Get returns the cached profile or reads it from the backing store. The
// shared read survives cancellation of any single caller's ctx.
func (s *CachedStore) Get(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	if v, ok := s.cache.Get(uid); ok {
		p := v.(Profile)
		return &p, nil
	}

	ch := s.group.DoChan(uid, func() (any, error) {
		ver := s.version(uid)
		p, err := s.next.Get(context.WithoutCancel(ctx), uid)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		// A Set since the read started owns the cache entry.
		if s.versions[uid] == ver {
			s.cache.SetDefault(uid, *p)
		}
		s.mu.Unlock()
		return *p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p := res.Val.(Profile)
		return &p, nil
	}
}

// Set writes p to the backing store and then to the cache.
func (s *CachedStore) Set(ctx context.Context, uid string, p Profile) error {
	if uid == "" {
		return ErrEmptyUID
	}
	p.UID = uid

	err := s.next.Set(ctx, uid, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[uid]++
	s.group.Forget(uid)
	if err != nil {
		s.cache.Delete(uid)
		return err
	}
	s.cache.SetDefault(uid, p)
	return nil
}

func (s *CachedStore) version(uid string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[uid]
}

// Invalidate drops the cached entry for uid.
func (s *CachedStore) Invalidate(uid string) {
	s.cache.Delete(uid)
}

// Flush drops every cached entry.
func (s *CachedStore) Flush() {
	s.cache.Flush()
}
