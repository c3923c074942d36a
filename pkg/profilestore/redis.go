package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "users:"

// RedisStore keeps each profile as a JSON string under prefix+uid.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key prefix. Defaults to DefaultRedisPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithExpiration sets a TTL on written keys. Zero keeps them forever.
func WithExpiration(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore keeps profiles as JSON strings under <prefix><uid>.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(uid string) string {
	return s.prefix + uid
}

func (s *RedisStore) Get(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	raw, err := s.client.Get(ctx, s.key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: redis get %s: %w", uid, err)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profilestore: decode %s: %w", uid, err)
	}
	return &p, nil
}

func (s *RedisStore) Set(ctx context.Context, uid string, p Profile) error {
	if uid == "" {
		return ErrEmptyUID
	}
	p.UID = uid

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profilestore: encode %s: %w", uid, err)
	}
	if err := s.client.Set(ctx, s.key(uid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("profilestore: redis set %s: %w", uid, err)
	}
	return nil
}
