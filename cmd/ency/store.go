package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/config"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/mongo"
	"github.com/dmitrymomot/ency/pkg/pg"
	"github.com/dmitrymomot/ency/pkg/profilestore"
	"github.com/dmitrymomot/ency/pkg/redis"
)

const (
	storeMemory   = "memory"
	storeMongo    = "mongo"
	storeRedis    = "redis"
	storePostgres = "postgres"
)

// openStore connects the configured profile backend. The returned func
// releases its connection.
func openStore(ctx context.Context, cfg profileConfig, log *slog.Logger) (authstate.ProfileStore, func(), error) {
	store, closeFn, err := openBackend(ctx, cfg.Store, log)
	if err != nil {
		return nil, nil, err
	}
	log.DebugContext(ctx, "profile store ready", logger.Store(cfg.Store), slog.Duration("cache_ttl", cfg.CacheTTL))

	if cfg.CacheTTL > 0 {
		return profilestore.NewCachedStore(store, cfg.CacheTTL), closeFn, nil
	}
	return store, closeFn, nil
}

func openBackend(ctx context.Context, kind string, log *slog.Logger) (profilestore.Store, func(), error) {
	switch kind {
	case "", storeMemory:
		return profilestore.NewMemoryStore(), func() {}, nil

	case storeMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		db, err := mongo.Database(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Warn("mongo disconnect failed", logger.Error(err))
			}
		}
		return profilestore.NewMongoStore(db), closeFn, nil

	case storeRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return profilestore.NewRedisStore(client), func() { _ = client.Close() }, nil

	case storePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, profilestore.Migrations, "migrations", log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return profilestore.NewPostgresStore(pool), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown PROFILE_STORE %q (want memory, mongo, redis or postgres)", kind)
}
