package session

import (
	"context"

	"library-client/config"
)

// Open builds the store cfg selects, sealing it when a key is set.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	var store Store
	switch cfg.Backend {
	case config.BackendRedis:
		rs := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err := rs.Connect(ctx); err != nil {
			return nil, err
		}
		store = rs
	case config.BackendMemory:
		store = NewMemoryStore()
	default:
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = s
	}
	if cfg.Key == "" {
		return store, nil
	}
	sealed, err := NewSealedStore(store, cfg.Key)
	if err != nil {
		store.Close()
		return nil, err
	}
	return sealed, nil
}
