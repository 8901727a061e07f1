package storage

import (
	"context"
	"io"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/rates"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenRateCache builds the rate cache selected by cfg.RatesCache. The
// returned closer releases its connection.
func OpenRateCache(ctx context.Context, cfg *config.Config) (rates.Cache, io.Closer, error) {
	switch cfg.RatesCache {
	case "", "none":
		return &rates.MemoryCache{}, closerFunc(func() error { return nil }), nil
	case "redis":
		client, err := RedisConfig{URL: cfg.RedisURL}.New(ctx)
		if err != nil {
			return nil, nil, errs.NewConfig("open redis rate cache", err)
		}
		return NewRedisRateCache(client, cfg.RatesStaleAfter), client, nil
	case "postgres":
		store, err := NewPostgresStore(cfg)
		if err != nil {
			return nil, nil, errs.NewConfig("open postgres rate cache", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, closerFunc(func() error { store.Close(); return nil }), nil
	default:
		return nil, nil, errs.NewConfig("unknown rates cache "+cfg.RatesCache, nil)
	}
}
