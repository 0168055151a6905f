package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/maison-storefront/pkg/config"
	"github.com/angelmondragon/maison-storefront/pkg/db"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/migrate"
	"github.com/angelmondragon/maison-storefront/pkg/redis"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noopCloser = closerFunc(func() error { return nil })

// Namespace scopes persisted keys; an explicit namespace wins over the API origin.
func Namespace(cfg *config.Config) string {
	if ns := strings.TrimSpace(cfg.Store.Namespace); ns != "" {
		return ns
	}
	return cfg.API.Origin()
}

// Open builds the configured store. With Store.Fallback set the durable
// backend is wrapped so failures degrade to memory, including a failure to
// connect at all.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, io.Closer, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	ctx = logg.WithFields(ctx, map[string]any{"store_driver": cfg.Store.Driver, "namespace": Namespace(cfg)})

	backend, closer, err := openBackend(ctx, cfg, logg)
	if err != nil {
		if !cfg.Store.Fallback {
			return nil, nil, err
		}
		logg.WarnErr(ctx, "durable store unavailable, keeping session in memory", err)
		return NewMemory(), noopCloser, nil
	}
	if cfg.Store.Fallback {
		if _, isMemory := backend.(*Memory); !isMemory {
			backend = NewFallback(backend, logg)
		}
	}
	logg.Info(ctx, "store opened")
	return backend, closer, nil
}

func openBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, io.Closer, error) {
	namespace := Namespace(cfg)

	switch strings.ToLower(cfg.Store.Driver) {
	case config.StoreDriverMemory:
		return NewMemory(), noopCloser, nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		client, err := db.New(ctx, cfg.Store, logg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.EnsureSchema(ctx, client, logg); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("migrating store: %w", err)
		}
		return NewSQL(client.DB(), namespace), client, nil

	case config.StoreDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(client, namespace), client, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
