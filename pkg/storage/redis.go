package storage

import (
	"context"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/redis"
)

// kvClient is the subset of the redis client the store needs.
type kvClient interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	KVKey(namespace, key string) string
}

var _ kvClient = (*redis.Client)(nil)

// Redis stores entries as plain redis strings under sf:kv:<namespace>:<key>.
type Redis struct {
	client    kvClient
	namespace string
}

func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := r.client.Get(ctx, r.client.KVKey(r.namespace, key))
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "read "+key)
	}
	return value, ok, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.client.KVKey(r.namespace, key), value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "write "+key)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.client.KVKey(r.namespace, key)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "remove "+key)
	}
	return nil
}
