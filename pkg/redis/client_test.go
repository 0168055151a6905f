package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/maison-storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, ok, err := client.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key without error, got ok=%v err=%v", ok, err)
	}

	if err := client.Set(ctx, "guest.cart", `{"lines":[]}`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := client.Get(ctx, "guest.cart")
	if err != nil || !ok || val != `{"lines":[]}` {
		t.Fatalf("unexpected get result val=%q ok=%v err=%v", val, ok, err)
	}

	if err := client.Del(ctx, "guest.cart"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, ok, _ := client.Get(ctx, "guest.cart"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestGetSurfacesTransportErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection reset")
	client := &Client{store: mock}

	if _, _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Set(context.Background(), "k", "v"); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.KVKey("https://store.example.com", "auth.token"); got != "sf:kv:https://store.example.com:auth.token" {
		t.Fatalf("unexpected kv key %s", got)
	}
	if got := client.KVKey("", "auth.token"); got != "sf:kv:auth.token" {
		t.Fatalf("empty namespace should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 3 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data   map[string]string
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
