package storage

import (
	"context"
	"sync"

	"github.com/angelmondragon/maison-storefront/pkg/logger"
)

// Fallback serves reads and writes from an in-memory shadow whenever the
// durable store fails, so a broken disk or connection degrades to a
// process-lifetime session instead of an error. It never returns an error.
type Fallback struct {
	primary Store
	shadow  *Memory
	logg    *logger.Logger

	mu sync.Mutex
	// degraded holds keys whose latest write only reached the shadow.
	degraded map[string]struct{}
}

func NewFallback(primary Store, logg *logger.Logger) *Fallback {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Fallback{
		primary:  primary,
		shadow:   NewMemory(),
		logg:     logg,
		degraded: make(map[string]struct{}),
	}
}

func (f *Fallback) Get(ctx context.Context, key string) (string, bool, error) {
	if f.isDegraded(key) {
		return f.shadow.Get(ctx, key)
	}
	value, ok, err := f.primary.Get(ctx, key)
	if err != nil {
		f.logg.WarnErr(f.logg.WithField(ctx, "key", key), "store read failed, using memory", err)
		return f.shadow.Get(ctx, key)
	}
	return value, ok, nil
}

func (f *Fallback) Set(ctx context.Context, key, value string) error {
	if err := f.primary.Set(ctx, key, value); err != nil {
		f.logg.WarnErr(f.logg.WithField(ctx, "key", key), "store write failed, using memory", err)
		f.markDegraded(key, true)
		return f.shadow.Set(ctx, key, value)
	}
	f.markDegraded(key, false)
	return f.shadow.Remove(ctx, key)
}

func (f *Fallback) Remove(ctx context.Context, key string) error {
	// a failed remove still hides the key; the durable copy may be stale
	err := f.primary.Remove(ctx, key)
	if err != nil {
		f.logg.WarnErr(f.logg.WithField(ctx, "key", key), "store remove failed, hiding key in memory", err)
	}
	f.markDegraded(key, err != nil)
	return f.shadow.Remove(ctx, key)
}

// Degraded reports whether any key currently lives only in memory.
func (f *Fallback) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.degraded) > 0
}

func (f *Fallback) isDegraded(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.degraded[key]
	return ok
}

func (f *Fallback) markDegraded(key string, degraded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if degraded {
		f.degraded[key] = struct{}{}
		return
	}
	delete(f.degraded, key)
}
