package storefront

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	t.Parallel()
	locks := newKeyLock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("line:1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())
}

func TestKeyLockIndependentKeys(t *testing.T) {
	t.Parallel()
	locks := newKeyLock()

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	assert.Zero(t, locks.size())
}
