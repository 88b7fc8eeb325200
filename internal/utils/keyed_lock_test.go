package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLock_SerializesSameKey(t *testing.T) {
	lock := NewKeyedLock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := lock.Lock("user-1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, lock.Len())
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	lock := NewKeyedLock()

	unlockA := lock.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := lock.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on key b blocked behind key a")
	}
}

func TestKeyedLock_UnlockIsIdempotent(t *testing.T) {
	lock := NewKeyedLock()

	unlock := lock.Lock("k")
	unlock()
	unlock()

	assert.Equal(t, 0, lock.Len())

	// The key must still be lockable after a double unlock
	unlock = lock.Lock("k")
	assert.Equal(t, 1, lock.Len())
	unlock()
}
