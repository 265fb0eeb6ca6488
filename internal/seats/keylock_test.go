package seats

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	locks := newKeyedMutex()

	unlock := locks.Lock("tenant/developer")

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("tenant/developer")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while the first held it")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock after release")
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlock := locks.Lock("tenant/developer")
	defer unlock()

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("tenant/admin")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("a different key should not block")
	}
}

func TestKeyedMutex_EntriesReleased(t *testing.T) {
	locks := newKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock("shared")
			release()
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if n := len(locks.locks); n != 0 {
		t.Errorf("%d lock entries leaked after all holders released", n)
	}
}
