package engine

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := newKeyLock()
	const workers = 16
	const key = "water\x00eng"

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := kl.Acquire(key)
			defer release()
			counter++
		}()
	}
	wg.Wait()
	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := newKeyLock()
	releaseA := kl.Acquire("a")

	done := make(chan struct{})
	go func() {
		release := kl.Acquire("b")
		release()
		close(done)
	}()
	// A held lock on another key must not block this one.
	<-done
	releaseA()
}

func TestKeyLockDuplicateKeysCollapse(t *testing.T) {
	kl := newKeyLock()
	release := kl.Acquire("a", "a", "a")
	release()

	// A second acquire of the same key succeeds, so the duplicates were
	// collapsed rather than self-deadlocking.
	release = kl.Acquire("a")
	release()
}

func TestKeyLockCleansUpEntries(t *testing.T) {
	kl := newKeyLock()
	release := kl.Acquire("a", "b")
	release()

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if len(kl.locks) != 0 {
		t.Fatalf("released locks should be dropped from the table, %d remain", len(kl.locks))
	}
}

func TestKeyLockIgnoresEmptyKeys(t *testing.T) {
	kl := newKeyLock()
	release := kl.Acquire("", "a", "")
	release()

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if len(kl.locks) != 0 {
		t.Fatalf("empty keys must not leak entries, %d remain", len(kl.locks))
	}
}
