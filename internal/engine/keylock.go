package engine

import (
	"sort"
	"sync"
)

// keyLock serializes pipeline runs per resolution key so two observations of
// the same (normalized form, language) never interleave. Locks for multiple
// keys are always acquired in sorted order.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: map[string]*keyEntry{}}
}

// Acquire locks every key and returns the release function. Duplicate keys
// collapse to one lock.
func (k *keyLock) Acquire(keys ...string) func() {
	uniq := map[string]bool{}
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" && !uniq[key] {
			uniq[key] = true
			ordered = append(ordered, key)
		}
	}
	sort.Strings(ordered)

	entries := make([]*keyEntry, 0, len(ordered))
	k.mu.Lock()
	for _, key := range ordered {
		e := k.locks[key]
		if e == nil {
			e = &keyEntry{}
			k.locks[key] = e
		}
		e.refs++
		entries = append(entries, e)
	}
	k.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		k.mu.Lock()
		for i, key := range ordered {
			e := entries[i]
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
		}
		k.mu.Unlock()
	}
}
