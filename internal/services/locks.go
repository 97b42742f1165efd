package services

import "sync"

// keyedLocks serializes critical sections per key (property or booking ID)
// without a global lock across keys. Entries are reference counted and
// removed once the last holder releases, so the map does not grow with
// the number of distinct keys ever seen.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		entries: make(map[string]*lockEntry),
	}
}

// Lock blocks until the key's critical section is free and returns the
// release function.
func (kl *keyedLocks) Lock(key string) func() {
	kl.mu.Lock()
	entry, ok := kl.entries[key]
	if !ok {
		entry = &lockEntry{}
		kl.entries[key] = entry
	}
	entry.refs++
	kl.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		kl.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(kl.entries, key)
		}
		kl.mu.Unlock()
	}
}
