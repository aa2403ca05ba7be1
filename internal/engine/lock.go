package engine

import (
	"context"
	"sync"
)

// KeyedLock serializes work per string key. Booking admission uses it
// with a "staff|date" key so that two requests for the same staff and
// day never interleave, while different days proceed in parallel.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLock returns an empty lock set.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held or ctx expires. On
// success it returns a release function that must be called exactly
// once. On ctx expiry it returns ctx.Err().
func (k *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			k.put(key, entry)
		}, nil
	case <-ctx.Done():
		k.put(key, entry)
		return nil, ctx.Err()
	}
}

func (k *KeyedLock) put(key string, entry *lockEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
