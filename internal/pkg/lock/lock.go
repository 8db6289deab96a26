// Package lock provides per-key locking for multi-step balance operations.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// entry is a mutex with the number of goroutines holding or waiting on it.
type entry struct {
	mu   sync.Mutex
	refs int
}

// UserLock serializes operations per key (typically a user id).
// Entries are dropped once nobody holds or waits on them.
type UserLock[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New creates an empty UserLock.
func New[K comparable]() *UserLock[K] {
	return &UserLock[K]{entries: make(map[K]*entry)}
}

func (ul *UserLock[K]) acquire(key K) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e, ok := ul.entries[key]
	if !ok {
		e = &entry{}
		ul.entries[key] = e
	}
	e.refs++
	return e
}

func (ul *UserLock[K]) release(key K, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(ul.entries, key)
	}
}

// Lock blocks until the lock for key is held.
func (ul *UserLock[K]) Lock(key K) {
	e := ul.acquire(key)
	e.mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not locked is a no-op.
func (ul *UserLock[K]) Unlock(key K) {
	ul.mu.Lock()
	e, ok := ul.entries[key]
	ul.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	ul.release(key, e)
}

// TryLock acquires the lock for key without blocking.
func (ul *UserLock[K]) TryLock(key K) bool {
	e := ul.acquire(key)
	if e.mu.TryLock() {
		return true
	}
	ul.release(key, e)
	return false
}

// LockContext waits for the lock until ctx is done or timeout elapses.
// It returns ErrLockTimeout when the wait is abandoned.
func (ul *UserLock[K]) LockContext(ctx context.Context, key K, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if ul.TryLock(key) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// WithLock runs fn while holding the lock for key.
func (ul *UserLock[K]) WithLock(key K, fn func() error) error {
	ul.Lock(key)
	defer ul.Unlock(key)
	return fn()
}

// Len reports how many keys currently have holders or waiters.
func (ul *UserLock[K]) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}
