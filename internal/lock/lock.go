// Package lock provides mutual exclusion keyed by an arbitrary string.  The
// booking flow locks the (resource, date) pair around its availability
// check and insert so two concurrent requests for the same slot cannot both
// pass the check.  A single-process deployment can use the in-memory
// locker; multi-instance deployments must use the Redis locker so the
// exclusion spans processes.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on key, blocking until the lock is
// available or ctx is done.  The returned release function must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker implements Locker with one mutex per key, suitable for a
// single process.  Key mutexes are never removed; the key space (resources
// times dates with active traffic) is small.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

// NewMemoryLocker returns an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{keys: make(map[string]*sync.Mutex)}
}

// Acquire locks the mutex for key.  The context is checked before blocking;
// once blocked on the mutex the wait is not interruptible, which is
// acceptable because holders release within one database transaction.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
