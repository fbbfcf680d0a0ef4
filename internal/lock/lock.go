// Package lock serializes work on a single application record.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codavert-workers/internal/common/errors"
)

// Locker acquires a named lock. The returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RecordKey names the lock for one application.
func RecordKey(applicationID int64) string {
	return fmt.Sprintf("application:%d", applicationID)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed once nobody holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
	wait  time.Duration
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns a local locker. A zero wait means callers block
// until ctx is done.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry), wait: wait}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if k.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.wait)
		defer cancel()
	}

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, e)
		return nil, errors.NewLockTimeoutError(key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.unref(key, e)
		})
	}, nil
}

func (k *KeyedMutex) unref(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size is used by tests to check entries are reclaimed.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
