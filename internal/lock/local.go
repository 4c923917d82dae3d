package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process Locker keyed by string. Entries are dropped when no holder or
// waiter remains.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*entry
	wait time.Duration
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker. wait bounds how long Lock blocks before ErrLockTimeout.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{keys: map[string]*entry{}, wait: wait}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	waitCtx, cancel := waitContext(ctx, l.wait)
	defer cancel()

	select {
	case e.sem <- struct{}{}:
	case <-waitCtx.Done():
		l.release(key, e, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(key, e, true) }) }, nil
}

func (l *LocalLocker) release(key string, e *entry, held bool) {
	if held {
		<-e.sem
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}
