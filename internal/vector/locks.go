package vector

import (
	"context"
	"sync"

	pkgerrors "vectorhub/pkg/errors"

	"golang.org/x/sync/semaphore"
)

// writeWeight is the semaphore weight of the exclusive side. Readers take
// weight 1, so one writer excludes every reader, and a queued writer holds
// back readers that arrive after it.
const writeWeight = 1 << 30

type refLock struct {
	sem  *semaphore.Weighted
	refs int
}

// collectionLocks hands out one reader/writer lock per collection name and
// forgets it once no caller holds a reference. Waiting honors the context.
type collectionLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func newCollectionLocks() *collectionLocks {
	return &collectionLocks{locks: make(map[string]*refLock)}
}

func (c *collectionLocks) acquire(name string) *refLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[name]
	if !ok {
		l = &refLock{sem: semaphore.NewWeighted(writeWeight)}
		c.locks[name] = l
	}
	l.refs++
	return l
}

func (c *collectionLocks) release(name string, l *refLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, name)
	}
}

func (c *collectionLocks) take(ctx context.Context, name string, weight int64) (func(), error) {
	l := c.acquire(name)
	if err := l.sem.Acquire(ctx, weight); err != nil {
		c.release(name, l)
		return nil, err
	}
	return func() {
		l.sem.Release(weight)
		c.release(name, l)
	}, nil
}

// Lock takes the exclusive side for name and returns the unlock func. It
// returns ctx.Err() if ctx ends first.
func (c *collectionLocks) Lock(ctx context.Context, name string) (func(), error) {
	return c.take(ctx, name, writeWeight)
}

// RLock takes the shared side for name.
func (c *collectionLocks) RLock(ctx context.Context, name string) (func(), error) {
	return c.take(ctx, name, 1)
}

func (c *collectionLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

// lockCollection waits for the collection lock of an operation. Giving up
// because ctx ended is a connection error, like any aborted call.
func (h *Handle) lockCollection(ctx context.Context, op, name string, exclusive bool) (func(), error) {
	lock := h.locks.RLock
	if exclusive {
		lock = h.locks.Lock
	}
	unlock, err := lock(ctx, name)
	if err != nil {
		err = pkgerrors.Connection(op, name, err, "gave up waiting for collection lock")
		report(op, name, err)
		return nil, err
	}
	return unlock, nil
}
