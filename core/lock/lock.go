// Package lock serializes work on a single diary date.
//
// Sync, commit, discard, toggle and direct writes all take the lock for the
// date they touch, so two operations on the same date never interleave
// while operations on different dates proceed in parallel.
package lock

import (
	"context"
	"sync"
	"time"
)

// Dates is a keyed mutex over calendar dates. The zero value is ready to use.
type Dates struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// New returns an empty lock table.
func New() *Dates {
	return &Dates{}
}

func key(date time.Time) string {
	return date.Format("2006-01-02")
}

// Lock blocks until the date is free or ctx is done. On success the
// returned function releases the lock and must be called exactly once.
func (d *Dates) Lock(ctx context.Context, date time.Time) (func(), error) {
	k := key(date)

	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[string]*entry)
	}
	e, ok := d.locks[k]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		d.locks[k] = e
	}
	e.refs++
	d.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				d.release(k, e)
			})
		}, nil
	case <-ctx.Done():
		d.release(k, e)
		return nil, ctx.Err()
	}
}

func (d *Dates) release(k string, e *entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(d.locks, k)
	}
}

// Len reports how many dates are currently held or awaited.
func (d *Dates) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
