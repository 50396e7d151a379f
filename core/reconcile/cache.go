package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DateIndex is a snapshot of the dates a remote holds.
type DateIndex struct {
	// Dates is the set of remote dates, keyed by UTC midnight.
	Dates map[time.Time]struct{}

	// Built is the timestamp when this index was built.
	Built time.Time

	// TTL is the time-to-live for this index.
	TTL time.Duration
}

// IsExpired returns true if this index has expired based on its TTL.
func (c *DateIndex) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// Has reports whether date is present remotely.
func (c *DateIndex) Has(date time.Time) bool {
	_, ok := c.Dates[date]
	return ok
}

// Sorted returns the dates newest first.
func (c *DateIndex) Sorted() []time.Time {
	out := make([]time.Time, 0, len(c.Dates))
	for d := range c.Dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

// indexCache holds remote date indices keyed by source name.
type indexCache struct {
	mu      sync.RWMutex
	indices map[string]*DateIndex
	sf      singleflight.Group
	ttl     time.Duration
}

func newIndexCache(ttl time.Duration) *indexCache {
	return &indexCache{indices: make(map[string]*DateIndex), ttl: ttl}
}

// buildIndex lists the remote and normalizes the dates.
func buildIndex(ctx context.Context, src Source, ttl time.Duration) (*DateIndex, error) {
	dates, err := src.ListDates(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[dayOf(d)] = struct{}{}
	}
	return &DateIndex{Dates: set, Built: time.Now(), TTL: ttl}, nil
}

// get returns a fresh index for src, building it when missing or expired.
// Concurrent callers share one listing.
func (c *indexCache) get(ctx context.Context, src Source) (*DateIndex, error) {
	key := src.Name()

	c.mu.RLock()
	idx, ok := c.indices[key]
	c.mu.RUnlock()
	if ok && !idx.IsExpired() {
		return idx, nil
	}

	result, err, _ := c.sf.Do(key, func() (any, error) {
		c.mu.RLock()
		idx, ok := c.indices[key]
		c.mu.RUnlock()
		if ok && !idx.IsExpired() {
			return idx, nil
		}

		built, err := buildIndex(ctx, src, c.ttl)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.indices[key] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*DateIndex), nil
}

// invalidate drops the index for src.
func (c *indexCache) invalidate(src Source) {
	c.mu.Lock()
	delete(c.indices, src.Name())
	c.mu.Unlock()
}
