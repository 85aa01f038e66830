// Package tiered layers an in-process cache over a shared one.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Strob0t/PropExtract/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Stats counts lookups by the tier that answered them.
type Stats struct {
	L1Hits   int64 `json:"l1_hits"`
	L2Hits   int64 `json:"l2_hits"`
	Misses   int64 `json:"misses"`
	L2Errors int64 `json:"l2_errors"`
}

// Cache reads through local to shared and backfills local on a shared hit.
// The shared tier is best effort: its read errors count as misses so an
// outage only costs a re-extraction.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	backfill time.Duration

	l1Hits, l2Hits, misses, l2Errors atomic.Int64
}

// New creates a tiered cache. backfill is the local lifetime of entries
// copied up from shared.
func New(local, shared cache.Cache, backfill time.Duration) *Cache {
	return &Cache{local: local, shared: shared, backfill: backfill}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := c.local.Get(ctx, key); err != nil {
		return nil, false, err
	} else if ok {
		c.l1Hits.Add(1)
		return v, true, nil
	}

	v, ok, err := c.shared.Get(ctx, key)
	switch {
	case err != nil:
		c.l2Errors.Add(1)
		c.misses.Add(1)
		slog.WarnContext(ctx, "shared cache get failed", "key", key, "error", err)
		return nil, false, nil
	case !ok:
		c.misses.Add(1)
		return nil, false, nil
	}

	c.l2Hits.Add(1)
	if err := c.local.Set(ctx, key, v, c.backfill); err != nil {
		slog.DebugContext(ctx, "local backfill failed", "key", key, "error", err)
	}
	return v, true, nil
}

// Set writes local, then shared. A shared failure is returned but local
// keeps the value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, value, ttl)
}

// Delete removes key from both tiers even if one of them fails.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.local.Delete(ctx, key), c.shared.Delete(ctx, key))
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{
		L1Hits:   c.l1Hits.Load(),
		L2Hits:   c.l2Hits.Load(),
		Misses:   c.misses.Load(),
		L2Errors: c.l2Errors.Load(),
	}
}
