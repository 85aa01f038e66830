package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/PropExtract/internal/domain/property"
	"github.com/Strob0t/PropExtract/internal/port/cache"
	"github.com/Strob0t/PropExtract/internal/port/extractor"
)

// Cached memoizes an extractor's results in a byte cache. Cache failures
// fall through to the inner extractor. Concurrent misses on one key share
// a single extraction.
type Cached struct {
	inner extractor.Extractor
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

var _ extractor.Extractor = (*Cached)(nil)

// NewCached wraps inner with c.
func NewCached(inner extractor.Extractor, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// FetchPropertyFacts returns cached facts for url or extracts and stores them.
func (c *Cached) FetchPropertyFacts(ctx context.Context, url string) (*property.Facts, error) {
	return c.load(ctx, "facts/url/"+url, func() (*property.Facts, error) {
		return c.inner.FetchPropertyFacts(ctx, url)
	})
}

// ExtractFile returns cached facts for fileName or extracts and stores them.
func (c *Cached) ExtractFile(ctx context.Context, fileName string) (*property.Facts, error) {
	return c.load(ctx, "facts/file/"+fileName, func() (*property.Facts, error) {
		return c.inner.ExtractFile(ctx, fileName)
	})
}

func (c *Cached) load(ctx context.Context, key string, extract func() (*property.Facts, error)) (*property.Facts, error) {
	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "facts cache get failed", "key", key, "error", err)
	} else if ok {
		var f property.Facts
		if err := sonic.Unmarshal(data, &f); err == nil {
			return &f, nil
		}
		slog.WarnContext(ctx, "facts cache entry undecodable", "key", key)
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		f, err := extract()
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, f)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	f := v.(*property.Facts)
	if shared {
		// Callers set SourceURL on the result; each gets its own copy.
		cp := *f
		return &cp, nil
	}
	return f, nil
}

func (c *Cached) store(ctx context.Context, key string, f *property.Facts) {
	data, err := sonic.Marshal(f)
	if err != nil {
		slog.WarnContext(ctx, "facts encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		slog.WarnContext(ctx, "facts cache set failed", "key", key, "error", err)
	}
}
