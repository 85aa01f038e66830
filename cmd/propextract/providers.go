package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Strob0t/PropExtract/internal/adapter/catalog"
	"github.com/Strob0t/PropExtract/internal/adapter/foxit"
	"github.com/Strob0t/PropExtract/internal/adapter/functions"
	pnats "github.com/Strob0t/PropExtract/internal/adapter/nats"
	"github.com/Strob0t/PropExtract/internal/adapter/natskv"
	"github.com/Strob0t/PropExtract/internal/adapter/redis"
	"github.com/Strob0t/PropExtract/internal/adapter/ristretto"
	"github.com/Strob0t/PropExtract/internal/adapter/tiered"
	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/port/cache"
	"github.com/Strob0t/PropExtract/internal/port/dispatch"
	"github.com/Strob0t/PropExtract/internal/port/extractor"
	"github.com/Strob0t/PropExtract/internal/port/guard"
	"github.com/Strob0t/PropExtract/internal/resilience"
	"github.com/Strob0t/PropExtract/internal/secrets"
)

// backends holds the cache tiers and the invocation guard.
type backends struct {
	facts *tiered.Cache
	guard guard.Guard

	l1  *ristretto.Cache
	rdb *goredis.Client
}

// openBackends builds the ristretto L1 in front of either JetStream KV or
// Redis, and a guard on the same backend.
func openBackends(ctx context.Context, cfg *config.Config, js jetstream.JetStream) (*backends, error) {
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	b := &backends{l1: l1}

	var l2 cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			l1.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.rdb = rdb
		l2 = redis.NewCache(rdb)
		b.guard = redis.NewGuard(rdb, cfg.NATS.GuardTTL)
	default:
		factsKV, err := natskv.OpenBucket(ctx, js, cfg.Cache.KVBucket, cfg.Cache.TTL)
		if err != nil {
			l1.Close()
			return nil, err
		}
		guardKV, err := natskv.OpenBucket(ctx, js, cfg.NATS.GuardBucket, cfg.NATS.GuardTTL)
		if err != nil {
			l1.Close()
			return nil, err
		}
		l2 = natskv.New(factsKV)
		b.guard = natskv.NewGuard(guardKV)
	}

	b.facts = tiered.New(l1, l2, cfg.Cache.TTL)
	slog.Info("cache ready", "backend", cfg.Cache.Backend, "l1_mb", cfg.Cache.MaxSizeMB)
	return b, nil
}

func (b *backends) Close() {
	if b.facts != nil {
		slog.Info("facts cache stats", "stats", b.facts.Stats())
	}
	b.l1.Close()
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
}

func newExtractor(cfg *config.Config, b *backends) extractor.Extractor {
	return catalog.NewCached(catalog.New(0), b.facts, cfg.Cache.TTL)
}

func newDocAPI(cfg *config.Config, vault *secrets.Vault) *foxit.Client {
	c := foxit.NewClient(cfg.DocAPI)
	c.SetKeySource(vault.Getter(secrets.DocAPIKey))
	c.SetBreaker(resilience.NewBreaker("docapi", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	return c
}

// newInvoker returns the dispatch path and a func that waits for in-flight
// HTTP invocations on shutdown.
func newInvoker(cfg *config.Config, queue *pnats.Queue) (dispatch.Invoker, func()) {
	if cfg.Processing.Dispatch == "http" {
		c := functions.NewClient(cfg.Processing.FunctionsURL, cfg.Processing.Timeout)
		return c, c.Wait
	}
	return pnats.NewDispatcher(queue), func() {}
}
