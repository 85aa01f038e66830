package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/PropExtract/internal/adapter/tiered"
)

type memCache struct {
	data   map[string][]byte
	getErr error
	setErr error
	delErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return m.delErr
}

const key = "facts/url/https://redfin.com/home/1"

func TestTieredGet(t *testing.T) {
	tests := []struct {
		name      string
		local     map[string]string
		shared    map[string]string
		sharedErr error
		wantFound bool
		wantStats tiered.Stats
		backfill  bool
	}{
		{
			name:      "local hit",
			local:     map[string]string{key: `{"address":"local"}`},
			wantFound: true,
			wantStats: tiered.Stats{L1Hits: 1},
		},
		{
			name:      "shared hit backfills local",
			shared:    map[string]string{key: `{"address":"shared"}`},
			wantFound: true,
			wantStats: tiered.Stats{L2Hits: 1},
			backfill:  true,
		},
		{
			name:      "miss",
			wantStats: tiered.Stats{Misses: 1},
		},
		{
			name:      "shared error is a miss",
			sharedErr: errors.New("nats: timeout"),
			wantStats: tiered.Stats{Misses: 1, L2Errors: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, shared := newMemCache(), newMemCache()
			for k, v := range tt.local {
				local.data[k] = []byte(v)
			}
			for k, v := range tt.shared {
				shared.data[k] = []byte(v)
			}
			shared.getErr = tt.sharedErr
			c := tiered.New(local, shared, time.Minute)

			_, found, err := c.Get(context.Background(), key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if got := c.Stats(); got != tt.wantStats {
				t.Errorf("stats = %+v, want %+v", got, tt.wantStats)
			}
			if _, ok := local.data[key]; tt.backfill && !ok {
				t.Error("expected local backfill")
			}
		})
	}
}

func TestTieredLocalErrorIsReturned(t *testing.T) {
	local := newMemCache()
	local.getErr = errors.New("closed")
	c := tiered.New(local, newMemCache(), time.Minute)

	if _, _, err := c.Get(context.Background(), key); err == nil {
		t.Fatal("expected local error")
	}
}

func TestTieredSet(t *testing.T) {
	local, shared := newMemCache(), newMemCache()
	c := tiered.New(local, shared, time.Minute)

	if err := c.Set(context.Background(), key, []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if string(local.data[key]) != "v" || string(shared.data[key]) != "v" {
		t.Fatal("expected both tiers written")
	}

	shared.setErr = errors.New("bucket gone")
	if err := c.Set(context.Background(), "k2", []byte("v2"), time.Minute); err == nil {
		t.Fatal("expected shared error")
	}
	if string(local.data["k2"]) != "v2" {
		t.Error("local should keep the value when shared fails")
	}
}

func TestTieredDeleteReachesBothTiers(t *testing.T) {
	local, shared := newMemCache(), newMemCache()
	local.data[key], shared.data[key] = []byte("a"), []byte("a")
	local.delErr = errors.New("local failed")
	c := tiered.New(local, shared, time.Minute)

	if err := c.Delete(context.Background(), key); err == nil {
		t.Fatal("expected joined error")
	}
	if _, ok := shared.data[key]; ok {
		t.Error("shared entry should be removed despite the local failure")
	}
}
