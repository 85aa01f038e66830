package natskv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func testKV(t *testing.T, bucket string) jetstream.KeyValue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	kv, err := OpenBucket(context.Background(), js, bucket, time.Hour)
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	return kv
}

func TestEncodeKey(t *testing.T) {
	tests := map[string]string{
		"facts/url/https://x.com/redfin/listing": "facts/url/https=3A//x=2Ecom/redfin/listing",
		"task-1/single-url":                      "task-1/single-url",
		"a b":                                    "a=20b",
	}
	for in, want := range tests {
		if got := encodeKey(in); got != want {
			t.Errorf("encodeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_SetGetDelete(t *testing.T) {
	c := New(testKV(t, "propextract-test-cache"))
	ctx := context.Background()
	key := "facts/url/https://x.com/" + uuid.NewString()

	if err := c.Set(ctx, key, []byte(`{"price":"$1"}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := c.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(val) != `{"price":"$1"}` {
		t.Fatalf("unexpected value %s", val)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := c.Get(ctx, key); found {
		t.Fatal("expected miss after Delete")
	}
	if err := c.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete of missing key should not error: %v", err)
	}
}

func TestGuard_AcquireOnce(t *testing.T) {
	g := NewGuard(testKV(t, "propextract-test-guard"))
	ctx := context.Background()
	key := uuid.NewString() + "/single-url"

	ok, err := g.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first Acquire: ok=%v err=%v", ok, err)
	}
	ok, err = g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if ok {
		t.Fatal("second Acquire must report the key as taken")
	}
}
