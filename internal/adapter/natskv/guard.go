package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Guard implements guard.Guard with KeyValue Create, which only succeeds
// for a key that does not exist yet.
type Guard struct {
	kv  jetstream.KeyValue
	now func() time.Time
}

// NewGuard creates a Guard on kv.
func NewGuard(kv jetstream.KeyValue) *Guard {
	return &Guard{kv: kv, now: time.Now}
}

// Acquire claims key. It returns false when another invocation holds it.
func (g *Guard) Acquire(ctx context.Context, key string) (bool, error) {
	_, err := g.kv.Create(ctx, encodeKey(key), []byte(g.now().UTC().Format(time.RFC3339Nano)))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return true, nil
}
