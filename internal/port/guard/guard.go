// Package guard defines the port used to suppress duplicate handler
// invocations.
package guard

import "context"

// Guard records that a key has been claimed.
type Guard interface {
	// Acquire claims key. It returns false without error when the key was
	// already claimed.
	Acquire(ctx context.Context, key string) (bool, error)
}
