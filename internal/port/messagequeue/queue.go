// Package messagequeue defines the message queue port (interface).
package messagequeue

import (
	"context"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// Subscribers of the same subject share one durable consumer, so each
	// message is handled once across all instances.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// SubscribeBroadcast registers a handler that receives every message
	// published on subject after the call, independently of other
	// instances.
	SubscribeBroadcast(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for NATS subjects used by PropExtract.
const (
	SubjectTaskDispatch = "tasks.dispatch" // tasks.dispatch.{kind}: handler invocations
	SubjectTaskCancel   = "tasks.cancel"   // cancel an in-flight invocation
)

// DispatchSubject returns the subject a handler of the given kind consumes.
func DispatchSubject(kind task.Kind) string {
	return SubjectTaskDispatch + "." + string(kind)
}
