package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
)

// Dispatcher implements dispatch.Invoker by publishing the handler payload
// on tasks.dispatch.{kind}.
type Dispatcher struct {
	queue messagequeue.Queue
}

// NewDispatcher creates a Dispatcher publishing through queue.
func NewDispatcher(queue messagequeue.Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Invoke publishes payload for kind. Delivery to a handler is asynchronous.
func (d *Dispatcher) Invoke(ctx context.Context, kind task.Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return d.queue.Publish(ctx, messagequeue.DispatchSubject(kind), data)
}
