// Package broadcast defines the port for pushing events to connected browsers.
package broadcast

import (
	"context"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

// Event types.
const (
	EventTasksSnapshot = "tasks.snapshot"
)

// SnapshotEvent is the payload of EventTasksSnapshot: the full joined task
// list after a re-sync, newest first, and the stats computed over it.
type SnapshotEvent struct {
	Tasks []task.View `json:"tasks"`
	Stats task.Stats  `json:"stats"`
}

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
