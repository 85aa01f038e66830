// Package changefeed defines the port for store change notifications.
package changefeed

import "context"

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event describes one row change.
type Event struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	ID    string `json:"id"`
}

// Listener receives change events. Calls for one registration never overlap.
type Listener func(ctx context.Context, ev Event)

// Feed delivers row-level change events filtered by table.
type Feed interface {
	// Subscribe registers fn for changes on table. The returned cancel
	// function is idempotent; after it returns fn is not called again.
	Subscribe(ctx context.Context, table string, fn Listener) (cancel func(), err error)
}

// OpResync is delivered after the feed reconnects; events may have been
// missed and the subscriber should re-read everything.
const OpResync Op = "RESYNC"
