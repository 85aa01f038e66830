package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	peotel "github.com/Strob0t/PropExtract/internal/adapter/otel"
	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/pdfop"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/port/broadcast"
	"github.com/Strob0t/PropExtract/internal/port/changefeed"
	"github.com/Strob0t/PropExtract/internal/port/database"
	"github.com/Strob0t/PropExtract/internal/port/dispatch"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
)

// Listener receives the full joined snapshot after every re-sync.
type Listener func(views []task.View)

// TaskClient submits tasks, maintains the joined task snapshot and pushes
// it to subscribers whenever the change feed reports a write.
type TaskClient struct {
	store   database.Store
	feed    changefeed.Feed
	invoker dispatch.Invoker
	queue   messagequeue.Queue
	metrics *peotel.Metrics
	newID   func() string

	syncMu sync.Mutex // serializes re-syncs

	mu          sync.RWMutex
	snapshot    []task.View
	subscribers int
}

// NewTaskClient creates a TaskClient. queue carries cancellation requests;
// metrics may be nil.
func NewTaskClient(store database.Store, feed changefeed.Feed, invoker dispatch.Invoker, queue messagequeue.Queue, metrics *peotel.Metrics) *TaskClient {
	return &TaskClient{
		store:   store,
		feed:    feed,
		invoker: invoker,
		queue:   queue,
		metrics: metrics,
		newID:   uuid.NewString,
	}
}

// Submit validates sel, stores the initial task and dispatches it to its
// handler. Dispatch failures are logged only; the task stays processing.
// On success the consumed fields of sel are cleared.
func (c *TaskClient) Submit(ctx context.Context, sel *task.Selection) (*task.Task, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	t := sel.NewTask(c.newID())
	created, err := c.store.CreateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := c.invoker.Invoke(ctx, created.Kind, sel.Payload(created.ID)); err != nil {
		slog.ErrorContext(ctx, "dispatch failed", "task_id", created.ID, "kind", created.Kind, "error", err)
	}
	if c.metrics != nil {
		c.metrics.Submitted(ctx, string(created.Kind))
	}

	sel.Clear()
	return created, nil
}

// FetchAll reads tasks and then results and joins them, newest first.
// The joined list replaces the snapshot.
func (c *TaskClient) FetchAll(ctx context.Context) ([]task.View, error) {
	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	results, err := c.store.ListResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	byTask := make(map[string]*task.Result, len(results))
	for i := range results {
		byTask[results[i].TaskID] = &results[i]
	}

	views := make([]task.View, len(tasks))
	for i := range tasks {
		views[i] = task.View{Task: tasks[i], Result: byTask[tasks[i].ID]}
	}
	slices.SortStableFunc(views, func(a, b task.View) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	c.mu.Lock()
	c.snapshot = views
	c.mu.Unlock()
	return slices.Clone(views), nil
}

// Get returns one task joined with its result, if any.
func (c *TaskClient) Get(ctx context.Context, id string) (*task.View, error) {
	t, err := c.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &task.View{Task: *t}
	r, err := c.store.GetResult(ctx, id)
	switch {
	case err == nil:
		v.Result = r
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	return v, nil
}

// Operations returns the PDF operations recorded for task id, oldest first.
func (c *TaskClient) Operations(ctx context.Context, id string) ([]pdfop.Operation, error) {
	if _, err := c.store.GetTask(ctx, id); err != nil {
		return nil, err
	}
	ops, err := c.store.ListPDFOperations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list pdf operations %s: %w", id, err)
	}
	if ops == nil {
		ops = []pdfop.Operation{}
	}
	return ops, nil
}

// Cancel asks every instance to abort the running invocation for id. The
// task ends failed once its handler observes the cancellation.
func (c *TaskClient) Cancel(ctx context.Context, id string) error {
	t, err := c.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", id, t.Status, domain.ErrConflict)
	}
	data, err := json.Marshal(messagequeue.TaskCancelPayload{TaskID: id})
	if err != nil {
		return fmt.Errorf("marshal cancel: %w", err)
	}
	if err := c.queue.Publish(ctx, messagequeue.SubjectTaskCancel, data); err != nil {
		return fmt.Errorf("publish cancel: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the last fetched snapshot.
func (c *TaskClient) Snapshot() []task.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snapshot)
}

// Stats aggregates the last fetched snapshot.
func (c *TaskClient) Stats() task.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return task.ComputeStats(c.snapshot)
}

// Subscribe opens a change-feed subscription on tasks and then performs an
// initial re-sync for fn, so writes between the two are not missed. Every
// change event re-reads everything and hands fn the full snapshot.
// The returned function is idempotent and may be called from fn. Once it
// returns fn is not called again; called from another goroutine while fn
// is running, it does not wait for that call to finish.
func (c *TaskClient) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	sub := &subscription{fn: fn}

	cancelFeed, err := c.feed.Subscribe(ctx, "tasks", func(ctx context.Context, ev changefeed.Event) {
		slog.DebugContext(ctx, "task change", "op", ev.Op, "id", ev.ID)
		c.resync(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe change feed: %w", err)
	}

	c.mu.Lock()
	c.subscribers++
	c.mu.Unlock()

	c.resync(ctx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.closed.Store(true)
			cancelFeed()
			// Wait out a re-sync that passed the closed check. During
			// delivery syncMu is held by the re-sync calling fn.
			if !sub.delivering.Load() {
				c.syncMu.Lock()
				c.syncMu.Unlock() //nolint:staticcheck // barrier
			}

			c.mu.Lock()
			c.subscribers--
			c.mu.Unlock()
		})
	}, nil
}

// SubscriberCount returns the number of live subscriptions.
func (c *TaskClient) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribers
}

type subscription struct {
	fn         Listener
	closed     atomic.Bool
	delivering atomic.Bool
}

// resync re-reads everything and hands the result to sub. Read errors are
// logged and the listener is not notified.
func (c *TaskClient) resync(ctx context.Context, sub *subscription) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if sub.closed.Load() {
		return
	}
	views, err := c.FetchAll(ctx)
	if err != nil {
		slog.WarnContext(ctx, "task re-sync failed", "error", err)
		return
	}
	sub.delivering.Store(true)
	defer sub.delivering.Store(false)
	sub.fn(views)
}

// BroadcastSnapshots returns a Listener that pushes every snapshot with its
// stats to b.
func BroadcastSnapshots(ctx context.Context, b broadcast.Broadcaster) Listener {
	return func(views []task.View) {
		b.BroadcastEvent(ctx, broadcast.EventTasksSnapshot, broadcast.SnapshotEvent{
			Tasks: views,
			Stats: task.ComputeStats(views),
		})
	}
}
