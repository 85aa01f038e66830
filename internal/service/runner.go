package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	peotel "github.com/Strob0t/PropExtract/internal/adapter/otel"
	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/logger"
	"github.com/Strob0t/PropExtract/internal/port/database"
	"github.com/Strob0t/PropExtract/internal/port/guard"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
)

// Checkpoint records intermediate progress for the running task.
// Rejected writes are logged, never returned.
type Checkpoint func(ctx context.Context, progress int)

// Body is the kind-specific work of a handler. It returns the result to
// persist when the task completes.
type Body func(ctx context.Context, checkpoint Checkpoint) (*task.Result, error)

// Runner drives a task through its lifecycle: processing with checkpoints,
// then completed with exactly one result, or failed.
type Runner struct {
	store   database.Store
	guard   guard.Guard
	metrics *peotel.Metrics
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewRunner creates a Runner. guard and metrics may be nil.
func NewRunner(store database.Store, g guard.Guard, metrics *peotel.Metrics, timeout time.Duration) *Runner {
	return &Runner{
		store:    store,
		guard:    g,
		metrics:  metrics,
		timeout:  timeout,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Run executes body for taskID. A duplicate invocation for the same task and
// kind is skipped and returns nil. Any error or panic from body marks the
// task failed; the returned error is the cause.
func (r *Runner) Run(ctx context.Context, taskID string, kind task.Kind, body Body) (err error) {
	ctx = logger.WithTaskID(ctx, taskID)

	if r.guard != nil {
		ok, gerr := r.guard.Acquire(ctx, taskID+"/"+string(kind))
		switch {
		case gerr != nil:
			slog.WarnContext(ctx, "invocation guard unavailable", "kind", kind, "error", gerr)
		case !ok:
			slog.InfoContext(ctx, "duplicate invocation skipped", "kind", kind)
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	r.register(taskID, cancel)
	defer r.unregister(taskID)

	ctx, span := peotel.StartHandlerSpan(ctx, taskID, string(kind))
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.Finished(ctx, string(kind), err != nil, time.Since(start))
		}
		peotel.EndSpan(span, err)
	}()

	result, err := r.invoke(ctx, body, r.checkpoint(taskID))
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	// Terminal writes must land even when the invocation was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "handler failed", "kind", kind, "error", err)
		r.fail(persistCtx, taskID)
		return err
	}

	result.TaskID = taskID
	if cerr := r.store.CompleteTask(persistCtx, taskID, result); cerr != nil {
		err = fmt.Errorf("complete task %s: %w", taskID, cerr)
		slog.ErrorContext(ctx, "persist result failed", "kind", kind, "error", cerr)
		if !errors.Is(cerr, domain.ErrConflict) {
			r.fail(persistCtx, taskID)
		}
		return err
	}
	slog.InfoContext(ctx, "task completed", "kind", kind, "duration", time.Since(start))
	return nil
}

func (r *Runner) invoke(ctx context.Context, body Body, cp Checkpoint) (result *task.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	result, err = body(ctx, cp)
	if err == nil && result == nil {
		err = errors.New("handler returned no result")
	}
	return result, err
}

func (r *Runner) checkpoint(taskID string) Checkpoint {
	return func(ctx context.Context, progress int) {
		if err := r.store.UpdateProgress(ctx, taskID, progress); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				slog.DebugContext(ctx, "checkpoint rejected", "progress", progress, "error", err)
				return
			}
			slog.WarnContext(ctx, "checkpoint failed", "progress", progress, "error", err)
		}
	}
}

func (r *Runner) fail(ctx context.Context, taskID string) {
	if err := r.store.FailTask(ctx, taskID); err != nil && !errors.Is(err, domain.ErrConflict) {
		slog.ErrorContext(ctx, "mark task failed", "error", err)
	}
}

func (r *Runner) register(taskID string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.inflight[taskID] = cancel
	r.mu.Unlock()
}

func (r *Runner) unregister(taskID string) {
	r.mu.Lock()
	delete(r.inflight, taskID)
	r.mu.Unlock()
}

// Cancel aborts the in-flight invocation for taskID on this instance.
// It reports whether one was running.
func (r *Runner) Cancel(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.inflight[taskID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// InFlight returns the number of invocations currently running.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// ListenCancel subscribes to cancellation broadcasts. Every instance receives
// every message and cancels the task if it is running it.
func (r *Runner) ListenCancel(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	return queue.SubscribeBroadcast(ctx, messagequeue.SubjectTaskCancel, func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.TaskCancelPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode cancel: %w", err)
		}
		if r.Cancel(p.TaskID) {
			slog.InfoContext(ctx, "task cancelled", "task_id", p.TaskID)
		}
		return nil
	})
}
