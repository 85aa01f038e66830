// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/PropExtract/internal/domain/pdfop"
	"github.com/Strob0t/PropExtract/internal/domain/task"
)

// Store is the port interface for database operations.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)

	// UpdateProgress writes a checkpoint. Returns domain.ErrConflict when the
	// task is no longer processing or progress would decrease.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// CompleteTask inserts the result and flips the task to completed/100 in
	// one transaction. The stored result's TaskID is id, whatever r carries.
	// Returns domain.ErrConflict when the task is terminal.
	CompleteTask(ctx context.Context, id string, r *task.Result) error

	// FailTask marks a processing task failed, leaving progress as-is.
	FailTask(ctx context.Context, id string) error

	// Results
	ListResults(ctx context.Context) ([]task.Result, error)
	GetResult(ctx context.Context, taskID string) (*task.Result, error)

	// PDF operations
	CreatePDFOperation(ctx context.Context, op *pdfop.Operation) error
	ListPDFOperations(ctx context.Context, taskID string) ([]pdfop.Operation, error)
}
