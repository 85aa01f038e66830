package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, type, source, status, progress, properties_count, source_urls, created_at, updated_at`

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, type, source, status, progress, properties_count, source_urls)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+taskColumns,
		t.ID, string(t.Kind), t.Source, string(t.Status), t.Progress, t.PropertiesCount, t.SourceURLs)

	created, err := scanTask(row)
	if err != nil {
		return nil, wrapErr(err, "create task %s", t.ID)
	}
	return &created, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, wrapErr(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

// UpdateProgress only moves progress forward on a processing task.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET progress = $2
		 WHERE id = $1 AND status = 'processing' AND progress <= $2`,
		id, progress)
	if err != nil {
		return fmt.Errorf("update progress %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return progressError(ctx, s.pool, id, progress)
	}
	return nil
}

// CompleteTask flips the task to completed/100 and inserts its result in
// one transaction, so a completed task always has exactly one result.
func (s *Store) CompleteTask(ctx context.Context, id string, r *task.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = 'completed', progress = 100
		 WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return transitionError(ctx, tx, id, "complete task")
	}

	if err := insertResult(ctx, tx, id, r); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete %s: %w", id, err)
	}
	return nil
}

func (s *Store) FailTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = 'failed' WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("fail task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return transitionError(ctx, s.pool, id, "fail task")
	}
	return nil
}

// rowQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// transitionError explains why a guarded UPDATE matched no row.
func transitionError(ctx context.Context, q rowQuerier, id, op string) error {
	var status task.Status
	var progress int
	err := q.QueryRow(ctx, `SELECT status, progress FROM tasks WHERE id = $1`, id).Scan(&status, &progress)
	if err != nil {
		return wrapErr(err, "%s %s", op, id)
	}
	return fmt.Errorf("%s %s (status %s, progress %d): %w", op, id, status, progress, domain.ErrConflict)
}

// progressError explains a rejected progress write using the same rule the
// UPDATE guard encodes.
func progressError(ctx context.Context, q rowQuerier, id string, next int) error {
	t := task.Task{ID: id}
	err := q.QueryRow(ctx, `SELECT status, progress FROM tasks WHERE id = $1`, id).Scan(&t.Status, &t.Progress)
	if err != nil {
		return wrapErr(err, "update progress %s", id)
	}
	if err := t.CheckProgress(next); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	// The row moved between the UPDATE and the read.
	return fmt.Errorf("update progress %s: %w", id, domain.ErrConflict)
}

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var kind, status string
	err := row.Scan(&t.ID, &kind, &t.Source, &status, &t.Progress,
		&t.PropertiesCount, &t.SourceURLs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Kind = task.Kind(kind)
	t.Status = task.Status(status)
	return t, nil
}
