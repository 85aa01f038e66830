package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropExtract/internal/domain/pdfop"
)

// --- PDF operations ---

func (s *Store) CreatePDFOperation(ctx context.Context, op *pdfop.Operation) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO pdf_operations (task_id, operation_type, input_files, output_files)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		op.TaskID, string(op.Type), pgTextArray(op.InputFiles), pgTextArray(op.OutputFiles),
	).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return fmt.Errorf("create pdf operation for %s: %w", op.TaskID, err)
	}
	return nil
}

func (s *Store) ListPDFOperations(ctx context.Context, taskID string) ([]pdfop.Operation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, operation_type, input_files, output_files, created_at
		 FROM pdf_operations WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list pdf operations for %s: %w", taskID, err)
	}
	defer rows.Close()

	var ops []pdfop.Operation
	for rows.Next() {
		var op pdfop.Operation
		var typ string
		if err := rows.Scan(&op.ID, &op.TaskID, &typ, &op.InputFiles, &op.OutputFiles, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pdf operation: %w", err)
		}
		op.Type = pdfop.Type(typ)
		ops = append(ops, op)
	}
	return orEmpty(ops), rows.Err()
}
