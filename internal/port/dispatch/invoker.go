// Package dispatch defines the port that sends a task to its remote handler.
package dispatch

import (
	"context"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

// Invoker sends a one-way invocation for a task of the given kind. A nil
// error means the invocation was handed off, not that it succeeded.
type Invoker interface {
	Invoke(ctx context.Context, kind task.Kind, payload any) error
}

// HandlerNames maps each kind to its function endpoint name.
var HandlerNames = map[task.Kind]string{
	task.KindSingleURL: "process-url",
	task.KindMultiURL:  "process-multiple-urls",
	task.KindFile:      "process-file",
	task.KindPDFMerge:  "merge-pdfs",
	task.KindPDFSplit:  "split-pdf",
}
