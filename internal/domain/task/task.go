// Package task defines the Task entity, its lifecycle and the Result record
// attached to a completed task.
package task

import (
	"fmt"
	"time"

	"github.com/Strob0t/PropExtract/internal/domain"
)

// Kind identifies which remote handler owns a task.
type Kind string

const (
	KindSingleURL Kind = "single-url"
	KindFile      Kind = "file"
	KindMultiURL  Kind = "multi-url"
	KindPDFMerge  Kind = "pdf-merge"
	KindPDFSplit  Kind = "pdf-split"
)

// Kinds lists every task kind in dispatch-table order.
var Kinds = []Kind{KindSingleURL, KindFile, KindMultiURL, KindPDFMerge, KindPDFSplit}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Status represents the current state of a task.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress bounds.
const (
	ProgressStart = 0
	ProgressDone  = 100
)

// Task is one unit of user-submitted work tracked through processing to
// completion or failure.
type Task struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"type"`
	Source          string    `json:"source"`
	Status          Status    `json:"status"`
	Progress        int       `json:"progress"`
	PropertiesCount *int      `json:"properties_count,omitempty"`
	SourceURLs      []string  `json:"source_urls,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// New returns a task in its initial state: processing at progress 0.
func New(id string, kind Kind, source string) *Task {
	return &Task{
		ID:       id,
		Kind:     kind,
		Source:   source,
		Status:   StatusProcessing,
		Progress: ProgressStart,
	}
}

// CheckProgress validates a progress write against the current state.
// Writes on terminal tasks and writes that move progress backwards are
// rejected with domain.ErrConflict.
func (t *Task) CheckProgress(next int) error {
	if next < ProgressStart || next > ProgressDone {
		return fmt.Errorf("progress %d outside [0,100]: %w", next, domain.ErrValidation)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if next < t.Progress {
		return fmt.Errorf("task %s progress %d < %d: %w", t.ID, next, t.Progress, domain.ErrConflict)
	}
	return nil
}

// View is a task joined with its result, if one exists yet.
type View struct {
	Task
	Result *Result `json:"results,omitempty"`
}

// Stats is an aggregation over a snapshot of views.
type Stats struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// ComputeStats counts views by status.
func ComputeStats(views []View) Stats {
	s := Stats{Total: len(views)}
	for i := range views {
		switch views[i].Status {
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
