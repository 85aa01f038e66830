// Package pdfop defines the audit record written for every PDF merge or
// split performed by the PDF tools handlers.
package pdfop

import "time"

// Type is the kind of PDF operation.
type Type string

const (
	TypeMerge Type = "merge"
	TypeSplit Type = "split"
)

// Operation records the inputs and outputs of one PDF operation.
type Operation struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Type        Type      `json:"operation_type"`
	InputFiles  []string  `json:"input_files"`
	OutputFiles []string  `json:"output_files"`
	CreatedAt   time.Time `json:"created_at"`
}
