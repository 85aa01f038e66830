// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a write that would violate a lifecycle invariant,
// e.g. a progress regression or a status change on a terminal task.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates user input that failed validation.
var ErrValidation = errors.New("validation failed")
