// Package objectstore defines the port for generated artifact storage.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for an unknown object name.
var ErrNotFound = errors.New("object not found")

// Object is a stored artifact.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store persists artifacts and hands out public download URLs.
type Store interface {
	// Put stores data under name and returns its public URL.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Get(ctx context.Context, name string) (*Object, error)
}
