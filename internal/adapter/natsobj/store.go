// Package natsobj implements the object store port on a NATS JetStream
// object store bucket.
package natsobj

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/PropExtract/internal/port/objectstore"
)

// PublicPath is the URL prefix under which stored artifacts are served.
const PublicPath = "/storage/v1/object/public/"

// Store keeps generated artifacts in one JetStream object store bucket.
type Store struct {
	obj       jetstream.ObjectStore
	bucket    string
	publicURL string
}

// Open returns a Store on bucket, creating the bucket if needed. publicURL
// is the externally reachable base URL of the HTTP server.
func Open(ctx context.Context, js jetstream.JetStream, bucket, publicURL string) (*Store, error) {
	obj, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "generated property reports",
	})
	if err != nil {
		return nil, fmt.Errorf("object store %s: %w", bucket, err)
	}
	return &Store{obj: obj, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put stores data under name, overwriting any previous object.
func (s *Store) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.obj.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	return s.URL(name), nil
}

// Get loads a stored object.
func (s *Store) Get(ctx context.Context, name string) (*objectstore.Object, error) {
	info, err := s.obj.GetInfo(ctx, name)
	if err != nil {
		return nil, mapNotFound(name, err)
	}
	data, err := s.obj.GetBytes(ctx, name)
	if err != nil {
		return nil, mapNotFound(name, err)
	}

	ct := "application/octet-stream"
	if info.Headers != nil {
		if v := info.Headers.Get("Content-Type"); v != "" {
			ct = v
		}
	}
	return &objectstore.Object{Name: name, ContentType: ct, Data: data}, nil
}

// URL returns the public download URL for name.
func (s *Store) URL(name string) string {
	return s.publicURL + PublicPath + s.bucket + "/" + name
}

func mapNotFound(name string, err error) error {
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("%s: %w", name, objectstore.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", name, err)
}
