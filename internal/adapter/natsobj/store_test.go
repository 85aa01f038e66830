package natsobj

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/PropExtract/internal/port/objectstore"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	s, err := Open(context.Background(), js, "propextract-test-reports", "http://reports.local/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestURL(t *testing.T) {
	s := &Store{bucket: "reports", publicURL: "http://localhost:8080"}
	want := "http://localhost:8080/storage/v1/object/public/reports/task-1/report.pdf"
	if got := s.URL("task-1/report.pdf"); got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
}

func TestStore_PutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	name := uuid.NewString() + "/report.pdf"

	url, err := s.Put(ctx, name, "application/pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://reports.local/storage/v1/object/public/propextract-test-reports/"+name {
		t.Fatalf("unexpected url %s", url)
	}

	obj, err := s.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if obj.ContentType != "application/pdf" {
		t.Errorf("content type = %q", obj.ContentType)
	}
	if string(obj.Data) != "%PDF-1.4" {
		t.Errorf("data = %q", obj.Data)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), uuid.NewString()+"/nothing.pdf")
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
