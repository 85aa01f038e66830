package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Strob0t/PropExtract/internal/logger"
)

func TestRequestIDGenerated(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	respID := rec.Header().Get(HeaderRequestID)
	if _, err := uuid.Parse(respID); err != nil {
		t.Fatalf("expected a uuid request id, got %q", respID)
	}
	if ctxID != respID {
		t.Errorf("context id %q differs from header %q", ctxID, respID)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", http.NoBody)
	req.Header.Set(HeaderRequestID, "submit-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID != "submit-42" || rec.Header().Get(HeaderRequestID) != "submit-42" {
		t.Errorf("expected submit-42 propagated, got ctx=%q header=%q", ctxID, rec.Header().Get(HeaderRequestID))
	}
}

func TestRequestIDRejectsOversized(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 500))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); len(got) > maxRequestIDLen {
		t.Errorf("oversized id should be replaced, got %d chars", len(got))
	}
}
