package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/port/dispatch"
	"github.com/Strob0t/PropExtract/internal/port/objectstore"
	"github.com/Strob0t/PropExtract/internal/service"
)

// Handlers holds the services behind the HTTP routes.
type Handlers struct {
	Tasks     *service.TaskClient
	Functions *service.Handlers
	Objects   objectstore.Store
	Bucket    string

	// Health reports dependency status for /health; nil means always ok.
	Health func(ctx context.Context) map[string]bool
}

// SubmitTask handles POST /api/v1/tasks
func (h *Handlers) SubmitTask(w http.ResponseWriter, r *http.Request) {
	sel, ok := readJSON[task.Selection](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Submit(r.Context(), &sel)
	if err != nil {
		writeDomainError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTasks handles GET /api/v1/tasks. A failed read serves the last
// snapshot.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := h.Tasks.FetchAll(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "fetch tasks failed, serving snapshot", "error", err)
		views = h.Tasks.Snapshot()
	}
	if views == nil {
		views = []task.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	v, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListOperations handles GET /api/v1/tasks/{id}/operations
func (h *Handlers) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.Tasks.Operations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tasks.Stats())
}

// Function returns the handler for POST /functions/v1/<name>. The
// invocation runs to completion even if the caller goes away.
func (h *Handlers) Function(kind task.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		err := h.Functions.Handle(context.WithoutCancel(r.Context()), kind, body)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

// GetObject handles GET /storage/v1/object/public/{bucket}/*
func (h *Handlers) GetObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if chi.URLParam(r, "bucket") != h.Bucket || name == "" || strings.Contains(name, "..") {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}

	obj, err := h.Objects.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "object not found")
			return
		}
		slog.ErrorContext(r.Context(), "object read failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(obj.Data)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	deps := map[string]bool{}
	if h.Health != nil {
		deps = h.Health(r.Context())
	}
	status, code := "ok", http.StatusOK
	for _, up := range deps {
		if !up {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "dependencies": deps})
}

// functionKinds maps endpoint names back to task kinds.
func functionKinds() map[string]task.Kind {
	out := make(map[string]task.Kind, len(dispatch.HandlerNames))
	for kind, name := range dispatch.HandlerNames {
		out[name] = kind
	}
	return out
}
