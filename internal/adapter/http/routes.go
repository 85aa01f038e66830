package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all routes on r. submitLimit wraps task submission
// and may be nil; ws serves the realtime socket.
func MountRoutes(r chi.Router, h *Handlers, ws http.Handler, submitLimit func(http.Handler) http.Handler) {
	r.Get("/health", h.HealthCheck)
	r.Handle("/ws", ws)

	r.Route("/api/v1", func(r chi.Router) {
		submit := http.Handler(http.HandlerFunc(h.SubmitTask))
		if submitLimit != nil {
			submit = submitLimit(submit)
		}
		r.Method(http.MethodPost, "/tasks", submit)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/operations", h.ListOperations)
		r.Post("/tasks/{id}/cancel", h.CancelTask)
		r.Get("/stats", h.Stats)
	})

	r.Route("/functions/v1", func(r chi.Router) {
		for name, kind := range functionKinds() {
			r.Post("/"+name, h.Function(kind))
		}
	})

	r.Get("/storage/v1/object/public/{bucket}/*", h.GetObject)
}
