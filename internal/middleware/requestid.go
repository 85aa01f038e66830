// Package middleware provides HTTP middleware for PropExtract.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/PropExtract/internal/logger"
)

// HeaderRequestID carries the correlation id across HTTP and NATS hops.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID takes X-Request-ID from the request or assigns a new UUID. The
// id is stored in the context for logging and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
