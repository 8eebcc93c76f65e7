package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	webcontext "github.com/resumate-app/resumate/internal/web/context"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// incoming ids are echoed into logs, so only accept plain tokens
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID tags each request with an id, reusing a well-formed incoming
// X-Request-ID header
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !validRequestID.MatchString(id) {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(webcontext.SetRequestID(r.Context(), id)))
		})
	}
}

// GetRequestID extracts the request ID from the context
var GetRequestID = webcontext.GetRequestID
