package logging

import (
	"net/http"

	"github.com/google/uuid"
)

// WithRequestIDMiddleware stamps every request with an id, echoed back on
// the X-Request-Id response header and stashed on the request context for
// RequestIDFromContext. An incoming X-Request-Id header is kept as the id;
// otherwise a fresh uuid is generated.
func WithRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
