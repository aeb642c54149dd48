package middleware

import (
	"net/http"
	"strings"
	"time"
)

// WriteDeadline bounds the response write time of every request except the
// long-lived report streams. It wraps the gin engine so the deadline lands on
// the connection's own writer.
func WriteDeadline(next http.Handler, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStreamRequest(r) {
			// Writers without deadline support (recorders in tests) stay unbounded.
			_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(timeout))
		}
		next.ServeHTTP(w, r)
	})
}

// IsStreamRequest reports whether r opens a page view's SSE or websocket stream.
func IsStreamRequest(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/stream") || strings.HasSuffix(r.URL.Path, "/ws")
}
