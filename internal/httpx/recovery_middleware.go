package httpx

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
)

// RecoveryMiddleware turns a handler panic into a 500: the JSON envelope
// under /api/, a plain page everywhere else.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			log.Printf("panic recovered: request_id=%s path=%s error=%v stack=%s", RequestIDFrom(r), r.URL.Path, err, debug.Stack())

			if rw, ok := w.(*responseWriter); ok && rw.headerWritten {
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<!doctype html><title>Something went wrong</title><h1>Something went wrong</h1><p>Please try again in a moment.</p>"))
		}()
		next.ServeHTTP(w, r)
	})
}
