package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lendly/pkg/logger"
)

// timeoutWriter suppresses writes after the deadline fired so the handler and
// the timeout response cannot interleave on the same connection.
type timeoutWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	timedOut bool
	wrote    bool
}

func (w *timeoutWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.wrote = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *timeoutWriter) markTimedOut() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wrote {
		return false
	}
	w.timedOut = true
	return true
}

// RequestTimeout bounds each request with a deadline and answers 503 when the
// handler does not finish in time.
func RequestTimeout(timeout time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.markTimedOut() {
					log.Warn("request timed out",
						"method", r.Method,
						"path", r.URL.Path,
						"timeout", timeout.String(),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte(`{"error":"request timed out"}`))
				}
				<-done
			}
		})
	}
}
