package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/billo/billo/internal/metrics"
)

type requestInfoKey struct{}

// requestInfo is filled in by inner middleware so the logger, which runs
// outside them, can report the caller.
type requestInfo struct {
	userID string
}

func setLoggedUser(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.userID = userID
	}
}

// RequestLogger logs every request and records it in m. It logs the route
// pattern, status, user ID and duration. 5xx responses log at ERROR, 4xx at
// WARN.
func RequestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, route, status, elapsed.Seconds())

			attrs := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"user_id", info.userID,
				"request_id", chimw.GetReqID(r.Context()),
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case status >= 500:
				slog.Error("Request failed", attrs...)
			case status >= 400:
				slog.Warn("Request rejected", attrs...)
			default:
				slog.Info("Request ok", attrs...)
			}
		})
	}
}
