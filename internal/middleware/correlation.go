package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type key int

const (
	CorrelationKey key = iota
	ToolKey
)

const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID tags every request with an id, reusing the caller's header when present.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(HeaderCorrelationID, id)

		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path) // #nosec G706 -- r.URL.Path is parsed by net/http
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start)) // #nosec G706
	})
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

// EnsureCorrelationID returns ctx unchanged if it already carries an id.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if id, ok := ctx.Value(CorrelationKey).(string); ok && id != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.New().String())
}

func WithToolID(ctx context.Context, toolID string) context.Context {
	return context.WithValue(ctx, ToolKey, toolID)
}

func GetToolID(ctx context.Context) string {
	id, _ := ctx.Value(ToolKey).(string)
	return id
}
