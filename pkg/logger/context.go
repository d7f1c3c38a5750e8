package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// With derives a context whose logger carries the extra fields. Fields
// accumulate across calls, so middleware can stack request attributes.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

// From extracts the request logger, falling back to the process logger
// when the context carries none.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return L()
}
