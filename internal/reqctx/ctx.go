package reqctx

import (
	"context"
	"log/slog"
)

type contextKey string

const requestLoggerKey = contextKey("requestLogger")

func WithRequestLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerKey, log)
}

func Logger(ctx context.Context) *slog.Logger {
	if v := ctx.Value(requestLoggerKey); v != nil {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
