package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

var logKey contextKey = "log"

// GetLogger returns the logger stored by WithLogger, or the global logger.
func GetLogger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(logKey).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, logKey, logger)
}

// WithStack stores a logger named after the stack (at the root of the name, so that
// [StackLogWriter] files its entries under the stack).
func WithStack(ctx context.Context, stackName string) context.Context {
	return WithLogger(ctx, zap.L().Named(stackName))
}
