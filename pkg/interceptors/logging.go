package interceptors

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs every unary RPC with its duration and outcome.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", time.Since(start)),
			}
			if id := RequestIDFromContext(ctx); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if err != nil {
				code := connect.CodeOf(err)
				attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
				level := slog.LevelWarn
				if code == connect.CodeInternal || code == connect.CodeUnknown {
					level = slog.LevelError
				}
				logger.LogAttrs(ctx, level, "rpc failed", attrs...)
				return resp, err
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "rpc completed", attrs...)
			return resp, nil
		}
	}
}
