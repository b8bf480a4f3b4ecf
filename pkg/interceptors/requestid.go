package interceptors

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored by the request ID interceptor.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDInterceptor propagates the caller's request ID, or assigns one, and
// echoes it in the response header.
type RequestIDInterceptor struct {
	header string
}

func NewRequestIDInterceptor(header string) *RequestIDInterceptor {
	if header == "" {
		header = "X-Request-ID"
	}
	return &RequestIDInterceptor{header: header}
}

// WrapUnary implements connect.Interceptor.
func (i *RequestIDInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		id := req.Header().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		resp, err := next(context.WithValue(ctx, requestIDKey{}, id), req)
		if resp != nil {
			resp.Header().Set(i.header, id)
		}
		var connectErr *connect.Error
		if err != nil && errors.As(err, &connectErr) {
			connectErr.Meta().Set(i.header, id)
		}
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RequestIDInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RequestIDInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		id := conn.RequestHeader().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		conn.ResponseHeader().Set(i.header, id)
		return next(context.WithValue(ctx, requestIDKey{}, id), conn)
	}
}
