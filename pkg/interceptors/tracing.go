package interceptors

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingInterceptor opens one server span per RPC.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor falls back to the global tracer provider when tracer is nil.
func NewTracingInterceptor(tracer trace.Tracer) *TracingInterceptor {
	if tracer == nil {
		tracer = otel.Tracer("dashboard/interceptors")
	}
	return &TracingInterceptor{tracer: tracer}
}

// WrapUnary implements connect.Interceptor.
func (i *TracingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, span := i.start(ctx, req.Spec().Procedure)
		resp, err := next(ctx, req)
		finish(span, err)
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *TracingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *TracingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, span := i.start(ctx, conn.Spec().Procedure)
		err := next(ctx, conn)
		finish(span, err)
		return err
	}
}

func (i *TracingInterceptor) start(ctx context.Context, procedure string) (context.Context, trace.Span) {
	ctx, span := i.tracer.Start(ctx, procedure, trace.WithSpanKind(trace.SpanKindServer))
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "connect_rpc"),
		attribute.String("rpc.service", serviceFromProcedure(procedure)),
		attribute.String("rpc.method", methodFromProcedure(procedure)),
	}
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

func finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", connect.CodeOf(err).String()))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// serviceFromProcedure turns "/pkg.Service/Method" into "pkg.Service".
func serviceFromProcedure(procedure string) string {
	trimmed := strings.TrimPrefix(procedure, "/")
	if i := strings.LastIndex(trimmed, "/"); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}

func methodFromProcedure(procedure string) string {
	if i := strings.LastIndex(procedure, "/"); i >= 0 {
		return procedure[i+1:]
	}
	return procedure
}
