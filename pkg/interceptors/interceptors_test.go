package interceptors

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/connectjson"
)

const pingProcedure = "/test.v1.PingService/Ping"

type pingRequest struct {
	Panic bool `json:"panic"`
}

type pingResponse struct {
	RequestID string `json:"requestId"`
}

func newPingServer(t *testing.T, opts ...connect.HandlerOption) *connect.Client[pingRequest, pingResponse] {
	t.Helper()
	handler := func(ctx context.Context, req *connect.Request[pingRequest]) (*connect.Response[pingResponse], error) {
		if req.Msg.Panic {
			panic("boom")
		}
		return connect.NewResponse(&pingResponse{RequestID: RequestIDFromContext(ctx)}), nil
	}
	opts = append(opts, connectjson.WithCodec())

	mux := http.NewServeMux()
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, handler, opts...))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return connect.NewClient[pingRequest, pingResponse](server.Client(), server.URL+pingProcedure, connectjson.WithCodec())
}

func TestRequestIDInterceptor(t *testing.T) {
	client := newPingServer(t, connect.WithInterceptors(NewRequestIDInterceptor("X-Request-ID")))
	ctx := context.Background()

	resp, err := client.CallUnary(ctx, connect.NewRequest(&pingRequest{}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg.RequestID)
	assert.Equal(t, resp.Msg.RequestID, resp.Header().Get("X-Request-ID"))

	req := connect.NewRequest(&pingRequest{})
	req.Header().Set("X-Request-ID", "abc-123")
	resp, err = client.CallUnary(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Msg.RequestID)
}

func TestRecoveryAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	client := newPingServer(t, connect.WithInterceptors(
		NewRequestIDInterceptor(""),
		NewTracingInterceptor(noop.NewTracerProvider().Tracer("test")),
		NewLoggingInterceptor(logger),
		NewRecoveryInterceptor(logger),
	))

	_, err := client.CallUnary(context.Background(), connect.NewRequest(&pingRequest{Panic: true}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	assert.Contains(t, buf.String(), "panic in rpc handler")
	assert.Contains(t, buf.String(), "rpc failed")
	assert.Contains(t, buf.String(), "request_id")

	buf.Reset()
	_, err = client.CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rpc completed")
	assert.Contains(t, buf.String(), pingProcedure)
}

func TestRateLimitInterceptor(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	client := newPingServer(t, connect.WithInterceptors(NewRateLimitInterceptor(limiter)))
	ctx := context.Background()

	_, err := client.CallUnary(ctx, connect.NewRequest(&pingRequest{}))
	require.NoError(t, err)

	_, err = client.CallUnary(ctx, connect.NewRequest(&pingRequest{}))
	var connectErr *connect.Error
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, connect.CodeResourceExhausted, connectErr.Code())
}

func TestProcedureNames(t *testing.T) {
	assert.Equal(t, "dashboard.v1.ImportService", serviceFromProcedure("/dashboard.v1.ImportService/Commit"))
	assert.Equal(t, "Commit", methodFromProcedure("/dashboard.v1.ImportService/Commit"))
	assert.Equal(t, "", serviceFromProcedure(""))
}
