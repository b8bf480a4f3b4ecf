package observability

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of RPC requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_rpc_requests_total",
			Help: "Total number of RPC requests",
		},
		[]string{"procedure", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_rpc_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	// ActiveRequests tracks currently active requests
	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_rpc_active_requests",
			Help: "Number of active RPC requests",
		},
		[]string{"procedure"},
	)

	// AnalysesTotal counts finished upload analyses by template and outcome
	// (direct, review, structural_error, parse_error).
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_import_analyses_total",
			Help: "Upload analyses by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	// MatchConfidence observes the confidence of every automatically matched column.
	MatchConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_import_match_confidence",
			Help:    "Confidence of automatic column matches",
			Buckets: []float64{0.6, 0.7, 0.8, 0.9, 0.95, 0.98, 1},
		},
		[]string{"template"},
	)

	// CommitsTotal counts dataset commits by template and outcome (ok, error).
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_import_commits_total",
			Help: "Dataset commits by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	// ImportSessions tracks in-flight import sessions.
	ImportSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_import_sessions",
			Help: "Number of in-flight import sessions",
		},
	)
)

// NewMetricsInterceptor creates an interceptor that collects Prometheus metrics
func NewMetricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure

			ActiveRequests.WithLabelValues(procedure).Inc()
			defer ActiveRequests.WithLabelValues(procedure).Dec()

			start := time.Now()
			defer func() {
				RequestDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			}()

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				} else {
					code = "unknown"
				}
			}
			RequestsTotal.WithLabelValues(procedure, code).Inc()

			return resp, err
		}
	}
}
