package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	c "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	importhandler "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/handler"
	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/interceptors"
	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/observability"
)

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	tracer := otel.GetTracerProvider().Tracer("dashboard/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
	}
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain,
		interceptors.NewLoggingInterceptor(deps.Logger),
		interceptors.NewRecoveryInterceptor(deps.Logger),
		observability.NewMetricsInterceptor(),
	)

	registerConnectRoutes(mux, deps, connect.WithInterceptors(chain...))
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   c.AllowedMethods(),
		AllowedHeaders:   append(c.AllowedHeaders(), "X-Request-ID"),
		ExposedHeaders:   append(c.ExposedHeaders(), "X-Request-ID"),
		AllowCredentials: true,
		MaxAge:           7200,
	})

	return corsHandler.Handler(mux)
}

// registerConnectRoutes registers all Connect RPC services
func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts connect.HandlerOption) {
	path, handler := importhandler.NewImportServiceHandler(deps.ImportHandler, opts)
	mux.Handle(path, limitBody(handler, uploadBodyLimit(deps.Config.Import.MaxUploadBytes)))
	deps.Logger.Info("registered Connect RPC service", slog.String("path", path))
}

// uploadBodyLimit leaves room for base64 expansion of the file plus the JSON envelope.
func uploadBodyLimit(maxUpload int64) int64 {
	return maxUpload/3*4 + 64<<10
}

func limitBody(next http.Handler, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := deps.StorageHealth(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("storage unhealthy")); writeErr != nil {
				deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})

	mux.HandleFunc("/health/details", func(w http.ResponseWriter, r *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{
			"storage":   {Status: "ok", Detail: deps.Config.Storage.Backend},
			"templates": {Status: "ok"},
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		healthy := true
		if err := deps.StorageHealth(ctx); err != nil {
			result["storage"] = status{Status: "fail", Detail: err.Error()}
			healthy = false
		}
		if deps.Templates == nil || len(deps.Templates.IDs()) == 0 {
			result["templates"] = status{Status: "fail", Detail: "no templates loaded"}
			healthy = false
		}

		w.Header().Set("Content-Type", "application/json")
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode health details", slog.Any("error", err))
		}
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", slog.String("path", "/metrics"))
	}
}
