// Package observability bundles the process-wide logger, metrics registry,
// and tracer so modules receive one handle instead of three.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the observability wiring for one process.
type Config struct {
	ServiceName    string
	Environment    string
	MetricsAddress string
	LogLevel       string
}

// Observability is the handle passed to every module.
type Observability struct {
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	TracerProvider trace.TracerProvider

	metricsServer *http.Server
}

// Init builds the logger, a fresh prometheus registry with process/go
// collectors, and a tracer provider. Tracing export is owned by a collector
// sidecar in deployment, so the in-process provider stays a noop.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	obs := &Observability{
		Logger:         logger,
		Registry:       registry,
		TracerProvider: noop.NewTracerProvider(),
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		obs.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := obs.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", slog.Any("error", err))
			}
		}()
		logger.Info("metrics server listening", slog.String("address", cfg.MetricsAddress))
	}

	return obs, nil
}

// Tracer returns a named tracer from the configured provider.
func (o *Observability) Tracer(name string) trace.Tracer {
	return o.TracerProvider.Tracer(name)
}

// Shutdown stops the metrics server.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o.metricsServer != nil {
		return o.metricsServer.Shutdown(ctx)
	}
	return nil
}

// NoOp returns an Observability suitable for tests: discard logger, empty
// registry, noop tracer.
func NoOp() *Observability {
	return &Observability{
		Logger:         slog.New(slog.DiscardHandler),
		Registry:       prometheus.NewRegistry(),
		TracerProvider: noop.NewTracerProvider(),
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
