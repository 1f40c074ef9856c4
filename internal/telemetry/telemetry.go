// Package telemetry exposes analysis metrics through OpenTelemetry and a Prometheus scrape endpoint.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName is the instrumentation scope of every repopulse instrument.
const meterName = "github.com/huangsam/repopulse"

// Provider owns a MeterProvider whose only reader is a Prometheus exporter on a private registry.
type Provider struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
	metrics  *AnalysisMetrics
}

// NewProvider creates an independent registry, exporter and meter provider.
// Each call is isolated so tests and multiple servers never share collectors.
func NewProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	am, err := NewAnalysisMetrics(mp.Meter(meterName))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}

	return &Provider{registry: registry, provider: mp, metrics: am}, nil
}

// Meter returns a meter from the provider.
func (p *Provider) Meter() metric.Meter { return p.provider.Meter(meterName) }

// Metrics returns the analysis instruments bound to this provider.
func (p *Provider) Metrics() *AnalysisMetrics { return p.metrics }

// Handler serves the /metrics scrape endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Serve listens on addr and serves /metrics until ctx is done.
// The listener is bound before Serve returns its first error, so a bad address fails fast.
func (p *Provider) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
