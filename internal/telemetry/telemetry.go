// Package telemetry wires OpenTelemetry metrics to a Prometheus endpoint.
package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// ServiceName identifies this program in exported metrics.
const ServiceName = "readalong"

// Telemetry owns the meter provider and, when enabled, the metrics server.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	server   *http.Server
	logger   *log.Logger
}

// Setup creates a meter provider exporting to a dedicated Prometheus
// registry and installs it globally. When addr is non-empty the metrics are
// served on addr at /metrics.
func Setup(addr, version string) (*Telemetry, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{logger: log.Default().WithPrefix("telemetry")}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		t.logger.Warn("failed to initialize prometheus exporter", "err", err)
		t.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		t.provider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		t.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	otel.SetMeterProvider(t.provider)

	if addr != "" && t.handler != nil {
		if err := t.serve(addr); err != nil {
			_ = t.provider.Shutdown(context.Background())
			return nil, err
		}
	}
	return t, nil
}

func (t *Telemetry) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("metrics server stopped", "err", err)
		}
	}()
	t.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// Meter returns a meter from the provider.
func (t *Telemetry) Meter(name string) metric.Meter {
	return t.provider.Meter(name)
}

// Handler returns the Prometheus handler, or nil if the exporter failed.
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Shutdown stops the metrics server and flushes the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
