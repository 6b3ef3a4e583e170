package edge

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/config"
	"github.com/kbukum/edgecam/observability"
)

// telemetry installs the OpenTelemetry providers for the lifetime of the
// service. It is registered first so it stops last.
type telemetry struct {
	cfg      observability.Config
	service  *config.ServiceConfig
	version  string
	shutdown func(context.Context) error

	registrations []metric.Registration
}

func newTelemetry(cfg observability.Config, service *config.ServiceConfig, version string) *telemetry {
	return &telemetry{cfg: cfg, service: service, version: version}
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	shutdown, err := observability.Init(ctx, t.cfg, t.service.Name, t.version, t.service.Environment)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	t.shutdown = shutdown
	return nil
}

func (t *telemetry) Stop(ctx context.Context) error {
	var errs []error
	for _, reg := range t.registrations {
		errs = append(errs, reg.Unregister())
	}
	t.registrations = nil
	if t.shutdown != nil {
		errs = append(errs, t.shutdown(ctx))
		t.shutdown = nil
	}
	return stderrors.Join(errs...)
}

func (t *telemetry) Health(context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	details := "disabled"
	if t.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample=%.2f", t.cfg.Endpoint, t.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}

// track keeps a metric registration until the service stops.
func (t *telemetry) track(reg metric.Registration) {
	t.registrations = append(t.registrations, reg)
}
