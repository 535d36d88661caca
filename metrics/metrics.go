// Package metrics exposes scheduler counters through OpenTelemetry. Counters
// are created from the global meter provider and start reporting once Setup
// installs a provider; until then they are no-ops.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/viant/ruleflow"

var (
	Dispatches       api.Int64Counter
	Transitions      api.Int64Counter
	RuleFirings      api.Int64Counter
	ConditionErrors  api.Int64Counter
	AllocationDenied api.Int64Counter
	Releases         api.Int64Counter
)

func init() {
	if err := register(); err != nil {
		otel.Handle(err)
	}
}

func register() error {
	meter := otel.Meter(meterName)
	var errJoin, err error
	Dispatches, err = meter.Int64Counter("ruleflow_dispatch_total", api.WithDescription("Dispatch calls by trigger"))
	errJoin = errors.Join(errJoin, err)
	Transitions, err = meter.Int64Counter("ruleflow_transition_total", api.WithDescription("Process state transitions by target state"))
	errJoin = errors.Join(errJoin, err)
	RuleFirings, err = meter.Int64Counter("ruleflow_rule_fired_total", api.WithDescription("Rules whose condition matched and whose action ran"))
	errJoin = errors.Join(errJoin, err)
	ConditionErrors, err = meter.Int64Counter("ruleflow_condition_error_total", api.WithDescription("Rule conditions that failed to evaluate"))
	errJoin = errors.Join(errJoin, err)
	AllocationDenied, err = meter.Int64Counter("ruleflow_allocation_denied_total", api.WithDescription("Resource allocations denied for lack of capacity"))
	errJoin = errors.Join(errJoin, err)
	Releases, err = meter.Int64Counter("ruleflow_release_total", api.WithDescription("Resource releases"))
	errJoin = errors.Join(errJoin, err)
	if errJoin != nil {
		return fmt.Errorf("failed to create otel instruments: %w", errJoin)
	}
	return nil
}

// Add increments counter by one with string attributes given as key/value pairs.
func Add(ctx context.Context, counter api.Int64Counter, kv ...string) {
	if counter == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	counter.Add(ctx, 1, api.WithAttributes(attrs...))
}

// Provider owns the installed meter provider.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
}

// Setup installs a meter provider backed by the prometheus exporter; the
// metrics are served by promhttp.Handler from the default registry.
func Setup(serviceName string) (*Provider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to set up prometheus exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("library.language", "go"),
	))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	return &Provider{meterProvider: provider}, nil
}

// Stop flushes and shuts down the provider.
func (p *Provider) Stop(ctx context.Context) {
	if p == nil || p.meterProvider == nil {
		return
	}
	_ = p.meterProvider.Shutdown(ctx)
	p.meterProvider = nil
}
