package ruleflow

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/afs/storage"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/record"
	"github.com/viant/ruleflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the ruleflow service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the root logger; components use named sub-loggers.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNow overrides the clock of every component.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithStores sets the persistence stores, overriding the configured driver.
func WithStores(stores *Stores) Option {
	return func(s *Service) {
		s.stores = stores
	}
}

// WithRecordService sets the business record collaborator.
func WithRecordService(records record.Service) Option {
	return func(s *Service) {
		s.records = records
	}
}

// WithInstructions registers additional instruction services.
func WithInstructions(services ...types.Service) Option {
	return func(s *Service) {
		s.instructions = append(s.instructions, services...)
	}
}

// WithNotificationListener adds a handler receiving every transition notification.
func WithNotificationListener(listener func(*event.Event[event.Notification])) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listener)
	}
}

// WithMetaBaseURL sets the base URL relative bundle locations resolve against.
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for
// example OTLP or an in-memory exporter in tests.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
