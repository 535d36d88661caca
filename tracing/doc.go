// Package tracing wraps OpenTelemetry tracing for dispatch and rule
// evaluation. Spans are no-ops until Init or InitWithExporter installs a
// provider.
package tracing
