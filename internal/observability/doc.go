// Package observability carries the battle host's Prometheus metrics and
// OpenTelemetry tracing setup.
package observability
