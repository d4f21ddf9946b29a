// Package observability builds the zap logger and registers the Prometheus
// collectors used by the dashboard API.
package observability
