// Package internaldefs holds the metric name and bucket definitions shared
// by the exporters, so the Prometheus and OpenTelemetry surfaces can never
// disagree on names or boundaries.
package internaldefs
