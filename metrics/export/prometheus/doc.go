// Package prometheus renders the engine's counters and histograms in
// Prometheus text exposition format. Nothing is registered globally; callers
// mount the Handler wherever they serve metrics.
package prometheus
