package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReplayDetected
	MetricValidateSuccess
	MetricValidateFailure
	MetricSessionCreated
	MetricSessionRevoked
	MetricLogout
	MetricProviderUnavailable
	MetricStoreUnavailable
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// Upper bounds in seconds for the validate latency histogram; the last
// bucket is +Inf.
var histBounds = [histBucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Metrics is a fixed-size set of atomic counters plus an optional latency
// histogram for the validate hot path. Increment cost is one atomic add.
type Metrics struct {
	counters          [metricIDCount]paddedCounter
	validateLatency   metricHistogram
	histogramsEnabled bool
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{histogramsEnabled: cfg.EnableLatencyHistograms}
}

// Inc atomically increments the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// ObserveValidateLatency records one validate duration.
func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m == nil || !m.histogramsEnabled {
		return
	}

	seconds := d.Seconds()
	idx := len(histBounds)
	for i, bound := range histBounds {
		if seconds <= bound {
			idx = i
			break
		}
	}
	atomic.AddUint64(&m.validateLatency.buckets[idx], 1)
}

// Snapshot returns a consistent-enough copy for export; individual counters
// are read atomically but not as one transaction.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, metricIDCount),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	if m == nil {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricValidateLatency {
			continue
		}
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.histogramsEnabled {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.validateLatency.buckets[i])
		}
		snap.Histograms[MetricValidateLatency] = buckets
	}

	return snap
}
