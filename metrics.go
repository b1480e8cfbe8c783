package thunderauth

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/thunderauth/apierror"
)

// MetricID identifies one client counter.
type MetricID uint16

const (
	MetricRequestSuccess MetricID = iota
	MetricRequestFailure
	// MetricUnauthorized counts attempts answered with 401.
	MetricUnauthorized
	MetricRefreshAttempt
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshNoToken counts recoveries abandoned because no refresh token
	// was stored.
	MetricRefreshNoToken
	MetricRetrySuccess
	MetricRetryFailure
	MetricLoginSuccess
	MetricLoginTwoFactorRequired
	MetricLoginFailure
	MetricTwoFactorSuccess
	MetricTwoFactorFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricPasswordResetRequest
	MetricPasswordResetConfirm
	MetricEmailConfirm
	MetricLogout
	MetricTokenPersistFailure
	// MetricRequestLatency is the only histogram; its counter stays zero.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters plus the request latency histogram.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets are
// non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricRequestLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricRequestLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}
	return s
}

// Bucket upper bounds: 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}

// attemptObserver feeds transport attempts into Metrics.
type attemptObserver struct {
	metrics *Metrics
}

func (o attemptObserver) ObserveAttempt(_, _ string, _ int, latency time.Duration, err error) {
	if !o.metrics.Enabled() {
		return
	}
	o.metrics.Observe(MetricRequestLatency, latency)
	if err == nil {
		o.metrics.Inc(MetricRequestSuccess)
		return
	}
	o.metrics.Inc(MetricRequestFailure)
	if errors.Is(err, apierror.ErrUnauthorized) {
		o.metrics.Inc(MetricUnauthorized)
	}
}
