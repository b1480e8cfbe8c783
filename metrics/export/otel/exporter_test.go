package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/thunderauth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot thunderauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() thunderauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := thunderauth.MetricsSnapshot{
		Counters:   make(map[thunderauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[thunderauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// collectedInt64 returns the value of the named instrument's data point whose
// attributes include key=value. An empty key matches the first point.
func collectedInt64(rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	match := func(set attribute.Set) bool {
		if key == "" {
			return true
		}
		v, ok := set.Value(attribute.Key(key))
		return ok && v.AsString() == value
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReaderMeter()
	meter := provider.Meter("thunderauth-test")

	src := &fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters: map[thunderauth.MetricID]uint64{
				thunderauth.MetricRefreshSuccess: 3,
			},
			Histograms: map[thunderauth.MetricID][]uint64{
				thunderauth.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := []struct {
		name, key, value string
		want             int64
	}{
		{"thunderauth_token_refresh_total", "result", "stored", 3},
		{"thunderauth_token_refresh_total", "result", "failed", 0},
		{"thunderauth_audit_events_dropped_total", "", "", 1},
		{"thunderauth_http_attempt_duration_seconds_bucket", "le", "0.1", 4},
		{"thunderauth_http_attempt_duration_seconds_bucket", "le", "+Inf", 8},
		{"thunderauth_http_attempt_duration_seconds_count", "", "", 8},
		{"thunderauth_credential_write_failures_total", "", "", 0},
	}
	for _, c := range checks {
		got, ok := collectedInt64(rm, c.name, c.key, c.value)
		if !ok {
			t.Fatalf("series %s{%s=%q} not collected", c.name, c.key, c.value)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%q}: expected %d, got %d", c.name, c.key, c.value, c.want, got)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReaderMeter()
	meter := provider.Meter("thunderauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for a nil client, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()
	meter := provider.Meter("thunderauth-test")

	src := &fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters: map[thunderauth.MetricID]uint64{
				thunderauth.MetricRequestSuccess: 1,
			},
			Histograms: map[thunderauth.MetricID][]uint64{
				thunderauth.MetricRequestLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[thunderauth.MetricRequestSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
