package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/thunderauth"
	"github.com/MrEthical07/thunderauth/internal/mockapi"
)

type fakeSource struct {
	snapshot thunderauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() thunderauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters:   map[thunderauth.MetricID]uint64{},
			Histograms: map[thunderauth.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters: map[thunderauth.MetricID]uint64{
				thunderauth.MetricRefreshSuccess: 7,
			},
			Histograms: map[thunderauth.MetricID][]uint64{
				thunderauth.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "thunderauth_token_refresh_total{result=\"stored\"} 7") {
		t.Fatalf("expected stored refresh series in output, got:\n%s", out)
	}
	if !strings.Contains(out, "thunderauth_http_attempt_duration_seconds_bucket{le=\"0.01\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "thunderauth_http_attempt_duration_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "thunderauth_audit_events_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestRenderGroupsRecoverySeriesUnderOneHeader(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters: map[thunderauth.MetricID]uint64{
				thunderauth.MetricUnauthorized:   3,
				thunderauth.MetricRefreshAttempt: 2,
				thunderauth.MetricRefreshSuccess: 1,
				thunderauth.MetricRefreshFailure: 1,
				thunderauth.MetricRefreshNoToken: 1,
				thunderauth.MetricRetrySuccess:   1,
			},
		},
	})

	out := exp.Render()
	for _, want := range []string{
		"thunderauth_http_attempts_total{outcome=\"unauthorized\"} 3",
		"thunderauth_token_refresh_total{result=\"sent\"} 2",
		"thunderauth_token_refresh_total{result=\"stored\"} 1",
		"thunderauth_token_refresh_total{result=\"failed\"} 1",
		"thunderauth_token_refresh_total{result=\"no_refresh_token\"} 1",
		"thunderauth_retry_after_refresh_total{outcome=\"success\"} 1",
		"thunderauth_retry_after_refresh_total{outcome=\"failure\"} 0",
		"thunderauth_credential_write_failures_total 0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "# TYPE thunderauth_token_refresh_total counter"); n != 1 {
		t.Fatalf("expected one TYPE line for the refresh family, got %d", n)
	}
	if n := strings.Count(out, "# HELP "); n != 7 {
		t.Fatalf("expected 7 metric families, got %d", n)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters:   map[thunderauth.MetricID]uint64{thunderauth.MetricLoginSuccess: 1},
			Histograms: map[thunderauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExporterReadsClient(t *testing.T) {
	api, err := mockapi.New(mockapi.Options{})
	if err != nil {
		t.Fatalf("mockapi: %v", err)
	}
	api.AddUser(mockapi.User{Email: "alice@example.com", Password: "pw"})
	srv := httptest.NewServer(api)
	defer srv.Close()

	client, err := thunderauth.New().
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out := NewPrometheusExporter(client).Render()
	for _, want := range []string{
		"thunderauth_auth_operations_total{operation=\"login_success\"} 1",
		"thunderauth_http_attempts_total{outcome=\"success\"} 1",
		"thunderauth_http_attempt_duration_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: thunderauth.MetricsSnapshot{
			Counters: map[thunderauth.MetricID]uint64{
				thunderauth.MetricRequestSuccess: 1000,
				thunderauth.MetricRequestFailure: 40,
				thunderauth.MetricUnauthorized:   40,
				thunderauth.MetricRefreshSuccess: 38,
				thunderauth.MetricRefreshFailure: 2,
				thunderauth.MetricRetrySuccess:   38,
			},
			Histograms: map[thunderauth.MetricID][]uint64{
				thunderauth.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
