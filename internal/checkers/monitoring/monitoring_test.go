package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/juststeveking/readycheck/internal/check"
)

const exposition = `# HELP http_requests_total Total requests.
# TYPE http_requests_total counter
http_requests_total{code="200"} 1027
# HELP http_request_duration_seconds Request latency.
# TYPE http_request_duration_seconds histogram
http_request_duration_seconds_bucket{le="0.1"} 900
http_request_duration_seconds_bucket{le="+Inf"} 1027
http_request_duration_seconds_sum 53.2
http_request_duration_seconds_count 1027
# HELP process_cpu_seconds_total CPU time.
# TYPE process_cpu_seconds_total counter
process_cpu_seconds_total 12.5
`

func byName(results []check.Result) map[string]check.Result {
	out := make(map[string]check.Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func TestCheck_ObservableService(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/metrics":
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			w.Write([]byte(exposition))
		case "/healthz":
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer s.Close()

	opts := check.Options{
		"required_metrics": []string{"http_requests_total", "http_request_duration_seconds", "process_resident_memory_bytes"},
		"health_paths":     []string{"/healthz"},
	}
	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, opts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	got := byName(results)
	tests := map[string]check.Status{
		"metrics-endpoint":                     check.StatusPass,
		"metrics-format":                       check.StatusPass,
		"metric/http_requests_total":           check.StatusPass,
		"metric/http_request_duration_seconds": check.StatusPass,
		"metric/process_resident_memory_bytes": check.StatusWarn,
		"health":                               check.StatusPass,
		"tracing":                              check.StatusPass,
	}
	for name, want := range tests {
		if got[name].Status != want {
			t.Errorf("%s = %s (%s), want %s", name, got[name].Status, got[name].Message, want)
		}
	}
}

func TestCheck_UnobservableService(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"degraded"}`))
		case "/":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer s.Close()

	opts := check.Options{"health_paths": []string{"/healthz", "/health"}}
	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, opts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	got := byName(results)
	tests := map[string]check.Status{
		"metrics-endpoint": check.StatusFail,
		"health":           check.StatusWarn,
		"tracing":          check.StatusWarn,
	}
	for name, want := range tests {
		if got[name].Status != want {
			t.Errorf("%s = %s (%s), want %s", name, got[name].Status, got[name].Message, want)
		}
	}
}

func TestCheck_UnreachableMetricsIsError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := s.URL
	s.Close()

	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: url}, check.Options{"health_paths": []string{"/healthz"}})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	got := byName(results)
	if got["metrics-endpoint"].Status != check.StatusError {
		t.Errorf("metrics-endpoint = %s, want ERROR", got["metrics-endpoint"].Status)
	}
	if got["health"].Status != check.StatusFail {
		t.Errorf("health = %s, want FAIL", got["health"].Status)
	}
}

func TestParseMetrics(t *testing.T) {
	families, err := ParseMetrics([]byte(exposition))
	if err != nil {
		t.Fatalf("ParseMetrics() error = %v", err)
	}
	if got := families["http_request_duration_seconds"].GetType(); got != dto.MetricType_HISTOGRAM {
		t.Errorf("type = %v, want HISTOGRAM", got)
	}

	if _, err := ParseMetrics([]byte("metric{ broken 1\n")); err == nil {
		t.Error("expected parse error for malformed exposition")
	}
}
