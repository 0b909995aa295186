package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/orchestrator"
)

func newService() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/healthz":
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
			w.Write([]byte(`{"status":"ok"}`))
		case "/metrics":
			w.Write([]byte("# TYPE up gauge\nup 1\n"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func loadConfig(t *testing.T, baseURL, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf("target:\n  base_url: %s\n%s", baseURL, extra)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func TestRunOnce(t *testing.T) {
	ts := newService()
	defer ts.Close()

	cfg := loadConfig(t, ts.URL, `endpoints:
  - name: health
    path: /health
    expected_status: 200
    content_type: application/json
`)
	var events []orchestrator.Event
	mon, err := NewMonitor(cfg,
		WithCategories([]string{"api", "monitoring"}),
		WithObserver(func(e orchestrator.Event) { events = append(events, e) }),
	)
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	defer mon.Close()

	res, err := mon.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(res.Report.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(res.Report.Categories))
	}
	if res.Report.Categories[0].Category != "api" || res.Report.Categories[1].Category != "monitoring" {
		t.Errorf("unexpected category order: %s, %s", res.Report.Categories[0].Category, res.Report.Categories[1].Category)
	}
	if res.Load != nil {
		t.Error("no load summary expected without the performance category")
	}
	if len(events) != 4 {
		t.Errorf("expected a started and finished event per category, got %d", len(events))
	}

	mcs, _ := res.Report.Category("monitoring")
	for _, r := range mcs.Results {
		if r.Status == check.StatusWarn && r.Remediation == "" {
			t.Errorf("%s has no remediation", r.Name)
		}
	}

	latest, ok := mon.Latest()
	if !ok || latest.Report.RunID != res.Report.RunID {
		t.Error("Latest() should return the last run")
	}
}

func TestRunOnce_PerformanceSummary(t *testing.T) {
	ts := newService()
	defer ts.Close()

	cfg := loadConfig(t, ts.URL, `categories:
  performance:
    timeout: 5s
    options:
      duration: 200ms
      concurrency: 2
`)
	mon, err := NewMonitor(cfg, WithCategories([]string{"performance"}))
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	defer mon.Close()

	res, err := mon.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.Load == nil {
		t.Fatal("expected a load summary")
	}
	if res.Load.TotalRequests == 0 {
		t.Error("expected probes to be sent")
	}
}

func TestStart_PublishesPeriodically(t *testing.T) {
	ts := newService()
	defer ts.Close()

	cfg := loadConfig(t, ts.URL, "serve:\n  interval: 50ms\n")
	mon, err := NewMonitor(cfg, WithCategories([]string{"monitoring"}))
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	defer mon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go mon.Start(ctx)

	for i := 0; i < 2; i++ {
		select {
		case res := <-mon.Results():
			if res.Err != nil {
				t.Fatalf("run %d error = %v", i, res.Err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for run %d", i)
		}
	}

	cancel()
	select {
	case <-mon.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestNewMonitor_Rejects(t *testing.T) {
	cfg := loadConfig(t, "ftp://nope", "")
	if _, err := NewMonitor(cfg); err == nil {
		t.Error("expected invalid base URL to be rejected")
	}

	cfg = loadConfig(t, "http://localhost:1", "")
	if _, err := NewMonitor(cfg, WithCategories([]string{"astrology"})); err == nil {
		t.Error("expected unknown category to be rejected")
	}
}
