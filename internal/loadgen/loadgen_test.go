package loadgen

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/probe"
)

func okSample(ms float64) probe.Sample {
	return probe.Sample{LatencyMS: ms, Succeeded: true, StatusCode: 200, Outcome: probe.OutcomeOK}
}

func TestPercentile_NearestRank(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	assert.Equal(t, 50.0, Percentile(values, 0.50))
	assert.Equal(t, 95.0, Percentile(values, 0.95))
	assert.Equal(t, 99.0, Percentile(values, 0.99))
	assert.Equal(t, 100.0, Percentile(values, 1))

	twenty := values[:20]
	assert.Equal(t, 19.0, Percentile(twenty, 0.95))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.95))
	assert.Equal(t, LatencyUndefined, Percentile(nil, 0.95))
}

func TestSummarize_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]probe.Sample, 0, 250)
	for i := 0; i < 250; i++ {
		if i%10 == 0 {
			samples = append(samples, probe.Sample{StatusCode: 503, Outcome: probe.OutcomeHTTPError, LatencyMS: 1})
			continue
		}
		samples = append(samples, okSample(float64(rng.Intn(900)+10)))
	}

	want := Summarize(samples, 5*time.Second)
	for i := 0; i < 20; i++ {
		shuffled := append([]probe.Sample(nil), samples...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Summarize(shuffled, 5*time.Second)
		assert.Equal(t, want.LatencyP50MS, got.LatencyP50MS)
		assert.Equal(t, want.LatencyP95MS, got.LatencyP95MS)
		assert.Equal(t, want.LatencyP99MS, got.LatencyP99MS)
		assert.InDelta(t, want.LatencyAvgMS, got.LatencyAvgMS, 1e-9)
	}

	assert.Equal(t, 250, want.TotalRequests)
	assert.Equal(t, 225, want.SuccessfulRequests)
	assert.InDelta(t, 0.1, want.ErrorRate, 1e-9)
	assert.InDelta(t, 45.0, want.ThroughputRPS, 1e-9)
}

func TestSummarize_FailedSamplesExcludedFromLatency(t *testing.T) {
	samples := []probe.Sample{
		okSample(10),
		okSample(20),
		{LatencyMS: 5000, Outcome: probe.OutcomeTimeout},
	}
	s := Summarize(samples, time.Second)
	assert.Equal(t, 20.0, s.LatencyMaxMS)
	assert.Equal(t, 15.0, s.LatencyAvgMS)
}

func TestSummarize_NoSuccessUsesSentinel(t *testing.T) {
	samples := []probe.Sample{
		{Outcome: probe.OutcomeTimeout, LatencyMS: 50},
		{Outcome: probe.OutcomeHTTPError, StatusCode: 500, LatencyMS: 3},
	}
	s := Summarize(samples, time.Second)
	assert.False(t, s.LatencyDefined)
	assert.Equal(t, LatencyUndefined, s.LatencyP95MS)
	assert.Equal(t, LatencyUndefined, s.LatencyAvgMS)
	assert.Equal(t, 1.0, s.ErrorRate)
	assert.Equal(t, 0.0, s.ThroughputRPS)
}

func TestEvaluate_ZeroRequestsIsError(t *testing.T) {
	results := Evaluate(Summarize(nil, time.Second), DefaultThresholds())
	require.Len(t, results, 1)
	assert.Equal(t, check.StatusError, results[0].Status)
	assert.Equal(t, CheckLoadRun, results[0].Name)
}

func TestEvaluate_ThresholdsAreStrict(t *testing.T) {
	s := Summary{
		TotalRequests:      100,
		SuccessfulRequests: 95,
		ErrorRate:          0.05,
		LatencyDefined:     true,
		LatencyP95MS:       750,
		LatencyAvgMS:       500,
		ThroughputRPS:      5,
	}
	for _, r := range Evaluate(s, DefaultThresholds()) {
		assert.Equal(t, check.StatusPass, r.Status, r.Name)
	}

	s.LatencyP95MS = 750.1
	s.ErrorRate = 0.051
	byName := map[string]check.Result{}
	for _, r := range Evaluate(s, DefaultThresholds()) {
		byName[r.Name] = r
	}
	assert.Equal(t, check.StatusFail, byName[CheckErrorRate].Status)
	assert.Equal(t, check.StatusFail, byName[CheckLatencyP95].Status)
	require.NotNil(t, byName[CheckLatencyP95].Measured)
	assert.Equal(t, 750.1, *byName[CheckLatencyP95].Measured)
}

func TestEvaluate_P95WarnSeverity(t *testing.T) {
	th := DefaultThresholds()
	th.P95Severity = check.StatusWarn
	s := Summary{TotalRequests: 10, SuccessfulRequests: 10, LatencyDefined: true, LatencyP95MS: 2000, LatencyAvgMS: 1, ThroughputRPS: 100}
	for _, r := range Evaluate(s, th) {
		if r.Name == CheckLatencyP95 {
			assert.Equal(t, check.StatusWarn, r.Status)
		}
	}
}

func TestCollector_AbortsOnlyBeforeFirstResponse(t *testing.T) {
	unreachable := probe.Sample{Outcome: probe.OutcomeUnreachable}

	c := newCollector(3)
	assert.False(t, c.add(unreachable))
	assert.False(t, c.add(unreachable))
	assert.True(t, c.add(unreachable))
	assert.False(t, c.add(unreachable), "abort is signalled once")

	c = newCollector(3)
	c.add(unreachable)
	c.add(okSample(1))
	for i := 0; i < 10; i++ {
		assert.False(t, c.add(unreachable))
	}
	_, aborted := c.snapshot()
	assert.False(t, aborted)
}

func TestRun_AllProbesTimeOut(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer s.Close()

	gen := New(probe.NewDriver(probe.WithMaxConnsPerHost(10)), nil)
	summary, err := gen.Run(context.Background(), Config{
		Targets:     []probe.Request{{URL: s.URL, Timeout: 50 * time.Millisecond}},
		Concurrency: 10,
		Duration:    time.Second,
		Thresholds:  DefaultThresholds(),
	})
	require.NoError(t, err)
	assert.Greater(t, summary.TotalRequests, 0)
	assert.Equal(t, 1.0, summary.ErrorRate)
	assert.False(t, summary.LatencyDefined)
	assert.Equal(t, LatencyUndefined, summary.LatencyP95MS)
	assert.False(t, summary.Aborted)

	for _, r := range Evaluate(summary, DefaultThresholds()) {
		assert.NotEqual(t, check.StatusPass, r.Status, r.Name)
		assert.NotEqual(t, check.StatusError, r.Status, r.Name)
	}
}

func TestRun_UnreachableTargetAbortsEarly(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := s.URL
	s.Close()

	start := time.Now()
	summary, err := New(nil, nil).Run(context.Background(), Config{
		Targets:     []probe.Request{{URL: addr, Timeout: time.Second}},
		Concurrency: 4,
		Duration:    10 * time.Second,
		Thresholds:  DefaultThresholds(),
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, summary.Aborted)

	results := Evaluate(summary, DefaultThresholds())
	require.Len(t, results, 1)
	assert.Equal(t, check.StatusError, results[0].Status)
}

func TestRun_NoProbeStartsAfterDeadline(t *testing.T) {
	var hits atomic.Int64
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
	}))
	defer s.Close()

	duration := 200 * time.Millisecond
	start := time.Now()
	summary, err := New(nil, nil).Run(context.Background(), Config{
		Targets:     []probe.Request{{URL: s.URL, Timeout: time.Second}},
		Concurrency: 3,
		Duration:    duration,
		Thresholds:  DefaultThresholds(),
	})
	require.NoError(t, err)
	assert.Equal(t, int(hits.Load()), summary.TotalRequests)
	assert.Less(t, summary.Elapsed, duration+time.Second)
	assert.Less(t, time.Since(start), duration+time.Second)
	assert.Equal(t, 0.0, summary.ErrorRate)
	assert.True(t, summary.LatencyDefined)
}

func TestRun_CancellationKeepsPartialSamples(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
	}))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	summary, err := New(nil, nil).Run(ctx, Config{
		Targets:     []probe.Request{{URL: s.URL, Timeout: time.Second}},
		Concurrency: 2,
		Duration:    10 * time.Second,
		Thresholds:  DefaultThresholds(),
	})
	require.NoError(t, err)
	assert.True(t, summary.Partial)
	assert.Greater(t, summary.TotalRequests, 0)
	assert.Less(t, summary.Elapsed, 2*time.Second)

	for _, r := range Evaluate(summary, DefaultThresholds()) {
		assert.Equal(t, "true", r.Details["partial"])
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	gen := New(nil, nil)
	cases := []Config{
		{Targets: nil, Concurrency: 1, Duration: time.Second, Thresholds: DefaultThresholds()},
		{Targets: []probe.Request{{URL: "http://x"}}, Concurrency: 0, Duration: time.Second, Thresholds: DefaultThresholds()},
		{Targets: []probe.Request{{URL: "http://x"}}, Concurrency: 1, Duration: 0, Thresholds: DefaultThresholds()},
		{Targets: []probe.Request{{URL: "not a url"}}, Concurrency: 1, Duration: time.Second, Thresholds: DefaultThresholds()},
		{Targets: []probe.Request{{URL: "http://x"}}, Concurrency: 1, Duration: time.Second, Thresholds: Thresholds{MaxErrorRate: 2, MaxP95MS: 1}},
	}
	for i, cfg := range cases {
		_, err := gen.Run(context.Background(), cfg)
		assert.Error(t, err, "case %d", i)
	}
	_, err := gen.Run(context.Background(), cases[0])
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestConfigFromOptions(t *testing.T) {
	target := check.Target{BaseURL: "http://svc:8000", Endpoints: []string{"/", "/api/items"}, AuthToken: "tok"}
	cfg := ConfigFromOptions(target, check.Options{
		"concurrency":    4,
		"duration":       "2s",
		"max_error_rate": 0.01,
		"p95_severity":   "warning",
	})

	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "http://svc:8000/api/items", cfg.Targets[1].URL)
	assert.Equal(t, "tok", cfg.Targets[0].AuthToken)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Duration)
	assert.Equal(t, 0.01, cfg.Thresholds.MaxErrorRate)
	assert.Equal(t, check.StatusWarn, cfg.Thresholds.P95Severity)
	assert.Equal(t, float64(DefaultMaxP95MS), cfg.Thresholds.MaxP95MS)
	assert.NoError(t, cfg.Validate())
}
