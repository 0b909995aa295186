package loadgen

import (
	"context"
	"strings"
	"sync"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/probe"
)

// Category is the name the load generator registers under.
const Category = "performance"

// Checker exposes the load generator as a readiness category.
type Checker struct {
	gen *Generator

	mu   sync.Mutex
	last *Summary
}

func NewChecker(gen *Generator) *Checker {
	return &Checker{gen: gen}
}

func (c *Checker) Category() string { return Category }

// Check runs one load run against the target's load endpoints (or its base
// URL) and evaluates it.
func (c *Checker) Check(ctx context.Context, target check.Target, opts check.Options) ([]check.Result, error) {
	cfg := ConfigFromOptions(target, opts)
	summary, err := c.gen.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.last = &summary
	c.mu.Unlock()

	return Evaluate(summary, cfg.Thresholds), nil
}

// LastSummary returns the summary of the most recent run, if any.
func (c *Checker) LastSummary() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return Summary{}, false
	}
	return *c.last, true
}

// ConfigFromOptions builds a run configuration from category options.
// Missing keys fall back to the package defaults.
func ConfigFromOptions(target check.Target, opts check.Options) Config {
	endpoints := target.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{""}
	}

	timeout := opts.Duration("probe_timeout", DefaultProbeTimeout)
	method := strings.ToUpper(opts.String("method", "GET"))

	targets := make([]probe.Request, 0, len(endpoints))
	for _, ep := range endpoints {
		targets = append(targets, probe.Request{
			URL:       target.URL(ep),
			Method:    method,
			Headers:   target.Headers,
			Timeout:   timeout,
			AuthToken: target.AuthToken,
		})
	}

	defaults := DefaultThresholds()
	severity, ok := check.ParseStatus(opts.String("p95_severity", string(defaults.P95Severity)))
	if !ok {
		severity = check.Status(strings.ToUpper(opts.String("p95_severity", "")))
	}

	return Config{
		Targets:     targets,
		Concurrency: opts.Int("concurrency", DefaultConcurrency),
		Duration:    opts.Duration("duration", DefaultDuration),
		AbortAfter:  opts.Int("unreachable_abort_after", DefaultAbortAfter),
		Thresholds: Thresholds{
			MaxErrorRate:     opts.Float("max_error_rate", defaults.MaxErrorRate),
			MaxP95MS:         opts.Float("max_p95_ms", defaults.MaxP95MS),
			P95Severity:      severity,
			MaxP99MS:         opts.Float("max_p99_ms", defaults.MaxP99MS),
			MaxAvgMS:         opts.Float("max_avg_ms", defaults.MaxAvgMS),
			MinThroughputRPS: opts.Float("min_throughput_rps", defaults.MinThroughputRPS),
		},
	}
}
