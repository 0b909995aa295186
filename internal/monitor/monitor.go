package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/checkers"
	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/orchestrator"
	"github.com/juststeveking/readycheck/internal/probe"
	"github.com/juststeveking/readycheck/internal/remediation"
)

// Monitor builds an orchestrator per run from the configuration. It serves
// single runs and the periodic loop behind serve.
type Monitor struct {
	Config   *config.Config
	only     []string
	interval time.Duration
	logger   *zap.Logger
	observer orchestrator.Observer

	driver *probe.Driver
	set    *checkers.Set

	results chan Result
	done    chan struct{}

	mu     sync.RWMutex
	latest *Result
}

type Option func(*Monitor)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver receives orchestrator events of every run.
func WithObserver(fn orchestrator.Observer) Option {
	return func(m *Monitor) { m.observer = fn }
}

// WithCategories restricts runs to the named categories.
func WithCategories(only []string) Option {
	return func(m *Monitor) { m.only = only }
}

// NewMonitor validates the configuration and prepares the checkers.
func NewMonitor(cfg *config.Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := 5 * time.Minute
	if cfg.Serve.Interval != "" {
		d, err := time.ParseDuration(cfg.Serve.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid serve interval: %w", err)
		}
		interval = d
	}

	m := &Monitor{
		Config:   cfg,
		interval: interval,
		logger:   zap.NewNop(),
		results:  make(chan Result, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if _, err := cfg.Specs(m.only); err != nil {
		return nil, err
	}

	m.driver = probe.NewDriver(probe.WithMaxConnsPerHost(maxConcurrency(cfg)))
	m.set = checkers.New(m.driver, m.logger)
	return m, nil
}

// maxConcurrency sizes the probe connection pool to the load workers.
func maxConcurrency(cfg *config.Config) int {
	perf, ok := cfg.Categories[config.CategoryPerformance]
	if !ok {
		return loadgen.DefaultConcurrency
	}
	return loadgen.ConfigFromOptions(cfg.ResolvedTarget(), perf.Options).Concurrency
}

// RunOnce performs one full readiness run. The returned error covers
// failures to build the run; check failures are part of the report.
func (m *Monitor) RunOnce(ctx context.Context) (Result, error) {
	specs, err := m.Config.Specs(m.only)
	if err != nil {
		return Result{}, err
	}

	categories := make([]orchestrator.Category, 0, len(specs))
	for _, spec := range specs {
		checker, ok := m.set.Registry.Get(spec.Name)
		if !ok {
			return Result{}, fmt.Errorf("no checker registered for %q", spec.Name)
		}
		categories = append(categories, orchestrator.Category{
			Checker: checker,
			Options: spec.Options,
			Timeout: spec.Timeout,
		})
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(m.logger.Named("orchestrator")),
		orchestrator.WithAnnotator(remediation.Annotate),
	}
	if m.observer != nil {
		opts = append(opts, orchestrator.WithObserver(m.observer))
	}
	orch, err := orchestrator.New(m.Config.ResolvedTarget(), categories, m.Config.Policy(), opts...)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	report, err := orch.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Report: report, StartedAt: start}

	if cs, ok := res.Report.Category(loadgen.Category); ok && cs.PassCount+cs.FailCount+cs.WarnCount > 0 {
		if summary, ok := m.set.Performance.LastSummary(); ok {
			res.Load = &summary
		}
	}

	m.mu.Lock()
	m.latest = &res
	m.mu.Unlock()
	return res, nil
}

// Start runs immediately and then on every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	defer func() {
		close(m.results)
		close(m.done)
	}()

	m.runAndPublish(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runAndPublish(ctx)
		}
	}
}

func (m *Monitor) runAndPublish(ctx context.Context) {
	res, err := m.RunOnce(ctx)
	if err != nil {
		m.logger.Error("run_failed", zap.Error(err))
		res = Result{Err: err, StartedAt: time.Now()}
	}

	select {
	case m.results <- res:
	case <-ctx.Done():
	}
}

// Latest returns the most recent completed run.
func (m *Monitor) Latest() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return Result{}, false
	}
	return *m.latest, true
}

// Interval is the delay between periodic runs.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Results returns the channel for receiving run results
func (m *Monitor) Results() <-chan Result {
	return m.results
}

// Done returns a channel that's closed when monitoring stops
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Close releases the probe driver's connections.
func (m *Monitor) Close() {
	m.driver.Close()
}
