package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/probe"
)

// Generator drives many probes concurrently against a target.
type Generator struct {
	driver *probe.Driver
	logger *zap.Logger
}

func New(driver *probe.Driver, logger *zap.Logger) *Generator {
	if driver == nil {
		driver = probe.NewDriver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{driver: driver, logger: logger}
}

// Run executes one load run and summarizes it. It returns an error only for
// a configuration that cannot run; probe failures are part of the Summary.
//
// Cancelling ctx stops workers at their next probe boundary. The samples
// collected so far are still summarized and the Summary is marked partial.
func (g *Generator) Run(ctx context.Context, cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	col := newCollector(cfg.abortAfter())
	start := time.Now()
	deadline := start.Add(cfg.Duration)

	var (
		wg  sync.WaitGroup
		seq atomic.Uint64
	)
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if runCtx.Err() != nil || !time.Now().Before(deadline) {
					return
				}
				req := cfg.Targets[(seq.Add(1)-1)%uint64(len(cfg.Targets))]
				sample, err := g.driver.Probe(runCtx, req)
				if err != nil {
					g.logger.Error("probe_rejected", zap.String("url", req.URL), zap.Error(err))
					stop()
					return
				}
				if col.add(sample) {
					stop()
				}
			}
		}()
	}
	wg.Wait()

	samples, aborted := col.snapshot()
	summary := Summarize(samples, time.Since(start))
	if aborted {
		summary.Aborted = true
		summary.AbortReason = fmt.Sprintf("target unreachable for the first %d consecutive probes", cfg.abortAfter())
		g.logger.Warn("load_run_aborted",
			zap.String("reason", summary.AbortReason),
			zap.Int("probes", summary.TotalRequests),
		)
	}
	if ctx.Err() != nil {
		summary.Partial = true
	}

	g.logger.Info("load_run_finished",
		zap.Int("concurrency", cfg.Concurrency),
		zap.Duration("duration", cfg.Duration),
		zap.Int("total", summary.TotalRequests),
		zap.Int("successful", summary.SuccessfulRequests),
		zap.Float64("error_rate", summary.ErrorRate),
		zap.Float64("p95_ms", summary.LatencyP95MS),
		zap.Float64("throughput_rps", summary.ThroughputRPS),
		zap.Bool("partial", summary.Partial),
	)
	return summary, nil
}
