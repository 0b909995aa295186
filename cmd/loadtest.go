package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/probe"
	"github.com/juststeveking/readycheck/internal/report"
)

var (
	loadConcurrency int
	loadDuration    string
	loadEndpoints   []string
	loadJSON        bool
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Run only the load generator against the target",
	Long: `Drive concurrent probes against the target for a fixed duration and print
the latency, throughput and error rate summary.

Examples:
  readycheck loadtest
  readycheck loadtest --concurrency 50 --duration 1m --endpoint /api/users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return configError(err)
		}

		target := cfg.ResolvedTarget()
		if len(loadEndpoints) > 0 {
			target.Endpoints = loadEndpoints
		}

		overrides := check.Options{}
		if loadConcurrency > 0 {
			overrides["concurrency"] = loadConcurrency
		}
		if loadDuration != "" {
			overrides["duration"] = loadDuration
		}
		opts := check.Options(cfg.Categories[config.CategoryPerformance].Options).Merge(overrides)
		lc := loadgen.ConfigFromOptions(target, opts)
		if err := lc.Validate(); err != nil {
			return configError(err)
		}

		logger, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		driver := probe.NewDriver(probe.WithMaxConnsPerHost(lc.Concurrency))
		defer driver.Close()

		if !loadJSON {
			fmt.Fprintf(cmd.ErrOrStderr(), "Probing %s with %d workers for %s...\n", target.BaseURL, lc.Concurrency, lc.Duration)
		}
		summary, err := loadgen.New(driver, logger.Named("loadgen")).Run(ctx, lc)
		if err != nil {
			return err
		}
		results := loadgen.Evaluate(summary, lc.Thresholds)

		if loadJSON {
			return writeIndentedJSON(cmd.OutOrStdout(), map[string]any{"summary": summary, "results": results})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Requests:    %s (%s successful)\n", humanize.Comma(int64(summary.TotalRequests)), humanize.Comma(int64(summary.SuccessfulRequests)))
		fmt.Fprintf(out, "Elapsed:     %s\n", report.FormatDuration(summary.Elapsed))
		fmt.Fprintf(out, "Throughput:  %.1f req/s\n", summary.ThroughputRPS)
		fmt.Fprintf(out, "Error rate:  %.2f%%\n", summary.ErrorRate*100)
		if summary.LatencyDefined {
			fmt.Fprintf(out, "Latency:     avg %.1fms  p50 %.1fms  p95 %.1fms  p99 %.1fms  max %.1fms\n",
				summary.LatencyAvgMS, summary.LatencyP50MS, summary.LatencyP95MS, summary.LatencyP99MS, summary.LatencyMaxMS)
		} else {
			fmt.Fprintln(out, "Latency:     undefined (no successful probe)")
		}
		for outcome, n := range summary.Outcomes {
			fmt.Fprintf(out, "  %-12s %s\n", outcome, humanize.Comma(int64(n)))
		}

		fmt.Fprintln(out)
		failed := false
		for _, r := range results {
			fmt.Fprintf(out, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
			if r.Status == check.StatusFail || r.Status == check.StatusError {
				failed = true
			}
		}
		if failed {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().IntVar(&loadConcurrency, "concurrency", 0, "concurrent workers (overrides categories.performance.options)")
	loadtestCmd.Flags().StringVar(&loadDuration, "duration", "", "run duration, e.g. 30s")
	loadtestCmd.Flags().StringSliceVar(&loadEndpoints, "endpoint", nil, "paths to probe round-robin")
	loadtestCmd.Flags().BoolVar(&loadJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(loadtestCmd)
}
