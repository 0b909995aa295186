package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/history"
	"github.com/juststeveking/readycheck/internal/logging"
	"github.com/juststeveking/readycheck/internal/metrics"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/notify"
	"github.com/juststeveking/readycheck/internal/orchestrator"
	"github.com/juststeveking/readycheck/internal/report"
	"github.com/juststeveking/readycheck/internal/score"
	"github.com/juststeveking/readycheck/internal/tui"
)

var (
	runOutput      string
	runReportDir   string
	runFormats     []string
	runNoTUI       bool
	runNotify      bool
	runMetricsFile string
	runOnly        []string
	runNoHistory   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every enabled category and print the readiness verdict",
	Long: `Run the readiness checks against the configured target.

Examples:
  readycheck run
  readycheck run --only security,api --output json
  readycheck run --no-tui --report-dir ./reports --formats json,html`,
	RunE: runReadiness,
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runOutput, "output", "o", report.FormatText, "stdout format (text, json)")
	cmd.Flags().StringVar(&runReportDir, "report-dir", "", "directory for report files (overrides report.dir)")
	cmd.Flags().StringSliceVar(&runFormats, "formats", nil, "report file formats (overrides report.formats)")
	cmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "disable the live dashboard")
	cmd.Flags().BoolVar(&runNotify, "notify", false, "send a desktop notification with the verdict")
	cmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().StringSliceVar(&runOnly, "only", nil, "run only these categories")
	cmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the run in the history index")
}

func runReadiness(cmd *cobra.Command, args []string) error {
	if runOutput != report.FormatText && runOutput != report.FormatJSON {
		return configError(fmt.Errorf("--output must be text or json, got %q", runOutput))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	useTUI := !runNoTUI && runOutput == report.FormatText && isatty.IsTerminal(os.Stdout.Fd())

	logger, err := newLogger(cfg, !useTUI)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var res monitor.Result
	if useTUI {
		res, err = runWithTUI(ctx, cancel, cfg, logger)
	} else {
		res, err = runPlain(ctx, cfg, logger)
	}
	if err != nil {
		return err
	}

	if err := publish(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, res, logger); err != nil {
		return err
	}

	if !res.Report.Ready {
		return &exitError{code: score.ExitNotReady}
	}
	return nil
}

func applyRunOverrides(cfg *config.Config) {
	if runReportDir != "" {
		cfg.Report.Dir = runReportDir
	}
	if len(runFormats) > 0 {
		cfg.Report.Formats = runFormats
	}
	if runMetricsFile != "" {
		cfg.Report.MetricsFile = runMetricsFile
	}
	if runNotify {
		cfg.Notify = true
	}
	if runNoHistory {
		cfg.Report.History = false
	}
}

func newLogger(cfg *config.Config, console bool) (*zap.Logger, error) {
	opts := logging.Options{Dir: cfg.Logging.Dir, Level: cfg.Logging.Level}
	if verbose {
		opts.Level = "debug"
		if console {
			opts.Console = os.Stderr
		}
	}
	logger, err := logging.NewLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func runPlain(ctx context.Context, cfg *config.Config, logger *zap.Logger) (monitor.Result, error) {
	mon, err := monitor.NewMonitor(cfg, monitor.WithLogger(logger), monitor.WithCategories(runOnly))
	if err != nil {
		return monitor.Result{}, configError(err)
	}
	defer mon.Close()

	return mon.RunOnce(ctx)
}

func runWithTUI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) (monitor.Result, error) {
	specs, err := cfg.Specs(runOnly)
	if err != nil {
		return monitor.Result{}, configError(err)
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}

	events := make(chan orchestrator.Event, 2*len(names))
	mon, err := monitor.NewMonitor(cfg,
		monitor.WithLogger(logger),
		monitor.WithCategories(runOnly),
		monitor.WithObserver(func(e orchestrator.Event) {
			select {
			case events <- e:
			default:
			}
		}),
	)
	if err != nil {
		return monitor.Result{}, configError(err)
	}
	defer mon.Close()

	results := make(chan monitor.Result, 1)
	go func() {
		res, err := mon.RunOnce(ctx)
		if err != nil {
			res = monitor.Result{Err: err, StartedAt: time.Now()}
		}
		results <- res
	}()

	model := tui.NewModel(cfg.ResolvedTarget().BaseURL, names, events, results, cancel)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return monitor.Result{}, fmt.Errorf("failed to start TUI: %w", err)
	}

	res, ok := final.(tui.Model).Result()
	if !ok {
		res = <-results
	}
	return res, res.Err
}

// publish prints the verdict and writes every configured artifact.
func publish(stdout, stderr io.Writer, cfg *config.Config, res monitor.Result, logger *zap.Logger) error {
	doc := report.Document{Report: res.Report, Load: res.Load}

	if runOutput == report.FormatJSON {
		if err := report.WriteJSON(stdout, doc); err != nil {
			return err
		}
	} else if err := report.WriteText(stdout, doc, verbose); err != nil {
		return err
	}

	if cfg.Report.Dir != "" && len(cfg.Report.Formats) > 0 {
		paths, err := report.WriteAll(cfg.Report.Dir, doc, cfg.Report.Formats)
		if err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}
		fmt.Fprintf(stderr, "Reports written: %s\n", strings.Join(paths, ", "))
	}

	var trend *history.Trend
	if cfg.Report.History && cfg.Report.Dir != "" {
		t, err := history.NewStore(cfg.Report.Dir, cfg.Report.HistoryLimit).Record(res.Report)
		if err != nil {
			logger.Warn("history_record_failed", zap.Error(err))
		} else {
			trend = &t
			fmt.Fprintln(stderr, describeTrend(t))
		}
	}

	if cfg.Report.MetricsFile != "" {
		rec := metrics.NewRecorder(false)
		rec.Observe(res.Report, res.Load)
		if err := rec.WriteTextfile(cfg.Report.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	notifier := notify.NewNotifier(cfg.Notify)
	if err := notifier.NotifyVerdict(res.Report); err != nil {
		logger.Warn("notify_failed", zap.Error(err))
	}
	if trend != nil {
		if err := notifier.NotifyTrend(res.Report, *trend); err != nil {
			logger.Warn("notify_failed", zap.Error(err))
		}
	}
	return nil
}

func describeTrend(t history.Trend) string {
	switch t.Kind {
	case history.TrendFirstRun:
		return "Trend: first recorded run"
	case history.TrendSame:
		return "Trend: unchanged since the previous run"
	}
	line := fmt.Sprintf("Trend: %s (%+.1f since %s)", strings.ToLower(string(t.Kind)), t.Delta, t.Previous.Timestamp.Format("2006-01-02 15:04"))
	if len(t.Regressions) > 0 {
		line += "; regressed: " + strings.Join(t.Regressions, ", ")
	}
	return line
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
