package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/history"
	"github.com/juststeveking/readycheck/internal/metrics"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/notify"
	"github.com/juststeveking/readycheck/internal/report"
	"github.com/juststeveking/readycheck/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Re-certify the target periodically and expose the verdict over HTTP",
	Long: `Run the readiness checks every serve.interval and serve the latest verdict:

  /readyz   200 when the latest run is ready, 503 otherwise
  /report   latest report (?format=json|text|markdown|html)
  /history  recorded runs
  /metrics  Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Serve.Addr = serveAddr
		}

		logger, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer logger.Sync()

		mon, err := monitor.NewMonitor(cfg, monitor.WithLogger(logger))
		if err != nil {
			return configError(err)
		}
		defer mon.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		rec := metrics.NewRecorder(true)
		var store *history.Store
		if cfg.Report.History && cfg.Report.Dir != "" {
			store = history.NewStore(cfg.Report.Dir, cfg.Report.HistoryLimit)
		}
		notifier := notify.NewNotifier(cfg.Notify)

		srv := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           server.NewServer(logger.Named("http"), mon, rec.Handler(), store).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http_server_failed", zap.Error(err))
				cancel()
			}
		}()
		logger.Info("serving", zap.String("addr", cfg.Serve.Addr), zap.Duration("interval", mon.Interval()))
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving readiness on %s, re-checking every %s\n", cfg.Serve.Addr, mon.Interval())

		go mon.Start(ctx)

		for res := range mon.Results() {
			if res.Err != nil {
				continue
			}
			rec.Observe(res.Report, res.Load)
			logger.Info("run_completed",
				zap.String("run_id", res.Report.RunID),
				zap.Float64("score", res.Report.OverallScore),
				zap.String("verdict", report.Verdict(res.Report)),
			)

			if len(cfg.Report.Formats) > 0 && cfg.Report.Dir != "" {
				doc := report.Document{Report: res.Report, Load: res.Load}
				if _, err := report.WriteAll(cfg.Report.Dir, doc, cfg.Report.Formats); err != nil {
					logger.Warn("report_write_failed", zap.Error(err))
				}
			}
			if cfg.Report.MetricsFile != "" {
				if err := rec.WriteTextfile(cfg.Report.MetricsFile); err != nil {
					logger.Warn("metrics_write_failed", zap.Error(err))
				}
			}
			if store != nil {
				trend, err := store.Record(res.Report)
				if err != nil {
					logger.Warn("history_record_failed", zap.Error(err))
					continue
				}
				if err := notifier.NotifyTrend(res.Report, trend); err != nil {
					logger.Warn("notify_failed", zap.Error(err))
				}
			}
		}
		<-mon.Done()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides serve.addr)")
	rootCmd.AddCommand(serveCmd)
}
