package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past readiness runs and the score trend",
	Long: `Display recent runs recorded in the report directory's history index,
newest last, and compare the latest run with the one before it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := history.NewStore(cfg.Report.Dir, cfg.Report.HistoryLimit)
		entries, err := store.Load()
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}

		if historyJSON {
			return writeIndentedJSON(cmd.OutOrStdout(), entries)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintf(out, "No runs recorded yet in %s\n", store.Path())
			return nil
		}

		fmt.Fprintf(out, "%-16s %-32s %7s %5s %-10s %s\n", "WHEN", "TARGET", "SCORE", "GRADE", "VERDICT", "RUN")
		for _, e := range entries {
			scoreText := "-"
			if e.Scored {
				scoreText = fmt.Sprintf("%.1f", e.Score)
			}
			verdict := "NOT READY"
			if e.Ready {
				verdict = "READY"
			}
			fmt.Fprintf(out, "%-16s %-32s %7s %5s %-10s %s\n",
				humanize.Time(e.Timestamp), truncate(e.Target, 32), scoreText, e.Grade, verdict, e.RunID)
		}

		if len(entries) >= 2 {
			prev, cur := entries[len(entries)-2], entries[len(entries)-1]
			fmt.Fprintln(out)
			fmt.Fprintln(out, describeTrend(history.Compare(&prev, cur)))
		}
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}
