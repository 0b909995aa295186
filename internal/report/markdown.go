package report

import (
	"fmt"
	"io"
	"strings"
)

// WriteMarkdown renders doc as a Markdown document.
func WriteMarkdown(w io.Writer, doc Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Readiness report: %s\n\n", doc.Target)
	fmt.Fprintf(&b, "- **Verdict:** %s\n", Verdict(doc.Report))
	if doc.Scored {
		fmt.Fprintf(&b, "- **Score:** %.1f / 100 (grade %s, threshold %.0f)\n", doc.OverallScore, doc.Grade, doc.PassThreshold)
	}
	fmt.Fprintf(&b, "- **Run:** `%s` at %s (%s)\n\n", doc.RunID, doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"), FormatDuration(doc.Duration))

	b.WriteString("| Category | Score | Status | Pass | Fail | Warn | Error |\n")
	b.WriteString("|---|---:|---|---:|---:|---:|---:|\n")
	for _, cs := range doc.Categories {
		scoreText := "-"
		if cs.Scored {
			scoreText = fmt.Sprintf("%.1f", cs.Score)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d | %d |\n",
			cs.Category, scoreText, Status(cs.Status), cs.PassCount, cs.FailCount, cs.WarnCount, cs.ErrorCount)
	}

	if len(doc.CriticalFailures) > 0 {
		b.WriteString("\n## Critical failures\n\n")
		for _, r := range doc.CriticalFailures {
			fmt.Fprintf(&b, "- **%s/%s** (%s): %s\n", r.Category, r.Name, r.Status, escapeMD(r.Message))
		}
	}

	if doc.Load != nil {
		l := doc.Load
		b.WriteString("\n## Load run\n\n")
		fmt.Fprintf(&b, "%d requests in %s, %.1f req/s, error rate %.2f%%. ", l.TotalRequests, FormatDuration(l.Elapsed), l.ThroughputRPS, l.ErrorRate*100)
		fmt.Fprintf(&b, "Latency avg %s, p95 %s, p99 %s.\n", formatLatency(l.LatencyAvgMS), formatLatency(l.LatencyP95MS), formatLatency(l.LatencyP99MS))
	}

	for _, cs := range doc.Categories {
		items := findings(cs)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title(cs.Category))
		b.WriteString("| Check | Status | Message | Remediation |\n|---|---|---|---|\n")
		for _, r := range items {
			fmt.Fprintf(&b, "| %s | %s %s | %s | %s |\n", r.Name, r.Status.Symbol(), r.Status, escapeMD(r.Message), escapeMD(r.Remediation))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeMD(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
