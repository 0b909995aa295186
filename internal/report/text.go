package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/score"
)

var (
	colorAccent = lipgloss.Color("#04D9FF")
	colorPass   = lipgloss.Color("#00FF94")
	colorFail   = lipgloss.Color("#FF0055")
	colorWarn   = lipgloss.Color("#FFD700")
	colorMuted  = lipgloss.Color("#565f89")
	colorText   = lipgloss.Color("#c0caf5")
)

type textStyles struct {
	title, header, muted, name lipgloss.Style
	status                     map[check.Status]lipgloss.Style
	verdict                    map[bool]lipgloss.Style
}

// newTextStyles binds styles to w so color is dropped when w is not a
// terminal.
func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		title:  r.NewStyle().Bold(true).Foreground(colorAccent),
		header: r.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1),
		muted:  r.NewStyle().Foreground(colorMuted),
		name:   r.NewStyle().Bold(true).Foreground(colorText),
		status: map[check.Status]lipgloss.Style{
			check.StatusPass:  r.NewStyle().Foreground(colorPass),
			check.StatusFail:  r.NewStyle().Foreground(colorFail).Bold(true),
			check.StatusWarn:  r.NewStyle().Foreground(colorWarn),
			check.StatusError: r.NewStyle().Foreground(colorMuted).Bold(true),
		},
		verdict: map[bool]lipgloss.Style{
			true:  r.NewStyle().Bold(true).Foreground(colorPass),
			false: r.NewStyle().Bold(true).Foreground(colorFail),
		},
	}
}

// WriteText renders the human-readable report. Passing results are listed
// only when verbose is set.
func WriteText(w io.Writer, doc Document, verbose bool) error {
	st := newTextStyles(w)
	var b strings.Builder

	b.WriteString(st.title.Render("READINESS REPORT") + "  " + st.name.Render(doc.Target) + "\n")
	b.WriteString(st.muted.Render(fmt.Sprintf("run %s · %s · took %s",
		doc.RunID, doc.GeneratedAt.Format("2006-01-02 15:04:05"), FormatDuration(doc.Duration))) + "\n\n")

	counts := doc.Counts()
	overall := "n/a"
	if doc.Scored {
		overall = fmt.Sprintf("%.1f/100", doc.OverallScore)
	}
	fmt.Fprintf(&b, "Overall %s  Grade %s  %s  (threshold %.0f)\n",
		overall, doc.Grade, st.verdict[doc.Ready].Render(Verdict(doc.Report)), doc.PassThreshold)
	b.WriteString(st.muted.Render(fmt.Sprintf("%s checks: %d passed, %d failed, %d warnings, %d errors",
		humanize.Comma(int64(counts[check.StatusPass]+counts[check.StatusFail]+counts[check.StatusWarn]+counts[check.StatusError])),
		counts[check.StatusPass], counts[check.StatusFail], counts[check.StatusWarn], counts[check.StatusError])) + "\n")

	b.WriteString(st.header.Render("CATEGORIES") + "\n")
	fmt.Fprintf(&b, "%-13s %7s  %-16s %4s %4s %4s %4s  %s\n", "CATEGORY", "SCORE", "STATUS", "P", "F", "W", "E", "TIME")
	for _, cs := range doc.Categories {
		scoreText := "-"
		if cs.Scored {
			scoreText = fmt.Sprintf("%.1f", cs.Score)
		}
		fmt.Fprintf(&b, "%-13s %7s  %-16s %4d %4d %4d %4d  %s\n",
			cs.Category, scoreText, Status(cs.Status), cs.PassCount, cs.FailCount, cs.WarnCount, cs.ErrorCount, FormatDuration(cs.Duration))
	}

	if len(doc.CriticalFailures) > 0 {
		b.WriteString(st.header.Render("CRITICAL FAILURES") + "\n")
		for _, r := range doc.CriticalFailures {
			fmt.Fprintf(&b, "  %s %s/%s  %s\n", st.status[r.Status].Render(r.Status.Symbol()), r.Category, r.Name, r.Message)
		}
	}

	if doc.Load != nil {
		l := doc.Load
		b.WriteString(st.header.Render("LOAD RUN") + "\n")
		fmt.Fprintf(&b, "  %s requests in %s · %.1f req/s · error rate %.2f%%\n",
			humanize.Comma(int64(l.TotalRequests)), FormatDuration(l.Elapsed), l.ThroughputRPS, l.ErrorRate*100)
		fmt.Fprintf(&b, "  latency avg %s · p50 %s · p95 %s · p99 %s\n",
			formatLatency(l.LatencyAvgMS), formatLatency(l.LatencyP50MS), formatLatency(l.LatencyP95MS), formatLatency(l.LatencyP99MS))
		if l.Aborted {
			b.WriteString("  " + st.status[check.StatusFail].Render("aborted: "+l.AbortReason) + "\n")
		}
	}

	b.WriteString(st.header.Render("FINDINGS") + "\n")
	shown := false
	for _, cs := range doc.Categories {
		results := cs.Results
		if !verbose {
			results = findings(cs)
		}
		if len(results) == 0 {
			continue
		}
		shown = true
		b.WriteString(st.name.Render(title(cs.Category)) + "\n")
		for _, r := range results {
			fmt.Fprintf(&b, "  %s %-32s %s\n", st.status[r.Status].Render(r.Status.Symbol()), r.Name, r.Message)
			if r.Remediation != "" {
				b.WriteString("      " + st.muted.Render("→ "+r.Remediation) + "\n")
			}
		}
	}
	if !shown {
		b.WriteString("  every check passed\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Status labels a category status for display.
func Status(s score.CategoryStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
