package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/report"
	"github.com/juststeveking/readycheck/internal/score"
)

var (
	colorAccent    = lipgloss.Color("#04D9FF") // Neon Cyan
	colorHealthy   = lipgloss.Color("#00FF94") // Neon Green
	colorUnhealthy = lipgloss.Color("#FF0055") // Neon Red
	colorChecking  = lipgloss.Color("#FFD700") // Gold
	colorMuted     = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle    = lipgloss.Color("#24283b") // Dark Blue
	colorCard      = lipgloss.Color("#16161e") // Very Dark Blue
	colorText      = lipgloss.Color("#c0caf5") // Light Blue/White

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1).
			MarginBottom(1)

	healthyStyle = lipgloss.NewStyle().
			Foreground(colorHealthy).
			Bold(true)

	unhealthyStyle = lipgloss.NewStyle().
			Foreground(colorUnhealthy).
			Bold(true)

	checkingStyle = lipgloss.NewStyle().
			Foreground(colorChecking).
			Bold(true)

	baseCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Background(colorCard).
			Padding(0, 1).
			MarginBottom(1)

	metadataStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorUnhealthy)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	secondaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// View renders the run dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width < 40 {
		width = 80
	}

	if m.showDetail && len(m.categories) > 0 {
		return lipgloss.Place(
			width,
			max(m.height, 10),
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent).
				Padding(1, 2).
				Width(min(width-4, 100)).
				Render(m.renderDetail(m.categories[m.selectedIndex])),
		)
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")

	b.WriteString(m.renderProgress())
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Categories"))
	b.WriteString("\n")
	for i, cs := range m.categories {
		b.WriteString(m.renderRow(cs, i == m.selectedIndex))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(m.renderVerdict(width))
	}

	// Footer: [Time] [Help] [Status]
	timeStr := time.Now().Format("15:04:05")
	helpStr := "Details: enter │ Copy findings: c │ Quit: q"

	status := fmt.Sprintf("%d/%d done", m.completed(), len(m.categories))
	if m.clipboardMsg != "" && time.Since(m.clipboardTime) < 3*time.Second {
		status = m.clipboardMsg
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorSubtle).
		Width(width).
		PaddingTop(1)

	left := fmt.Sprintf(" %s │ %s", timeStr, helpStr)
	right := status + " "
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(left + strings.Repeat(" ", gap) + right))
	b.WriteString("\n")

	return b.String()
}

// renderHeader renders the title, the target and the running result counts
func (m Model) renderHeader(width int) string {
	counts := map[check.Status]int{}
	for _, cs := range m.categories {
		for status, n := range cs.Counts {
			counts[status] += n
		}
	}

	titleRendered := titleStyle.Render("READYCHECK") + metadataStyle.Render("  "+m.target)

	stats := fmt.Sprintf("%s  %s  %s  %s",
		healthyStyle.Render(fmt.Sprintf("● %d", counts[check.StatusPass])),
		unhealthyStyle.Render(fmt.Sprintf("● %d", counts[check.StatusFail])),
		checkingStyle.Render(fmt.Sprintf("● %d", counts[check.StatusWarn])),
		metadataStyle.Render(fmt.Sprintf("● %d", counts[check.StatusError])),
	)

	gap := max(width-lipgloss.Width(titleRendered)-lipgloss.Width(stats)-2, 0)
	header := lipgloss.JoinHorizontal(lipgloss.Center, titleRendered, strings.Repeat(" ", gap), stats)

	return header + "\n" + lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("━", width))
}

func (m Model) renderProgress() string {
	total := len(m.categories)
	done := m.completed()
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}

	elapsed := time.Since(m.startedAt).Truncate(time.Second)
	if m.result != nil && m.result.Err == nil {
		elapsed = m.result.Report.Duration.Truncate(time.Millisecond)
	}

	return fmt.Sprintf("%s %s %s",
		secondaryStyle.Render(fmt.Sprintf("%d/%d", done, total)),
		m.progress.ViewAs(percent),
		secondaryStyle.Render(elapsed.String()),
	)
}

// renderRow renders one category line
func (m Model) renderRow(cs CategoryState, selected bool) string {
	cursor := "  "
	if selected {
		cursor = lipgloss.NewStyle().Foreground(colorAccent).Render("▸ ")
	}

	var icon, state string
	switch {
	case cs.Running:
		icon = m.spinner.View()
		state = checkingStyle.Render("running")
	case cs.Score != nil:
		icon, state = statusIcon(cs.Score.Status), statusStyle(cs.Score.Status).Render(report.Status(cs.Score.Status))
	case cs.Done:
		icon, state = "●", secondaryStyle.Render("scoring")
	default:
		icon, state = secondaryStyle.Render("○"), secondaryStyle.Render("pending")
	}

	var details []string
	if cs.Score != nil && cs.Score.Scored {
		details = append(details, nameStyle.Render(fmt.Sprintf("%5.1f", cs.Score.Score)))
	}
	if cs.Done {
		details = append(details,
			healthyStyle.Render(fmt.Sprintf("%d", cs.Counts[check.StatusPass])),
			unhealthyStyle.Render(fmt.Sprintf("%d", cs.Counts[check.StatusFail])),
			checkingStyle.Render(fmt.Sprintf("%d", cs.Counts[check.StatusWarn])),
			metadataStyle.Render(fmt.Sprintf("%d", cs.Counts[check.StatusError])),
			secondaryStyle.Render(report.FormatDuration(cs.Duration)),
		)
	}
	if cs.Aborted {
		details = append(details, errorStyle.Render("timed out"))
	}

	name := nameStyle.Render(fmt.Sprintf("%-12s", cs.Name))
	line := fmt.Sprintf("%s%s %s %-22s", cursor, icon, name, state)
	if len(details) > 0 {
		line += " " + strings.Join(details, secondaryStyle.Render(" • "))
	}
	return line
}

// renderVerdict renders the final score card
func (m Model) renderVerdict(width int) string {
	res := m.result
	if res.Err != nil {
		return baseCardStyle.Width(min(width-2, 80)).BorderForeground(colorUnhealthy).
			Render(errorStyle.Render("Run failed: " + res.Err.Error()))
	}

	r := res.Report
	border := colorHealthy
	verdictStyle := healthyStyle
	if !r.Ready {
		border = colorUnhealthy
		verdictStyle = unhealthyStyle
	}

	var b strings.Builder
	b.WriteString(verdictStyle.Render(report.Verdict(r)))
	b.WriteString("\n")
	if r.Scored {
		fmt.Fprintf(&b, "%s %s   %s %s\n",
			secondaryStyle.Render("score"), nameStyle.Render(fmt.Sprintf("%.1f", r.OverallScore)),
			secondaryStyle.Render("grade"), nameStyle.Render(r.Grade))
	} else {
		b.WriteString(secondaryStyle.Render("no scorable results"))
		b.WriteString("\n")
	}
	for _, f := range r.CriticalFailures {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s/%s: %s", f.Category, f.Name, f.Message)))
		b.WriteString("\n")
	}

	return baseCardStyle.Width(min(width-2, 80)).BorderForeground(border).Render(strings.TrimRight(b.String(), "\n"))
}

// renderDetail lists the results of one category
func (m Model) renderDetail(cs CategoryState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(cs.Name))
	b.WriteString("\n")

	if cs.Score == nil {
		b.WriteString(secondaryStyle.Render("Results are shown once the run completes."))
		b.WriteString("\n\n")
		b.WriteString(secondaryStyle.Render("esc to close"))
		return b.String()
	}

	for _, r := range cs.Score.Results {
		fmt.Fprintf(&b, "%s %s %s\n", resultIcon(r.Status), nameStyle.Render(r.Name), secondaryStyle.Render(r.Message))
		if r.Status != check.StatusPass && r.Remediation != "" {
			b.WriteString(metadataStyle.Render("    → " + r.Remediation))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(secondaryStyle.Render("esc to close"))
	return b.String()
}

func statusStyle(s score.CategoryStatus) lipgloss.Style {
	switch s {
	case score.StatusReady:
		return healthyStyle
	case score.StatusNeedsAttention:
		return checkingStyle
	case score.StatusNotReady:
		return unhealthyStyle
	default:
		return secondaryStyle
	}
}

func statusIcon(s score.CategoryStatus) string {
	switch s {
	case score.StatusReady:
		return healthyStyle.Render("✓")
	case score.StatusNeedsAttention:
		return checkingStyle.Render("!")
	case score.StatusNotReady:
		return unhealthyStyle.Render("✗")
	default:
		return secondaryStyle.Render("?")
	}
}

func resultIcon(s check.Status) string {
	switch s {
	case check.StatusPass:
		return healthyStyle.Render("✓")
	case check.StatusFail:
		return unhealthyStyle.Render("✗")
	case check.StatusWarn:
		return checkingStyle.Render("!")
	default:
		return metadataStyle.Render("?")
	}
}
