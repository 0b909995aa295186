package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/orchestrator"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle detail modal interactions
	if m.showDetail {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc", "enter":
				m.showDetail = false
				return m, nil
			}
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter":
			if len(m.categories) > 0 {
				m.showDetail = true
			}
		case "c":
			if len(m.categories) > 0 {
				return m, copyFindings(m.categories[m.selectedIndex])
			}
		case "up", "k", "shift+tab":
			m.moveSelection(-1)
		case "down", "j", "tab":
			m.moveSelection(1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(msg.Width-24, 10)

	case eventMsg:
		m.applyEvent(orchestrator.Event(msg))
		return m, waitForEvent(m.events)

	case resultMsg:
		res := monitor.Result(msg)
		m.applyResult(res)
		return m, nil

	case clipboardMsg:
		m.clipboardMsg = msg.message
		m.clipboardTime = time.Now()

	case spinner.TickMsg:
		if m.result != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.result != nil {
			return m, nil
		}
		return m, doTick()
	}

	return m, nil
}

// applyEvent moves a category through its lifecycle.
func (m *Model) applyEvent(e orchestrator.Event) {
	if m.result != nil {
		return
	}
	cs := m.category(e.Category)
	if cs == nil {
		return
	}

	switch e.Kind {
	case orchestrator.EventStarted:
		cs.Running = true
	case orchestrator.EventFinished:
		cs.Running = false
		cs.Done = true
		cs.Aborted = e.Aborted
		cs.Duration = e.Duration
		cs.Counts = map[check.Status]int{}
		for _, r := range e.Results {
			cs.Counts[r.Status]++
		}
	}
}

// applyResult settles every category from the final report.
func (m *Model) applyResult(res monitor.Result) {
	m.result = &res
	if res.Err != nil {
		return
	}
	for i := range m.categories {
		cs := &m.categories[i]
		score, ok := res.Report.Category(cs.Name)
		if !ok {
			continue
		}
		cs.Running = false
		cs.Done = true
		cs.Aborted = score.Aborted
		cs.Duration = score.Duration
		cs.Score = &score
		cs.Counts = map[check.Status]int{
			check.StatusPass:  score.PassCount,
			check.StatusFail:  score.FailCount,
			check.StatusWarn:  score.WarnCount,
			check.StatusError: score.ErrorCount,
		}
	}
}

func (m *Model) category(name string) *CategoryState {
	for i := range m.categories {
		if m.categories[i].Name == name {
			return &m.categories[i]
		}
	}
	return nil
}

// completed is the number of finished categories.
func (m Model) completed() int {
	n := 0
	for _, cs := range m.categories {
		if cs.Done {
			n++
		}
	}
	return n
}

// copyFindings puts the non-passing results of a category and their
// remediation on the clipboard.
func copyFindings(cs CategoryState) tea.Cmd {
	return func() tea.Msg {
		text := findingsText(cs)
		if text == "" {
			return clipboardMsg{success: false, message: "Nothing to copy for " + cs.Name}
		}
		if err := clipboard.WriteAll(text); err != nil {
			return clipboardMsg{success: false, message: "Clipboard unavailable: " + err.Error()}
		}
		return clipboardMsg{success: true, message: "Copied " + cs.Name + " findings"}
	}
}

func findingsText(cs CategoryState) string {
	if cs.Score == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range cs.Score.Results {
		if r.Status == check.StatusPass {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s/%s: %s\n", r.Status, cs.Name, r.Name, r.Message)
		if r.Remediation != "" {
			fmt.Fprintf(&b, "  fix: %s\n", r.Remediation)
		}
	}
	return b.String()
}

// moveSelection moves the selected index with wrap-around
func (m *Model) moveSelection(delta int) {
	if len(m.categories) == 0 {
		return
	}
	m.selectedIndex = (m.selectedIndex + delta) % len(m.categories)
	if m.selectedIndex < 0 {
		m.selectedIndex += len(m.categories)
	}
}
