package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/orchestrator"
	"github.com/juststeveking/readycheck/internal/score"
)

func newTestModel() Model {
	return NewModel("http://svc.test", []string{"security", "api"}, nil, nil, nil)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestUpdate_Events(t *testing.T) {
	m := newTestModel()

	m = update(t, m, eventMsg(orchestrator.Event{Kind: orchestrator.EventStarted, Category: "security"}))
	assert.True(t, m.categories[0].Running)
	assert.Equal(t, 0, m.completed())

	m = update(t, m, eventMsg(orchestrator.Event{
		Kind:     orchestrator.EventFinished,
		Category: "security",
		Duration: 40 * time.Millisecond,
		Results: []check.Result{
			check.New("https", check.StatusPass, "ok"),
			check.New("cors", check.StatusWarn, "wildcard"),
		},
	}))
	cs := m.categories[0]
	assert.False(t, cs.Running)
	assert.True(t, cs.Done)
	assert.Equal(t, 1, cs.Counts[check.StatusPass])
	assert.Equal(t, 1, cs.Counts[check.StatusWarn])
	assert.Equal(t, 1, m.completed())

	// Unknown categories are ignored.
	m = update(t, m, eventMsg(orchestrator.Event{Kind: orchestrator.EventStarted, Category: "astrology"}))
	assert.Equal(t, 1, m.completed())
}

func TestUpdate_Result(t *testing.T) {
	m := newTestModel()

	failing := check.New("tls-version", check.StatusFail, "TLS 1.0 negotiated")
	failing.Remediation = "Disable TLS versions below 1.2."
	rep := score.Report{
		Target:       "http://svc.test",
		OverallScore: 62.5,
		Scored:       true,
		Grade:        "D",
		Categories: []score.CategoryScore{
			{Category: "security", FailCount: 1, Scored: true, Score: 0, Status: score.StatusNotReady, Results: []check.Result{failing}},
			{Category: "api", PassCount: 2, Scored: true, Score: 100, Status: score.StatusReady},
		},
	}

	m = update(t, m, resultMsg(monitor.Result{Report: rep}))

	res, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, 62.5, res.Report.OverallScore)
	assert.Equal(t, 2, m.completed())
	require.NotNil(t, m.categories[0].Score)
	assert.Equal(t, 1, m.categories[0].Counts[check.StatusFail])

	text := findingsText(m.categories[0])
	assert.Contains(t, text, "[FAIL] security/tls-version")
	assert.Contains(t, text, "fix: Disable TLS versions below 1.2.")
	assert.Empty(t, findingsText(m.categories[1]))

	view := m.View()
	assert.Contains(t, view, "NOT READY")
	assert.Contains(t, view, "62.5")

	// Events after the result do not reopen categories.
	m = update(t, m, eventMsg(orchestrator.Event{Kind: orchestrator.EventStarted, Category: "api"}))
	assert.False(t, m.categories[1].Running)
}

func TestUpdate_RunError(t *testing.T) {
	m := newTestModel()
	m = update(t, m, resultMsg(monitor.Result{Err: errors.New("boom")}))
	assert.Contains(t, m.View(), "Run failed: boom")
}

func TestUpdate_KeysAndDetail(t *testing.T) {
	cancelled := false
	m := NewModel("http://svc.test", []string{"security", "api"}, nil, nil, func() { cancelled = true })

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.selectedIndex)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.selectedIndex, "selection wraps around")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.showDetail)
	assert.True(t, strings.Contains(m.View(), "security"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showDetail)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, next.(Model).quitting)
	assert.True(t, cancelled)
	assert.NotNil(t, cmd)
}
