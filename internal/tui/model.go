package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/orchestrator"
	"github.com/juststeveking/readycheck/internal/score"
)

// Model is the live dashboard of one readiness run.
type Model struct {
	target     string
	categories []CategoryState
	width      int
	height     int
	startedAt  time.Time
	quitting   bool
	cancel     func()

	events  <-chan orchestrator.Event
	results <-chan monitor.Result
	result  *monitor.Result

	spinner       spinner.Model
	progress      progress.Model
	selectedIndex int
	showDetail    bool
	clipboardMsg  string
	clipboardTime time.Time
}

// CategoryState tracks one category through the run.
type CategoryState struct {
	Name     string
	Running  bool
	Done     bool
	Aborted  bool
	Duration time.Duration
	Counts   map[check.Status]int
	Score    *score.CategoryScore
}

// NewModel creates the dashboard for the given categories. Events and the
// final result are read from the channels; cancel stops the run on quit.
func NewModel(target string, categories []string, events <-chan orchestrator.Event, results <-chan monitor.Result, cancel func()) Model {
	states := make([]CategoryState, len(categories))
	for i, name := range categories {
		states[i] = CategoryState{Name: name, Counts: map[check.Status]int{}}
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(colorChecking)

	return Model{
		target:     target,
		categories: states,
		startedAt:  time.Now(),
		cancel:     cancel,
		events:     events,
		results:    results,
		spinner:    s,
		progress:   progress.New(progress.WithGradient(string(colorAccent), string(colorHealthy)), progress.WithoutPercentage()),
	}
}

// Result returns the final run result once it has arrived.
func (m Model) Result() (monitor.Result, bool) {
	if m.result == nil {
		return monitor.Result{}, false
	}
	return *m.result, true
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		waitForResult(m.results),
		m.spinner.Tick,
		doTick(),
	)
}

type eventMsg orchestrator.Event

// waitForEvent listens for orchestrator events
func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// resultMsg wraps a monitor result for Bubble Tea
type resultMsg monitor.Result

func waitForResult(results <-chan monitor.Result) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-results)
	}
}

// tickMsg is sent on every tick
type tickMsg time.Time

// doTick returns a command that waits for the next tick
func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clipboardMsg is sent when clipboard operation completes
type clipboardMsg struct {
	success bool
	message string
}
