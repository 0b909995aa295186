package notify

import (
	"fmt"
	"strings"

	"github.com/martinlindhe/notify"

	"github.com/juststeveking/readycheck/internal/history"
	"github.com/juststeveking/readycheck/internal/score"
)

const appName = "readycheck"

// SendFunc delivers one desktop notification.
type SendFunc func(app, title, message, icon string)

// Notifier sends desktop notifications for readiness verdicts
type Notifier struct {
	enabled bool
	send    SendFunc
}

// NewNotifier creates a new notifier instance
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send:    notify.Notify,
	}
}

// WithSender replaces the delivery function.
func (n *Notifier) WithSender(fn SendFunc) *Notifier {
	n.send = fn
	return n
}

// NotifyVerdict sends the grade and verdict of a finished run
func (n *Notifier) NotifyVerdict(r score.Report) error {
	if !n.enabled {
		return nil
	}

	var title string
	switch {
	case !r.Scored:
		title = "⚠️  Readiness could not be scored"
	case r.Ready:
		title = fmt.Sprintf("✅ Ready for production (%s)", r.Grade)
	default:
		title = fmt.Sprintf("❌ Not ready for production (%s)", r.Grade)
	}

	message := fmt.Sprintf("%s scored %.1f/100", r.Target, r.OverallScore)
	if count := len(r.CriticalFailures); count > 0 {
		names := make([]string, 0, count)
		for _, c := range r.CriticalFailures {
			names = append(names, c.Category+"/"+c.Name)
		}
		message += fmt.Sprintf(" · %d critical: %s", count, strings.Join(names, ", "))
	}

	n.send(appName, title, message, "")
	return nil
}

// NotifyTrend sends a notification when the score regressed since the
// previous run
func (n *Notifier) NotifyTrend(r score.Report, t history.Trend) error {
	if !n.enabled || t.Kind != history.TrendDeclining {
		return nil
	}

	title := fmt.Sprintf("📉 %s readiness dropped %.1f points", r.Target, -t.Delta)
	message := fmt.Sprintf("Now %.1f (%s)", r.OverallScore, r.Grade)
	if t.Previous != nil {
		message += fmt.Sprintf(", was %.1f (%s)", t.Previous.Score, t.Previous.Grade)
	}
	if len(t.Regressions) > 0 {
		message += ". Regressed: " + strings.Join(t.Regressions, ", ")
	}

	n.send(appName, title, message, "")
	return nil
}
