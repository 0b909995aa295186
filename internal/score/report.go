package score

import (
	"time"

	"github.com/juststeveking/readycheck/internal/check"
)

// Exit codes of a readiness run.
const (
	ExitReady    = 0
	ExitNotReady = 1
)

// Report is the final verdict of one run. It is built once and handed to
// renderers unchanged.
type Report struct {
	RunID            string          `json:"run_id"`
	Target           string          `json:"target"`
	State            string          `json:"state"`
	Categories       []CategoryScore `json:"categories"`
	OverallScore     float64         `json:"overall_score"`
	Scored           bool            `json:"scored"`
	Grade            string          `json:"grade"`
	Ready            bool            `json:"ready"`
	PassThreshold    float64         `json:"pass_threshold"`
	CriticalFailures []check.Result  `json:"critical_failures"`
	GeneratedAt      time.Time       `json:"generated_at"`
	Duration         time.Duration   `json:"duration"`
}

// ExitCode is 0 when the run is ready for production and 1 otherwise.
func (r Report) ExitCode() int {
	if r.Ready {
		return ExitReady
	}
	return ExitNotReady
}

// Category returns the score of one category.
func (r Report) Category(name string) (CategoryScore, bool) {
	for _, c := range r.Categories {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryScore{}, false
}

// Counts returns the number of results per status across all categories.
func (r Report) Counts() map[check.Status]int {
	out := make(map[check.Status]int, 4)
	for _, c := range r.Categories {
		out[check.StatusPass] += c.PassCount
		out[check.StatusFail] += c.FailCount
		out[check.StatusWarn] += c.WarnCount
		out[check.StatusError] += c.ErrorCount
	}
	return out
}
