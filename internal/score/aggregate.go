package score

import (
	"time"

	"github.com/juststeveking/readycheck/internal/check"
)

// CategoryStatus is the readiness verdict of one category.
type CategoryStatus string

const (
	StatusReady          CategoryStatus = "READY"
	StatusNeedsAttention CategoryStatus = "NEEDS_ATTENTION"
	StatusNotReady       CategoryStatus = "NOT_READY"
	StatusUnscored       CategoryStatus = "UNSCORED"
)

// CategoryScore summarizes the results of one category.
type CategoryScore struct {
	Category   string         `json:"category"`
	PassCount  int            `json:"pass_count"`
	FailCount  int            `json:"fail_count"`
	WarnCount  int            `json:"warn_count"`
	ErrorCount int            `json:"error_count"`
	Score      float64        `json:"score"`
	Scored     bool           `json:"scored"`
	Status     CategoryStatus `json:"status"`
	Weight     float64        `json:"weight"`
	Duration   time.Duration  `json:"duration"`
	Aborted    bool           `json:"aborted,omitempty"`
	Results    []check.Result `json:"results"`
}

// CategoryInput is what the orchestrator collected for one category.
type CategoryInput struct {
	Category string
	Results  []check.Result
	Duration time.Duration
	Aborted  bool
}

// ScoreCategory computes the weighted score of one category. ERROR results
// are counted but take no part in the score.
func ScoreCategory(in CategoryInput, p Policy) CategoryScore {
	cs := CategoryScore{
		Category: in.Category,
		Weight:   p.Weight(in.Category),
		Duration: in.Duration,
		Aborted:  in.Aborted,
		Results:  make([]check.Result, 0, len(in.Results)),
	}

	var passed, total float64
	for _, r := range in.Results {
		if p.isCritical(in.Category, r.Name) {
			r.Critical = true
		}
		cs.Results = append(cs.Results, r)

		w := r.Weight
		if w < 0 {
			w = 0
		}
		switch r.Status {
		case check.StatusPass:
			cs.PassCount++
			passed += w
			total += w
		case check.StatusWarn:
			cs.WarnCount++
			passed += w * p.WarnCredit
			total += w
		case check.StatusFail:
			cs.FailCount++
			total += w
		default:
			cs.ErrorCount++
		}
	}

	if total > 0 {
		cs.Scored = true
		cs.Score = 100 * passed / total
	}
	cs.Status = p.categoryStatus(cs)
	return cs
}

func (p Policy) categoryStatus(cs CategoryScore) CategoryStatus {
	switch {
	case !cs.Scored && cs.ErrorCount == 0:
		return StatusUnscored
	case !cs.Scored:
		return StatusNotReady
	case cs.Score >= p.ReadyScore && cs.ErrorCount == 0:
		return StatusReady
	case cs.Score >= p.AttentionScore:
		return StatusNeedsAttention
	default:
		return StatusNotReady
	}
}

// Aggregate folds category scores into a Report. Categories keep the order
// of inputs. Categories without any scoreable weight, and categories whose
// configured weight is zero, do not influence the overall score.
func Aggregate(inputs []CategoryInput, p Policy) Report {
	report := Report{
		Categories:    make([]CategoryScore, 0, len(inputs)),
		GeneratedAt:   time.Now().UTC(),
		PassThreshold: p.PassThreshold,
	}

	var weighted, weights float64
	for _, in := range inputs {
		cs := ScoreCategory(in, p)
		report.Categories = append(report.Categories, cs)

		for _, r := range cs.Results {
			if r.Blocking() {
				report.CriticalFailures = append(report.CriticalFailures, r)
			}
		}
		if cs.Scored && cs.Weight > 0 {
			weighted += cs.Score * cs.Weight
			weights += cs.Weight
		}
	}

	if weights > 0 {
		report.OverallScore = weighted / weights
		report.Scored = true
	}
	report.Grade = p.Grades.Grade(report.OverallScore)
	report.Ready = report.Scored &&
		report.OverallScore >= p.PassThreshold &&
		len(report.CriticalFailures) == 0
	return report
}
