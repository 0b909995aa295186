package monitor

import (
	"time"

	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/score"
)

// Result is the outcome of one readiness run.
type Result struct {
	Report score.Report
	// Load is the load run summary when the performance category produced
	// one in this run.
	Load *loadgen.Summary
	// Err is set when the run could not be started at all.
	Err       error
	StartedAt time.Time
}
