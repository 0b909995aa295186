package loadgen

import (
	"errors"
	"fmt"
	"time"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/probe"
)

const (
	DefaultConcurrency  = 10
	DefaultDuration     = 30 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultAbortAfter   = 5

	DefaultMaxErrorRate     = 0.05
	DefaultMaxP95MS         = 750
	DefaultMaxAvgMS         = 500
	DefaultMinThroughputRPS = 5
)

// ErrInvalidConfig is returned by Run for a configuration that cannot run.
var ErrInvalidConfig = errors.New("invalid load configuration")

// Config describes one load run.
type Config struct {
	// Targets are probed round-robin; one target is the common case.
	Targets     []probe.Request
	Concurrency int
	Duration    time.Duration
	// AbortAfter stops the run once this many probes in a row, before any
	// probe got through, found the target unreachable. Zero means
	// DefaultAbortAfter; negative disables the check.
	AbortAfter int
	Thresholds Thresholds
}

// Thresholds are the pass/fail limits applied to a Summary. Comparisons
// are strict: a value equal to its limit passes.
type Thresholds struct {
	MaxErrorRate float64      `json:"max_error_rate"`
	MaxP95MS     float64      `json:"max_p95_ms"`
	P95Severity  check.Status `json:"p95_severity"`
	// Optional limits; zero disables them.
	MaxP99MS         float64 `json:"max_p99_ms,omitempty"`
	MaxAvgMS         float64 `json:"max_avg_ms,omitempty"`
	MinThroughputRPS float64 `json:"min_throughput_rps,omitempty"`
}

// DefaultThresholds returns the documented default limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxErrorRate:     DefaultMaxErrorRate,
		MaxP95MS:         DefaultMaxP95MS,
		P95Severity:      check.StatusFail,
		MaxAvgMS:         DefaultMaxAvgMS,
		MinThroughputRPS: DefaultMinThroughputRPS,
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalidConfig)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, c.Duration)
	}
	for _, t := range c.Targets {
		if t.Timeout < 0 {
			return fmt.Errorf("%w: probe timeout must be positive", ErrInvalidConfig)
		}
		if err := probe.Validate(t); err != nil {
			return err
		}
	}
	return c.Thresholds.Validate()
}

func (t Thresholds) Validate() error {
	if t.MaxErrorRate < 0 || t.MaxErrorRate > 1 {
		return fmt.Errorf("%w: max_error_rate must be within [0,1], got %v", ErrInvalidConfig, t.MaxErrorRate)
	}
	if t.MaxP95MS <= 0 {
		return fmt.Errorf("%w: max_p95_ms must be positive, got %v", ErrInvalidConfig, t.MaxP95MS)
	}
	if t.MaxP99MS < 0 || t.MaxAvgMS < 0 || t.MinThroughputRPS < 0 {
		return fmt.Errorf("%w: optional limits must not be negative", ErrInvalidConfig)
	}
	switch t.P95Severity {
	case "", check.StatusFail, check.StatusWarn:
	default:
		return fmt.Errorf("%w: p95_severity must be FAIL or WARN, got %q", ErrInvalidConfig, t.P95Severity)
	}
	return nil
}

func (c Config) abortAfter() int {
	if c.AbortAfter == 0 {
		return DefaultAbortAfter
	}
	return c.AbortAfter
}
