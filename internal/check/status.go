package check

import "strings"

// Status is the outcome of a single check.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusWarn  Status = "WARN"
	StatusError Status = "ERROR"
)

// statusAliases maps checker-specific wording onto the four statuses.
// Every checker reports through ParseStatus so there is exactly one table.
var statusAliases = map[string]Status{
	"pass":      StatusPass,
	"passed":    StatusPass,
	"ok":        StatusPass,
	"success":   StatusPass,
	"healthy":   StatusPass,
	"ready":     StatusPass,
	"fail":      StatusFail,
	"failed":    StatusFail,
	"failure":   StatusFail,
	"critical":  StatusFail,
	"unhealthy": StatusFail,
	"warn":      StatusWarn,
	"warning":   StatusWarn,
	"degraded":  StatusWarn,
	"info":      StatusWarn,
	"error":     StatusError,
	"timeout":   StatusError,
	"unknown":   StatusError,
	"skipped":   StatusError,
}

// ParseStatus translates a status word into a Status. Unknown words map to
// StatusError with ok=false.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return StatusError, false
	}
	return st, true
}

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarn, StatusError:
		return true
	}
	return false
}

// Symbol returns the short marker used by the text renderers.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusFail:
		return "✗"
	case StatusWarn:
		return "!"
	default:
		return "?"
	}
}
