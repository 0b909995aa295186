package check

import "fmt"

// DefaultWeight is the weight a Result carries unless a checker overrides it.
const DefaultWeight = 1.0

// Result holds the outcome of a single readiness check.
type Result struct {
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Status      Status            `json:"status"`
	Message     string            `json:"message"`
	Weight      float64           `json:"weight"`
	Measured    *float64          `json:"measured,omitempty"`
	Threshold   *float64          `json:"threshold,omitempty"`
	Critical    bool              `json:"critical,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// New returns a Result with the default weight.
func New(name string, status Status, message string) Result {
	return Result{
		Name:    name,
		Status:  status,
		Message: message,
		Weight:  DefaultWeight,
	}
}

func Pass(name, format string, args ...any) Result {
	return New(name, StatusPass, fmt.Sprintf(format, args...))
}

func Fail(name, format string, args ...any) Result {
	return New(name, StatusFail, fmt.Sprintf(format, args...))
}

func Warn(name, format string, args ...any) Result {
	return New(name, StatusWarn, fmt.Sprintf(format, args...))
}

func Error(name, format string, args ...any) Result {
	return New(name, StatusError, fmt.Sprintf(format, args...))
}

// WithWeight returns a copy of r with the given weight.
func (r Result) WithWeight(w float64) Result {
	r.Weight = w
	return r
}

// WithMeasure returns a copy of r carrying the measured value and the
// threshold it was compared against.
func (r Result) WithMeasure(measured, threshold float64) Result {
	r.Measured = &measured
	r.Threshold = &threshold
	return r
}

// WithCritical returns a copy of r flagged as category-blocking.
func (r Result) WithCritical() Result {
	r.Critical = true
	return r
}

// WithDetail returns a copy of r with one more diagnostic entry.
func (r Result) WithDetail(key, value string) Result {
	details := make(map[string]string, len(r.Details)+1)
	for k, v := range r.Details {
		details[k] = v
	}
	details[key] = value
	r.Details = details
	return r
}

// Blocking reports whether r is a critical result that did not pass.
func (r Result) Blocking() bool {
	return r.Critical && (r.Status == StatusFail || r.Status == StatusError)
}
