package probe

import (
	"errors"
	"net/http"
	"time"
)

// ErrInvalidRequest is returned when a request cannot be issued at all.
var ErrInvalidRequest = errors.New("invalid probe request")

// DefaultTimeout bounds a probe when the request does not set one.
const DefaultTimeout = 5 * time.Second

// Outcome classifies how a probe ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeHTTPError   Outcome = "http_error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeUnreachable Outcome = "unreachable"
)

// Request describes one HTTP request to issue.
type Request struct {
	URL       string
	Method    string
	Headers   map[string]string
	Body      []byte
	Timeout   time.Duration
	AuthToken string
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// Sample is the measured outcome of a single probe.
type Sample struct {
	LatencyMS  float64   `json:"latency_ms"`
	Succeeded  bool      `json:"succeeded"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message,omitempty"`
}
