package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxDrain caps how much of a response body is read so the connection can
// be reused.
const maxDrain = 1 << 20

// Driver issues single HTTP probes. It is safe for concurrent use.
type Driver struct {
	client *http.Client
}

// Option configures a Driver.
type Option func(*Driver)

// WithTransport replaces the driver's round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Driver) {
		d.client.Transport = rt
	}
}

// WithMaxConnsPerHost sizes the idle pool so each load worker can keep its
// own connection alive.
func WithMaxConnsPerHost(n int) Option {
	return func(d *Driver) {
		if t, ok := d.client.Transport.(*http.Transport); ok && n > 0 {
			t.MaxIdleConnsPerHost = n
			t.MaxIdleConns = n * 2
		}
	}
}

// NewDriver creates a Driver that never follows redirects.
func NewDriver(opts ...Option) *Driver {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	d := &Driver{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // Report redirects as their own status
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close releases idle connections.
func (d *Driver) Close() {
	d.client.CloseIdleConnections()
}

// Validate reports whether req can be issued.
func Validate(req Request) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRequest, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidRequest, req.URL)
	}
	if strings.ContainsAny(req.method(), " \t\r\n") {
		return fmt.Errorf("%w: bad method %q", ErrInvalidRequest, req.Method)
	}
	return nil
}

// Probe issues exactly one request and measures it. Transport failures and
// non-2xx responses are reported in the Sample; the error is non-nil only
// when the request is malformed. The probe is not interrupted by
// cancellation of ctx, only by its own timeout.
func (d *Driver) Probe(ctx context.Context, req Request) (Sample, error) {
	if err := Validate(req); err != nil {
		return Sample{}, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), req.timeout())
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), req.URL, body)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.AuthToken != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", req.AuthToken))
	}

	sample := Sample{Timestamp: time.Now()}
	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		sample.LatencyMS = elapsedMS(start)
		sample.Outcome = classify(err)
		sample.Message = err.Error()
		return sample, nil
	}
	defer resp.Body.Close()

	_, readErr := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	sample.LatencyMS = elapsedMS(start)
	sample.StatusCode = resp.StatusCode

	switch {
	case readErr != nil && isTimeout(readErr):
		sample.Outcome = OutcomeTimeout
		sample.Message = readErr.Error()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		sample.Outcome = OutcomeHTTPError
		sample.Message = resp.Status
	default:
		sample.Outcome = OutcomeOK
		sample.Succeeded = true
		sample.Message = resp.Status
	}
	return sample, nil
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func classify(err error) Outcome {
	if isTimeout(err) {
		return OutcomeTimeout
	}
	return OutcomeUnreachable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
