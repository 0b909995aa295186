package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "monitoring"

var traceHeaders = []string{"traceparent", "X-Request-ID", "X-Correlation-ID", "X-B3-TraceId", "X-Trace-ID"}

var healthyValues = map[string]bool{"ok": true, "up": true, "pass": true, "healthy": true, "ready": true}

// Checker verifies the target exposes metrics, health and tracing.
type Checker struct {
	client *http.Client
	logger *zap.Logger
}

func New(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

func (c *Checker) Category() string { return Category }

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Checker) get(ctx context.Context, target check.Target, path string, timeout time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL(path), nil)
	if err != nil {
		return nil, err
	}
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}
	if target.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+target.AuthToken)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Checker) Check(ctx context.Context, target check.Target, opts check.Options) ([]check.Result, error) {
	timeout := opts.Duration("request_timeout", 5*time.Second)

	var results []check.Result
	results = append(results, c.checkMetrics(ctx, target, opts, timeout)...)

	health, healthResult := c.checkHealth(ctx, target, opts.Strings("health_paths", []string{"/healthz", "/health"}), timeout)
	results = append(results, healthResult)

	if health != nil {
		results = append(results, checkTracing(health.header))
	} else if resp, err := c.get(ctx, target, "", timeout); err == nil {
		results = append(results, checkTracing(resp.header))
	}
	return results, nil
}

func (c *Checker) checkMetrics(ctx context.Context, target check.Target, opts check.Options, timeout time.Duration) []check.Result {
	path := opts.String("metrics_path", "/metrics")
	resp, err := c.get(ctx, target, path, timeout)
	if err != nil {
		c.logger.Warn("metrics_unreachable", zap.String("path", path), zap.Error(err))
		return []check.Result{check.Error("metrics-endpoint", "could not reach %s: %v", path, err)}
	}
	switch {
	case resp.status == http.StatusNotFound:
		return []check.Result{check.Fail("metrics-endpoint", "%s returned 404", path)}
	case resp.status != http.StatusOK:
		return []check.Result{check.Warn("metrics-endpoint", "%s returned %d", path, resp.status)}
	}

	results := []check.Result{check.Pass("metrics-endpoint", "%s is reachable", path)}

	families, err := ParseMetrics(resp.body)
	if err != nil {
		return append(results, check.Fail("metrics-format", "exposition does not parse: %v", err))
	}
	results = append(results, check.Pass("metrics-format", "%d metric families exposed", len(families)))

	for _, name := range opts.Strings("required_metrics", nil) {
		id := "metric/" + name
		mf, ok := families[name]
		if !ok {
			results = append(results, check.Warn(id, "%s is not exported", name))
			continue
		}
		results = append(results, check.Pass(id, "%s exported as %s", name, strings.ToLower(mf.GetType().String())))
	}
	return results
}

// ParseMetrics decodes a Prometheus text exposition into metric families.
func ParseMetrics(body []byte) (map[string]*dto.MetricFamily, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return families, nil
}

func (c *Checker) checkHealth(ctx context.Context, target check.Target, paths []string, timeout time.Duration) (*response, check.Result) {
	var tried []string
	for _, path := range paths {
		resp, err := c.get(ctx, target, path, timeout)
		if err != nil {
			tried = append(tried, path+" (unreachable)")
			continue
		}
		if resp.status != http.StatusOK {
			tried = append(tried, fmt.Sprintf("%s (%d)", path, resp.status))
			continue
		}

		if gjson.ValidBytes(resp.body) {
			if v := gjson.GetBytes(resp.body, "status"); v.Exists() && !healthyValues[strings.ToLower(v.String())] {
				return resp, check.Warn("health", "%s reports status %q", path, v.String())
			}
		}
		return resp, check.Pass("health", "%s returned 200", path)
	}
	if len(tried) == 0 {
		return nil, check.Warn("health", "no health paths configured")
	}
	return nil, check.Fail("health", "no healthy endpoint: %s", strings.Join(tried, ", "))
}

func checkTracing(h http.Header) check.Result {
	var found []string
	for _, name := range traceHeaders {
		if h.Get(name) != "" {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return check.Warn("tracing", "no trace context headers in responses").WithWeight(0.5)
	}
	sort.Strings(found)
	return check.Pass("tracing", "trace headers: %s", strings.Join(found, ", ")).WithWeight(0.5)
}
