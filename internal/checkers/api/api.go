package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juststeveking/readycheck/internal/check"
)

const (
	Category = "api"

	// OptionEndpoints carries the []Endpoint contract in check.Options.
	OptionEndpoints = "endpoints"

	requestIDHeader = "X-Request-ID"
	maxBody         = 4 << 20
)

// Auth represents authentication for an endpoint.
type Auth struct {
	Type     string // "bearer", "basic", or empty
	Token    string
	Username string
	Password string
}

// Endpoint is one API contract entry.
type Endpoint struct {
	Name           string
	Path           string
	Method         string
	ExpectedStatus int
	ContentType    string
	Headers        map[string]string
	Body           string
	Auth           *Auth
	AuthRequired   bool
	SLA            time.Duration
	RequiredFields []string
	Assertions     []Assertion
}

// Checker validates the API contract of the target.
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
				return http.ErrUseLastResponse // Don't follow redirects
			},
		},
		logger: logger,
	}
}

func (c *Checker) Category() string { return Category }

// Check validates every configured endpoint, a few at a time. Results keep
// the endpoint order.
func (c *Checker) Check(ctx context.Context, target check.Target, opts check.Options) ([]check.Result, error) {
	endpoints, _ := opts[OptionEndpoints].([]Endpoint)
	if len(endpoints) == 0 {
		return c.baseline(ctx, target, opts), nil
	}

	perEndpoint := make([][]check.Result, len(endpoints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Int("concurrency", 4))
	for i, ep := range endpoints {
		g.Go(func() error {
			perEndpoint[i] = c.validate(gctx, target, ep, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []check.Result
	for _, rs := range perEndpoint {
		results = append(results, rs...)
	}
	return results, nil
}

// baseline runs when no contract is configured: the base URL must answer.
func (c *Checker) baseline(ctx context.Context, target check.Target, opts check.Options) []check.Result {
	results := []check.Result{
		check.Warn("contract", "no API endpoints configured (add them with 'readycheck endpoint:add')").WithWeight(0.5),
	}
	resp, _, _, err := c.do(ctx, target, Endpoint{Name: "base", Path: "", Method: http.MethodGet}, opts, true)
	if err != nil {
		return append(results, check.Error("base-url", "request failed: %v", err))
	}
	if resp.StatusCode >= 500 {
		return append(results, check.Fail("base-url", "base URL answered %d", resp.StatusCode))
	}
	return append(results, check.Pass("base-url", "base URL answered %d", resp.StatusCode))
}

func (c *Checker) validate(ctx context.Context, target check.Target, ep Endpoint, opts check.Options) []check.Result {
	name := func(aspect string) string { return ep.Name + "/" + aspect }

	resp, body, latency, err := c.do(ctx, target, ep, opts, true)
	if err != nil {
		c.logger.Warn("endpoint_unreachable", zap.String("endpoint", ep.Name), zap.Error(err))
		return []check.Result{check.Error(name("status"), "%s %s failed: %v", ep.Method, ep.Path, err)}
	}

	var results []check.Result

	expected := ep.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	if resp.StatusCode != expected {
		results = append(results, check.Fail(name("status"), "expected %d, got %d", expected, resp.StatusCode))
	} else {
		results = append(results, check.Pass(name("status"), "HTTP %d", resp.StatusCode))
	}

	if ep.ContentType != "" {
		got := resp.Header.Get("Content-Type")
		media, _, _ := mime.ParseMediaType(got)
		if strings.EqualFold(media, ep.ContentType) {
			results = append(results, check.Pass(name("content-type"), "%s", media))
		} else {
			results = append(results, check.Fail(name("content-type"), "expected %s, got %q", ep.ContentType, got))
		}
	}

	if len(ep.RequiredFields) > 0 || len(ep.Assertions) > 0 {
		if err := validateJSON(string(body), ep.RequiredFields, ep.Assertions); err != nil {
			results = append(results, check.Fail(name("schema"), "%v", err))
		} else {
			results = append(results, check.Pass(name("schema"), "%d fields, %d assertions satisfied", len(ep.RequiredFields), len(ep.Assertions)))
		}
	}

	sla := ep.SLA
	if sla <= 0 {
		sla = time.Duration(opts.Int("default_sla_ms", 1000)) * time.Millisecond
	}
	latencyMS := float64(latency.Microseconds()) / 1000
	slaMS := float64(sla.Milliseconds())
	if latency > sla {
		results = append(results, check.Fail(name("sla"), "responded in %s, SLA is %s", latency.Round(time.Millisecond), sla).
			WithMeasure(latencyMS, slaMS))
	} else {
		results = append(results, check.Pass(name("sla"), "responded in %s", latency.Round(time.Millisecond)).
			WithMeasure(latencyMS, slaMS))
	}

	if opts.Bool("check_request_id", true) {
		if resp.Header.Get(requestIDHeader) != "" {
			results = append(results, check.Pass(name("request-id"), "%s header returned", requestIDHeader).WithWeight(0.5))
		} else {
			results = append(results, check.Warn(name("request-id"), "no %s header in response", requestIDHeader).WithWeight(0.5))
		}
	}

	if ep.AuthRequired {
		results = append(results, c.authEnforced(ctx, target, ep, opts))
	}
	return results
}

// authEnforced repeats the request without credentials and expects it to be
// rejected.
func (c *Checker) authEnforced(ctx context.Context, target check.Target, ep Endpoint, opts check.Options) check.Result {
	name := ep.Name + "/auth"
	resp, _, _, err := c.do(ctx, target, ep, opts, false)
	if err != nil {
		return check.Error(name, "unauthenticated request failed: %v", err).WithCritical()
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return check.Pass(name, "unauthenticated request rejected with %d", resp.StatusCode).WithCritical()
	}
	return check.Fail(name, "unauthenticated request answered %d, expected 401 or 403", resp.StatusCode).WithCritical()
}

// do issues one request. The response body is closed before returning.
func (c *Checker) do(ctx context.Context, target check.Target, ep Endpoint, opts check.Options, withAuth bool) (*http.Response, []byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Duration("request_timeout", 10*time.Second))
	defer cancel()

	var reqBody io.Reader
	if ep.Body != "" {
		reqBody = strings.NewReader(ep.Body)
	}
	method := ep.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.URL(ep.Path), reqBody)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range ep.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	if ep.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if withAuth {
		applyAuth(req, ep.Auth, target.AuthToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, time.Since(start), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	latency := time.Since(start)
	if err != nil {
		return nil, nil, latency, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, body, latency, nil
}

func applyAuth(req *http.Request, auth *Auth, fallbackToken string) {
	if auth == nil {
		if fallbackToken != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", fallbackToken))
		}
		return
	}
	switch strings.ToLower(auth.Type) {
	case "bearer":
		if auth.Token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", auth.Token))
		}
	case "basic":
		if auth.Username != "" && auth.Password != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
	}
}
