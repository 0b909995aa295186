package config

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/checkers/api"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/score"
)

// Spec is the runtime description of one enabled category.
type Spec struct {
	Name     string
	Weight   float64
	Timeout  time.Duration
	Critical []string
	Options  check.Options
}

// Validate rejects malformed configuration before any probe is sent.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(ResolveEnv(c.Target.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("target.base_url %q must be an absolute http(s) URL", c.Target.BaseURL))
	}

	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	for name, cc := range c.Categories {
		if !slices.Contains(CategoryOrder, name) {
			errs = append(errs, fmt.Sprintf("unknown category %q (known: %s)", name, strings.Join(CategoryOrder, ", ")))
			continue
		}
		if cc.Weight != nil && *cc.Weight < 0 {
			errs = append(errs, fmt.Sprintf("categories.%s.weight must not be negative, got %v", name, *cc.Weight))
		}
		d, err := time.ParseDuration(cc.Timeout)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("categories.%s.timeout %q must be a positive duration", name, cc.Timeout))
		}
	}

	if perf, ok := c.Categories[CategoryPerformance]; ok && perf.enabled() {
		lc := loadgen.ConfigFromOptions(c.Target.resolve(), perf.Options)
		if err := lc.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("categories.performance: %v", err))
		}
		// In-flight requests are allowed to finish after the load window.
		need := lc.Duration + check.Options(perf.Options).Duration("probe_timeout", loadgen.DefaultProbeTimeout)
		if d, err := time.ParseDuration(perf.Timeout); err == nil && d <= need {
			errs = append(errs, fmt.Sprintf("categories.performance.timeout %s must exceed the load duration plus probe_timeout (%s)", d, need))
		}
	}

	for _, f := range c.Report.Formats {
		if !slices.Contains(ReportFormats, f) {
			errs = append(errs, fmt.Sprintf("report.formats: unknown format %q (known: %s)", f, strings.Join(ReportFormats, ", ")))
		}
	}
	if c.Serve.Interval != "" {
		if d, err := time.ParseDuration(c.Serve.Interval); err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("serve.interval %q must be a positive duration", c.Serve.Interval))
		}
	}

	seen := map[string]bool{}
	for i, ep := range c.Endpoints {
		switch {
		case ep.Name == "":
			errs = append(errs, fmt.Sprintf("endpoints[%d] needs a name", i))
		case seen[ep.Name]:
			errs = append(errs, fmt.Sprintf("endpoint %q defined twice", ep.Name))
		}
		seen[ep.Name] = true
		if ep.Path == "" {
			errs = append(errs, fmt.Sprintf("endpoint %q needs a path", ep.Name))
		}
		if ep.ExpectedStatus != 0 && (ep.ExpectedStatus < 100 || ep.ExpectedStatus > 599) {
			errs = append(errs, fmt.Sprintf("endpoint %q expected_status %d is not an HTTP status", ep.Name, ep.ExpectedStatus))
		}
		if ep.SLAMS < 0 {
			errs = append(errs, fmt.Sprintf("endpoint %q sla_ms must not be negative", ep.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(errs, "\n  - "))
	}
	return nil
}

func (cc CategoryConfig) enabled() bool {
	return cc.Enabled == nil || *cc.Enabled
}

func (t TargetConfig) resolve() check.Target {
	headers := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		headers[k] = ResolveEnv(v)
	}
	return check.Target{
		BaseURL:   ResolveEnv(t.BaseURL),
		AuthToken: ResolveEnv(t.AuthToken),
		Headers:   headers,
		Endpoints: append([]string(nil), t.LoadEndpoints...),
	}
}

// ResolvedTarget returns the service under certification with ${VAR}
// references expanded.
func (c *Config) ResolvedTarget() check.Target {
	return c.Target.resolve()
}

// Policy returns the scoring policy described by the file.
func (c *Config) Policy() score.Policy {
	p := score.Policy{
		ReadyScore:      c.Scoring.ReadyScore,
		AttentionScore:  c.Scoring.AttentionScore,
		PassThreshold:   c.Scoring.PassThreshold,
		WarnCredit:      c.Scoring.WarnCredit,
		CategoryWeights: make(map[string]float64, len(c.Categories)),
		Critical:        make(map[string][]string, len(c.Categories)),
		Grades:          score.GradeTable{Floor: c.Scoring.FloorGrade},
	}
	for _, g := range c.Scoring.Grades {
		p.Grades.Steps = append(p.Grades.Steps, score.GradeStep{Min: g.Min, Grade: g.Grade})
	}
	for name, cc := range c.Categories {
		if cc.Weight != nil {
			p.CategoryWeights[name] = *cc.Weight
		}
		p.Critical[name] = cc.Critical
	}
	return p
}

// Specs returns the enabled categories in declared order. A non-empty only
// list restricts the run to those categories.
func (c *Config) Specs(only []string) ([]Spec, error) {
	for _, name := range only {
		if !slices.Contains(CategoryOrder, name) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalid, name)
		}
	}

	var specs []Spec
	for _, name := range CategoryOrder {
		cc, ok := c.Categories[name]
		if !ok || !cc.enabled() {
			continue
		}
		if len(only) > 0 && !slices.Contains(only, name) {
			continue
		}
		timeout, err := time.ParseDuration(cc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: categories.%s.timeout: %v", ErrInvalid, name, err)
		}

		opts := resolveOptions(cc.Options)
		if name == CategoryAPI {
			opts[api.OptionEndpoints] = c.APIEndpoints()
		}
		weight := 1.0
		if cc.Weight != nil {
			weight = *cc.Weight
		}
		specs = append(specs, Spec{
			Name:     name,
			Weight:   weight,
			Timeout:  timeout,
			Critical: cc.Critical,
			Options:  opts,
		})
	}
	return specs, nil
}

// APIEndpoints converts the configured endpoints for the api checker.
func (c *Config) APIEndpoints() []api.Endpoint {
	out := make([]api.Endpoint, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		method := strings.ToUpper(ep.Method)
		if method == "" {
			method = http.MethodGet
		}
		e := api.Endpoint{
			Name:           ep.Name,
			Path:           ep.Path,
			Method:         method,
			ExpectedStatus: ep.ExpectedStatus,
			ContentType:    ep.ContentType,
			Headers:        ep.Headers,
			Body:           ep.Body,
			AuthRequired:   ep.AuthRequired,
			SLA:            time.Duration(ep.SLAMS) * time.Millisecond,
			RequiredFields: ep.RequiredFields,
		}
		if ep.Auth != nil {
			e.Auth = &api.Auth{
				Type:     ep.Auth.Type,
				Token:    ResolveEnv(ep.Auth.Token),
				Username: ResolveEnv(ep.Auth.Username),
				Password: ResolveEnv(ep.Auth.Password),
			}
		}
		for _, a := range ep.JSONAssertions {
			e.Assertions = append(e.Assertions, api.Assertion{Path: a.Path, Value: a.Value, Operator: a.Operator})
		}
		out = append(out, e)
	}
	return out
}

// resolveOptions copies options, expanding ${VAR} in string values.
func resolveOptions(in map[string]any) check.Options {
	out := make(check.Options, len(in))
	for k, v := range in {
		out[k] = resolveValue(v)
	}
	return out
}

func resolveValue(v any) any {
	switch val := v.(type) {
	case string:
		return ResolveEnv(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item)
		}
		return out
	}
	return v
}
