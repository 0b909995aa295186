package check

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{ name string }

func (s stubChecker) Category() string { return s.name }

func (s stubChecker) Check(context.Context, Target, Options) ([]Result, error) {
	return []Result{Pass("stub", "ok")}, nil
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"PASS":     StatusPass,
		"ok":       StatusPass,
		" Warning": StatusWarn,
		"critical": StatusFail,
		"timeout":  StatusError,
	}
	for in, want := range cases {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := ParseStatus("maybe")
	assert.False(t, ok)
	assert.Equal(t, StatusError, got)
}

func TestResultBuilders(t *testing.T) {
	r := Fail("tls", "expires in %d days", 3).WithMeasure(3, 7).WithCritical()
	assert.Equal(t, DefaultWeight, r.Weight)
	assert.Equal(t, "expires in 3 days", r.Message)
	require.NotNil(t, r.Measured)
	assert.Equal(t, 3.0, *r.Measured)
	assert.Equal(t, 7.0, *r.Threshold)
	assert.True(t, r.Blocking())

	base := Pass("x", "ok")
	withDetail := base.WithDetail("k", "v")
	assert.Nil(t, base.Details)
	assert.Equal(t, "v", withDetail.Details["k"])

	assert.False(t, Warn("w", "careful").WithCritical().Blocking())
	assert.True(t, Error("e", "boom").WithCritical().Blocking())
}

func TestRegistryOrderAndDuplicates(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubChecker{"security"})
	reg.Register(stubChecker{"api"})
	reg.Register(stubChecker{"database"})

	assert.Equal(t, []string{"security", "api", "database"}, reg.Categories())

	c, ok := reg.Get("api")
	require.True(t, ok)
	assert.Equal(t, "api", c.Category())

	assert.Panics(t, func() { reg.Register(stubChecker{"api"}) })
	assert.Len(t, reg.All(), 3)
}

func TestOptionsGetters(t *testing.T) {
	opts := Options{
		"concurrency": 10,
		"ratio":       0.05,
		"duration":    "2s",
		"seconds":     3,
		"verify":      false,
		"headers":     []any{"a", "b"},
		"csv":         "x, y",
	}

	assert.Equal(t, 10, opts.Int("concurrency", 1))
	assert.Equal(t, 0.05, opts.Float("ratio", 1))
	assert.Equal(t, 10.0, opts.Float("concurrency", 0))
	assert.Equal(t, 2*time.Second, opts.Duration("duration", 0))
	assert.Equal(t, 3*time.Second, opts.Duration("seconds", 0))
	assert.False(t, opts.Bool("verify", true))
	assert.Equal(t, []string{"a", "b"}, opts.Strings("headers", nil))
	assert.Equal(t, []string{"x", "y"}, opts.Strings("csv", nil))
	assert.Equal(t, "fallback", opts.String("missing", "fallback"))

	merged := opts.Merge(Options{"concurrency": 4})
	assert.Equal(t, 4, merged.Int("concurrency", 0))
	assert.Equal(t, 10, opts.Int("concurrency", 0))
}

func TestTargetURL(t *testing.T) {
	target := Target{BaseURL: "http://localhost:8000/"}
	assert.Equal(t, "http://localhost:8000/api/health", target.URL("/api/health"))
	assert.Equal(t, "http://localhost:8000/", target.URL(""))
	assert.Equal(t, "https://other/x", target.URL("https://other/x"))
}
