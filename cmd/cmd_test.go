package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/history"
)

func TestParseJSONAssertions(t *testing.T) {
	got := parseJSONAssertions("status:ok:==, uptime:0:>,broken")
	if assert.Len(t, got, 2) {
		assert.Equal(t, "status", got[0].Path)
		assert.Equal(t, "ok", got[0].Value)
		assert.Equal(t, "==", got[0].Operator)
		assert.Equal(t, float64(0), got[1].Value)
	}
	assert.Empty(t, parseJSONAssertions(""))
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("X-Tenant: acme, Authorization:Bearer a:b")
	assert.Equal(t, map[string]string{"X-Tenant": "acme", "Authorization": "Bearer a:b"}, got)
}

func TestDescribeTrend(t *testing.T) {
	assert.Equal(t, "Trend: first recorded run", describeTrend(history.Trend{Kind: history.TrendFirstRun}))

	prev := &history.Entry{Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}
	line := describeTrend(history.Trend{Kind: history.TrendDeclining, Delta: -4.5, Previous: prev, Regressions: []string{"api", "security"}})
	assert.True(t, strings.HasPrefix(line, "Trend: declining (-4.5 since 2026-03-01 09:30)"))
	assert.Contains(t, line, "regressed: api, security")
}

func TestExitError(t *testing.T) {
	err := configError(errors.New("bad file"))
	var ee *exitError
	if assert.ErrorAs(t, err, &ee) {
		assert.Equal(t, exitConfigError, ee.code)
	}
	assert.Equal(t, "bad file", err.Error())
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, validateBaseURL("https://api.example.com"))
	assert.Error(t, validateBaseURL("api.example.com"))
	assert.Error(t, validateBaseURL("ftp://api.example.com"))
}

func TestLookupEndpoints(t *testing.T) {
	cfg := &config.Config{Endpoints: []config.Endpoint{
		{Name: "health", Path: "/health"},
		{Name: "users", Path: "/users", Method: "post", ExpectedStatus: 201},
	}}

	got, err := lookupEndpoints(cfg, []string{"users", "health", "users"})
	if assert.NoError(t, err) && assert.Len(t, got, 2) {
		assert.Equal(t, "users", got[0].Name)
		assert.Equal(t, "health", got[1].Name)
	}

	_, err = lookupEndpoints(cfg, []string{"health", "orders", "billing"})
	assert.EqualError(t, err, "unknown endpoint(s): orders, billing")
	assert.Len(t, cfg.Endpoints, 2)
}

func TestDescribeEndpoint(t *testing.T) {
	line := describeEndpoint(config.Endpoint{Name: "users", Path: "/users", Method: "post", ExpectedStatus: 201})
	assert.Contains(t, line, "POST")
	assert.Contains(t, line, "/users")
	assert.True(t, strings.HasSuffix(line, "(expects 201)"))
	assert.Contains(t, describeEndpoint(config.Endpoint{Name: "health", Path: "/health"}), "GET")
}

func TestConfirmRemoval(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirmRemoval(strings.NewReader(tt.input), &out, 2)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Remove 2 endpoint(s)")
	}
}
