package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juststeveking/readycheck/internal/checkers/api"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readycheck.yml")
	SetPath(path)
	t.Cleanup(func() { SetPath("") })
	return path
}

func TestConfigOperations(t *testing.T) {
	configPath := useTempConfig(t)

	if err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
	if err := InitConfig(false); err == nil {
		t.Error("InitConfig should refuse to overwrite without force")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if err := cfg.AddEndpoint(Endpoint{Name: "list-items", Path: "/api/items", ExpectedStatus: 200}); err != nil {
		t.Errorf("AddEndpoint failed: %v", err)
	}
	if err := cfg.AddEndpoint(Endpoint{Name: "list-items", Path: "/x"}); err == nil {
		t.Error("duplicate endpoint names should be rejected")
	}
	if len(cfg.Endpoints) != 2 { // Default config has 1 endpoint
		t.Errorf("Expected 2 endpoints, got %d", len(cfg.Endpoints))
	}

	if err := SaveConfig(cfg); err != nil {
		t.Errorf("SaveConfig failed: %v", err)
	}

	cfg2, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg2.Endpoints) != 2 {
		t.Errorf("Expected 2 endpoints after reload, got %d", len(cfg2.Endpoints))
	}
	if err := cfg2.Validate(); err != nil {
		t.Errorf("saved config should still validate: %v", err)
	}

	if err := cfg.RemoveEndpoint("list-items"); err != nil {
		t.Errorf("RemoveEndpoint failed: %v", err)
	}
	if len(cfg.Endpoints) != 1 {
		t.Errorf("Expected 1 endpoint after remove, got %d", len(cfg.Endpoints))
	}
	if err := cfg.RemoveEndpoint("missing"); err == nil {
		t.Error("removing an unknown endpoint should fail")
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
target:
  base_url: https://api.example.com
categories:
  security:
    weight: 3
    options:
      cert_warn_days: 14
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sec := cfg.Categories[CategorySecurity]
	if *sec.Weight != 3 {
		t.Errorf("weight override lost, got %v", *sec.Weight)
	}
	if sec.Timeout != "30s" {
		t.Errorf("default timeout not applied, got %q", sec.Timeout)
	}
	if sec.Options["cert_warn_days"] != 14 {
		t.Errorf("option override lost, got %v", sec.Options["cert_warn_days"])
	}
	if sec.Options["cert_fail_days"] != 7 {
		t.Errorf("default option not merged, got %v", sec.Options["cert_fail_days"])
	}
	if len(cfg.Categories) != len(CategoryOrder) {
		t.Errorf("want all %d categories, got %d", len(CategoryOrder), len(cfg.Categories))
	}
	if cfg.Scoring.PassThreshold != 90 {
		t.Errorf("default pass threshold not applied, got %v", cfg.Scoring.PassThreshold)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"negative weight": `
categories:
  api:
    weight: -1`,
		"non monotonic grades": `
scoring:
  grades:
    - {min: 80, grade: B}
    - {min: 90, grade: A}`,
		"bad timeout": `
categories:
  database:
    timeout: soon`,
		"unknown category": `
categories:
  vibes: {}`,
		"bad base url": `
target:
  base_url: localhost`,
		"zero concurrency": `
categories:
  performance:
    options:
      concurrency: 0`,
		"timeout below duration": `
categories:
  performance:
    timeout: 10s
    options:
      duration: 30s`,
		"bad endpoint": `
endpoints:
  - name: broken
    expected_status: 42`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(doc))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestPerformanceTimeoutCoversTrailingRequests(t *testing.T) {
	cases := []struct {
		timeout string
		valid   bool
	}{
		{"30s", false},
		{"32s", false},
		{"35s", false},
		{"36s", true},
	}

	for _, tc := range cases {
		t.Run(tc.timeout, func(t *testing.T) {
			doc := `
categories:
  performance:
    timeout: ` + tc.timeout + `
    options:
      duration: 30s
      probe_timeout: 5s`
			cfg, err := Parse([]byte(doc))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = cfg.Validate()
			if tc.valid && err != nil {
				t.Fatalf("want valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
			if !tc.valid && !strings.Contains(err.Error(), "probe_timeout") {
				t.Fatalf("error should name probe_timeout: %v", err)
			}
		})
	}
}

func TestSpecsOrderAndFilter(t *testing.T) {
	cfg, err := Parse([]byte(`
categories:
  logging:
    enabled: false
endpoints:
  - name: items
    path: /api/items
    sla_ms: 250
    json_assertions:
      - {path: status, value: ok, operator: "=="}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	specs, err := cfg.Specs(nil)
	if err != nil {
		t.Fatalf("Specs: %v", err)
	}
	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	want := "environment,security,api,database,performance,deployment,monitoring"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("want order %s, got %s", want, got)
	}

	apiSpec := specs[2]
	eps, ok := apiSpec.Options[api.OptionEndpoints].([]api.Endpoint)
	if !ok || len(eps) != 1 {
		t.Fatalf("api endpoints not injected: %#v", apiSpec.Options[api.OptionEndpoints])
	}
	if eps[0].SLA != 250*time.Millisecond || eps[0].Method != "GET" {
		t.Errorf("endpoint not converted: %+v", eps[0])
	}

	only, err := cfg.Specs([]string{"performance", "security"})
	if err != nil {
		t.Fatalf("Specs: %v", err)
	}
	if len(only) != 2 || only[0].Name != "security" {
		t.Errorf("filter should keep declared order, got %+v", only)
	}
	if _, err := cfg.Specs([]string{"nope"}); err == nil {
		t.Error("unknown category filter should fail")
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := Default()
	cfg.applyCategoryDefaults()
	p := cfg.Policy()
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	if p.Weight(CategorySecurity) != 2 {
		t.Errorf("want security weight 2, got %v", p.Weight(CategorySecurity))
	}
	if p.Grades.Grade(100) != "A+" {
		t.Errorf("want A+, got %s", p.Grades.Grade(100))
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "resolved")

	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"${TEST_VAR}", "resolved"},
		{"prefix-${TEST_VAR}-suffix", "prefix-resolved-suffix"},
		{"${NON_EXISTENT_VAR}", ""},
	}

	for _, tt := range tests {
		if result := ResolveEnv(tt.input); result != tt.expected {
			t.Errorf("ResolveEnv(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestResolvedTargetAndOptions(t *testing.T) {
	t.Setenv("RC_TOKEN", "s3cret")
	t.Setenv("RC_DSN", "postgres://u:p@db:5432/app")

	cfg, err := Parse([]byte(`
target:
  base_url: http://svc:8080
  auth_token: ${RC_TOKEN}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.Categories[CategoryDatabase].Options["dsn"] = "${RC_DSN}"

	if got := cfg.ResolvedTarget().AuthToken; got != "s3cret" {
		t.Errorf("token not resolved: %q", got)
	}
	specs, _ := cfg.Specs([]string{CategoryDatabase})
	if got := specs[0].Options.String("dsn", ""); got != "postgres://u:p@db:5432/app" {
		t.Errorf("dsn not resolved: %q", got)
	}
}
