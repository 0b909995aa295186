package config

import (
	"fmt"

	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/score"
)

// DefaultBaseURL is written into new configuration files.
const DefaultBaseURL = "http://localhost:8000"

// Category names, in the order they appear in every report.
const (
	CategoryEnvironment = "environment"
	CategorySecurity    = "security"
	CategoryAPI         = "api"
	CategoryDatabase    = "database"
	CategoryPerformance = loadgen.Category
	CategoryDeployment  = "deployment"
	CategoryLogging     = "logging"
	CategoryMonitoring  = "monitoring"
)

// CategoryOrder is the declared category order.
var CategoryOrder = []string{
	CategoryEnvironment,
	CategorySecurity,
	CategoryAPI,
	CategoryDatabase,
	CategoryPerformance,
	CategoryDeployment,
	CategoryLogging,
	CategoryMonitoring,
}

type categoryDefault struct {
	weight   float64
	timeout  string
	critical []string
	options  map[string]any
}

func categoryDefaults() map[string]categoryDefault {
	return map[string]categoryDefault{
		CategoryEnvironment: {
			weight:   1,
			timeout:  "10s",
			critical: []string{"env-file"},
			options: map[string]any{
				"path":              ".env",
				"required":          []any{"ENVIRONMENT", "DEBUG", "LOG_LEVEL", "DATABASE_URL", "JWT_SECRET_KEY"},
				"min_secret_length": 32,
			},
		},
		CategorySecurity: {
			weight:   2,
			timeout:  "30s",
			critical: []string{"https"},
			options: map[string]any{
				"min_tls_version":  "1.2",
				"cert_warn_days":   30,
				"cert_fail_days":   7,
				"scan_severity":    "high",
				"required_headers": []any{"Strict-Transport-Security", "Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"},
				"optional_headers": []any{"Referrer-Policy", "Permissions-Policy", "X-XSS-Protection"},
			},
		},
		CategoryAPI: {
			weight:  1.5,
			timeout: "60s",
			options: map[string]any{
				"concurrency":      4,
				"request_timeout":  "10s",
				"default_sla_ms":   1000,
				"check_request_id": true,
			},
		},
		CategoryDatabase: {
			weight:   1.5,
			timeout:  "30s",
			critical: []string{"connectivity"},
			options: map[string]any{
				"dsn":             "${DATABASE_URL}",
				"connect_timeout": "5s",
				"min_pool_size":   5,
				"require_tls":     true,
			},
		},
		CategoryPerformance: {
			weight:   1.5,
			timeout:  "90s",
			critical: []string{loadgen.CheckErrorRate},
			options: map[string]any{
				"concurrency":             loadgen.DefaultConcurrency,
				"duration":                loadgen.DefaultDuration.String(),
				"probe_timeout":           loadgen.DefaultProbeTimeout.String(),
				"max_error_rate":          loadgen.DefaultMaxErrorRate,
				"max_p95_ms":              loadgen.DefaultMaxP95MS,
				"p95_severity":            "FAIL",
				"max_avg_ms":              loadgen.DefaultMaxAvgMS,
				"min_throughput_rps":      loadgen.DefaultMinThroughputRPS,
				"unreachable_abort_after": loadgen.DefaultAbortAfter,
			},
		},
		CategoryDeployment: {
			weight:  1,
			timeout: "10s",
			options: map[string]any{
				"project_dir": ".",
			},
		},
		CategoryLogging: {
			weight:  1,
			timeout: "15s",
			options: map[string]any{
				"log_dir":         "logs",
				"sample_lines":    200,
				"max_debug_ratio": 0.2,
			},
		},
		CategoryMonitoring: {
			weight:  1,
			timeout: "30s",
			options: map[string]any{
				"metrics_path":     "/metrics",
				"health_paths":     []any{"/healthz", "/health", "/api/health"},
				"required_metrics": []any{"http_requests_total", "http_request_duration_seconds", "process_cpu_seconds_total", "process_resident_memory_bytes"},
			},
		},
	}
}

// Default returns the configuration used when a field is absent.
func Default() *Config {
	policy := score.DefaultPolicy()
	grades := make([]GradeStep, 0, len(policy.Grades.Steps))
	for _, s := range policy.Grades.Steps {
		grades = append(grades, GradeStep{Min: s.Min, Grade: s.Grade})
	}

	return &Config{
		Target: TargetConfig{BaseURL: DefaultBaseURL},
		Scoring: ScoringConfig{
			PassThreshold:  policy.PassThreshold,
			ReadyScore:     policy.ReadyScore,
			AttentionScore: policy.AttentionScore,
			Grades:         grades,
			FloorGrade:     policy.Grades.Floor,
		},
		Categories: map[string]CategoryConfig{},
		Report: ReportConfig{
			Dir:          DefaultReportDir,
			Formats:      []string{"json", "markdown", "html"},
			History:      true,
			HistoryLimit: DefaultHistoryLimit,
		},
		Logging: LoggingConfig{Dir: DefaultLogDir, Level: "info"},
		Serve:   ServeConfig{Addr: DefaultServeAddr, Interval: DefaultServeInterval},
	}
}

// applyCategoryDefaults adds every missing category and fills unset
// fields. User options are layered over the default options.
func (c *Config) applyCategoryDefaults() {
	if c.Categories == nil {
		c.Categories = map[string]CategoryConfig{}
	}
	for name, def := range categoryDefaults() {
		cc := c.Categories[name]
		if cc.Enabled == nil {
			enabled := true
			cc.Enabled = &enabled
		}
		if cc.Weight == nil {
			w := def.weight
			cc.Weight = &w
		}
		if cc.Timeout == "" {
			cc.Timeout = def.timeout
		}
		if cc.Critical == nil && def.critical != nil {
			cc.Critical = append([]string(nil), def.critical...)
		}
		merged := make(map[string]any, len(def.options)+len(cc.Options))
		for k, v := range def.options {
			merged[k] = v
		}
		for k, v := range cc.Options {
			merged[k] = v
		}
		cc.Options = merged
		c.Categories[name] = cc
	}
}

// getDefaultConfig returns the default configuration as YAML
func getDefaultConfig(baseURL string) string {
	return fmt.Sprintf(`# readycheck configuration
# Certifies that a running service is ready for production.

target:
  base_url: %s
  # auth_token: ${API_TOKEN}
  # headers:
  #   X-Tenant: acme
  load_endpoints:
    - /

scoring:
  pass_threshold: %v   # overall score needed for exit code 0
  ready_score: %v      # category READY at or above this score
  attention_score: %v  # category NEEDS_ATTENTION at or above this score
  warn_credit: 0       # fraction of a WARN result's weight counted as passed
  floor_grade: F
  grades:
    - {min: 97, grade: A+}
    - {min: 93, grade: A}
    - {min: 90, grade: A-}
    - {min: 87, grade: B+}
    - {min: 83, grade: B}
    - {min: 80, grade: B-}
    - {min: 77, grade: C+}
    - {min: 73, grade: C}
    - {min: 70, grade: C-}
    - {min: 60, grade: D}

categories:
  environment:
    weight: 1
    timeout: 10s
    critical: [env-file]
    options:
      path: .env
      required: [ENVIRONMENT, DEBUG, LOG_LEVEL, DATABASE_URL, JWT_SECRET_KEY]
      min_secret_length: 32
  security:
    weight: 2
    timeout: 30s
    critical: [https]
    options:
      min_tls_version: "1.2"
      cert_warn_days: 30
      cert_fail_days: 7
      scan_severity: high   # high: missing required headers FAIL, otherwise WARN
  api:
    weight: 1.5
    timeout: 60s
    options:
      concurrency: 4
      request_timeout: 10s
      default_sla_ms: 1000
  database:
    weight: 1.5
    timeout: 30s
    critical: [connectivity]
    options:
      dsn: ${DATABASE_URL}
      connect_timeout: 5s
      min_pool_size: 5
      require_tls: true
      # required_tables: [users, orders]
  performance:
    weight: 1.5
    timeout: 90s
    critical: [error-rate]
    options:
      concurrency: %d
      duration: %s
      probe_timeout: %s
      max_error_rate: %v     # error-rate FAILs above this, equal passes
      max_p95_ms: %v
      p95_severity: FAIL
      max_avg_ms: %v
      min_throughput_rps: %v
      unreachable_abort_after: %d
  deployment:
    weight: 1
    timeout: 10s
    options:
      project_dir: .
  logging:
    weight: 1
    timeout: 15s
    options:
      log_dir: logs
      sample_lines: 200
      max_debug_ratio: 0.2
  monitoring:
    weight: 1
    timeout: 30s
    options:
      metrics_path: /metrics

# API contract checks (manage with 'readycheck endpoint:add')
endpoints:
  - name: health
    path: /health
    method: GET
    expected_status: 200
    content_type: application/json
    sla_ms: 500

report:
  dir: %s
  formats: [json, markdown, html]
  history: true
  # metrics_file: readycheck.prom

logging:
  dir: %s
  level: info

serve:
  addr: "%s"
  interval: %s

notify: false
`,
		baseURL,
		score.DefaultPassThreshold, score.DefaultReadyScore, score.DefaultAttentionScore,
		loadgen.DefaultConcurrency, loadgen.DefaultDuration, loadgen.DefaultProbeTimeout,
		loadgen.DefaultMaxErrorRate, loadgen.DefaultMaxP95MS, loadgen.DefaultMaxAvgMS,
		loadgen.DefaultMinThroughputRPS, loadgen.DefaultAbortAfter,
		DefaultReportDir, DefaultLogDir, DefaultServeAddr, DefaultServeInterval,
	)
}
