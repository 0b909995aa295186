package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName      = "readycheck.yml"
	DefaultReportDir     = "readiness-reports"
	DefaultLogDir        = ".readycheck/logs"
	DefaultHistoryLimit  = 200
	DefaultServeAddr     = ":8085"
	DefaultServeInterval = "5m"
)

// ReportFormats lists the accepted report.formats values.
var ReportFormats = []string{"text", "json", "markdown", "html"}

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the readycheck configuration file.
type Config struct {
	Target     TargetConfig              `yaml:"target"`
	Scoring    ScoringConfig             `yaml:"scoring"`
	Categories map[string]CategoryConfig `yaml:"categories"`
	Endpoints  []Endpoint                `yaml:"endpoints,omitempty"`
	Report     ReportConfig              `yaml:"report"`
	Logging    LoggingConfig             `yaml:"logging"`
	Serve      ServeConfig               `yaml:"serve"`
	Notify     bool                      `yaml:"notify"`
}

// TargetConfig identifies the service under certification.
type TargetConfig struct {
	BaseURL       string            `yaml:"base_url"`
	AuthToken     string            `yaml:"auth_token,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	LoadEndpoints []string          `yaml:"load_endpoints,omitempty"`
}

// ScoringConfig holds the aggregator thresholds and the grade table.
type ScoringConfig struct {
	PassThreshold  float64     `yaml:"pass_threshold"`
	ReadyScore     float64     `yaml:"ready_score"`
	AttentionScore float64     `yaml:"attention_score"`
	WarnCredit     float64     `yaml:"warn_credit"`
	Grades         []GradeStep `yaml:"grades"`
	FloorGrade     string      `yaml:"floor_grade"`
}

// GradeStep mirrors score.GradeStep in the file format.
type GradeStep struct {
	Min   float64 `yaml:"min"`
	Grade string  `yaml:"grade"`
}

// CategoryConfig tunes one readiness category.
type CategoryConfig struct {
	Enabled  *bool          `yaml:"enabled,omitempty"`
	Weight   *float64       `yaml:"weight,omitempty"`
	Timeout  string         `yaml:"timeout,omitempty"`
	Critical []string       `yaml:"critical,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
}

// Auth represents authentication configuration for an endpoint.
type Auth struct {
	Type     string `yaml:"type,omitempty"` // "bearer", "basic", or empty
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// JSONAssertion represents a JSON path assertion
type JSONAssertion struct {
	Path     string      `yaml:"path"`     // JSON path (e.g., "status.database" or "data[0].healthy")
	Value    interface{} `yaml:"value"`    // Expected value to match
	Operator string      `yaml:"operator"` // "==", "!=", ">", "<", ">=", "<=", "contains"
}

// Endpoint is one API contract entry validated by the api category.
type Endpoint struct {
	Name           string            `yaml:"name"`
	Path           string            `yaml:"path"`
	Method         string            `yaml:"method,omitempty"`
	ExpectedStatus int               `yaml:"expected_status,omitempty"`
	ContentType    string            `yaml:"content_type,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	Body           string            `yaml:"body,omitempty"`
	Auth           *Auth             `yaml:"auth,omitempty"`
	AuthRequired   bool              `yaml:"auth_required,omitempty"`
	SLAMS          int               `yaml:"sla_ms,omitempty"`
	RequiredFields []string          `yaml:"required_fields,omitempty"`
	JSONAssertions []JSONAssertion   `yaml:"json_assertions,omitempty"`
}

type ReportConfig struct {
	Dir          string   `yaml:"dir"`
	Formats      []string `yaml:"formats"`
	History      bool     `yaml:"history"`
	HistoryLimit int      `yaml:"history_limit,omitempty"`
	MetricsFile  string   `yaml:"metrics_file,omitempty"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type ServeConfig struct {
	Addr     string `yaml:"addr"`
	Interval string `yaml:"interval"`
}

var pathOverride string

// SetPath pins the config file location, typically from --config.
func SetPath(path string) {
	pathOverride = path
}

// GetConfigPath returns the config file in use: the --config path, else
// ./readycheck.yml, else ~/.config/readycheck/config.yml when it exists.
// New files are created in the working directory.
func GetConfigPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		global := filepath.Join(homeDir, ".config", "readycheck", "config.yml")
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}
	return DefaultFileName, nil
}

// InitConfig writes the default configuration file.
func InitConfig(force bool) error {
	return InitConfigFor(DefaultBaseURL, force)
}

// InitConfigFor writes the default configuration file for baseURL.
func InitConfigFor(baseURL string, force bool) error {
	return WriteDefault(getDefaultConfig(baseURL), force)
}

// WriteDefault writes raw YAML to the config path.
func WriteDefault(content string, force bool) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadConfig reads the config file and fills unset fields with defaults.
// It does not validate; call Validate before using the result.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyCategoryDefaults()
	return cfg, nil
}

// SaveConfig writes the config back to the file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddEndpoint adds a new API contract endpoint.
func (c *Config) AddEndpoint(ep Endpoint) error {
	for _, e := range c.Endpoints {
		if e.Name == ep.Name {
			return fmt.Errorf("endpoint with name '%s' already exists", ep.Name)
		}
	}
	c.Endpoints = append(c.Endpoints, ep)
	return nil
}

// RemoveEndpoint removes an endpoint by name.
func (c *Config) RemoveEndpoint(name string) error {
	for i, e := range c.Endpoints {
		if e.Name == name {
			c.Endpoints = append(c.Endpoints[:i], c.Endpoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("endpoint '%s' not found", name)
}

// FindEndpoint returns the endpoint with the given name.
func (c *Config) FindEndpoint(name string) (Endpoint, bool) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

// ResolveEnv replaces ${VAR_NAME} placeholders with environment values.
// Unset variables expand to the empty string.
func ResolveEnv(value string) string {
	return os.Expand(value, os.Getenv)
}
