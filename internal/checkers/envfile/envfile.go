package envfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "environment"

var placeholders = []string{"your-", "replace_me", "changeme", "placeholder", "example", "todo", "xxx"}

var secretSuffixes = []string{"_SECRET", "_SECRET_KEY", "_KEY", "_PASSWORD", "_TOKEN"}

// Checker validates the service's dotenv file.
type Checker struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

func (c *Checker) Category() string { return Category }

func (c *Checker) Check(ctx context.Context, _ check.Target, opts check.Options) ([]check.Result, error) {
	path := opts.String("path", ".env")
	if dir := opts.String("project_dir", ""); dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []check.Result{check.Fail("env-file", "%s does not exist", path).WithCritical()}, nil
		}
		return nil, fmt.Errorf("stat env file: %w", err)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return []check.Result{check.Fail("env-file", "%s could not be parsed: %v", path, err).WithCritical()}, nil
	}
	c.logger.Debug("env_file_loaded", zap.String("path", path), zap.Int("variables", len(vars)))

	results := []check.Result{check.Pass("env-file", "%s loaded with %d variables", path, len(vars)).WithCritical()}
	results = append(results, checkRequired(vars, opts.Strings("required", nil))...)
	results = append(results, checkPlaceholders(vars))
	results = append(results, checkSecrets(vars, opts.Int("min_secret_length", 32)))
	results = append(results, checkProductionFlags(vars)...)
	return results, nil
}

func checkRequired(vars map[string]string, required []string) []check.Result {
	results := make([]check.Result, 0, len(required))
	for _, name := range required {
		id := "required/" + name
		if strings.TrimSpace(vars[name]) == "" {
			results = append(results, check.Fail(id, "%s is missing or empty", name))
		} else {
			results = append(results, check.Pass(id, "%s is set", name))
		}
	}
	return results
}

// IsPlaceholder reports whether value looks like an unfilled template value.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	for _, p := range placeholders {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}

// lowVariety reports whether value uses fewer than three distinct characters.
// Only secrets are held to it; flags and ports are legitimately short.
func lowVariety(value string) bool {
	distinct := make(map[rune]struct{})
	for _, r := range strings.TrimSpace(value) {
		distinct[r] = struct{}{}
	}
	return len(distinct) > 0 && len(distinct) < 3
}

func checkPlaceholders(vars map[string]string) check.Result {
	var found []string
	for name, value := range vars {
		if IsPlaceholder(value) || (isSecret(name) && lowVariety(value)) {
			found = append(found, name)
		}
	}
	if len(found) > 0 {
		sort.Strings(found)
		return check.Fail("placeholders", "placeholder values in %s", strings.Join(found, ", "))
	}
	return check.Pass("placeholders", "no placeholder values")
}

func isSecret(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return upper == "SECRET_KEY"
}

func checkSecrets(vars map[string]string, minLen int) check.Result {
	var weak []string
	shortest := -1
	for name, value := range vars {
		if !isSecret(name) || value == "" {
			continue
		}
		if shortest < 0 || len(value) < shortest {
			shortest = len(value)
		}
		if len(value) < minLen {
			weak = append(weak, name)
		}
	}
	if shortest < 0 {
		return check.Warn("secret-strength", "no secret variables found")
	}
	if len(weak) > 0 {
		sort.Strings(weak)
		return check.Fail("secret-strength", "secrets shorter than %d characters: %s", minLen, strings.Join(weak, ", ")).
			WithMeasure(float64(shortest), float64(minLen))
	}
	return check.Pass("secret-strength", "all secrets have at least %d characters", minLen).
		WithMeasure(float64(shortest), float64(minLen))
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func checkProductionFlags(vars map[string]string) []check.Result {
	var results []check.Result

	if env, ok := vars["ENVIRONMENT"]; ok {
		if strings.EqualFold(env, "production") {
			results = append(results, check.Pass("environment-mode", "ENVIRONMENT is production"))
		} else {
			results = append(results, check.Warn("environment-mode", "ENVIRONMENT is %q, expected production", env))
		}
	}

	if debug, ok := vars["DEBUG"]; ok {
		if truthy(debug) {
			results = append(results, check.Warn("debug-mode", "DEBUG is enabled"))
		} else {
			results = append(results, check.Pass("debug-mode", "DEBUG is disabled"))
		}
	}

	if level, ok := vars["LOG_LEVEL"]; ok {
		if strings.EqualFold(level, "debug") || strings.EqualFold(level, "trace") {
			results = append(results, check.Warn("log-level", "LOG_LEVEL is %s", level))
		} else {
			results = append(results, check.Pass("log-level", "LOG_LEVEL is %s", level))
		}
	}

	if dsn, ok := vars["DATABASE_URL"]; ok && strings.Contains(strings.ToLower(dsn), "sqlite") {
		results = append(results, check.Warn("database-engine", "DATABASE_URL points at SQLite"))
	}
	return results
}
