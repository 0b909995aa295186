package check

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Checker is the contract every readiness category implements.
type Checker interface {
	// Category returns the unique category name (e.g. "security").
	Category() string

	// Check runs every check in the category. On success it returns a
	// non-empty list of results. A returned error means the category could
	// not run at all.
	Check(ctx context.Context, target Target, opts Options) ([]Result, error)
}

// Target describes the service under certification.
type Target struct {
	BaseURL   string            `json:"base_url"`
	AuthToken string            `json:"-"`
	Headers   map[string]string `json:"headers,omitempty"`
	Endpoints []string          `json:"endpoints,omitempty"`
}

// URL joins the base URL and a path.
func (t Target) URL(path string) string {
	if path == "" {
		return t.BaseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(t.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Options holds category-specific settings. Getters return the supplied
// default when a key is absent or has the wrong type.
type Options map[string]any

func (o Options) Float(key string, def float64) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Duration accepts either a Go duration string ("5s") or a number of seconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	switch v := o[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

func (o Options) Strings(key string, def []string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return def
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return def
}

// Merge returns a copy of o with every key of override applied on top.
func (o Options) Merge(override Options) Options {
	out := make(Options, len(o)+len(override))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
