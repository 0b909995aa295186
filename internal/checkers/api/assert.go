package api

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Assertion compares the value at a JSON path against an expected value.
type Assertion struct {
	Path     string
	Value    any
	Operator string // "==", "!=", ">", "<", ">=", "<=", "contains"
}

// validateJSON checks required fields and assertions against body.
func validateJSON(body string, required []string, assertions []Assertion) error {
	if !gjson.Valid(body) {
		return fmt.Errorf("response body is not valid JSON")
	}

	var missing []string
	for _, field := range required {
		if !gjson.Get(body, field).Exists() {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	for _, assertion := range assertions {
		value := gjson.Get(body, assertion.Path)
		if !value.Exists() {
			return fmt.Errorf("JSON path '%s' not found in response", assertion.Path)
		}
		if !compareValue(value, normalize(assertion.Value), assertion.Operator) {
			return fmt.Errorf("JSON assertion failed: %s %s %v, got %v", assertion.Path, assertion.Operator, assertion.Value, value.Value())
		}
	}
	return nil
}

// normalize converts YAML integers so numeric comparisons see float64.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}

// compareValue compares a gjson.Result with an expected value using the specified operator
func compareValue(actual gjson.Result, expected any, operator string) bool {
	switch strings.ToLower(operator) {
	case "", "==", "equals":
		return valueEquals(actual, expected)
	case "!=", "not_equals":
		return !valueEquals(actual, expected)
	case ">", "<", ">=", "<=":
		v, ok := expected.(float64)
		if !ok {
			return false
		}
		return compareNumber(actual.Float(), v, operator)
	case "contains":
		if v, ok := expected.(string); ok {
			return strings.Contains(actual.String(), v)
		}
		return false
	default:
		return false
	}
}

func valueEquals(actual gjson.Result, expected any) bool {
	switch v := expected.(type) {
	case string:
		return actual.String() == v
	case float64:
		return actual.Float() == v
	case bool:
		return actual.Bool() == v
	case nil:
		return actual.Type == gjson.Null
	default:
		return false
	}
}

func compareNumber(actual, expected float64, operator string) bool {
	switch operator {
	case ">":
		return actual > expected
	case "<":
		return actual < expected
	case ">=":
		return actual >= expected
	default:
		return actual <= expected
	}
}
