// Package remediation attaches actionable advice to failing and warning
// results.
package remediation

import (
	"strings"

	"github.com/juststeveking/readycheck/internal/check"
)

// Fallback is used when no entry matches a result.
const Fallback = "Review the check message and your production readiness standards."

type rule struct {
	category string
	// prefix matches the check name; "" matches every check in the category.
	prefix string
	advice string
}

// rules are matched in order; the first match wins.
var rules = []rule{
	{"environment", "env-file", "Create the environment file from .env.example and keep it out of version control."},
	{"environment", "required/", "Define the missing variable in the environment file or the deployment's secret store."},
	{"environment", "placeholders", "Replace template values with real configuration before deploying."},
	{"environment", "secret-strength", "Generate secrets with at least 32 random characters (e.g. openssl rand -hex 32)."},
	{"environment", "debug-mode", "Set DEBUG=false in production."},
	{"environment", "log-level", "Set LOG_LEVEL to INFO or WARN in production environment configuration."},
	{"environment", "environment-mode", "Set ENVIRONMENT=production for production deployments."},
	{"environment", "database-engine", "Use a server database such as PostgreSQL in production."},

	{"security", "https", "Terminate TLS in front of the service and redirect plain HTTP to HTTPS."},
	{"security", "tls-version", "Disable protocols older than TLS 1.2 on the server or load balancer."},
	{"security", "certificate", "Renew the certificate and automate renewal (e.g. ACME)."},
	{"security", "header/", "Add the missing header in your web server (Nginx/Apache) or application middleware."},
	{"security", "cors", "Restrict Access-Control-Allow-Origin to an explicit allow-list."},
	{"security", "cookies", "Set Secure, HttpOnly and SameSite on every session cookie."},
	{"security", "disclosure", "Remove version details from Server and X-Powered-By headers."},

	{"api", "base-url", "Make sure the service is running and the base URL is correct."},
	{"api", "contract", "Declare the API contract with 'readycheck endpoint:add'."},
	{"api", "/schema", "Verify that API response body matches the contract. Update models or documentation."},
	{"api", "/sla", "Investigate the bottleneck using a profiler. Consider caching, indexing, or horizontal scaling."},
	{"api", "/request-id", "Ensure X-Request-ID is accepted and echoed in responses for distributed tracing."},
	{"api", "/auth", "Require authentication on this endpoint and answer 401 without credentials."},
	{"api", "/content-type", "Return the documented Content-Type header."},
	{"api", "/status", "Align the endpoint's status code with the contract."},

	{"database", "connectivity", "Check the DSN, network policy and credentials for the database."},
	{"database", "tls", "Require encrypted connections (sslmode=verify-full for PostgreSQL)."},
	{"database", "pool-size", "Raise the pool size (pool_max_conns) to match expected concurrency."},
	{"database", "schema", "Initialize the database schema using the migration system or setup scripts."},
	{"database", "migrations", "Adopt a migration tool so schema changes are versioned."},
	{"database", "engine", "Use a server database such as PostgreSQL in production."},

	{"performance", "error-rate", "Inspect failing responses under load; check connection limits and upstream timeouts."},
	{"performance", "latency-", "Profile slow paths under load. Consider caching, indexing, or horizontal scaling."},
	{"performance", "throughput", "Increase worker capacity or remove serialization points in the request path."},
	{"performance", "load-run", "Make sure the load endpoints are reachable from where readycheck runs."},

	{"deployment", "dockerfile", "Review the Dockerfile to use specific version tags, non-root users, and multi-stage builds."},
	{"deployment", "dockerignore", "Add a .dockerignore to keep secrets and build artifacts out of the image."},
	{"deployment", "ci-", "Add a CI pipeline with a deployment stage."},
	{"deployment", "env-example", "Commit a .env.example documenting every variable."},

	{"logging", "json-format", "Configure a JSON formatter for easier log aggregation."},
	{"logging", "debug-ratio", "Lower the production log level to INFO."},
	{"logging", "pii-scan", "Ensure secrets are not logged and implement log masking for sensitive data."},
	{"logging", "log-dir", "Write logs to a persistent directory or ship them to a collector."},

	{"monitoring", "metrics-", "Expose Prometheus metrics at /metrics with a client library."},
	{"monitoring", "metric/", "Instrument the service so the metric is exported."},
	{"monitoring", "health", "Expose a health endpoint that returns 200 when the service is ready."},
	{"monitoring", "tracing", "Propagate W3C traceparent or X-Request-ID headers."},
}

// Advice returns the remediation text for a check.
func Advice(category, name string) string {
	for _, r := range rules {
		if r.category != category {
			continue
		}
		if strings.HasPrefix(name, r.prefix) || (strings.HasPrefix(r.prefix, "/") && strings.Contains(name, r.prefix)) {
			return r.advice
		}
	}
	return Fallback
}

// Annotate fills Remediation on a FAIL or WARN result that has none,
// keyed by the result's category.
func Annotate(r check.Result) check.Result {
	if r.Remediation != "" {
		return r
	}
	if r.Status == check.StatusFail || r.Status == check.StatusWarn {
		r.Remediation = Advice(r.Category, r.Name)
	}
	return r
}
