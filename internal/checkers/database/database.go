package database

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "database"

var defaultPorts = map[string]string{
	"mysql":      "3306",
	"mariadb":    "3306",
	"mongodb":    "27017",
	"redis":      "6379",
	"sqlserver":  "1433",
	"postgres":   "5432",
	"postgresql": "5432",
}

var defaultMigrationTables = []string{
	"schema_migrations",
	"alembic_version",
	"django_migrations",
	"flyway_schema_history",
	"goose_db_version",
}

// Checker verifies the service's database configuration and reachability.
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

// Engine returns the normalized engine name of a connection string.
func Engine(u *url.URL) string {
	engine, _, _ := strings.Cut(strings.ToLower(u.Scheme), "+")
	if engine == "postgresql" {
		return "postgres"
	}
	return engine
}

func (c *Checker) Check(ctx context.Context, _ check.Target, opts check.Options) ([]check.Result, error) {
	dsn := opts.String("dsn", "")
	if dsn == "" {
		return []check.Result{check.Warn("dsn", "no database connection string configured")}, nil
	}

	if isKeywordDSN(dsn) {
		results := []check.Result{
			check.Pass("dsn", "keyword connection string parsed for postgres"),
			check.Pass("engine", "production engine postgres"),
		}
		return append(results, c.checkPostgres(ctx, dsn, opts)...), nil
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return []check.Result{check.Fail("dsn", "connection string is not a valid URL")}, nil
	}

	engine := Engine(u)
	results := []check.Result{check.Pass("dsn", "connection string parsed for %s", engine)}

	switch engine {
	case "sqlite", "sqlite3":
		results = append(results, check.Warn("engine", "SQLite is not suited to production workloads"))
		return append(results, checkSQLiteFile(u)), nil
	case "postgres":
		results = append(results, check.Pass("engine", "production engine %s", engine))
		if strings.Contains(u.Scheme, "+") {
			u.Scheme = "postgres"
			dsn = u.String()
		}
		return append(results, c.checkPostgres(ctx, dsn, opts)...), nil
	default:
		results = append(results, check.Pass("engine", "production engine %s", engine))
		return append(results, c.checkNetwork(ctx, u, engine, opts)...), nil
	}
}

// isKeywordDSN reports whether dsn uses the libpq "key=value" form.
func isKeywordDSN(dsn string) bool {
	return !strings.Contains(dsn, "://") && strings.Contains(dsn, "host=")
}

func checkSQLiteFile(u *url.URL) check.Result {
	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}
	if u.Host != "" {
		path = u.Host + path
	}
	if _, err := os.Stat(path); err != nil {
		return check.Fail("connectivity", "database file %s not accessible", path).WithCritical()
	}
	return check.Pass("connectivity", "database file %s present", path).WithCritical()
}

func (c *Checker) checkPostgres(ctx context.Context, dsn string, opts check.Options) []check.Result {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return []check.Result{check.Fail("connectivity", "invalid postgres configuration: %v", err).WithCritical()}
	}

	var results []check.Result
	results = append(results, checkTLSMode(sslMode(dsn), opts.Bool("require_tls", true)))

	minPool := opts.Int("min_pool_size", 5)
	if int(cfg.MaxConns) >= minPool {
		results = append(results, check.Pass("pool-size", "pool allows %d connections", cfg.MaxConns).
			WithMeasure(float64(cfg.MaxConns), float64(minPool)))
	} else {
		results = append(results, check.Warn("pool-size", "pool allows only %d connections, want at least %d", cfg.MaxConns, minPool).
			WithMeasure(float64(cfg.MaxConns), float64(minPool)))
	}

	timeout := opts.Duration("connect_timeout", 5*time.Second)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err == nil {
		defer pool.Close()
		err = pool.Ping(pingCtx)
	}
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.logger.Warn("database_unreachable", zap.String("host", cfg.ConnConfig.Host), zap.Error(err))
		return append(results, check.Fail("connectivity", "could not connect: %v", err).WithCritical())
	}
	results = append(results, check.Pass("connectivity", "connected in %.0fms", latency).
		WithCritical().
		WithMeasure(latency, float64(timeout.Milliseconds())))

	tables, err := listTables(pingCtx, pool)
	if err != nil {
		return append(results, check.Error("schema", "could not list tables: %v", err))
	}
	results = append(results, checkSchema(tables, opts.Strings("required_tables", nil), opts.Strings("migration_tables", defaultMigrationTables))...)
	return results
}

func listTables(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		  WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = true
	}
	return tables, rows.Err()
}

func checkSchema(tables map[string]bool, required, migrations []string) []check.Result {
	var results []check.Result

	if len(required) > 0 {
		var missing []string
		for _, table := range required {
			if !tables[table] {
				missing = append(missing, table)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			results = append(results, check.Fail("schema", "missing tables: %s", strings.Join(missing, ", ")))
		} else {
			results = append(results, check.Pass("schema", "all %d required tables present", len(required)))
		}
	}

	for _, table := range migrations {
		if tables[table] {
			return append(results, check.Pass("migrations", "migration table %s found", table))
		}
	}
	return append(results, check.Warn("migrations", "no migration table found"))
}

func sslMode(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return u.Query().Get("sslmode")
	}
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "sslmode="); ok {
			return v
		}
	}
	return ""
}

func checkTLSMode(mode string, required bool) check.Result {
	switch mode {
	case "require", "verify-ca", "verify-full":
		return check.Pass("tls", "sslmode=%s", mode)
	}
	if mode == "" {
		mode = "prefer"
	}
	if required {
		return check.Fail("tls", "sslmode=%s does not enforce encryption", mode)
	}
	return check.Warn("tls", "sslmode=%s does not enforce encryption", mode)
}

// checkNetwork covers engines without a bundled driver: it only proves the
// server port accepts connections.
func (c *Checker) checkNetwork(ctx context.Context, u *url.URL, engine string, opts check.Options) []check.Result {
	host := u.Hostname()
	if host == "" {
		return []check.Result{check.Error("connectivity", "connection string has no host")}
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[engine]
	}
	if port == "" {
		return []check.Result{check.Error("connectivity", "unknown default port for %s", engine)}
	}

	var results []check.Result
	q := u.Query()
	if strings.EqualFold(q.Get("tls"), "true") || strings.EqualFold(q.Get("ssl"), "true") {
		results = append(results, check.Pass("tls", "TLS requested in connection string"))
	} else if opts.Bool("require_tls", true) {
		results = append(results, check.Fail("tls", "connection string does not request TLS"))
	} else {
		results = append(results, check.Warn("tls", "connection string does not request TLS"))
	}

	timeout := opts.Duration("connect_timeout", 5*time.Second)
	dialer := &net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		var netErr net.Error
		msg := "connection refused"
		if errors.As(err, &netErr) && netErr.Timeout() {
			msg = "connection timed out"
		}
		return append(results, check.Fail("connectivity", "%s: %s", msg, net.JoinHostPort(host, port)).WithCritical())
	}
	conn.Close()
	latency := float64(time.Since(start).Milliseconds())
	return append(results, check.Pass("connectivity", "port %s open", port).
		WithCritical().
		WithMeasure(latency, float64(timeout.Milliseconds())))
}
