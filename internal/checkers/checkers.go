// Package checkers assembles the built-in readiness categories.
package checkers

import (
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/checkers/api"
	"github.com/juststeveking/readycheck/internal/checkers/database"
	"github.com/juststeveking/readycheck/internal/checkers/deployment"
	"github.com/juststeveking/readycheck/internal/checkers/envfile"
	"github.com/juststeveking/readycheck/internal/checkers/logging"
	"github.com/juststeveking/readycheck/internal/checkers/monitoring"
	"github.com/juststeveking/readycheck/internal/checkers/security"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/probe"
)

// Set is the registry of built-in checkers plus a handle on the performance
// checker so callers can read the last load summary.
type Set struct {
	Registry    *check.Registry
	Performance *loadgen.Checker
}

// New registers every built-in checker in report order. The driver is shared
// by the load generator.
func New(driver *probe.Driver, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	perf := loadgen.NewChecker(loadgen.New(driver, logger.Named("loadgen")))

	reg := check.NewRegistry()
	reg.Register(envfile.New(logger.Named(envfile.Category)))
	reg.Register(security.New(logger.Named(security.Category)))
	reg.Register(api.New(logger.Named(api.Category)))
	reg.Register(database.New(logger.Named(database.Category)))
	reg.Register(perf)
	reg.Register(deployment.New(logger.Named(deployment.Category)))
	reg.Register(logging.New(logger.Named(logging.Category)))
	reg.Register(monitoring.New(logger.Named(monitoring.Category)))

	return &Set{Registry: reg, Performance: perf}
}
