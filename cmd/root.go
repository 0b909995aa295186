package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/config"
)

// Exit codes besides score.ExitReady and score.ExitNotReady.
const exitConfigError = 2

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "readycheck",
	Short: "Certify that a running service is ready for production",
	Long: `readycheck probes a running service across environment, security, API,
database, performance, deployment, logging and monitoring checks, scores every
category and prints a single production readiness verdict.

Configure the target and thresholds in readycheck.yml, then run readycheck in
CI: the exit code is 0 when the service is ready, 1 when it is not and 2 when
the configuration is invalid.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			config.SetPath(configPath)
		}
	},
	RunE: runReadiness,
}

// exitError carries a process exit code out of a command. A nil err exits
// silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	return &exitError{code: exitConfigError, err: err}
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		err = ee.err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}

// loadConfig reads and validates the configuration file. Failures are
// configuration errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, configError(fmt.Errorf("%w (run 'readycheck init' to create one)", err))
		}
		return nil, configError(err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./readycheck.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show every check and log to stderr")
	addRunFlags(rootCmd)
}
