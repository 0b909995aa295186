package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/config"
)

var removeForce bool

var endpointRemoveCmd = &cobra.Command{
	Use:   "endpoint:remove <name>...",
	Short: "Remove API contract endpoints",
	Long: `Remove one or more API contract endpoints by name. Nothing is removed
unless every name exists.

Example:
  readycheck endpoint:remove health
  readycheck endpoint:remove users orders --force`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		targets, err := lookupEndpoints(cfg, args)
		if err != nil {
			return configError(err)
		}

		out := cmd.OutOrStdout()
		for _, ep := range targets {
			fmt.Fprintf(out, "  %s\n", describeEndpoint(ep))
		}

		if !removeForce {
			ok, err := confirmRemoval(cmd.InOrStdin(), out, len(targets))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Nothing removed.")
				return nil
			}
		}

		for _, ep := range targets {
			if err := cfg.RemoveEndpoint(ep.Name); err != nil {
				return err
			}
		}
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()
		fmt.Fprintf(out, "✓ Removed %d endpoint(s) from %s; %d left in the contract\n", len(targets), configPath, len(cfg.Endpoints))
		return nil
	},
}

// lookupEndpoints resolves every name, reporting all unknown names at once.
func lookupEndpoints(cfg *config.Config, names []string) ([]config.Endpoint, error) {
	var (
		found   []config.Endpoint
		unknown []string
		seen    = make(map[string]bool, len(names))
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		ep, ok := cfg.FindEndpoint(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		found = append(found, ep)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown endpoint(s): %s", strings.Join(unknown, ", "))
	}
	return found, nil
}

func describeEndpoint(ep config.Endpoint) string {
	method := ep.Method
	if method == "" {
		method = "GET"
	}
	line := fmt.Sprintf("%-12s %-6s %s", ep.Name, strings.ToUpper(method), ep.Path)
	if ep.ExpectedStatus != 0 {
		line += fmt.Sprintf(" (expects %d)", ep.ExpectedStatus)
	}
	return line
}

// confirmRemoval asks with a huh prompt on a terminal and reads a y/N line
// from in otherwise.
func confirmRemoval(in io.Reader, out io.Writer, n int) (bool, error) {
	title := fmt.Sprintf("Remove %d endpoint(s) from the contract?", n)
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		var yes bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Affirmative("Remove").
					Negative("Keep").
					Value(&yes),
			),
		).WithTheme(huh.ThemeCatppuccin()).Run()
		return yes, err
	}

	fmt.Fprintf(out, "%s (y/N): ", title)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	endpointRemoveCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "skip confirmation prompt")
	rootCmd.AddCommand(endpointRemoveCmd)
}
