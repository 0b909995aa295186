package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var endpointShowCmd = &cobra.Command{
	Use:   "endpoint:show <name>",
	Short: "Show details of a specific endpoint",
	Long: `Display the full contract of one endpoint.

Example:
  readycheck endpoint:show health`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ep, ok := cfg.FindEndpoint(args[0])
		if !ok {
			return fmt.Errorf("endpoint '%s' not found", args[0])
		}

		fmt.Printf("Endpoint: %s\n", ep.Name)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("URL:              %s\n", cfg.ResolvedTarget().URL(ep.Path))

		if ep.Method != "" {
			fmt.Printf("Method:           %s\n", ep.Method)
		}
		if ep.ExpectedStatus > 0 {
			fmt.Printf("Expected Status:  %d\n", ep.ExpectedStatus)
		}
		if ep.ContentType != "" {
			fmt.Printf("Content Type:     %s\n", ep.ContentType)
		}
		if ep.SLAMS > 0 {
			fmt.Printf("SLA:              %dms\n", ep.SLAMS)
		}
		fmt.Printf("Auth Required:    %t\n", ep.AuthRequired)
		if ep.Auth != nil && ep.Auth.Type != "" {
			fmt.Printf("Auth:             %s\n", ep.Auth.Type)
		}

		if len(ep.RequiredFields) > 0 {
			fmt.Printf("Required Fields:  %s\n", strings.Join(ep.RequiredFields, ", "))
		}

		if len(ep.Headers) > 0 {
			fmt.Println("\nHeaders:")
			for key, value := range ep.Headers {
				fmt.Printf("  %s: %s\n", key, value)
			}
		}

		if len(ep.JSONAssertions) > 0 {
			fmt.Println("\nAssertions:")
			for _, a := range ep.JSONAssertions {
				fmt.Printf("  %s %s %v\n", a.Path, a.Operator, a.Value)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointShowCmd)
}
