package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var endpointListCmd = &cobra.Command{
	Use:   "endpoint:list",
	Short: "List all API contract endpoints",
	Long:  `Display all endpoints checked by the api category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(cfg.Endpoints) == 0 {
			fmt.Println("No endpoints configured yet; the api category probes the base URL only.")
			fmt.Println("\nAdd an endpoint with:")
			fmt.Println("  readycheck endpoint:add --name <name> --path <path>")
			return nil
		}

		fmt.Printf("Configured endpoints (%d):\n\n", len(cfg.Endpoints))

		for _, ep := range cfg.Endpoints {
			method := ep.Method
			if method == "" {
				method = "GET"
			}
			fmt.Printf("  • %s\n", ep.Name)
			fmt.Printf("    %s %s", method, ep.Path)
			if ep.ExpectedStatus > 0 {
				fmt.Printf(" (expects %d)", ep.ExpectedStatus)
			}
			fmt.Println()

			if ep.SLAMS > 0 {
				fmt.Printf("    SLA: %dms\n", ep.SLAMS)
			}
			if ep.AuthRequired {
				fmt.Println("    Requires authentication")
			}

			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointListCmd)
}
