package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/config"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the check categories and their settings",
	Long:  `Display every category in run order with its weight, timeout and critical checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		specs, err := cfg.Specs(nil)
		if err != nil {
			return configError(err)
		}
		enabled := make(map[string]config.Spec, len(specs))
		for _, s := range specs {
			enabled[s.Name] = s
		}

		fmt.Printf("%-13s %-8s %6s %8s  %s\n", "CATEGORY", "ENABLED", "WEIGHT", "TIMEOUT", "CRITICAL")
		for _, name := range config.CategoryOrder {
			s, ok := enabled[name]
			if !ok {
				fmt.Printf("%-13s %-8s %6s %8s  %s\n", name, "no", "-", "-", "-")
				continue
			}
			critical := "-"
			if len(s.Critical) > 0 {
				critical = strings.Join(s.Critical, ", ")
			}
			fmt.Printf("%-13s %-8s %6.1f %8s  %s\n", name, "yes", s.Weight, s.Timeout, critical)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
