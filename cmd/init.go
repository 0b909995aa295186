package cmd

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/config"
)

var (
	forceInit  bool
	wizardInit bool
	initURL    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize readycheck configuration",
	Long: `Create a readycheck.yml in the current directory with sensible defaults
for every category. Edit this file to describe your service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := initURL
		if wizardInit {
			var err error
			if baseURL, err = promptBaseURL(baseURL); err != nil {
				return err
			}
		}
		if baseURL == "" {
			baseURL = config.DefaultBaseURL
		}

		if err := config.InitConfigFor(baseURL, forceInit); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()

		if forceInit {
			fmt.Printf("✓ Configuration reset at %s\n", configPath)
		} else {
			fmt.Printf("✓ Configuration initialized at %s\n", configPath)
		}

		fmt.Println("\nEdit the config file to describe your service, then run:")
		fmt.Println("  readycheck run")

		return nil
	},
}

func promptBaseURL(current string) (string, error) {
	if current == "" {
		current = config.DefaultBaseURL
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service base URL").
				Description("The running service to certify").
				Value(&current).
				Validate(validateBaseURL),
		).Title("New readycheck configuration"),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return "", err
	}
	return current, nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an absolute http(s) URL")
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration")
	initCmd.Flags().BoolVarP(&wizardInit, "wizard", "w", false, "answer a few questions instead of using defaults")
	initCmd.Flags().StringVar(&initURL, "url", "", "base URL of the service")
	rootCmd.AddCommand(initCmd)
}
