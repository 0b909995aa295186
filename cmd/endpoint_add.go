package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/juststeveking/readycheck/internal/config"
)

var (
	endpointName           string
	endpointPath           string
	endpointMethod         string
	endpointExpectedStatus int
	endpointContentType    string
	endpointHeaders        map[string]string
	endpointAuthRequired   bool
	endpointSLA            int
	endpointRequiredFields []string
	endpointAssertions     string
	endpointInteractive    bool
)

var endpointAddCmd = &cobra.Command{
	Use:   "endpoint:add",
	Short: "Add an API contract endpoint",
	Long: `Add an endpoint to the api category of your readycheck configuration.

Examples:
  readycheck endpoint:add --name health --path /health --content-type application/json
  readycheck endpoint:add --name users --path /api/users --auth-required --sla-ms 300
  readycheck endpoint:add --name status --path /status --assert status:ok:==
  readycheck endpoint:add --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load existing config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var ep config.Endpoint
		if endpointInteractive {
			if ep, err = promptEndpoint(); err != nil {
				return err
			}
		} else {
			if endpointName == "" {
				return fmt.Errorf("endpoint name is required (--name)")
			}
			if endpointPath == "" {
				return fmt.Errorf("endpoint path is required (--path)")
			}
			ep = config.Endpoint{
				Name:           endpointName,
				Path:           endpointPath,
				Method:         strings.ToUpper(endpointMethod),
				ExpectedStatus: endpointExpectedStatus,
				ContentType:    endpointContentType,
				Headers:        endpointHeaders,
				AuthRequired:   endpointAuthRequired,
				SLAMS:          endpointSLA,
				RequiredFields: endpointRequiredFields,
				JSONAssertions: parseJSONAssertions(endpointAssertions),
			}
		}

		if err := cfg.AddEndpoint(ep); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return configError(err)
		}

		// Save config
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()
		fmt.Printf("✓ Added endpoint '%s' to %s\n", ep.Name, configPath)

		return nil
	},
}

// endpointForm holds the answers of the interactive form.
type endpointForm struct {
	Name           string
	Path           string
	Method         string
	ExpectedStatus string
	ContentType    string
	AuthRequired   bool
	SLA            string
	RequiredFields string
	Headers        string // Formatted as key:value,key:value
	JSONAssertions string // Formatted as path:value:operator,path:value:operator
}

func promptEndpoint() (config.Endpoint, error) {
	data := endpointForm{Method: "GET", ExpectedStatus: "200"}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Endpoint Name").
				Value(&data.Name),
			huh.NewInput().
				Title("Path").
				Description("Relative to the target base URL, e.g. /health").
				Value(&data.Path),
			huh.NewSelect[string]().
				Title("HTTP Method").
				Options(
					huh.NewOption("GET", "GET"),
					huh.NewOption("POST", "POST"),
					huh.NewOption("PUT", "PUT"),
					huh.NewOption("DELETE", "DELETE"),
				).
				Value(&data.Method),
			huh.NewInput().
				Title("Expected Status Code").
				Value(&data.ExpectedStatus),
		).Title("Endpoint Details"),
		huh.NewGroup(
			huh.NewInput().
				Title("Content Type (optional)").
				Value(&data.ContentType),
			huh.NewConfirm().
				Title("Requires authentication?").
				Description("Unauthenticated requests must be rejected with 401 or 403").
				Value(&data.AuthRequired),
			huh.NewInput().
				Title("Response time SLA in ms (optional)").
				Value(&data.SLA),
		).Title("Contract"),
		huh.NewGroup(
			huh.NewInput().
				Title("Required JSON fields (a,b.c)").
				Value(&data.RequiredFields),
			huh.NewInput().
				Title("Custom Headers (key:value,key:value)").
				Value(&data.Headers),
			huh.NewInput().
				Title("JSON Assertions (path:value:operator,...)").
				Description("Example: status:ok:==,uptime:0:>").
				Value(&data.JSONAssertions),
		).Title("Advanced (Optional)"),
	).WithTheme(huh.ThemeCatppuccin()).WithWidth(80).WithShowHelp(true)

	if err := form.Run(); err != nil {
		return config.Endpoint{}, err
	}

	status, _ := strconv.Atoi(data.ExpectedStatus)
	if status == 0 {
		status = 200
	}
	sla, _ := strconv.Atoi(data.SLA)

	ep := config.Endpoint{
		Name:           strings.TrimSpace(data.Name),
		Path:           strings.TrimSpace(data.Path),
		Method:         data.Method,
		ExpectedStatus: status,
		ContentType:    strings.TrimSpace(data.ContentType),
		AuthRequired:   data.AuthRequired,
		SLAMS:          sla,
		JSONAssertions: parseJSONAssertions(data.JSONAssertions),
	}
	if data.Headers != "" {
		ep.Headers = parseHeaders(data.Headers)
	}
	for _, f := range strings.Split(data.RequiredFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			ep.RequiredFields = append(ep.RequiredFields, f)
		}
	}
	return ep, nil
}

// parseHeaders parses headers in key:value,key:value form
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if ok {
			headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return headers
}

// parseJSONAssertions parses assertions in path:value:operator,... form
func parseJSONAssertions(assertionStr string) []config.JSONAssertion {
	var assertions []config.JSONAssertion
	if assertionStr == "" {
		return assertions
	}

	for _, pair := range strings.Split(assertionStr, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) >= 3 {
			assertions = append(assertions, config.JSONAssertion{
				Path:     parts[0],
				Value:    parseJSONValue(parts[1]),
				Operator: parts[2],
			})
		}
	}
	return assertions
}

// parseJSONValue turns a flag value into a bool, a number or a string
func parseJSONValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func init() {
	endpointAddCmd.Flags().StringVarP(&endpointName, "name", "n", "", "endpoint name (required)")
	endpointAddCmd.Flags().StringVarP(&endpointPath, "path", "p", "", "path relative to the base URL (required)")
	endpointAddCmd.Flags().StringVar(&endpointMethod, "method", "GET", "HTTP method")
	endpointAddCmd.Flags().IntVar(&endpointExpectedStatus, "expected-status", 200, "expected HTTP status code")
	endpointAddCmd.Flags().StringVar(&endpointContentType, "content-type", "", "expected content type")
	endpointAddCmd.Flags().StringToStringVar(&endpointHeaders, "headers", nil, "HTTP headers (key=value)")
	endpointAddCmd.Flags().BoolVar(&endpointAuthRequired, "auth-required", false, "unauthenticated requests must be rejected")
	endpointAddCmd.Flags().IntVar(&endpointSLA, "sla-ms", 0, "response time limit in milliseconds")
	endpointAddCmd.Flags().StringSliceVar(&endpointRequiredFields, "required-fields", nil, "JSON fields the response must contain")
	endpointAddCmd.Flags().StringVar(&endpointAssertions, "assert", "", "JSON assertions (path:value:operator,...)")
	endpointAddCmd.Flags().BoolVarP(&endpointInteractive, "interactive", "i", false, "fill in the endpoint with a form")

	rootCmd.AddCommand(endpointAddCmd)
}
