package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mcp-gateway/gateway/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the gateway's provider, model and parameter configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure a provider interactively",
	Long:  `Prompt for one provider's credentials and default model, then make it the active provider.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration document.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate that the active provider has credentials and a known model.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("MCP Gateway Configuration Setup")
	color.Yellow("Known providers: %s", strings.Join(config.KnownProviders, ", "))

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("\nProvider name: ")
	providerName, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading provider name: %w", err)
	}
	providerName = strings.TrimSpace(providerName)

	if !knownProvider(providerName) {
		return fmt.Errorf("unknown provider %q, must be one of %s", providerName, strings.Join(config.KnownProviders, ", "))
	}

	fmt.Print("API Key: ")
	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading API key: %w", err)
	}
	apiKey = strings.TrimSpace(apiKey)

	fmt.Printf("Default Model [%s]: ", config.DefaultProviderModels[providerName][0])
	model, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading model: %w", err)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = config.DefaultProviderModels[providerName][0]
	}

	fmt.Print("Gateway API Key (optional, required from clients to call this gateway): ")
	gatewayAPIKey, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading gateway API key: %w", err)
	}
	gatewayAPIKey = strings.TrimSpace(gatewayAPIKey)

	doc, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if gatewayAPIKey != "" {
		doc.APIKey = gatewayAPIKey
	}
	doc.Provider.Models[providerName].APIKey = apiKey
	doc.Provider.Models[providerName].Model = model
	doc.Provider.Active = providerName

	if err := cfgMgr.Save(doc); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.Path())
	color.Cyan("You can now start the gateway with: gatewayctl start")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run 'gatewayctl config init' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-15s: %s\n", "Gateway API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.Path())
	fmt.Printf("  %-15s: %s\n", "Active Provider", cfg.Provider.Active)

	fmt.Println("\nProviders:")
	for _, name := range config.KnownProviders {
		rec := cfg.Provider.Models[name]
		if rec == nil {
			continue
		}
		fmt.Printf("  - %s\n", name)
		fmt.Printf("    Model: %s\n", rec.Model)
		fmt.Printf("    API Key: %s\n", maskString(rec.APIKey))
		fmt.Printf("    Temperature: %v\n", rec.Temperature)
		fmt.Printf("    Max Tokens: %d\n", rec.MaxTokens)
		fmt.Println()
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return fmt.Errorf("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var validationErrors []string

	rec, ok := cfg.Provider.Models[cfg.Provider.Active]
	if !ok {
		validationErrors = append(validationErrors, fmt.Sprintf("active provider %q has no configuration record", cfg.Provider.Active))
	} else {
		if rec.APIKey == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("provider %q: API key is required", cfg.Provider.Active))
		}
		if rec.Model == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("provider %q: model is required", cfg.Provider.Active))
		}
	}

	if len(validationErrors) > 0 {
		color.Red("Configuration validation failed:")
		for _, msg := range validationErrors {
			fmt.Printf("  - %s\n", msg)
		}
		return fmt.Errorf("configuration validation failed")
	}

	color.Green("Configuration is valid!")

	return nil
}

func knownProvider(name string) bool {
	for _, p := range config.KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}

	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}

	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
