package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/postdigest/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View the effective settings and store the API token.

Other values are edited directly in config.toml inside the configuration
directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsTokenCmd = &cobra.Command{
	Use:   "token [api-key]",
	Short: "Store the API token",
	Long: fmt.Sprintf(`Stores the bearer token used for the generation endpoint.
Without an argument the token is read from the terminal without echo.
The %s environment variable takes precedence over the stored token.`, services.EnvAPIKey),
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsToken,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsTokenCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("File: %s\n", settingsService.Path())
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Source directory: %s\n", settings.Paths.SourceDir)
	cmd.Printf("  Combined file: %s\n", settings.Paths.CombinedFile)
	cmd.Printf("  Enriched file: %s\n", settings.Paths.EnrichedFile)
	cmd.Printf("  Output directory: %s\n", settings.Paths.OutputDir)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	if settings.LLM.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	cmd.Printf("  Max retries: %d\n", settings.LLM.MaxRetries)
	cmd.Println("  Models:")
	for i, model := range settings.LLM.Models {
		cmd.Printf("    %d. %s\n", i+1, model)
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Enrich]")
	cmd.Printf("  Pause: %s\n", settings.Enrich.Pause)

	if unknown := settingsService.UnknownKeys(); len(unknown) > 0 {
		cmd.Println()
		cmd.Println("[Ignored keys]")
		for _, key := range unknown {
			cmd.Printf("  %s\n", key)
		}
	}

	return nil
}

func runSettingsToken(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var key string
	if len(args) > 0 {
		key = strings.TrimSpace(args[0])
	} else {
		cmd.Print("API key: ")
		key = readPassword(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.SetAPIKey(key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	cmd.Printf("API key saved to %s\n", settingsService.Path())
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	// Try to read password without echo
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
