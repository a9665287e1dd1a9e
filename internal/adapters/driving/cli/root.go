// Package cli provides the postdigest command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

var (
	version   = "dev"
	configDir string
	verbose   bool
	bootstrap Bootstrap

	settingsService driving.SettingsService
	converter       driving.Converter
	enricher        driving.Enricher
	renderer        driving.Renderer
	pipelineRunner  driving.PipelineRunner
)

// Services holds the core services driven by the commands.
// Enricher and Pipeline are nil when no API key is configured.
type Services struct {
	Settings  driving.SettingsService
	Converter driving.Converter
	Enricher  driving.Enricher
	Renderer  driving.Renderer
	Pipeline  driving.PipelineRunner
}

// Bootstrap builds the services for a configuration directory.
// An empty directory selects the default location.
type Bootstrap func(configDir string) (*Services, error)

var rootCmd = &cobra.Command{
	Use:   "postdigest",
	Short: "Turn Telegram channel exports into an Obsidian digest",
	Long: `postdigest converts Telegram channel CSV exports into one record file,
adds a generated title to every post, and renders the result as
Obsidian Markdown: a table of contents and a full content document.

Run the stages one by one (convert, enrich, render) or all at once (run).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.postdigest)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with services built by b. SIGINT and
// SIGTERM cancel the command's context.
func Execute(v string, b Bootstrap) error {
	version = v
	bootstrap = b

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// setup applies global flags and builds the services once per invocation.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil {
		return nil
	}
	svcs, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	settingsService = svcs.Settings
	converter = svcs.Converter
	enricher = svcs.Enricher
	renderer = svcs.Renderer
	pipelineRunner = svcs.Pipeline
	return nil
}

// loadSettings returns the current settings with path overrides applied.
func loadSettings(overrides domain.PathSettings) (*domain.PipelineSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if overrides.SourceDir != "" {
		settings.Paths.SourceDir = overrides.SourceDir
	}
	if overrides.CombinedFile != "" {
		settings.Paths.CombinedFile = overrides.CombinedFile
	}
	if overrides.EnrichedFile != "" {
		settings.Paths.EnrichedFile = overrides.EnrichedFile
	}
	if overrides.OutputDir != "" {
		settings.Paths.OutputDir = overrides.OutputDir
	}
	return settings, nil
}

// loadValidSettings is loadSettings followed by validation, for commands
// that call the generation endpoint.
func loadValidSettings(overrides domain.PathSettings) (*domain.PipelineSettings, error) {
	settings, err := loadSettings(overrides)
	if err != nil {
		return nil, err
	}
	if err := settingsService.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
