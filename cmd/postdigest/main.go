// Command postdigest turns Telegram channel exports into an Obsidian digest.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/postdigest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/llm/openrouter"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/markdown/obsidian"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/pacer"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/source/csvdir"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/postdigest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/postdigest/internal/adapters/driving/cli"
	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/core/services"
	"github.com/custodia-labs/postdigest/internal/logger"
)

var version = "dev"

func main() {
	if err := cli.Execute(version, bootstrap); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// bootstrap wires adapters into services. The enrich stage and the full
// pipeline are only built when an API key is available.
func bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	var configStore driven.ConfigStore
	fileStore, err := file.NewConfigStore(configDir)
	switch {
	case errors.Is(err, file.ErrConfigDirUnavailable):
		logger.Warn("Settings are not persisted: %v", err)
		configStore = memory.NewConfigStore()
	case err != nil:
		return nil, fmt.Errorf("open settings: %w", err)
	default:
		configStore = fileStore
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	for _, key := range settingsService.UnknownKeys() {
		logger.Warn("Ignoring unknown setting %q in %s", key, configStore.Path())
	}

	store := jsonl.NewStore()
	svcs := &cli.Services{
		Settings:  settingsService,
		Converter: services.NewConverter(csvdir.New(), store),
		Renderer:  services.NewRenderer(store, obsidian.New()),
	}

	if !settings.LLM.IsConfigured() {
		logger.Debug("No API key configured, enrich stage disabled")
		return svcs, nil
	}

	client, err := openrouter.NewClient(openrouter.Config{
		APIKey:  settings.LLM.APIKey,
		BaseURL: settings.LLM.BaseURL,
		Timeout: settings.LLM.Timeout,
		Referer: settings.LLM.Referer,
		Title:   settings.LLM.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	roster, err := domain.NewRoster(settings.LLM.Models)
	if err != nil {
		return nil, fmt.Errorf("llm.models: %w", err)
	}
	titles, err := services.NewTitleGenerator(client, roster, settings.LLM.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("create title generator: %w", err)
	}

	promptStore, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	titles.SetPromptStore(promptStore)
	logger.Debug("Prompt templates: %s", promptStore.Dir())

	svcs.Enricher = services.NewEnricher(store, titles, pacer.New(settings.Enrich.Pause))
	svcs.Pipeline = services.NewPipeline(svcs.Converter, svcs.Enricher, svcs.Renderer)
	return svcs, nil
}
