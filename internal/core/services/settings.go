package services

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvAPIKey is the environment variable that overrides the stored API key.
//
//nolint:gosec // G101: This is an environment variable name, not a credential.
const EnvAPIKey = "OPENROUTER_API_KEY"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySourceDir    = "paths.source_dir"
	keyCombinedFile = "paths.combined_file"
	keyEnrichedFile = "paths.enriched_file"
	keyOutputDir    = "paths.output_dir"
	keyLLMBaseURL   = "llm.base_url"
	keyLLMAPIKey    = "llm.api_key"
	keyLLMModels    = "llm.models"
	keyLLMTimeout   = "llm.timeout_seconds"
	keyLLMRetries   = "llm.max_retries"
	keyLLMReferer   = "llm.referer"
	keyLLMTitle     = "llm.title"
	keyEnrichPause  = "enrich.pause_ms"
)

// knownKeys lists every key Get reads.
var knownKeys = map[string]bool{
	keySourceDir: true, keyCombinedFile: true, keyEnrichedFile: true, keyOutputDir: true,
	keyLLMBaseURL: true, keyLLMAPIKey: true, keyLLMModels: true, keyLLMTimeout: true,
	keyLLMRetries: true, keyLLMReferer: true, keyLLMTitle: true, keyEnrichPause: true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current settings. Missing or invalid values fall back to
// defaults; the API key from the environment wins over the stored one.
func (s *SettingsService) Get() (*domain.PipelineSettings, error) {
	defaults := domain.DefaultPipelineSettings()

	settings := &domain.PipelineSettings{
		Paths: domain.PathSettings{
			SourceDir:    s.getString(keySourceDir, defaults.Paths.SourceDir),
			CombinedFile: s.getString(keyCombinedFile, defaults.Paths.CombinedFile),
			EnrichedFile: s.getString(keyEnrichedFile, defaults.Paths.EnrichedFile),
			OutputDir:    s.getString(keyOutputDir, defaults.Paths.OutputDir),
		},
		LLM: domain.LLMSettings{
			BaseURL:    s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:     s.apiKey(),
			Models:     s.getModels(defaults.LLM.Models),
			Timeout:    time.Duration(s.getInt(keyLLMTimeout, int(defaults.LLM.Timeout/time.Second))) * time.Second,
			MaxRetries: s.getInt(keyLLMRetries, defaults.LLM.MaxRetries),
			Referer:    s.getString(keyLLMReferer, defaults.LLM.Referer),
			Title:      s.getString(keyLLMTitle, defaults.LLM.Title),
		},
		Enrich: domain.EnrichSettings{
			Pause: time.Duration(s.getNonNegativeInt(keyEnrichPause, int(defaults.Enrich.Pause/time.Millisecond))) * time.Millisecond,
		},
	}

	return settings, nil
}

// SetAPIKey stores the bearer token in the settings file.
func (s *SettingsService) SetAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: API key is empty", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyLLMAPIKey, key); err != nil {
		return fmt.Errorf("save llm api_key: %w", err)
	}
	return nil
}

// Validate checks that settings are complete enough to run the pipeline.
func (s *SettingsService) Validate(settings *domain.PipelineSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrInvalidInput)
	}

	paths := settings.Paths
	if paths.SourceDir == "" || paths.CombinedFile == "" || paths.EnrichedFile == "" || paths.OutputDir == "" {
		return fmt.Errorf("%w: all paths must be set", domain.ErrInvalidInput)
	}

	if settings.LLM.APIKey == "" {
		return fmt.Errorf("%w: set %s or run 'postdigest settings token'", domain.ErrAPIKeyMissing, EnvAPIKey)
	}
	if settings.LLM.BaseURL == "" {
		return fmt.Errorf("%w: llm.base_url is empty", domain.ErrInvalidInput)
	}
	if _, err := domain.NewRoster(settings.LLM.Models); err != nil {
		return fmt.Errorf("llm.models: %w", err)
	}
	if settings.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout_seconds must be positive", domain.ErrInvalidInput)
	}
	if settings.LLM.MaxRetries < 1 {
		return fmt.Errorf("%w: llm.max_retries must be at least 1", domain.ErrInvalidInput)
	}
	return nil
}

// UnknownKeys lists stored keys that no setting reads, usually typos.
func (s *SettingsService) UnknownKeys() []string {
	var unknown []string
	for _, key := range s.configStore.Keys() {
		if !knownKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// Path returns the settings file location.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func (s *SettingsService) apiKey() string {
	if key, ok := s.lookupEnv(EnvAPIKey); ok && key != "" {
		return key
	}
	return s.configStore.GetString(keyLLMAPIKey)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getNonNegativeInt treats an explicit zero as a valid value.
func (s *SettingsService) getNonNegativeInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getModels(defaultVal []string) []string {
	models := s.configStore.GetStringSlice(keyLLMModels)
	if _, err := domain.NewRoster(models); err != nil {
		return defaultVal
	}
	return models
}
