package driving

import "github.com/custodia-labs/postdigest/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, with defaults for anything unset.
	Get() (*domain.PipelineSettings, error)

	// SetAPIKey stores the bearer token in the settings file.
	SetAPIKey(key string) error

	// Validate checks that settings are complete enough to run the pipeline.
	Validate(settings *domain.PipelineSettings) error

	// UnknownKeys lists stored keys that no setting reads, sorted.
	UnknownKeys() []string

	// Path returns the settings file location.
	Path() string
}
