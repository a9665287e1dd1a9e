package driven

// ConfigStore holds flat, dot-separated settings keys such as
// "llm.models" or "paths.source_dir".
type ConfigStore interface {
	// Get returns the raw value stored under key.
	Get(key string) (any, bool)

	// GetString returns "" when key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 when key is missing or not numeric.
	GetInt(key string) int

	// GetStringSlice returns nil when key is missing or not a list.
	GetStringSlice(key string) []string

	// Set stores value under key and persists it.
	Set(key string, value any) error

	// Keys returns every stored key.
	Keys() []string

	// Path returns where the settings are persisted.
	Path() string
}
