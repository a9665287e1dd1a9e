package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultModels is the default OpenRouter model roster, in fallback order.
var DefaultModels = []string{
	"meta-llama/llama-3.1-70b-instruct",
	"meta-llama/llama-3.1-8b-instruct",
	"microsoft/phi-3-mini-128k-instruct",
	"google/gemini-flash-1.5",
	"anthropic/claude-3.5-sonnet",
	"openai/gpt-4o-mini",
	"openai/gpt-4o",
}

// Roster is an ordered ring of interchangeable model identifiers.
type Roster []string

// NewRoster creates a roster, rejecting an empty list or blank identifiers.
func NewRoster(models []string) (Roster, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", ErrInvalidInput)
	}
	roster := make(Roster, len(models))
	for i, m := range models {
		if strings.TrimSpace(m) == "" {
			return nil, fmt.Errorf("%w: roster entry %d is blank", ErrInvalidInput, i)
		}
		roster[i] = m
	}
	return roster, nil
}

// At returns the model at position i, wrapping around the ring.
func (r Roster) At(i int) string {
	return r[r.Wrap(i)]
}

// Wrap maps any position onto the ring.
func (r Roster) Wrap(i int) int {
	n := len(r)
	return ((i % n) + n) % n
}

// Next returns the position after i, wrapping to 0 past the last entry.
func (r Roster) Next(i int) int {
	return r.Wrap(i + 1)
}

// PathSettings holds the artifact locations of the three stages.
type PathSettings struct {
	// SourceDir holds the delimited export files.
	SourceDir string

	// CombinedFile is the convert stage output and enrich stage input.
	CombinedFile string

	// EnrichedFile is the enrich stage output and render stage input.
	EnrichedFile string

	// OutputDir receives the rendered documents.
	OutputDir string
}

// LLMSettings holds the generation endpoint configuration.
type LLMSettings struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string

	// APIKey is the bearer token.
	APIKey string

	// Models is the fallback roster.
	Models []string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxRetries caps consecutive failures before the sentinel is returned.
	MaxRetries int

	// Referer and Title are sent as attribution headers.
	Referer string
	Title   string
}

// IsConfigured returns true if the endpoint can be called.
func (l LLMSettings) IsConfigured() bool {
	return l.BaseURL != "" && l.APIKey != "" && len(l.Models) > 0
}

// EnrichSettings holds enrichment pacing.
type EnrichSettings struct {
	// Pause is the minimum interval between records.
	Pause time.Duration
}

// PipelineSettings is the complete application configuration.
type PipelineSettings struct {
	Paths  PathSettings
	LLM    LLMSettings
	Enrich EnrichSettings
}

// Default configuration values.
const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultPause        = 500 * time.Millisecond
	DefaultReferer      = "https://github.com/custodia-labs/postdigest"
	DefaultRequestTitle = "postdigest"
)

// DefaultPipelineSettings returns the default configuration.
func DefaultPipelineSettings() PipelineSettings {
	models := make([]string, len(DefaultModels))
	copy(models, DefaultModels)

	return PipelineSettings{
		Paths: PathSettings{
			SourceDir:    "input",
			CombinedFile: "work/combined_posts.jsonl",
			EnrichedFile: "work/analyzed_combined_posts.jsonl",
			OutputDir:    "output",
		},
		LLM: LLMSettings{
			BaseURL:    DefaultBaseURL,
			Models:     models,
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
			Referer:    DefaultReferer,
			Title:      DefaultRequestTitle,
		},
		Enrich: EnrichSettings{
			Pause: DefaultPause,
		},
	}
}
