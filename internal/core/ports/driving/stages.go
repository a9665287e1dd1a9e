package driving

import (
	"context"

	"github.com/custodia-labs/postdigest/internal/core/domain"
)

// Converter turns a directory of delimited exports into one record file.
type Converter interface {
	// Convert reads every source file in sourceDir and writes the combined
	// records to output. Nothing is written when no records are found.
	Convert(ctx context.Context, sourceDir, output string) (*domain.ConvertStats, error)
}

// Enricher adds a generated title to every record of a record file.
type Enricher interface {
	// Enrich streams input to output, one output line per valid input line.
	Enrich(ctx context.Context, opts EnrichOptions) (*domain.EnrichStats, error)
}

// EnrichOptions configures an enrich run.
type EnrichOptions struct {
	// Input is the combined record file.
	Input string

	// Output is the enriched record file.
	Output string

	// Limit stops processing after this many input lines. Zero means no limit.
	Limit int

	// Resume appends to an existing output, skipping records already written.
	Resume bool
}

// Renderer turns an enriched record file into linked documents.
type Renderer interface {
	// Render writes the index and content documents into outputDir.
	Render(ctx context.Context, input, outputDir string) (*domain.RenderStats, error)
}
