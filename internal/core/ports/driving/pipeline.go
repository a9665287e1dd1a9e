package driving

import (
	"context"

	"github.com/custodia-labs/postdigest/internal/core/domain"
)

// PipelineRunner sequences the convert, enrich and render stages.
type PipelineRunner interface {
	// Run executes all stages in order, validating each stage's artifact
	// before starting the next. The first failure aborts the run.
	Run(ctx context.Context, opts PipelineOptions) (*PipelineReport, error)
}

// PipelineOptions configures a pipeline run.
type PipelineOptions struct {
	// Paths locates the stage artifacts.
	Paths domain.PathSettings

	// Limit is passed to the enrich stage.
	Limit int
}

// PipelineReport collects the statistics of each completed stage.
type PipelineReport struct {
	// RunID identifies the run in logs.
	RunID string

	Convert *domain.ConvertStats
	Enrich  *domain.EnrichStats
	Render  *domain.RenderStats
}
