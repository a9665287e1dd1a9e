package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineRunner = (*Pipeline)(nil)

// Pipeline runs convert, enrich and render in order.
type Pipeline struct {
	converter driving.Converter
	enricher  driving.Enricher
	renderer  driving.Renderer
}

// NewPipeline creates a pipeline from its three stages.
func NewPipeline(converter driving.Converter, enricher driving.Enricher, renderer driving.Renderer) *Pipeline {
	return &Pipeline{
		converter: converter,
		enricher:  enricher,
		renderer:  renderer,
	}
}

// Run executes the stages in order. After each stage the stage's artifact
// must exist and be non-empty; otherwise the run aborts before the next stage.
func (p *Pipeline) Run(ctx context.Context, opts driving.PipelineOptions) (*driving.PipelineReport, error) {
	report := &driving.PipelineReport{RunID: uuid.New().String()}
	log := logger.With("run_id", report.RunID)
	paths := opts.Paths

	info, err := os.Stat(paths.SourceDir)
	if err != nil || !info.IsDir() {
		return report, fmt.Errorf("%s: %w", paths.SourceDir, domain.ErrSourceDirMissing)
	}

	log.Infow("pipeline started", "source_dir", paths.SourceDir)

	logger.Section("Step 1: convert")
	report.Convert, err = p.converter.Convert(ctx, paths.SourceDir, paths.CombinedFile)
	if err != nil {
		return report, fmt.Errorf("convert stage: %w", err)
	}
	if err := CheckArtifact(paths.CombinedFile); err != nil {
		return report, fmt.Errorf("convert stage: %w", err)
	}
	log.Infow("step 1 complete", "artifact", paths.CombinedFile)

	logger.Section("Step 2: enrich")
	report.Enrich, err = p.enricher.Enrich(ctx, driving.EnrichOptions{
		Input:  paths.CombinedFile,
		Output: paths.EnrichedFile,
		Limit:  opts.Limit,
	})
	if err != nil {
		return report, fmt.Errorf("enrich stage: %w", err)
	}
	if err := CheckArtifact(paths.EnrichedFile); err != nil {
		return report, fmt.Errorf("enrich stage: %w", err)
	}
	log.Infow("step 2 complete", "artifact", paths.EnrichedFile)

	logger.Section("Step 3: render")
	report.Render, err = p.renderer.Render(ctx, paths.EnrichedFile, paths.OutputDir)
	if err != nil {
		return report, fmt.Errorf("render stage: %w", err)
	}
	for _, path := range []string{report.Render.IndexPath, report.Render.ContentPath} {
		if err := CheckArtifact(path); err != nil {
			return report, fmt.Errorf("render stage: %w", err)
		}
	}
	log.Infow("step 3 complete", "artifact", report.Render.ContentPath)

	log.Infow("pipeline complete")
	return report, nil
}

// CheckArtifact verifies that path exists and is a non-empty file.
func CheckArtifact(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, domain.ErrArtifactMissing)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", path, domain.ErrArtifactEmpty)
	}
	return nil
}
