package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// watchQuiet is how long the source directory must stay unchanged before a
// watched run starts.
var watchQuiet = 2 * time.Second

var watchFlag bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run convert, enrich and render in order",
	Long: `Runs all three stages. Each stage's output file must exist and be
non-empty before the next stage starts; the first failure aborts the run.

With --watch, the pipeline runs once and then again whenever CSV files in
the source directory change, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "enrich at most this many input lines (0 = all)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "re-run when the source directory changes")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	settings, err := loadValidSettings(domain.PathSettings{})
	if err != nil {
		return err
	}
	if pipelineRunner == nil {
		return errors.New("pipeline service not configured")
	}

	opts := driving.PipelineOptions{Paths: settings.Paths, Limit: limitFlag}
	ctx := commandContext(cmd)

	runOnce := func(ctx context.Context) error {
		report, err := pipelineRunner.Run(ctx, opts)
		printReport(cmd, report)
		if err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}
		cmd.Println("Pipeline complete.")
		return nil
	}

	if !watchFlag {
		return runOnce(ctx)
	}

	if err := runOnce(ctx); err != nil {
		logger.Error("%v", err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", settings.Paths.SourceDir)
	return watchSource(ctx, settings.Paths.SourceDir, watchQuiet, func(ctx context.Context) error {
		cmd.Println("Source files changed, running pipeline...")
		return runOnce(ctx)
	})
}

func printReport(cmd *cobra.Command, report *driving.PipelineReport) {
	if report == nil {
		return
	}
	if report.Convert != nil {
		cmd.Println("[Convert]")
		printConvertStats(cmd, report.Convert)
	}
	if report.Enrich != nil {
		cmd.Println("[Enrich]")
		printEnrichStats(cmd, report.Enrich)
	}
	if report.Render != nil {
		cmd.Println("[Render]")
		printRenderStats(cmd, report.Render)
	}
}
