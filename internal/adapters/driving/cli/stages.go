package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
)

var (
	sourceDirFlag string
	combinedFlag  string
	enrichedFlag  string
	outputDirFlag string
	limitFlag     int
	resumeFlag    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Combine CSV exports into one record file",
	Long: `Reads every *.csv file in the source directory (cp1251, ';', ',' or tab
separated) and writes all rows as JSON lines to the combined file.
Each record gets _source_file and _row_number fields.`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add a generated title to every record",
	Long: `Streams the combined file to the enriched file, asking the configured
models for a short title for every post. Failed generations get a
placeholder title; records without text are copied unchanged.

With --resume, records already present in the enriched file are skipped.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render enriched records as Obsidian Markdown",
	Long: `Groups the enriched records by source file and writes
table_of_contents.md and all_posts.md into the output directory.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	convertCmd.Flags().StringVar(&sourceDirFlag, "source-dir", "", "directory with CSV exports")
	convertCmd.Flags().StringVar(&combinedFlag, "combined", "", "combined record file to write")

	enrichCmd.Flags().StringVar(&combinedFlag, "combined", "", "combined record file to read")
	enrichCmd.Flags().StringVar(&enrichedFlag, "enriched", "", "enriched record file to write")
	enrichCmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "process at most this many input lines (0 = all)")
	enrichCmd.Flags().BoolVar(&resumeFlag, "resume", false, "skip records already in the enriched file")

	renderCmd.Flags().StringVar(&enrichedFlag, "enriched", "", "enriched record file to read")
	renderCmd.Flags().StringVar(&outputDirFlag, "output-dir", "", "directory for the Markdown documents")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(renderCmd)
}

func pathFlags() domain.PathSettings {
	return domain.PathSettings{
		SourceDir:    sourceDirFlag,
		CombinedFile: combinedFlag,
		EnrichedFile: enrichedFlag,
		OutputDir:    outputDirFlag,
	}
}

func runConvert(cmd *cobra.Command, _ []string) error {
	if converter == nil {
		return errors.New("convert service not configured")
	}
	settings, err := loadSettings(pathFlags())
	if err != nil {
		return err
	}

	stats, err := converter.Convert(commandContext(cmd), settings.Paths.SourceDir, settings.Paths.CombinedFile)
	if err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}

	printConvertStats(cmd, stats)
	cmd.Printf("Combined file: %s\n", settings.Paths.CombinedFile)
	return nil
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	settings, err := loadValidSettings(pathFlags())
	if err != nil {
		return err
	}
	if enricher == nil {
		return errors.New("enrich service not configured")
	}

	stats, err := enricher.Enrich(commandContext(cmd), driving.EnrichOptions{
		Input:  settings.Paths.CombinedFile,
		Output: settings.Paths.EnrichedFile,
		Limit:  limitFlag,
		Resume: resumeFlag,
	})
	if stats != nil {
		printEnrichStats(cmd, stats)
	}
	if err != nil {
		return fmt.Errorf("enrich failed: %w", err)
	}

	cmd.Printf("Enriched file: %s\n", settings.Paths.EnrichedFile)
	return nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	if renderer == nil {
		return errors.New("render service not configured")
	}
	settings, err := loadSettings(pathFlags())
	if err != nil {
		return err
	}

	stats, err := renderer.Render(commandContext(cmd), settings.Paths.EnrichedFile, settings.Paths.OutputDir)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	printRenderStats(cmd, stats)
	return nil
}

// commandContext returns the command's context, or a background context
// when the command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printConvertStats(cmd *cobra.Command, stats *domain.ConvertStats) {
	cmd.Printf("Files: %d found, %d processed\n", stats.FilesFound, stats.FilesProcessed)
	cmd.Printf("Records: %d\n", stats.Records)
}

func printEnrichStats(cmd *cobra.Command, stats *domain.EnrichStats) {
	cmd.Printf("Lines: %d\n", stats.Lines)
	cmd.Printf("Written: %d (titled %d, failed %d, without text %d)\n",
		stats.Succeeded(), stats.Titled, stats.Failed, stats.PassedThrough)
	if stats.Skipped > 0 {
		cmd.Printf("Skipped: %d already enriched\n", stats.Skipped)
	}
	if stats.Errors > 0 {
		cmd.Printf("Errors: %d malformed lines\n", stats.Errors)
	}
}

func printRenderStats(cmd *cobra.Command, stats *domain.RenderStats) {
	cmd.Printf("Rendered %d posts from %d sources\n", stats.Records, stats.Sources)
	if stats.Errors > 0 {
		cmd.Printf("Errors: %d malformed lines\n", stats.Errors)
	}
	cmd.Printf("Index: %s\n", stats.IndexPath)
	cmd.Printf("Content: %s\n", stats.ContentPath)
}
