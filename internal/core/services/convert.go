package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Converter implements the interface.
var _ driving.Converter = (*Converter)(nil)

// Converter combines the records of every source file into one record file.
type Converter struct {
	source driven.RecordSource
	store  driven.RecordStore
}

// NewConverter creates a converter.
func NewConverter(source driven.RecordSource, store driven.RecordStore) *Converter {
	return &Converter{
		source: source,
		store:  store,
	}
}

// Convert reads every source file in file order and writes all records, in
// file then row order, to output. A file that cannot be read is logged and
// skipped. If no file or no record is found nothing is written.
func (c *Converter) Convert(ctx context.Context, sourceDir, output string) (*domain.ConvertStats, error) {
	log := logger.With("stage", "convert", "source_dir", sourceDir)

	files, err := c.source.List(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", sourceDir, domain.ErrNoSourceFiles)
	}
	log.Infow("source files found", "count", len(files))

	stats := &domain.ConvertStats{FilesFound: len(files)}
	var all []domain.Record

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		name := filepath.Base(path)
		records, err := c.source.Read(path)
		switch {
		case errors.Is(err, domain.ErrNoDelimiter):
			log.Warnw("delimiter not detected, file skipped", "file", name)
			continue
		case errors.Is(err, domain.ErrDecode):
			log.Errorw("file is not valid cp1251, file skipped", "file", name, "error", err)
			continue
		case err != nil:
			log.Errorw("failed to read file, file skipped", "file", name, "error", err)
			continue
		}

		if len(records) == 0 {
			log.Warnw("file is empty", "file", name)
			continue
		}

		all = append(all, records...)
		stats.FilesProcessed++
		log.Infow("file converted", "file", name, "records", len(records))
	}

	if len(all) == 0 {
		return stats, fmt.Errorf("%s: %w", sourceDir, domain.ErrNoRecords)
	}

	if err := c.store.WriteAll(output, all); err != nil {
		return stats, fmt.Errorf("write combined records: %w", err)
	}
	stats.Records = len(all)

	log.Infow("conversion complete",
		"records", stats.Records,
		"files_processed", stats.FilesProcessed,
		"files_found", stats.FilesFound,
		"output", output,
	)
	return stats, nil
}
