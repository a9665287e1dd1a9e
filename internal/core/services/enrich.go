package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Enricher implements the interface.
var _ driving.Enricher = (*Enricher)(nil)

// Ensure TitleGenerator satisfies TitleSource.
var _ TitleSource = (*TitleGenerator)(nil)

// GenerationFailedTitle is stored when no title could be generated.
const GenerationFailedTitle = "Не удалось сгенерировать заголовок"

// ContentFields are the candidate post body fields, in priority order.
var ContentFields = []string{"text", "content", "message", "post"}

// TitleSource produces a title for a post body.
type TitleSource interface {
	Generate(ctx context.Context, text string) string
}

// Enricher adds generated titles to a record file, one record at a time.
type Enricher struct {
	store  driven.RecordStore
	titles TitleSource
	pacer  driven.Pacer
}

// NewEnricher creates an enricher. The pacer is optional; without it records
// are processed back to back.
func NewEnricher(store driven.RecordStore, titles TitleSource, pacer driven.Pacer) *Enricher {
	return &Enricher{
		store:  store,
		titles: titles,
		pacer:  pacer,
	}
}

type enrichOutcome int

const (
	outcomeTitled enrichOutcome = iota
	outcomeFailed
	outcomePassedThrough
)

// Enrich streams opts.Input to opts.Output. Every valid input line yields
// exactly one output line, in order; malformed lines are counted and skipped.
// Each output line is flushed before the next record is read, so an
// interrupted run leaves a valid, resumable output.
//
//nolint:gocyclo // Sequential per-line state machine
func (e *Enricher) Enrich(ctx context.Context, opts driving.EnrichOptions) (stats *domain.EnrichStats, err error) {
	if opts.Input == "" || opts.Output == "" {
		return nil, fmt.Errorf("%w: input and output are required", domain.ErrInvalidInput)
	}

	reader, err := e.store.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer reader.Close()

	var (
		writer driven.RecordWriter
		done   map[domain.RecordKey]struct{}
	)
	if opts.Resume {
		writer, done, err = e.store.Resume(opts.Output)
	} else {
		writer, err = e.store.Create(opts.Output)
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	log := logger.With("stage", "enrich", "input", opts.Input)
	if opts.Resume {
		log.Infow("resuming enrichment", "already_written", len(done))
	}

	stats = &domain.EnrichStats{}
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			log.Warnw("enrichment interrupted", "line", reader.LineNumber())
			return stats, err
		}

		lineNum := reader.LineNumber()
		if opts.Limit > 0 && lineNum > opts.Limit {
			log.Infow("line limit reached, stopping", "limit", opts.Limit)
			break
		}
		stats.Lines++

		line := bytes.TrimSpace(reader.Line())
		if len(line) == 0 {
			continue
		}

		rec, err := domain.ParseRecord(line)
		if err != nil {
			stats.Errors++
			log.Errorw("skipping malformed line", "line", lineNum, "error", err)
			continue
		}

		if key, ok := rec.Key(); ok {
			if _, seen := done[key]; seen {
				stats.Skipped++
				continue
			}
		}

		out, outcome := e.enrichRecord(ctx, rec)
		if err := ctx.Err(); err != nil {
			// The in-flight record is not written so a resumed run retries it.
			log.Warnw("enrichment interrupted", "line", lineNum)
			return stats, err
		}
		if err := writer.Write(out); err != nil {
			return stats, fmt.Errorf("write line %d: %w", lineNum, err)
		}

		switch outcome {
		case outcomeTitled:
			stats.Titled++
			title, _ := out.String(domain.FieldTitle)
			log.Infow("title generated", "line", lineNum, "title", title)
		case outcomeFailed:
			stats.Failed++
			log.Warnw("no title generated", "line", lineNum)
		case outcomePassedThrough:
			stats.PassedThrough++
			log.Warnw("no post text found, record passed through", "line", lineNum)
		}

		if e.pacer != nil {
			if err := e.pacer.Wait(ctx); err != nil {
				return stats, err
			}
		}
	}
	if err := reader.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}

	log.Infow("enrichment complete",
		"succeeded", stats.Succeeded(),
		"titled", stats.Titled,
		"failed", stats.Failed,
		"passed_through", stats.PassedThrough,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"lines", stats.Lines,
	)
	return stats, nil
}

// enrichRecord returns the record with a title attached, or unchanged if it
// has no post body.
func (e *Enricher) enrichRecord(ctx context.Context, rec domain.Record) (domain.Record, enrichOutcome) {
	text, ok := postText(rec)
	if !ok {
		return rec, outcomePassedThrough
	}

	title := e.titles.Generate(ctx, text)
	if title == "" || title == GenerationFailedSentinel {
		return rec.WithString(domain.FieldTitle, GenerationFailedTitle), outcomeFailed
	}
	return rec.WithString(domain.FieldTitle, title), outcomeTitled
}

// postText returns the first populated content field.
func postText(rec domain.Record) (string, bool) {
	for _, field := range ContentFields {
		if text, ok := rec.Text(field); ok {
			return text, true
		}
	}
	return "", false
}
