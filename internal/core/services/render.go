package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driving.Renderer = (*Renderer)(nil)

// Date layouts of the source exports and the rendered documents.
const (
	SourceDateLayout   = "2006-01-02 15:04:05"
	RenderedDateLayout = "2006-01-02 15:04"
)

// bodyFields are the post body fields used by the documents, in priority order.
var bodyFields = []string{"text", "content", "message"}

// Renderer groups enriched records and hands them to a DigestWriter.
type Renderer struct {
	store  driven.RecordStore
	writer driven.DigestWriter
	now    func() time.Time
}

// NewRenderer creates a renderer.
func NewRenderer(store driven.RecordStore, writer driven.DigestWriter) *Renderer {
	return &Renderer{
		store:  store,
		writer: writer,
		now:    time.Now,
	}
}

// SetClock overrides the time source stamped into the documents.
func (r *Renderer) SetClock(now func() time.Time) {
	r.now = now
}

// Render reads every valid record from input and writes the documents into
// outputDir. Malformed lines are logged and skipped; if no record is valid
// nothing is written.
func (r *Renderer) Render(ctx context.Context, input, outputDir string) (*domain.RenderStats, error) {
	log := logger.With("stage", "render", "input", input)

	reader, err := r.store.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer reader.Close()

	stats := &domain.RenderStats{}
	var records []domain.Record

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(reader.Line())
		if len(line) == 0 {
			continue
		}

		rec, err := domain.ParseRecord(line)
		if err != nil {
			stats.Errors++
			log.Errorw("skipping malformed line", "line", reader.LineNumber(), "error", err)
			continue
		}
		records = append(records, rec)
		logger.Debug("Loaded record %d: %s", len(records), entryTitle(rec))
	}
	if err := reader.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}

	if len(records) == 0 {
		return stats, fmt.Errorf("%s: %w", input, domain.ErrNoRecords)
	}

	digest := BuildDigest(records, r.now())
	indexPath, contentPath, err := r.writer.Write(outputDir, digest)
	if err != nil {
		return stats, fmt.Errorf("write documents: %w", err)
	}

	stats.Records = digest.Total()
	stats.Sources = len(digest.Groups)
	stats.IndexPath = indexPath
	stats.ContentPath = contentPath

	log.Infow("render complete",
		"records", stats.Records,
		"sources", stats.Sources,
		"errors", stats.Errors,
		"index", indexPath,
		"content", contentPath,
	)
	return stats, nil
}

// BuildDigest groups records by source file. Groups are sorted by source
// name and keep the order of their records.
func BuildDigest(records []domain.Record, createdAt time.Time) domain.Digest {
	bySource := make(map[string][]domain.DigestEntry)
	for _, rec := range records {
		source := fieldOr(rec, domain.FieldSourceFile, domain.UnknownSource)
		bySource[source] = append(bySource[source], newEntry(rec))
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	digest := domain.Digest{
		CreatedAt: createdAt,
		Groups:    make([]domain.DigestGroup, 0, len(sources)),
	}
	for _, source := range sources {
		digest.Groups = append(digest.Groups, domain.DigestGroup{
			Source:  source,
			Entries: bySource[source],
		})
	}
	return digest
}

// FormatDate reformats a source timestamp, returning it unchanged if it does not parse.
func FormatDate(s string) string {
	t, err := time.Parse(SourceDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(RenderedDateLayout)
}

func newEntry(rec domain.Record) domain.DigestEntry {
	entry := domain.DigestEntry{
		Title: entryTitle(rec),
		Date:  FormatDate(fieldOr(rec, "date", domain.UnknownDate)),
	}

	for _, field := range bodyFields {
		if rec.Has(field) {
			entry.Body, _ = rec.Text(field)
			break
		}
	}

	if link, ok := rec.Text("link"); ok {
		entry.Link = link
	}
	return entry
}

func entryTitle(rec domain.Record) string {
	return fieldOr(rec, domain.FieldTitle, domain.UntitledEntry)
}

// fieldOr returns the field's textual value if present, otherwise def.
// A present string field is returned as-is, even when empty.
func fieldOr(rec domain.Record, name, def string) string {
	if s, ok := rec.String(name); ok {
		return s
	}
	if !rec.Has(name) {
		return def
	}
	raw, _ := rec.Get(name)
	return string(raw)
}
