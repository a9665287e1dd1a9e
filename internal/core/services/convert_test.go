package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postdigest/internal/core/domain"
)

func sourceRecords(source string, texts ...string) []domain.Record {
	records := make([]domain.Record, len(texts))
	for i, text := range texts {
		records[i] = domain.NewRecord().
			WithString("text", text).
			WithString(domain.FieldSourceFile, source).
			WithInt(domain.FieldRowNumber, i+1)
	}
	return records
}

func TestConverter_CombinesFilesInOrder(t *testing.T) {
	source := &mockSource{
		files: []string{"in/a.csv", "in/b.csv"},
		records: map[string][]domain.Record{
			"in/a.csv": sourceRecords("a.csv", "a1", "a2"),
			"in/b.csv": sourceRecords("b.csv", "b1"),
		},
	}
	store := newMemStore()
	converter := NewConverter(source, store)

	stats, err := converter.Convert(context.Background(), "in", "combined.jsonl")

	require.NoError(t, err)
	assert.Equal(t, &domain.ConvertStats{FilesFound: 2, FilesProcessed: 2, Records: 3}, stats)
	assert.Equal(t, []string{
		`{"text":"a1","_source_file":"a.csv","_row_number":1}`,
		`{"text":"a2","_source_file":"a.csv","_row_number":2}`,
		`{"text":"b1","_source_file":"b.csv","_row_number":1}`,
	}, store.lines("combined.jsonl"))
}

func TestConverter_SkipsUnreadableFiles(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no delimiter", domain.ErrNoDelimiter},
		{"decode error", fmt.Errorf("byte 0x98: %w", domain.ErrDecode)},
		{"io error", errors.New("permission denied")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockSource{
				files: []string{"in/bad.csv", "in/good.csv"},
				records: map[string][]domain.Record{
					"in/good.csv": sourceRecords("good.csv", "g1"),
				},
				errs: map[string]error{"in/bad.csv": tt.err},
			}
			store := newMemStore()

			stats, err := NewConverter(source, store).Convert(context.Background(), "in", "combined.jsonl")

			require.NoError(t, err)
			assert.Equal(t, []string{"in/bad.csv", "in/good.csv"}, source.reads)
			assert.Equal(t, 1, stats.FilesProcessed)
			assert.Equal(t, 1, stats.Records)
			assert.Len(t, store.lines("combined.jsonl"), 1)
		})
	}
}

func TestConverter_NoSourceFiles(t *testing.T) {
	store := newMemStore()

	_, err := NewConverter(&mockSource{}, store).Convert(context.Background(), "in", "combined.jsonl")

	assert.True(t, errors.Is(err, domain.ErrNoSourceFiles))
	assert.Zero(t, store.written["combined.jsonl"])
	_, exists := store.files["combined.jsonl"]
	assert.False(t, exists)
}

func TestConverter_NoRecordsWritesNothing(t *testing.T) {
	source := &mockSource{
		files: []string{"in/empty.csv", "in/bad.csv"},
		errs:  map[string]error{"in/bad.csv": domain.ErrNoDelimiter},
	}
	store := newMemStore()

	stats, err := NewConverter(source, store).Convert(context.Background(), "in", "combined.jsonl")

	assert.True(t, errors.Is(err, domain.ErrNoRecords))
	assert.Equal(t, 0, stats.FilesProcessed)
	assert.Zero(t, store.written["combined.jsonl"])
}

func TestConverter_ListError(t *testing.T) {
	source := &mockSource{listErr: domain.ErrSourceDirMissing}

	_, err := NewConverter(source, newMemStore()).Convert(context.Background(), "in", "combined.jsonl")

	assert.True(t, errors.Is(err, domain.ErrSourceDirMissing))
}

func TestConverter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := &mockSource{files: []string{"in/a.csv"}}

	_, err := NewConverter(source, newMemStore()).Convert(ctx, "in", "combined.jsonl")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, source.reads)
}
