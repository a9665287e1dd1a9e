package driven

import "github.com/custodia-labs/postdigest/internal/core/domain"

// RecordStore persists records as one JSON object per line.
type RecordStore interface {
	// Open streams the lines of an existing file.
	// Returns domain.ErrArtifactMissing if the file does not exist.
	Open(path string) (LineReader, error)

	// WriteAll replaces the file with the given records atomically.
	WriteAll(path string, records []domain.Record) error

	// Create truncates the file and returns an incremental writer.
	Create(path string) (RecordWriter, error)

	// Resume reopens an existing output for appending. A trailing partial line
	// is truncated first. The keys of the complete records already present are
	// returned so the caller can skip them.
	Resume(path string) (RecordWriter, map[domain.RecordKey]struct{}, error)
}

// LineReader iterates over the lines of a record file.
type LineReader interface {
	// Next advances to the next line. Returns false at end of input or on error.
	Next() bool

	// Line returns the current line without the trailing newline.
	Line() []byte

	// LineNumber returns the 1-based number of the current line.
	LineNumber() int

	// Err returns the first read error, if any.
	Err() error

	// Close releases the file.
	Close() error
}

// RecordWriter writes records one at a time.
// Each Write is flushed to the file before it returns.
type RecordWriter interface {
	// Write appends one record as a line.
	Write(rec domain.Record) error

	// Close releases the file.
	Close() error
}
