package driven

import "github.com/custodia-labs/postdigest/internal/core/domain"

// RecordSource reads delimited export files.
type RecordSource interface {
	// List returns the source files of a directory in iteration order.
	// Returns domain.ErrSourceDirMissing if the directory does not exist.
	List(dir string) ([]string, error)

	// Read parses one file into records, in row order.
	// Each record carries the reserved source file and row number fields.
	// Returns domain.ErrNoDelimiter or domain.ErrDecode for unreadable files.
	Read(path string) ([]domain.Record, error)
}
