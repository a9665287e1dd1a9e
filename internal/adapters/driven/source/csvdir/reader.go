// Package csvdir reads delimited Windows-1251 exports from a directory.
package csvdir

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.RecordSource = (*Reader)(nil)

const (
	// Extension selects the files of a source directory.
	Extension = ".csv"

	// sniffSize is the prefix searched for a delimiter.
	sniffSize = 1024
)

// candidateDelimiters are tried in order; the first one present in the
// prefix wins.
var candidateDelimiters = []byte{';', ',', '\t'}

// unassigned lists the Windows-1251 bytes with no character. Some decoders
// map them to C1 controls; a valid export never contains them.
var unassigned = [256]bool{0x98: true}

// Reader reads Telegram channel exports: a header row followed by data rows,
// Windows-1251 encoded, with the delimiter detected per file.
type Reader struct {
	codepage *charmap.Charmap
}

// New creates a reader for Windows-1251 files.
func New() *Reader {
	return &Reader{codepage: charmap.Windows1251}
}

// List returns the export files of dir in lexical order.
func (r *Reader) List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", dir, domain.ErrSourceDirMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// Read returns the records of one file. Every value is a string except the
// injected row number.
func (r *Reader) Read(path string) ([]domain.Record, error) {
	name := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	delim, ok := detectDelimiter(raw)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNoDelimiter)
	}
	logger.Debug("Using delimiter %q for %s", delim, name)

	text, err := r.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = rune(delim)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}

	var records []domain.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		rowNumber := len(records) + 1
		if len(row) > len(header) {
			logger.Warn("%s row %d has %d cells for %d columns, extra cells dropped",
				name, rowNumber, len(row), len(header))
		}

		rec := domain.NewRecord()
		for i, column := range header {
			var value string
			if i < len(row) {
				value = cleanValue(row[i])
			}
			rec = rec.WithString(column, value)
		}
		rec = rec.WithString(domain.FieldSourceFile, name).
			WithInt(domain.FieldRowNumber, rowNumber)
		records = append(records, rec)
	}

	logger.Debug("Read %d records from %s", len(records), name)
	return records, nil
}

// decode converts the file to UTF-8. Bytes the code page leaves undefined
// are a decode failure rather than a replacement character.
func (r *Reader) decode(raw []byte) ([]byte, error) {
	for i, b := range raw {
		if unassigned[b] || r.codepage.DecodeByte(b) == utf8.RuneError {
			return nil, fmt.Errorf("%w: byte 0x%02x at offset %d", domain.ErrDecode, b, i)
		}
	}
	text, err := r.codepage.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	return text, nil
}

// detectDelimiter looks for a candidate delimiter in the file prefix.
// All candidates are ASCII, so the raw bytes can be searched before decoding.
func detectDelimiter(raw []byte) (byte, bool) {
	prefix := raw
	if len(prefix) > sniffSize {
		prefix = prefix[:sniffSize]
	}
	for _, d := range candidateDelimiters {
		if bytes.IndexByte(prefix, d) >= 0 {
			return d, true
		}
	}
	return 0, false
}

// cleanValue trims the value and replaces each doubled newline with one.
func cleanValue(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), "\n\n", "\n")
}
