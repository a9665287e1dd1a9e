// Package jsonl stores records as newline-delimited JSON objects.
package jsonl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

const (
	defaultBufSize  = 64 * 1024
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Store reads and writes JSONL record files on the local filesystem.
// Parent directories are created on write.
type Store struct {
	bufSize int
}

// NewStore creates a JSONL store.
func NewStore() *Store {
	return &Store{bufSize: defaultBufSize}
}

// Open streams the lines of path.
func (s *Store) Open(path string) (driven.LineReader, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &lineReader{f: f, br: bufio.NewReaderSize(f, s.bufSize)}, nil
}

// WriteAll writes records to a temporary file in the target directory and
// renames it over path, so readers never see a partial file.
func (s *Store) WriteAll(path string, records []domain.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriterSize(tmp, s.bufSize)
	for i, rec := range records {
		if err := writeLine(bw, rec); err != nil {
			return fail(fmt.Errorf("write record %d: %w", i+1, err))
		}
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("flush: %w", err))
	}
	if err := tmp.Chmod(defaultFileMode); err != nil {
		return fail(fmt.Errorf("chmod: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	logger.Debug("Wrote %d records to %s", len(records), path)
	return nil
}

// Create truncates path and returns a writer that flushes every record.
func (s *Store) Create(path string) (driven.RecordWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &recordWriter{f: f}, nil
}

// Resume reopens path for appending. A missing file behaves like Create.
// A trailing line without a newline is an interrupted write and is cut off.
func (s *Store) Resume(path string) (driven.RecordWriter, map[domain.RecordKey]struct{}, error) {
	done := make(map[domain.RecordKey]struct{})

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		w, err := s.Create(path)
		return w, done, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	complete := data[:bytes.LastIndexByte(data, '\n')+1]
	if len(complete) < len(data) {
		logger.Warn("Dropping %d bytes of partial line at end of %s", len(data)-len(complete), path)
		if err := os.Truncate(path, int64(len(complete))); err != nil {
			return nil, nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}

	for _, line := range bytes.Split(complete, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		rec, err := domain.ParseRecord(line)
		if err != nil {
			continue
		}
		if key, ok := rec.Key(); ok {
			done[key] = struct{}{}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &recordWriter{f: f}, done, nil
}

// writeLine encodes rec followed by a newline.
func writeLine(w io.Writer, rec domain.Record) error {
	b, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

type lineReader struct {
	f    *os.File
	br   *bufio.Reader
	line []byte
	num  int
	err  error
	eof  bool
}

func (r *lineReader) Next() bool {
	if r.eof || r.err != nil {
		return false
	}
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = err
			return false
		}
		r.eof = true
		if len(line) == 0 {
			return false
		}
	}
	r.num++
	line = bytes.TrimSuffix(line, []byte{'\n'})
	r.line = bytes.TrimSuffix(line, []byte{'\r'})
	return true
}

func (r *lineReader) Line() []byte    { return r.line }
func (r *lineReader) LineNumber() int { return r.num }
func (r *lineReader) Err() error      { return r.err }
func (r *lineReader) Close() error    { return r.f.Close() }

// recordWriter issues one write per record, so every complete call leaves a
// complete line in the file.
type recordWriter struct {
	f *os.File
}

func (w *recordWriter) Write(rec domain.Record) error {
	return writeLine(w.f, rec)
}

func (w *recordWriter) Close() error {
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}
