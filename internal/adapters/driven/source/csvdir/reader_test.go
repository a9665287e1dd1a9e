package csvdir

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

// writeCP1251 encodes content as Windows-1251 and writes it to dir/name.
func writeCP1251(t *testing.T, dir, name, content string) string {
	t.Helper()
	encoded, err := charmap.Windows1251.NewEncoder().String(content)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o600))
	return path
}

func recordJSON(t *testing.T, rec domain.Record) string {
	t.Helper()
	b, err := rec.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestReader_Read_Semicolon(t *testing.T) {
	dir := t.TempDir()
	path := writeCP1251(t, dir, "channel.csv",
		"date;text;link\r\n"+
			"2024-01-02 10:00:00;  Привет, мир  ;https://t.me/c/1\r\n"+
			"2024-01-03 11:00:00;\"Первая строка\n\nвторая; с разделителем\";https://t.me/c/2\r\n")

	records, err := New().Read(path)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t,
		`{"date":"2024-01-02 10:00:00","text":"Привет, мир","link":"https://t.me/c/1","_source_file":"channel.csv","_row_number":1}`,
		recordJSON(t, records[0]))

	text, _ := records[1].String("text")
	assert.Equal(t, "Первая строка\nвторая; с разделителем", text)
	row, _ := records[1].Get(domain.FieldRowNumber)
	assert.Equal(t, "2", string(row))
}

func TestReader_Read_DelimiterPriority(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"comma", "a,b\n1,2\n", []string{"a", "b"}},
		{"tab", "a\tb\n1\t2\n", []string{"a", "b"}},
		{"semicolon wins over comma", "a;b\n1,5;2\n", []string{"a", "b"}},
		{"comma wins over tab", "a,b\tc\n1,2\n", []string{"a", "b\tc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCP1251(t, t.TempDir(), "f.csv", tt.content)

			records, err := New().Read(path)

			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, append(tt.want, domain.FieldSourceFile, domain.FieldRowNumber), records[0].Names())
		})
	}
}

func TestReader_Read_DelimiterOnlyAfterPrefix(t *testing.T) {
	content := "header\n" + strings.Repeat("x", 2000) + "\n1;2\n"
	path := writeCP1251(t, t.TempDir(), "f.csv", content)

	_, err := New().Read(path)

	assert.True(t, errors.Is(err, domain.ErrNoDelimiter))
}

func TestReader_Read_NoDelimiter(t *testing.T) {
	path := writeCP1251(t, t.TempDir(), "f.csv", "single\nvalue\n")

	records, err := New().Read(path)

	assert.True(t, errors.Is(err, domain.ErrNoDelimiter))
	assert.Empty(t, records)
}

func TestReader_Read_DecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.csv")
	// 0x98 has no mapping in Windows-1251.
	require.NoError(t, os.WriteFile(path, []byte("a;b\n1;\x98\n"), 0o600))

	records, err := New().Read(path)

	assert.True(t, errors.Is(err, domain.ErrDecode))
	assert.Contains(t, err.Error(), "0x98")
	assert.Empty(t, records)
}

func TestReader_Read_RaggedRows(t *testing.T) {
	path := writeCP1251(t, t.TempDir(), "f.csv", "a;b;c\n1\n1;2;3;4\n")

	records, err := New().Read(path)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `{"a":"1","b":"","c":"","_source_file":"f.csv","_row_number":1}`, recordJSON(t, records[0]))
	assert.Equal(t, `{"a":"1","b":"2","c":"3","_source_file":"f.csv","_row_number":2}`, recordJSON(t, records[1]))
}

func TestReader_Read_SkipsBlankLines(t *testing.T) {
	path := writeCP1251(t, t.TempDir(), "f.csv", "a;b\n\n1;2\n\n3;4\n")

	records, err := New().Read(path)

	require.NoError(t, err)
	require.Len(t, records, 2)
	row, _ := records[1].Get(domain.FieldRowNumber)
	assert.Equal(t, "2", string(row))
}

func TestReader_Read_HeaderOnly(t *testing.T) {
	path := writeCP1251(t, t.TempDir(), "f.csv", "a;b\n")

	records, err := New().Read(path)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReader_Read_HTMLCharactersKept(t *testing.T) {
	path := writeCP1251(t, t.TempDir(), "f.csv", "text\t\n<b>R&D</b>\t\n")

	records, err := New().Read(path)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, recordJSON(t, records[0]), `"text":"<b>R&D</b>"`)
}

func TestReader_Read_MissingFile(t *testing.T) {
	_, err := New().Read(filepath.Join(t.TempDir(), "missing.csv"))

	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoDelimiter))
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"a\n\nb", "a\nb"},
		{"a\n\n\nb", "a\n\nb"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"\n\n a \n\n", "a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanValue(tt.in), "%q", tt.in)
	}
}

func TestReader_List(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "notes.txt", "c.CSV"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.csv"), 0o755))

	files, err := New().List(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, files)
}

func TestReader_List_Empty(t *testing.T) {
	files, err := New().List(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReader_List_MissingDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New().List(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, domain.ErrSourceDirMissing))

	_, err = New().List(file)
	assert.True(t, errors.Is(err, domain.ErrSourceDirMissing))
}
