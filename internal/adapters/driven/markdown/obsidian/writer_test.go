package obsidian

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

func testDigest() domain.Digest {
	return domain.Digest{
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		Groups: []domain.DigestGroup{
			{
				Source: "a.csv",
				Entries: []domain.DigestEntry{
					{Title: "Запуск", Date: "2024-01-02 10:11", Body: "Мы запустили\n1) первое\n• второе", Link: "https://t.me/c/1"},
					{Title: "Без текста", Date: "2024-01-03 09:00"},
				},
			},
			{
				Source: "b.csv",
				Entries: []domain.DigestEntry{
					{Title: "Итоги", Date: "вчера", Body: "Коротко"},
				},
			},
		},
	}
}

func TestRenderIndex(t *testing.T) {
	want := "# Содержание\n" +
		"\n" +
		"## a.csv\n" +
		"\n" +
		"1. [[Запуск]] - 2024-01-02 10:11\n" +
		"2. [[Без текста]] - 2024-01-03 09:00\n" +
		"\n" +
		"## b.csv\n" +
		"\n" +
		"1. [[Итоги]] - вчера\n"

	assert.Equal(t, want, RenderIndex(testDigest()))
}

func TestRenderContent(t *testing.T) {
	want := "# Все посты из Telegram каналов\n" +
		"\n" +
		"*Создано: 2024-03-01 12:30*\n" +
		"\n" +
		"## Статистика\n" +
		"- **Всего постов:** 3\n" +
		"- **Источников:** 2\n" +
		"\n" +
		"### Источники:\n" +
		"- a.csv: 2 постов\n" +
		"- b.csv: 1 постов\n" +
		"\n" +
		"## Содержание\n" +
		"\n" +
		"### a.csv\n" +
		"\n" +
		"1. [[Запуск]] - 2024-01-02 10:11\n" +
		"2. [[Без текста]] - 2024-01-03 09:00\n" +
		"\n" +
		"### b.csv\n" +
		"\n" +
		"1. [[Итоги]] - вчера\n" +
		"\n" +
		"---\n" +
		"\n" +
		"## a.csv\n" +
		"\n" +
		"### Запуск\n" +
		"\n" +
		"**Дата:** 2024-01-02 10:11\n" +
		"\n" +
		"Мы запустили\n\n- первое\n\n- второе\n" +
		"\n" +
		"**Ссылка:** https://t.me/c/1\n" +
		"\n" +
		"---\n" +
		"\n" +
		"### Без текста\n" +
		"\n" +
		"**Дата:** 2024-01-03 09:00\n" +
		"\n" +
		"---\n" +
		"\n" +
		"## b.csv\n" +
		"\n" +
		"### Итоги\n" +
		"\n" +
		"**Дата:** вчера\n" +
		"\n" +
		"Коротко\n" +
		"\n" +
		"---\n"

	assert.Equal(t, want, RenderContent(testDigest()))
}

func TestFormatBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single line", "  текст  ", "текст"},
		{"paragraphs", "a\nb", "a\n\nb"},
		{"numbered", "1) один\n9)девять", "- один\n\n- девять"},
		{"zero is not a marker", "0) ноль", "0) ноль"},
		{"two digits keep the first", "10) десять", "10) десять"},
		{"bullets", "• точка\n- тире\n* звезда", "- точка\n\n- тире\n\n- звезда"},
		{"bold is a bullet", "**жирный**", "- *жирный**"},
		{"blank lines kept", "a\n\nb", "a\n\n\n\nb"},
		{"indented marker", "   2) два", "- два"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBody(tt.in))
		})
	}
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	digest := testDigest()

	indexPath, contentPath, err := New().Write(dir, digest)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, IndexFile), indexPath)
	assert.Equal(t, filepath.Join(dir, ContentFile), contentPath)

	index, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.Equal(t, RenderIndex(digest), string(index))

	content, err := os.ReadFile(contentPath)
	require.NoError(t, err)
	assert.Equal(t, RenderContent(digest), string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriter_Write_Overwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("old"), 0o644))

	_, _, err := New().Write(dir, testDigest())

	require.NoError(t, err)
	index, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(index))
}

func TestWriter_Write_BadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, _, err := New().Write(filepath.Join(file, "out"), testDigest())

	assert.Error(t, err)
}
