// Package obsidian renders digests as Obsidian-flavoured Markdown.
package obsidian

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure Writer implements the interface.
var _ driven.DigestWriter = (*Writer)(nil)

// Output file names.
const (
	IndexFile   = "table_of_contents.md"
	ContentFile = "all_posts.md"
)

// createdLayout formats the creation stamp of the content document.
const createdLayout = "2006-01-02 15:04"

// Writer writes the index and content documents of a digest.
type Writer struct{}

// New creates a writer.
func New() *Writer {
	return &Writer{}
}

// Write renders both documents into dir, creating it if needed.
// Each file is replaced atomically.
func (w *Writer) Write(dir string, digest domain.Digest) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}

	indexPath := filepath.Join(dir, IndexFile)
	if err := writeFileAtomic(indexPath, RenderIndex(digest)); err != nil {
		return "", "", fmt.Errorf("write index: %w", err)
	}
	logger.Debug("Wrote %s", indexPath)

	contentPath := filepath.Join(dir, ContentFile)
	if err := writeFileAtomic(contentPath, RenderContent(digest)); err != nil {
		return indexPath, "", fmt.Errorf("write content: %w", err)
	}
	logger.Debug("Wrote %s", contentPath)

	return indexPath, contentPath, nil
}

// RenderIndex renders the table of contents.
func RenderIndex(digest domain.Digest) string {
	lines := []string{"# Содержание", ""}
	for _, group := range digest.Groups {
		lines = append(lines, "## "+group.Source, "")
		lines = appendLinks(lines, group)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// RenderContent renders the full document: heading, statistics, contents and
// every post grouped by source.
func RenderContent(digest domain.Digest) string {
	lines := []string{
		"# Все посты из Telegram каналов",
		"",
		fmt.Sprintf("*Создано: %s*", digest.CreatedAt.Format(createdLayout)),
		"",
		"## Статистика",
		fmt.Sprintf("- **Всего постов:** %d", digest.Total()),
		fmt.Sprintf("- **Источников:** %d", len(digest.Groups)),
		"",
		"### Источники:",
	}
	for _, group := range digest.Groups {
		lines = append(lines, fmt.Sprintf("- %s: %d постов", group.Source, len(group.Entries)))
	}
	lines = append(lines, "", "## Содержание", "")

	for _, group := range digest.Groups {
		lines = append(lines, "### "+group.Source, "")
		lines = appendLinks(lines, group)
		lines = append(lines, "")
	}
	lines = append(lines, "---", "")

	for _, group := range digest.Groups {
		lines = append(lines, "## "+group.Source, "")
		for _, entry := range group.Entries {
			lines = append(lines,
				"### "+entry.Title, "",
				"**Дата:** "+entry.Date, "",
			)
			if entry.Body != "" {
				lines = append(lines, FormatBody(entry.Body), "")
			}
			if entry.Link != "" {
				lines = append(lines, "**Ссылка:** "+entry.Link, "")
			}
			lines = append(lines, "---", "")
		}
	}
	return strings.Join(lines, "\n")
}

// appendLinks adds one numbered wiki link per entry.
func appendLinks(lines []string, group domain.DigestGroup) []string {
	for i, entry := range group.Entries {
		lines = append(lines, fmt.Sprintf("%d. [[%s]] - %s", i+1, entry.Title, entry.Date))
	}
	return lines
}

// bulletPrefixes start an unordered list item in the source text.
var bulletPrefixes = []string{"•", "-", "*"}

// FormatBody turns post text into Markdown paragraphs. Every newline is
// doubled, lines are trimmed, and lines starting with "1)".."9)" or a bullet
// become "- " list items.
func FormatBody(text string) string {
	if text == "" {
		return ""
	}

	raw := strings.Split(strings.ReplaceAll(text, "\n", "\n\n"), "\n")
	out := make([]string, len(raw))
	for i, line := range raw {
		out[i] = formatLine(strings.TrimSpace(line))
	}
	return strings.Join(out, "\n")
}

func formatLine(line string) string {
	if line == "" {
		return ""
	}
	if len(line) >= 2 && line[0] >= '1' && line[0] <= '9' && line[1] == ')' {
		return "- " + strings.TrimSpace(line[2:])
	}
	for _, prefix := range bulletPrefixes {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return "- " + strings.TrimSpace(rest)
		}
	}
	return line
}

// writeFileAtomic writes data to a temporary file next to path and renames it.
func writeFileAtomic(path, data string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
