package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore reads prompt templates from <dir>/<name>.txt. The directory
// is seeded with the built-in templates on first use, so users can edit
// them in place. A missing, unreadable or blank file yields the built-in
// template.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// builtinPrompts are the templates written on first use.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var builtinPrompts = map[string]string{
	driven.PromptTitle: `Создай краткий и информативный заголовок для этого поста из Telegram канала.
Заголовок должен быть на русском языке, отражать суть поста и быть не более 60 символов.

Текст поста:
%s

Заголовок:`,
}

// NewPromptStore creates a prompt store rooted at promptDir, by default
// ~/.postdigest/prompts. No files are touched until the first Load.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template for name. The first call seeds the directory.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.seed)
	if s.initErr != nil {
		return s.builtin(name, s.initErr)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.readTemplate(name)
	if err != nil {
		return s.builtin(name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// builtin returns the built-in template for name, or cause when there is none.
func (s *PromptStore) builtin(name string, cause error) (string, error) {
	if prompt, ok := builtinPrompts[name]; ok {
		logger.Debug("Using built-in %q prompt: %v", name, cause)
		return prompt, nil
	}
	return "", fmt.Errorf("load prompt %q: %w", name, cause)
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// seed creates the prompt directory, the built-in templates that are
// missing and a README.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range builtinPrompts {
		if err := writeIfMissing(s.templatePath(name), content); err != nil {
			s.initErr = fmt.Errorf("seed prompt %q: %w", name, err)
			return
		}
	}

	if err := writeIfMissing(filepath.Join(s.promptDir, "README.md"), promptReadme); err != nil {
		s.initErr = fmt.Errorf("create prompt README: %w", err)
	}
}

func (s *PromptStore) templatePath(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

func (s *PromptStore) readTemplate(name string) (string, error) {
	data, err := os.ReadFile(s.templatePath(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s is blank", s.templatePath(name))
	}
	return prompt, nil
}

// writeIfMissing creates path with content unless it already exists.
func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

const promptReadme = `# postdigest prompts

Templates sent to the title generation model, one file per prompt.

- ` + "`title.txt`" + `: asks for a short Russian title for one post. The
  ` + "`%s`" + ` verb is replaced by the post text (cut to 2000 characters).

Edit a file to change the instructions; the next enrich or run picks it up.
Delete a file to get the built-in template back on the next run. A blank
template, or a title template without ` + "`%s`" + `, falls back to the built-in one.
`
