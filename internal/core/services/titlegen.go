package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
	"github.com/custodia-labs/postdigest/internal/logger"
)

// Ensure TitleGenerator can accept custom prompts.
var _ driven.PromptStoreAware = (*TitleGenerator)(nil)

// Fixed titles produced without a successful completion.
const (
	// ShortPostTitle is returned for texts too short to summarise.
	ShortPostTitle = "Короткий пост"

	// GenerationFailedSentinel is returned once the retry limit is reached.
	GenerationFailedSentinel = "Ошибка генерации заголовка"
)

const (
	minTitleSourceRunes = 10
	maxTitleSourceRunes = 2000
	truncationMarker    = "..."
	titleMaxTokens      = 100
	titleTemperature    = 0.7
)

// defaultTitlePrompt is the fallback prompt when no PromptStore is configured.
const defaultTitlePrompt = `Создай краткий и информативный заголовок для этого поста из Telegram канала.
Заголовок должен быть на русском языке, отражать суть поста и быть не более 60 символов.

Текст поста:
%s

Заголовок:`

// GenerationState is the roster position and the number of failed attempts
// since the last successful generation.
type GenerationState struct {
	Position int
	Retries  int
}

// TitleGenerator produces short titles through a ChatCompleter, falling back
// across a roster of models.
//
// State carries over between calls: a call that exhausts its retries leaves
// the position and retry count where they stopped, so the next call starts on
// the following model with the count already at the limit. Only a successful
// completion resets both to zero. A TitleGenerator is not safe for concurrent use.
type TitleGenerator struct {
	completer   driven.ChatCompleter
	roster      domain.Roster
	maxRetries  int
	promptStore driven.PromptStore
	state       GenerationState
}

// NewTitleGenerator creates a title generator starting at roster position 0.
func NewTitleGenerator(completer driven.ChatCompleter, roster domain.Roster, maxRetries int) (*TitleGenerator, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: chat completer is required", domain.ErrInvalidInput)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", domain.ErrInvalidInput)
	}
	if maxRetries < 1 {
		return nil, fmt.Errorf("%w: max retries must be positive", domain.ErrInvalidInput)
	}
	return &TitleGenerator{
		completer:  completer,
		roster:     roster,
		maxRetries: maxRetries,
	}, nil
}

// Generate returns a title for text, ShortPostTitle for texts under ten
// characters, or GenerationFailedSentinel once the retry limit is reached or
// ctx is done. Upstream failures never surface as errors.
func (g *TitleGenerator) Generate(ctx context.Context, text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTitleSourceRunes {
		return ShortPostTitle
	}

	prompt := fmt.Sprintf(g.loadPrompt(), truncateRunes(text, maxTitleSourceRunes))
	req := driven.ChatRequest{
		Messages:    []driven.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	}

	for {
		if ctx.Err() != nil {
			return GenerationFailedSentinel
		}
		req.Model = g.roster.At(g.state.Position)
		logger.Debug("Attempt %d with model %s", g.state.Retries+1, req.Model)

		content, err := g.completer.Complete(ctx, req)
		if err == nil {
			g.state = GenerationState{}
			return cleanTitle(content)
		}

		logger.With("model", req.Model, "attempt", g.state.Retries+1).
			Warnw("title generation failed", "error", err)

		g.state.Position = g.roster.Next(g.state.Position)
		g.state.Retries++
		if g.state.Retries >= g.maxRetries {
			logger.Error("Retry limit of %d reached, next model is %s",
				g.maxRetries, g.roster.At(g.state.Position))
			return GenerationFailedSentinel
		}
	}
}

// State returns the current roster position and retry count.
func (g *TitleGenerator) State() GenerationState {
	return g.state
}

// Reset returns the generator to roster position 0 with no retries.
func (g *TitleGenerator) Reset() {
	g.state = GenerationState{}
}

// CurrentModel returns the model the next attempt will use.
func (g *TitleGenerator) CurrentModel() string {
	return g.roster.At(g.state.Position)
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the generator uses the built-in title prompt.
func (g *TitleGenerator) SetPromptStore(store driven.PromptStore) {
	g.promptStore = store
}

// loadPrompt loads the title prompt, falling back to the default if unavailable.
func (g *TitleGenerator) loadPrompt() string {
	if g.promptStore == nil {
		return defaultTitlePrompt
	}
	prompt, err := g.promptStore.Load(driven.PromptTitle)
	if err != nil || !strings.Contains(prompt, "%s") {
		return defaultTitlePrompt
	}
	return prompt
}

// truncateRunes cuts s to limit runes and appends the truncation marker.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncationMarker
}

// quotePairs lists the surrounding quote pairs stripped from titles.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"«", "»"},
}

// cleanTitle trims whitespace and one pair of surrounding quotes.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range quotePairs {
		if len(s) >= len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
			break
		}
	}
	return s
}
