package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
)

func setupEnrichTest(titles TitleSource) (*Enricher, *memStore, *mockPacer) {
	store := newMemStore()
	pacer := &mockPacer{}
	return NewEnricher(store, titles, pacer), store, pacer
}

func constTitle(title string) titleFunc {
	return func(_ context.Context, _ string) string { return title }
}

func TestEnricher_AddsTitleAndKeepsFields(t *testing.T) {
	enricher, store, pacer := setupEnrichTest(constTitle("Заголовок"))
	store.put("in.jsonl",
		`{"text":"Длинный текст поста про новый сервис","date":"2024-01-02 10:00:00","_source_file":"a.csv","_row_number":1}`,
		`{"content":"Другой пост с достаточно длинным текстом","_source_file":"a.csv","_row_number":2}`,
	)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Titled)
	assert.Equal(t, 2, stats.Succeeded())
	assert.Equal(t, 2, pacer.waits)

	lines := store.lines("out.jsonl")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`{"text":"Длинный текст поста про новый сервис","date":"2024-01-02 10:00:00","_source_file":"a.csv","_row_number":1,"ai_generated_title":"Заголовок"}`,
		lines[0])

	// Every input field survives unchanged.
	for i, line := range store.lines("in.jsonl") {
		in := record(t, line)
		out := record(t, lines[i])
		for _, f := range in.Fields() {
			got, ok := out.Get(f.Name)
			require.True(t, ok, f.Name)
			assert.Equal(t, string(f.Value), string(got))
		}
		assert.Equal(t, in.Len()+1, out.Len())
	}
}

func TestEnricher_ContentFieldPriority(t *testing.T) {
	var seen []string
	titles := titleFunc(func(_ context.Context, text string) string {
		seen = append(seen, text)
		return "t"
	})
	enricher, store, _ := setupEnrichTest(titles)
	store.put("in.jsonl",
		`{"post":"from post","message":"from message"}`,
		`{"text":"","content":"from content"}`,
		`{"text":"from text","content":"from content"}`,
		`{"message":42}`,
	)

	_, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, []string{"from message", "from content", "from text", "42"}, seen)
}

func TestEnricher_FailedGenerationStoresPlaceholder(t *testing.T) {
	enricher, store, _ := setupEnrichTest(constTitle(GenerationFailedSentinel))
	store.put("in.jsonl", `{"text":"Длинный текст поста про новый сервис"}`)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Titled)
	assert.Equal(t, 1, stats.Succeeded())

	out := record(t, store.lines("out.jsonl")[0])
	title, _ := out.String(domain.FieldTitle)
	assert.Equal(t, GenerationFailedTitle, title)
}

func TestEnricher_MalformedAndPassThrough(t *testing.T) {
	calls := 0
	titles := titleFunc(func(_ context.Context, _ string) string {
		calls++
		return "Заголовок"
	})
	enricher, store, pacer := setupEnrichTest(titles)
	store.put("in.jsonl",
		`{"text":"Первый пост с длинным текстом"}`,
		`{not json`,
		`{"date":"2024-01-02 10:00:00","link":"https://t.me/c/1"}`,
	)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Titled)
	assert.Equal(t, 1, stats.PassedThrough)
	assert.Equal(t, 2, stats.Succeeded())
	assert.Equal(t, 2, pacer.waits)

	lines := store.lines("out.jsonl")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"ai_generated_title":"Заголовок"`)
	assert.Equal(t, `{"date":"2024-01-02 10:00:00","link":"https://t.me/c/1"}`, lines[1])
}

func TestEnricher_SkipsBlankLines(t *testing.T) {
	enricher, store, _ := setupEnrichTest(constTitle("t"))
	store.put("in.jsonl", `{"text":"Первый пост с длинным текстом"}`, ``, `   `, `{"text":"Второй пост с длинным текстом"}`)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 2, stats.Titled)
	assert.Len(t, store.lines("out.jsonl"), 2)
}

func TestEnricher_Limit(t *testing.T) {
	enricher, store, _ := setupEnrichTest(constTitle("t"))
	store.put("in.jsonl",
		`{"text":"один длинный пост"}`,
		`{"text":"два длинный пост"}`,
		`{"text":"три длинный пост"}`,
	)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl", Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Lines)
	assert.Len(t, store.lines("out.jsonl"), 2)
}

func TestEnricher_Resume(t *testing.T) {
	calls := 0
	titles := titleFunc(func(_ context.Context, _ string) string {
		calls++
		return "new"
	})
	enricher, store, _ := setupEnrichTest(titles)
	store.put("in.jsonl",
		`{"text":"один длинный пост","_source_file":"a.csv","_row_number":1}`,
		`{"text":"два длинный пост","_source_file":"a.csv","_row_number":2}`,
		`{"text":"три длинный пост","_source_file":"b.csv","_row_number":1}`,
	)
	store.put("out.jsonl",
		`{"text":"один длинный пост","_source_file":"a.csv","_row_number":1,"ai_generated_title":"old"}`,
	)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl", Resume: true})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Titled)
	assert.Equal(t, 2, calls)

	lines := store.lines("out.jsonl")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"ai_generated_title":"old"`)
	assert.Contains(t, lines[2], `"_source_file":"b.csv"`)
}

func TestEnricher_CreateTruncatesPreviousOutput(t *testing.T) {
	enricher, store, _ := setupEnrichTest(constTitle("t"))
	store.put("in.jsonl", `{"text":"один длинный пост"}`)
	store.put("out.jsonl", `{"stale":true}`, `{"stale":true}`)

	_, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Len(t, store.lines("out.jsonl"), 1)
}

func TestEnricher_MissingInput(t *testing.T) {
	enricher, _, _ := setupEnrichTest(constTitle("t"))

	_, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "missing.jsonl", Output: "out.jsonl"})

	assert.True(t, errors.Is(err, domain.ErrArtifactMissing))
}

func TestEnricher_RequiresPaths(t *testing.T) {
	enricher, _, _ := setupEnrichTest(constTitle("t"))

	_, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl"})

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestEnricher_CancelDuringGenerationDropsRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	titles := titleFunc(func(_ context.Context, _ string) string {
		cancel()
		return "t"
	})
	enricher, store, _ := setupEnrichTest(titles)
	store.put("in.jsonl", `{"text":"один длинный пост"}`, `{"text":"два длинный пост"}`)

	stats, err := enricher.Enrich(ctx, driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, stats.Titled)
	assert.Empty(t, store.lines("out.jsonl"))
}

func TestEnricher_CancelledBetweenRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	enricher, store, pacer := setupEnrichTest(constTitle("t"))
	pacer.onWait = cancel
	store.put("in.jsonl", `{"text":"один длинный пост"}`, `{"text":"два длинный пост"}`)

	stats, err := enricher.Enrich(ctx, driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, stats.Titled)
	assert.Len(t, store.lines("out.jsonl"), 1)
}

func TestEnricher_PacerError(t *testing.T) {
	enricher, store, pacer := setupEnrichTest(constTitle("t"))
	pacer.err = context.DeadlineExceeded
	store.put("in.jsonl", `{"text":"один длинный пост"}`, `{"text":"два длинный пост"}`)

	_, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, pacer.waits)
}

func TestEnricher_WithTitleGenerator(t *testing.T) {
	completer := &mockCompleter{script: []completion{
		{err: domain.ErrModelUnavailable},
		{err: domain.ErrModelUnavailable},
		{err: domain.ErrUpstreamTimeout},
		{content: `"Второй заголовок"`},
	}}
	gen := newTestGenerator(t, completer, 7, 3)
	enricher, store, _ := setupEnrichTest(gen)
	store.put("in.jsonl",
		`{"text":"Первый пост с длинным текстом"}`,
		`{"text":"ok"}`,
		`{"text":"Третий пост с длинным текстом"}`,
	)

	stats, err := enricher.Enrich(context.Background(), driving.EnrichOptions{Input: "in.jsonl", Output: "out.jsonl"})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Titled)

	var titles []string
	for _, line := range store.lines("out.jsonl") {
		title, _ := record(t, line).String(domain.FieldTitle)
		titles = append(titles, title)
	}
	assert.Equal(t, []string{GenerationFailedTitle, ShortPostTitle, "Второй заголовок"}, titles)
	assert.Equal(t, "model-3", completer.requests[3].Model)
}
