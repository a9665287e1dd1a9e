package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driving"
)

func TestRunCmd_PrintsReport(t *testing.T) {
	m := setupCLITest(t)
	m.pipeline.report = &driving.PipelineReport{
		RunID:   "run-1",
		Convert: &domain.ConvertStats{FilesFound: 1, FilesProcessed: 1, Records: 4},
		Enrich:  &domain.EnrichStats{Lines: 4, Titled: 3, Failed: 1},
		Render:  &domain.RenderStats{Records: 4, Sources: 1, IndexPath: "out/toc.md", ContentPath: "out/all.md"},
	}

	out, err := executeCommand(t, "run", "--limit", "4")

	require.NoError(t, err)
	assert.Equal(t, 1, m.pipeline.runs)
	assert.Equal(t, 4, m.pipeline.opts.Limit)
	assert.Equal(t, domain.DefaultPipelineSettings().Paths, m.pipeline.opts.Paths)
	assert.Contains(t, out, "[Convert]")
	assert.Contains(t, out, "[Enrich]")
	assert.Contains(t, out, "Written: 4 (titled 3, failed 1, without text 0)")
	assert.Contains(t, out, "[Render]")
	assert.Contains(t, out, "Pipeline complete.")
}

func TestRunCmd_Failure(t *testing.T) {
	m := setupCLITest(t)
	m.pipeline.report = &driving.PipelineReport{
		Convert: &domain.ConvertStats{FilesFound: 1},
	}
	m.pipeline.err = domain.ErrArtifactEmpty

	out, err := executeCommand(t, "run")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrArtifactEmpty))
	assert.Contains(t, out, "[Convert]")
	assert.NotContains(t, out, "[Enrich]")
	assert.NotContains(t, out, "Pipeline complete.")
}

func TestRunCmd_RequiresValidSettings(t *testing.T) {
	m := setupCLITest(t)
	m.settings.validateErr = domain.ErrAPIKeyMissing

	_, err := executeCommand(t, "run")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAPIKeyMissing))
	assert.Equal(t, 0, m.pipeline.runs)
}

func TestRunCmd_NotConfigured(t *testing.T) {
	setupCLITest(t)
	pipelineRunner = nil

	_, err := executeCommand(t, "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline service not configured")
}

func TestIsSourceEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"csv created", fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Create}, true},
		{"csv written", fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Write}, true},
		{"csv removed", fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Remove}, true},
		{"csv renamed", fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Rename}, true},
		{"csv chmod", fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Write}, false},
		{"upper case extension", fsnotify.Event{Name: "/in/a.CSV", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSourceEvent(tt.event))
		})
	}
}

func TestWatchSource_RunsAfterQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchSource(ctx, dir, 50*time.Millisecond, func(context.Context) error {
			runs.Add(1)
			return errors.New("run failed")
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("text\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("text\n"), 0o644))

	// Both writes fall into one quiet period.
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	// A failed run does not stop watching.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("text\nmore\n"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchSource_MissingDirectory(t *testing.T) {
	err := watchSource(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Millisecond,
		func(context.Context) error { return nil })

	assert.Error(t, err)
}
