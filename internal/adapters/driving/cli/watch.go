package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/postdigest/internal/logger"
)

// watchSource calls run each time the CSV files in dir change and then stay
// quiet for the given duration. It returns nil when ctx is cancelled. Errors
// from run are logged and watching continues.
func watchSource(ctx context.Context, dir string, quiet time.Duration, run func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSourceEvent(event) {
				continue
			}
			logger.Debug("Source change: %s %s", event.Op, filepath.Base(event.Name))
			if timer == nil {
				timer = time.NewTimer(quiet)
			} else {
				timer.Reset(quiet)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-fire:
			fire = nil
			if err := run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("%v", err)
			}
		}
	}
}

// isSourceEvent reports whether event touches a source file.
func isSourceEvent(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".csv" {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
