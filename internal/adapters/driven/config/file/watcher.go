package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// WatchPrompts reloads store whenever a .txt file in dir is written,
// created, renamed or removed. It blocks until ctx is done.
// onReload, if non-nil, runs after each reload.
func WatchPrompts(ctx context.Context, dir string, store driven.PromptStore, onReload func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("watching prompts in %s", dir)

	const interesting = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&interesting == 0 || !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			store.Reload()
			name := strings.TrimSuffix(filepath.Base(event.Name), ".txt")
			logger.Info("prompt %q changed, cache cleared", name)
			if onReload != nil {
				onReload(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt watcher: %v", err)
		}
	}
}
