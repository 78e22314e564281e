package settings

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// Watch monitors the settings file at path and calls onChange with the newly
// parsed settings each time it is written. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that atomic
// saves (write temp file, rename over path) are seen, including those made by
// File.Put. If a reload fails the error is logged and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*types.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	slog.Info("settings: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			s, err := load(path)
			if err != nil {
				slog.Error("settings: reload failed", "path", path, "err", err)
				continue
			}
			slog.Info("settings: reloaded", "path", path)
			onChange(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("settings: watcher error", "err", err)
		}
	}
}
