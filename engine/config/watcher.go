package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadLag is how long the file must stay quiet before it is re-read. Editors usually write a file
// in several steps, and every event restarts the wait.
const reloadLag = 100 * time.Millisecond

// Watch re-reads a config file whenever it is written and delivers every valid result on the returned
// channel. Only the latest unread Config is kept, so a slow reader never sees stale values. Invalid
// files are logged and skipped. The channel is closed when ctx is done.
//
// The directory is watched rather than the file, so saves that replace the file are seen too.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the config file
//
// Returns:
//   - <-chan Config: reloaded configurations
//   - error: error if the watcher could not be started
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	out := make(chan Config, 1)
	go func() {
		defer close(out)
		defer w.Close()

		settle := time.NewTimer(reloadLag)
		settle.Stop()
		defer settle.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				settle.Reset(reloadLag)
			case <-settle.C:
				c, err := Load(abs)
				if err != nil {
					slog.Warn("[Config] reload skipped", "path", path, "error", err)
					continue
				}
				slog.Info("[Config] reloaded", "path", path)
				select {
				case <-out:
				default:
				}
				out <- c
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("[Config] watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
