package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fallbackInterval is the safety-net poll cadence used when fsnotify is
// unavailable or a watch cannot be established.
const fallbackInterval = 60 * time.Second

// Watch invokes onChange whenever the file at path is written or recreated.
// The file's parent directory is watched (editors replace files rather than
// writing in place). Falls back to periodic invocation if fsnotify fails.
// Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, log *zap.Logger, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify unavailable, using fallback poll", zap.Error(err))
		watchPoll(ctx, onChange)
		return
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Warn("watch failed, using fallback poll",
			zap.String("dir", dir), zap.Error(err))
		watchPoll(ctx, onChange)
		return
	}

	base := filepath.Base(path)
	fallback := time.NewTicker(fallbackInterval)
	defer fallback.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-watcher.Events:
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			onChange()
		case err := <-watcher.Errors:
			if err != nil {
				log.Warn("watcher error", zap.Error(err))
			}
		case <-fallback.C:
			// Safety net: re-apply even if an event was missed.
			onChange()
		}
	}
}

// watchPoll is the fsnotify-free fallback.
func watchPoll(ctx context.Context, onChange func()) {
	ticker := time.NewTicker(fallbackInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onChange()
		}
	}
}
