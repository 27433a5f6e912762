package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle coalesces the burst of events an editor or an atomic rename
// produces into one callback.
const watchSettle = 100 * time.Millisecond

// Watcher reports changes to a single plan file. The directory is watched
// rather than the file so that rename-into-place is seen.
type Watcher struct {
	path string
	fw   *fsnotify.Watcher
}

// NewWatcher starts watching the directory containing path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: filepath.Clean(path), fw: fw}, nil
}

// Run calls onChange after the plan file is written or created, until ctx
// is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	settle := time.NewTimer(watchSettle)
	settle.Stop()
	for {
		select {
		case <-ctx.Done():
			settle.Stop()
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == w.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				settle.Reset(watchSettle)
			}
		case <-settle.C:
			slog.Debug("config: plan file changed", "path", w.path)
			onChange()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
