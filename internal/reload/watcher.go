// Package reload applies configuration changes to a running bot: moderation
// rules are swapped in place when the config file changes or on SIGHUP.
package reload

import (
	"context"
	"os"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Watcher polls a file and signals when its modification time or size
// changes. Editors that replace the file are handled the same way.
type Watcher struct {
	path     string
	interval time.Duration
	changes  chan struct{}
}

// NewWatcher returns a watcher for path. A zero interval means 5s.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		path:     path,
		interval: interval,
		changes:  make(chan struct{}, 1),
	}
}

// Changes delivers one value per detected change. Changes seen while a
// previous one is still pending are merged.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last, _ := w.stat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, ok := w.stat()
			// A missing file is usually an editor mid-save.
			if !ok || cur == last {
				continue
			}
			last = cur
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

type fileState struct {
	mod  time.Time
	size int64
}

func (w *Watcher) stat() (fileState, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}, false
	}
	return fileState{mod: info.ModTime(), size: info.Size()}, true
}
