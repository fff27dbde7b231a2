package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StoryBuilder/internal/ports"
	"StoryBuilder/pkg/logger"
)

// InboxWatcher polls a directory on an interval and invokes the job once per
// newly seen image file. One run per image keeps record ownership simple.
type InboxWatcher struct {
	dir      string
	interval time.Duration
	seen     map[string]struct{}
	stop     chan struct{}
	log      interface{ Printf(string, ...any) }
}

var _ ports.InboxWatcher = (*InboxWatcher)(nil)

// NewInboxWatcher builds a watcher over the given directory.
func NewInboxWatcher(dir string, interval time.Duration) *InboxWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &InboxWatcher{
		dir:      dir,
		interval: interval,
		seen:     map[string]struct{}{},
		log:      logger.New("watcher"),
	}
}

// Start begins polling; already-present files are processed on the first scan.
func (w *InboxWatcher) Start(ctx context.Context, job func(ref string)) error {
	if job == nil {
		return nil
	}

	if w.stop != nil {
		return nil
	}

	w.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		w.scan(job)
		for {
			select {
			case <-ticker.C:
				w.scan(job)
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the polling goroutine.
func (w *InboxWatcher) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	return nil
}

func (w *InboxWatcher) scan(job func(ref string)) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Printf("scan %s failed: %v", w.dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := w.seen[path]; ok {
			continue
		}
		w.seen[path] = struct{}{}
		w.log.Printf("processing new notes image %s", path)
		job(path)
	}
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
