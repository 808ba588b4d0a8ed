package capture

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hummingbird/pkg/logger"
)

// debounce lets the camera finish writing a file before we read it;
// most writers emit several WRITE events per capture.
const debounce = 500 * time.Millisecond

// Watcher processes images as they appear in the capture directory.
type Watcher struct {
	dir      string
	ingestor *Ingestor

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(dir string, ingestor *Ingestor) *Watcher {
	return &Watcher{
		dir:      dir,
		ingestor: ingestor,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches the directory until the context is canceled. Per-file
// failures are logged and skipped; one bad frame never stops the
// pipeline.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	logger.Info("watching capture directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImage(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule (re)arms the debounce timer for a path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Reset(debounce)
		return
	}
	w.pending[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.ingestor.IngestFile(ctx, path); err != nil {
			logger.Error("capture ingest failed", "path", path, "error", err)
		}
	})
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
