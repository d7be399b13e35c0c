package exercise

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"fcetrainer/internal/metrics"
	"fcetrainer/internal/models"
)

const defaultReloadDebounce = 500 * time.Millisecond

// Watcher reloads a part's pool shortly after its source file changes, so
// edits to the data show up without waiting for the next request to notice.
// Directories are watched rather than files because editors often save by
// renaming a temporary file over the original.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	parts    map[string]models.Part // cleaned absolute source path -> part
	debounce time.Duration
}

// NewWatcher watches the directories holding the store's data sources
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		store:    store,
		watcher:  fw,
		parts:    make(map[string]models.Part),
		debounce: defaultReloadDebounce,
	}

	dirs := make(map[string]bool)
	for part, path := range store.sources {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = filepath.Clean(path)
		}
		w.parts[abs] = part
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		log.Printf("Exercise watcher: watching %s", dir)
	}

	return w, nil
}

// Run handles file events until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	pending := make(map[models.Part]time.Time)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if part, ok := w.match(event); ok {
				pending[part] = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Exercise watcher error: %v", err)

		case now := <-ticker.C:
			for part, changedAt := range pending {
				if now.Sub(changedAt) < w.debounce {
					continue
				}
				delete(pending, part)
				w.reload(part)
			}
		}
	}
}

// match reports the part whose source an event touches. Chmod-only events
// are ignored.
func (w *Watcher) match(event fsnotify.Event) (models.Part, bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	part, ok := w.parts[filepath.Clean(event.Name)]
	return part, ok
}

func (w *Watcher) reload(part models.Part) {
	stats, err := w.store.Reload(part)
	if err != nil {
		log.Printf("Exercise watcher: reloading %s failed: %v", part.Title(), err)
		metrics.PoolReloads.WithLabelValues(string(part), "error").Inc()
		return
	}
	metrics.PoolReloads.WithLabelValues(string(part), "ok").Inc()
	log.Printf("Exercise watcher: reloaded %s (%d usable of %d rows)", part.Title(), stats.Valid, stats.Loaded)
}
