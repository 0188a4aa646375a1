package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "gamecal/internal/log"
)

// defaultSettle is how long a file must stay quiet before a change fires.
const defaultSettle = 500 * time.Millisecond

// Watcher reports changes to local document files. Editors and scrapers
// often replace files via rename, so the parent directories are watched
// and events are filtered by file name.
type Watcher struct {
	fs     *fsnotify.Watcher
	files  map[string]struct{}
	settle time.Duration

	// fire carries settled bursts from the debounce timer back to Run.
	fire chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the local entries of paths; remote URLs are skipped.
// It returns an error if none of the paths is local.
func NewWatcher(paths []string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = defaultSettle
	}

	files := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" || IsRemote(p) {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("watch: no local document paths")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{fs: fw, files: files, settle: settle, fire: make(chan struct{}, 1)}, nil
}

// Run calls onChange once per settled burst of changes until ctx is done.
// onChange runs on the caller's goroutine, so no call is in flight once
// Run has returned.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.stopTimer()
	defer w.fs.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			appLog.Debug("document changed", "path", ev.Name, "op", ev.Op.String())
			w.schedule()
		case <-w.fire:
			if ctx.Err() != nil {
				return nil
			}
			onChange()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			appLog.Error("document watcher error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
