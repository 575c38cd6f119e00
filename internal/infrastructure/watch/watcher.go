package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no window is configured.
const DefaultDebounce = 300 * time.Millisecond

// Change is the latest event seen for one file within a debounce window.
type Change struct {
	Path    string
	Removed bool
}

// Watcher batches changes to matching files in a directory tree.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	onChange func([]Change)

	mu      sync.Mutex
	pending map[string]Change
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithFilter(f Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// New creates a Watcher. onChange receives each batch sorted by path.
func New(onChange func([]Change), opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		debounce: DefaultDebounce,
		filter:   DocumentFilter,
		onChange: onChange,
		pending:  make(map[string]Change),
	}
	for _, fn := range opts {
		fn(w)
	}
	return w, nil
}

// Add watches root and every directory below it.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run delivers batches until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, w.flush)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
					continue
				}
			}
			if !w.record(event) {
				continue
			}
			debouncer.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) record(event fsnotify.Event) bool {
	if !w.filter.Match(event.Name) {
		return false
	}
	var change Change
	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		change = Change{Path: event.Name}
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		change = Change{Path: event.Name, Removed: true}
	default:
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] = change
	w.mu.Unlock()
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	batch := make([]Change, 0, len(w.pending))
	for _, c := range w.pending {
		batch = append(batch, c)
	}
	w.pending = make(map[string]Change)
	w.mu.Unlock()

	if len(batch) == 0 || w.onChange == nil {
		return
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	w.onChange(batch)
}
