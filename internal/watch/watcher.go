package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/maxkimambo/sitepipe/internal/logger"
)

// Op is the kind of change an Event reports.
type Op uint8

const (
	Create Op = 1 << iota
	Write
	Remove
	Rename
)

func (op Op) String() string {
	var names []string
	if op&Create != 0 {
		names = append(names, "created")
	}
	if op&Write != 0 {
		names = append(names, "written")
	}
	if op&Remove != 0 {
		names = append(names, "removed")
	}
	if op&Rename != 0 {
		names = append(names, "renamed")
	}
	if len(names) == 0 {
		return "changed"
	}
	return strings.Join(names, "|")
}

// Event is one change to a file under the watched root. Path is slash
// separated and relative to the root.
type Event struct {
	Path string
	Op   Op
}

// Watcher converts fsnotify notifications under a root directory into
// Events. Directories created after start are watched as well.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan Event
}

// NewWatcher watches root and every directory below it.
func NewWatcher(root string) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		root:   abs,
		fsw:    fsw,
		events: make(chan Event, 64),
	}
	if err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the event channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards events until ctx is cancelled, then closes the underlying
// watcher and the event channel.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			ev, ok := w.convert(fev)
			if !ok {
				continue
			}
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Op.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Warn("Watcher error")
		}
	}
}

func (w *Watcher) convert(fev fsnotify.Event) (Event, bool) {
	if shouldIgnore(fev.Name) {
		return Event{}, false
	}
	if fev.Has(fsnotify.Create) {
		if fi, err := os.Stat(fev.Name); err == nil && fi.IsDir() {
			if err := w.addRecursive(fev.Name); err != nil {
				logger.Op.WithFields(map[string]interface{}{
					"dir":   fev.Name,
					"error": err.Error(),
				}).Warn("Failed to watch new directory")
			}
			return Event{}, false
		}
	}

	var op Op
	if fev.Has(fsnotify.Create) {
		op |= Create
	}
	if fev.Has(fsnotify.Write) {
		op |= Write
	}
	if fev.Has(fsnotify.Remove) {
		op |= Remove
	}
	if fev.Has(fsnotify.Rename) {
		op |= Rename
	}
	if op == 0 {
		return Event{}, false
	}

	rel, err := filepath.Rel(w.root, fev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Event{}, false
	}
	logger.Op.WithFields(map[string]interface{}{
		"path": rel,
		"op":   fev.Op.String(),
	}).Debug("File change detected")
	return Event{Path: filepath.ToSlash(rel), Op: op}, true
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// shouldIgnore reports hidden files and editor swap or backup files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "4913", base == "Thumbs.db":
		return true
	}
	return false
}

// Watch watches srcDir and feeds changes to d until ctx is cancelled.
func Watch(ctx context.Context, srcDir string, d *Dispatcher) error {
	w, err := NewWatcher(srcDir)
	if err != nil {
		return err
	}
	logger.User.Watchf("Watching %s for changes", srcDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return d.Run(gctx, w.Events()) })
	return g.Wait()
}
