package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/rcliao/mission-control/internal/debounce"
	"github.com/rcliao/mission-control/internal/store"
)

type fileEvent struct {
	path string
	op   fsnotify.Op
}

// Watch keeps the documents under roots current until ctx is done. File
// events are batched per path over the debounce window; a file that is gone
// when its batch flushes is deleted from the store.
func (ix *Indexer) Watch(ctx context.Context, roots ...string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	w := &watcher{ix: ix, fw: fw}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		if err := w.addTree(abs, abs); err != nil {
			return err
		}
		w.roots = append(w.roots, abs)
		ix.logger.Info("watching root", "path", abs)
	}

	// Flushes run on the debounce timer goroutine. Holding flushMu on exit
	// waits out one already in flight.
	var flushMu sync.Mutex
	d := debounce.New[string, fileEvent](ix.opts.Debounce, 0, func(events []fileEvent) {
		flushMu.Lock()
		defer flushMu.Unlock()
		w.apply(ctx, events)
	})
	defer func() {
		d.Cancel()
		flushMu.Lock()
		flushMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if fe, ok := w.convert(ev); ok {
				d.Add(fe.path, fe)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher error", "err", err)
		}
	}
}

type watcher struct {
	ix    *Indexer
	fw    *fsnotify.Watcher
	mu    sync.Mutex
	roots []string
}

// addTree watches dir and every non-ignored directory below it.
func (w *watcher) addTree(root, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ix.dirIgnored(relSlash(root, p)) {
			return fs.SkipDir
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if err := w.fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *watcher) rootOf(p string) (string, bool) {
	for _, root := range w.roots {
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func (w *watcher) convert(ev fsnotify.Event) (fileEvent, bool) {
	root, ok := w.rootOf(ev.Name)
	if !ok {
		return fileEvent{}, false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(root, ev.Name); err != nil {
				w.ix.logger.Error("watch new directory failed", "path", ev.Name, "err", err)
			}
			return fileEvent{}, false
		}
	}

	if !w.ix.Matches(relSlash(root, ev.Name)) {
		return fileEvent{}, false
	}
	if ev.Op == fsnotify.Chmod {
		return fileEvent{}, false
	}
	return fileEvent{path: ev.Name, op: ev.Op}, true
}

// apply settles a batch. The file system is consulted again because a
// removal may have been followed by a re-create within the window.
func (w *watcher) apply(ctx context.Context, events []fileEvent) {
	for _, ev := range events {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(ev.path); err != nil {
			if err := w.ix.w.DeleteDocument(ctx, ev.path); err != nil && !errors.Is(err, store.ErrNotFound) {
				w.ix.logger.Error("delete document failed", "path", ev.path, "err", err)
				continue
			}
			w.ix.logger.Debug("document removed", "path", ev.path, "op", ev.op)
			continue
		}
		if _, err := w.ix.indexFile(ctx, ev.path); err != nil {
			w.ix.logger.Error("index file failed", "path", ev.path, "err", err)
		}
	}
}
