// Package indexer keeps the document collection in step with files on disk.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/store"
)

// Writer is the document store the indexer maintains.
type Writer interface {
	UpsertDocument(ctx context.Context, in model.DocumentInput) (*model.Document, error)
	DeleteDocument(ctx context.Context, path string) error
	AllDocuments(ctx context.Context) ([]model.Document, error)
}

// Options selects which files are indexed. Patterns are doublestar globs
// matched against slash-separated paths relative to the indexed root.
type Options struct {
	Include      []string
	Ignore       []string
	MaxFileBytes int64 // 0 means no limit
	Debounce     time.Duration
}

// Result summarizes one indexing pass.
type Result struct {
	Root    string   `json:"root"`
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// Indexer walks directories and upserts matching files as documents.
type Indexer struct {
	w      Writer
	opts   Options
	logger *log.Logger
}

func New(w Writer, opts Options, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Indexer{w: w, opts: opts, logger: logger}
}

// IndexRoot indexes every matching file under root and removes documents
// under root whose files no longer exist. Per-file failures are collected
// in the result rather than aborting the pass.
func (ix *Indexer) IndexRoot(ctx context.Context, root string) (*Result, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("index root %s: not a directory", root)
	}

	res := &Result{Root: root}
	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel := relSlash(root, p)
		if d.IsDir() {
			if p != root && ix.dirIgnored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !ix.Matches(rel) {
			return nil
		}

		ok, err := ix.indexFile(ctx, p)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, err.Error())
		case ok:
			res.Indexed++
			seen[p] = true
		default:
			res.Skipped++
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	removed, err := ix.prune(ctx, root, seen)
	res.Removed = removed
	if err != nil {
		return res, err
	}

	ix.logger.Info("index pass finished", "root", root, "indexed", res.Indexed,
		"skipped", res.Skipped, "removed", res.Removed, "errors", len(res.Errors))
	return res, nil
}

// prune deletes documents stored under root that the walk did not index.
func (ix *Indexer) prune(ctx context.Context, root string, seen map[string]bool) (int, error) {
	docs, err := ix.w.AllDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	prefix := root + string(filepath.Separator)
	removed := 0
	for _, d := range docs {
		if !strings.HasPrefix(d.Path, prefix) || seen[d.Path] {
			continue
		}
		if _, err := os.Stat(d.Path); err == nil {
			// Still on disk but no longer matched; leave it.
			continue
		}
		if err := ix.w.DeleteDocument(ctx, d.Path); err != nil && !errors.Is(err, store.ErrNotFound) {
			return removed, fmt.Errorf("delete %s: %w", d.Path, err)
		}
		ix.logger.Debug("document removed", "path", d.Path)
		removed++
	}
	return removed, nil
}

// IndexFile upserts one file. It reports false when the file is skipped
// for exceeding the size limit.
func (ix *Indexer) IndexFile(ctx context.Context, p string) (bool, error) {
	p, err := filepath.Abs(p)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	return ix.indexFile(ctx, p)
}

func (ix *Indexer) indexFile(ctx context.Context, p string) (bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	if ix.opts.MaxFileBytes > 0 && info.Size() > ix.opts.MaxFileBytes {
		ix.logger.Debug("file too large, skipped", "path", p, "size", info.Size())
		return false, nil
	}
	content, err := os.ReadFile(p)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p, err)
	}

	size := int64(len(content))
	doc, err := ix.w.UpsertDocument(ctx, model.DocumentInput{
		Path:    p,
		Name:    filepath.Base(p),
		Content: string(content),
		Type:    model.DocumentTypeFor(p),
		Size:    &size,
	})
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", p, err)
	}
	ix.logger.Debug("document indexed", "path", p, "type", doc.Type, "size", size)
	return true, nil
}

// Matches reports whether a root-relative path is included and not ignored.
// An empty include list matches every file.
func (ix *Indexer) Matches(rel string) bool {
	if ix.ignored(rel) {
		return false
	}
	if len(ix.opts.Include) == 0 {
		return true
	}
	for _, pattern := range ix.opts.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (ix *Indexer) ignored(rel string) bool {
	for _, pattern := range ix.opts.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// dirIgnored reports whether everything directly inside dir is ignored.
func (ix *Indexer) dirIgnored(rel string) bool {
	return ix.ignored(rel) || ix.ignored(path.Join(rel, "x"))
}

func relSlash(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
