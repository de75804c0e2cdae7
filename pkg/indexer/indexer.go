// Package indexer builds the catalog of declared resources from a project
// tree: inline declarations in values*/ definition files and file-derived
// drawables and layouts.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/resource"
	"github.com/panbanda/resprune/pkg/source"
)

// ResDir is the name of every resource tree.
const ResDir = "res"

// ninePatch is the qualifier stripped from nine-patch image names.
const ninePatch = ".9"

// Stats describes one indexing pass.
type Stats struct {
	ResDirs      int `json:"res_dirs" toon:"res_dirs"`
	FilesRead    int `json:"files_read" toon:"files_read"`
	FilesSkipped int `json:"files_skipped" toon:"files_skipped"`
	Duplicates   int `json:"duplicates" toon:"duplicates"`
	Excluded     int `json:"excluded" toon:"excluded"`
}

// ExcludeFunc reports whether a path is shielded from indexing.
type ExcludeFunc func(path string, isDir bool) bool

// Indexer walks a project and declares its resources.
// It is not safe for concurrent use.
type Indexer struct {
	cfg     *config.Config
	src     source.ContentSource
	logger  *slog.Logger
	exclude ExcludeFunc
	stats   Stats
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithSource sets where definition files are read from.
func WithSource(src source.ContentSource) Option {
	return func(ix *Indexer) {
		ix.src = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// WithExclude skips directories and files matching fn. Resources declared
// there are never candidates for removal.
func WithExclude(fn ExcludeFunc) Option {
	return func(ix *Indexer) {
		ix.exclude = fn
	}
}

// New creates an indexer.
func New(cfg *config.Config, opts ...Option) *Indexer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ix := &Indexer{
		cfg:    cfg,
		src:    source.NewFilesystem(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Stats returns the statistics of the last Index call.
func (ix *Indexer) Stats() Stats {
	return ix.stats
}

// Index builds a fresh catalog from every res directory below base.
// Unreadable directories and files are logged and skipped; only context
// cancellation stops it.
func (ix *Indexer) Index(ctx context.Context, base string) (*resource.Catalog, error) {
	ix.stats = Stats{}
	catalog := resource.NewCatalog()
	if err := ix.walk(ctx, catalog, base); err != nil {
		return nil, err
	}
	ix.logger.Debug("indexed resources", "base", base, "records", catalog.Len(),
		"res_dirs", ix.stats.ResDirs, "files", ix.stats.FilesRead)
	return catalog, nil
}

func (ix *Indexer) readDir(dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		ix.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
	}
	return entries
}

// excluded reports and counts a path shielded by the exclusion rules.
func (ix *Indexer) excluded(path string, isDir bool) bool {
	if ix.exclude == nil || !ix.exclude(path, isDir) {
		return false
	}
	ix.stats.Excluded++
	ix.logger.Debug("excluded from index", "path", path)
	return true
}

func (ix *Indexer) walk(ctx context.Context, catalog *resource.Catalog, dir string) error {
	for _, e := range ix.readDir(dir) {
		if !e.IsDir() || ix.cfg.SkipDir(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if ix.excluded(path, true) {
			continue
		}
		var err error
		if e.Name() == ResDir {
			err = ix.indexRes(ctx, catalog, path)
		} else {
			err = ix.walk(ctx, catalog, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) indexRes(ctx context.Context, catalog *resource.Catalog, res string) error {
	ix.stats.ResDirs++
	ix.logger.Debug("indexing resource tree", "path", res)

	for _, e := range ix.readDir(res) {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(res, e.Name())
		if ix.excluded(path, true) {
			continue
		}
		if strings.HasPrefix(e.Name(), resource.ValuesDir) {
			if err := ix.indexValues(ctx, catalog, path); err != nil {
				return err
			}
			continue
		}
		for _, cat := range resource.Categories {
			if cat.Decl != resource.DeclFile || !strings.HasPrefix(e.Name(), cat.Dir) {
				continue
			}
			if err := ix.indexFiles(ctx, catalog, cat, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexValues reads every definition file in a values directory and its
// values-prefixed subdirectories.
func (ix *Indexer) indexValues(ctx context.Context, catalog *resource.Catalog, dir string) error {
	for _, e := range ix.readDir(dir) {
		path := filepath.Join(dir, e.Name())
		if ix.excluded(path, e.IsDir()) {
			continue
		}
		if e.IsDir() {
			if strings.HasPrefix(e.Name(), resource.ValuesDir) {
				if err := ix.indexValues(ctx, catalog, path); err != nil {
					return err
				}
			}
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".xml") || ix.cfg.IsExcludedFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.indexDefinitions(catalog, path)
	}
	return nil
}

// indexDefinitions declares the inline resources of one definition file.
func (ix *Indexer) indexDefinitions(catalog *resource.Catalog, path string) {
	data, err := ix.src.Read(path)
	if err != nil {
		ix.stats.FilesSkipped++
		ix.logger.Warn("skipping unreadable definition file", "path", path, "error", err)
		return
	}
	ix.stats.FilesRead++

	declared := make(map[*resource.Category]map[string]int)
	declare := func(d *resource.Declaration) {
		seen := declared[d.Category]
		if seen == nil {
			seen = make(map[string]int)
			declared[d.Category] = seen
		}
		if first, dup := seen[d.Name]; dup {
			ix.stats.Duplicates++
			ix.logger.Warn("duplicate declaration in file", "path", path,
				"category", d.Category.Name, "name", d.Name, "line", d.StartLine, "first", first)
		} else {
			seen[d.Name] = d.StartLine
		}
		catalog.Add(d.Category, d.Name, resource.Location{
			Path:      path,
			StartLine: d.StartLine,
			EndLine:   d.EndLine,
		})
	}

	tracker := resource.NewBlockTracker(nil)
	for i, line := range resource.SplitLines(data) {
		if d, done := tracker.Feed(i+1, resource.LineText(line)); done {
			declare(d)
		}
	}
	if d := tracker.Unterminated(); d != nil {
		ix.logger.Warn("unterminated declaration", "path", path,
			"category", d.Category.Name, "name", d.Name, "line", d.StartLine)
		declare(d)
	}
}

// indexFiles declares one resource per qualifying file in a drawable or
// layout directory and its same-prefixed subdirectories.
func (ix *Indexer) indexFiles(ctx context.Context, catalog *resource.Catalog, cat *resource.Category, dir string) error {
	for _, e := range ix.readDir(dir) {
		path := filepath.Join(dir, e.Name())
		if ix.excluded(path, e.IsDir()) {
			continue
		}
		if e.IsDir() {
			if strings.HasPrefix(e.Name(), cat.Dir) {
				if err := ix.indexFiles(ctx, catalog, cat, path); err != nil {
					return err
				}
			}
			continue
		}
		if !e.Type().IsRegular() || ix.cfg.IsExcludedFile(e.Name()) {
			continue
		}
		name, ok := ix.resourceName(cat, e.Name())
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		catalog.Add(cat, name, resource.Location{Path: path})
	}
	return nil
}

// resourceName derives a file-declared resource name: the file name without
// its extension and, for images, without the nine-patch qualifier.
func (ix *Indexer) resourceName(cat *resource.Category, file string) (string, bool) {
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	switch {
	case strings.EqualFold(ext, ".xml"):
		return stem, stem != ""
	case cat.Images && ix.cfg.IsImage(file):
		stem = strings.TrimSuffix(stem, ninePatch)
		return stem, stem != ""
	}
	return "", false
}
