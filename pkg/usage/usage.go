// Package usage counts references to cataloged resources in markup and
// code files.
package usage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/panbanda/resprune/internal/fileproc"
	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/pkg/resource"
	"github.com/panbanda/resprune/pkg/source"
)

// Stats describes one scan.
type Stats struct {
	FilesScanned int `json:"files_scanned" toon:"files_scanned"`
	FilesSkipped int `json:"files_skipped" toon:"files_skipped"`
	LinesScanned int `json:"lines_scanned" toon:"lines_scanned"`
	// References is the number of (line, resource) matches counted.
	References int `json:"references" toon:"references"`
}

// fileStats is the per-file share of Stats.
type fileStats struct {
	lines int
	refs  int
}

// Scanner marks catalog records referenced by the files it reads.
type Scanner struct {
	detector   *resource.Detector
	src        source.ContentSource
	workers    int
	logger     *slog.Logger
	onProgress fileproc.ProgressFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDetector sets how file dialects are resolved.
func WithDetector(d *resource.Detector) Option {
	return func(s *Scanner) {
		s.detector = d
	}
}

// WithSource sets where file content is read from.
func WithSource(src source.ContentSource) Option {
	return func(s *Scanner) {
		s.src = src
	}
}

// WithWorkers sets the number of files scanned concurrently. One (the
// default) scans sequentially in order; zero or less means 2x NumCPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithProgress sets a callback invoked after each file.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(s *Scanner) {
		s.onProgress = fn
	}
}

// New creates a usage scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		detector: resource.DefaultDetector(),
		src:      source.NewFilesystem(),
		workers:  1,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads every file and increments the counter of each record a line
// references, at most once per line and record. Files of unknown dialect are
// ignored; unreadable files are logged and skipped. Only context
// cancellation is returned as an error, with the counts gathered so far.
func (s *Scanner) Scan(ctx context.Context, catalog *resource.Catalog, files []string) (Stats, error) {
	index := newIndex(catalog)

	results, errs := fileproc.MapSourceFiles(ctx, files, s.src, s.workers,
		func(path string, content []byte) (fileStats, error) {
			return index.scanFile(s.detector.Detect(path), content), nil
		}, s.onProgress)

	var stats Stats
	for _, r := range results {
		stats.FilesScanned++
		stats.LinesScanned += r.lines
		stats.References += r.refs
	}
	if errs != nil {
		for _, e := range errs.Errors {
			if cerr := ctx.Err(); cerr != nil && errors.Is(e.Err, cerr) {
				continue
			}
			stats.FilesSkipped++
			s.logger.Warn("skipping unreadable file", "path", e.Path, "error", e.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// index is the catalog grouped by category, in category order.
type index struct {
	groups []group
}

type group struct {
	cat     *resource.Category
	records []*resource.Record
}

func newIndex(catalog *resource.Catalog) *index {
	idx := &index{}
	for _, cat := range resource.Categories {
		if recs := catalog.Records(cat); len(recs) > 0 {
			idx.groups = append(idx.groups, group{cat: cat, records: recs})
		}
	}
	return idx
}

func (idx *index) scanFile(d resource.Dialect, content []byte) fileStats {
	var st fileStats
	if d == resource.DialectUnknown {
		return st
	}
	for _, raw := range resource.SplitLines(content) {
		st.lines++
		line := resource.LineText(raw)
		if d.IsComment(line) {
			continue
		}
		for _, g := range idx.groups {
			if !g.cat.MayReference(d, line) {
				continue
			}
			for _, rec := range g.records {
				if rec.ReferencedBy(d, line) {
					rec.MarkUsed()
					st.refs++
				}
			}
		}
	}
	return st
}
