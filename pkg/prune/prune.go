// Package prune runs the convergence loop: index, scan and delete until a
// round removes nothing, since removing one resource can orphan another.
package prune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/panbanda/resprune/internal/backup"
	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/internal/scanner"
	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/deleter"
	"github.com/panbanda/resprune/pkg/indexer"
	"github.com/panbanda/resprune/pkg/resource"
	"github.com/panbanda/resprune/pkg/source"
	"github.com/panbanda/resprune/pkg/usage"
)

// ErrManifestNotFound is returned when the project root has no manifest.
var ErrManifestNotFound = errors.New("manifest not found")

// Progress is a per-phase progress indicator.
type Progress interface {
	Tick()
	FinishSuccess()
}

// ProgressFactory starts a progress indicator for a phase over total files.
type ProgressFactory func(label string, total int) Progress

// Pipeline runs rounds over one project. A Pipeline owns its catalog and
// backup directory for the duration of Run and must not be shared.
type Pipeline struct {
	root     string
	cfg      *config.Config
	extra    []string
	dryRun   bool
	src      source.ContentSource
	logger   *slog.Logger
	progress ProgressFactory
	keep     []string
	only     []string
	all      bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDryRun reports candidates from a single round without deleting.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithExtraRoots adds directories whose files are scanned for references.
func WithExtraRoots(roots ...string) Option {
	return func(p *Pipeline) {
		p.extra = append(p.extra, roots...)
	}
}

// WithKeep adds keep patterns to those in the configuration.
func WithKeep(patterns ...string) Option {
	return func(p *Pipeline) {
		p.keep = append(p.keep, patterns...)
	}
}

// WithOnly adds removal scope patterns to those in the configuration.
func WithOnly(patterns ...string) Option {
	return func(p *Pipeline) {
		p.only = append(p.only, patterns...)
	}
}

// WithAll lists every indexed resource with its reference count in a dry
// run, before keep and scope rules apply.
func WithAll(all bool) Option {
	return func(p *Pipeline) {
		p.all = all
	}
}

// WithSource sets where indexed and scanned content is read from.
func WithSource(src source.ContentSource) Option {
	return func(p *Pipeline) {
		p.src = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgress sets the progress indicator used while scanning.
func WithProgress(f ProgressFactory) Option {
	return func(p *Pipeline) {
		p.progress = f
	}
}

// New creates a pipeline for the project at root (the directory holding the
// manifest).
func New(root string, cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Pipeline{
		root:   root,
		cfg:    cfg,
		src:    source.NewFilesystem(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CategoryCount is one category's numbers for a round.
type CategoryCount struct {
	Category string `json:"category" toon:"category"`
	Found    int    `json:"found" toon:"found"`
	Unused   int    `json:"unused" toon:"unused"`
	Removed  int    `json:"removed" toon:"removed"`
}

// Round is the report of one index, scan and delete pass.
type Round struct {
	Number     int               `json:"number" toon:"number"`
	Categories []CategoryCount   `json:"categories" toon:"categories"`
	Removed    int               `json:"removed" toon:"removed"`
	Kept       int               `json:"kept" toon:"kept"`
	OutOfScope int               `json:"out_of_scope,omitempty" toon:"out_of_scope"`
	Failed     []deleter.Failure `json:"failed,omitempty" toon:"failed"`
	Index      indexer.Stats     `json:"index" toon:"index"`
	Scan       usage.Stats       `json:"scan" toon:"scan"`
	Files      []string          `json:"files_removed,omitempty" toon:"files_removed"`
	Rewritten  []string          `json:"files_rewritten,omitempty" toon:"files_rewritten"`
}

// Unused is a candidate reported without being removed.
type Unused struct {
	Category  string              `json:"category" toon:"category"`
	Name      string              `json:"name" toon:"name"`
	Locations []resource.Location `json:"locations" toon:"locations"`
}

// Resource is an indexed resource and the number of lines referencing it.
type Resource struct {
	Category  string              `json:"category" toon:"category"`
	Name      string              `json:"name" toon:"name"`
	Uses      int                 `json:"uses" toon:"uses"`
	Locations []resource.Location `json:"locations" toon:"locations"`
}

// Result is the report of a whole run.
type Result struct {
	Root         string   `json:"root" toon:"root"`
	Base         string   `json:"base" toon:"base"`
	DryRun       bool     `json:"dry_run" toon:"dry_run"`
	Rounds       []Round  `json:"rounds" toon:"rounds"`
	TotalRemoved int      `json:"total_removed" toon:"total_removed"`
	FilesRemoved []string `json:"files_removed,omitempty" toon:"files_removed"`
	// Converged is set when the last round removed nothing.
	Converged bool     `json:"converged" toon:"converged"`
	Unused    []Unused `json:"unused,omitempty" toon:"unused"`
	BackupDir string   `json:"backup_dir,omitempty" toon:"backup_dir"`
	// Resources is filled by WithAll.
	Resources []Resource `json:"resources,omitempty" toon:"resources"`
}

// Failures returns every failure of every round.
func (r *Result) Failures() []deleter.Failure {
	var out []deleter.Failure
	for _, round := range r.Rounds {
		out = append(out, round.Failed...)
	}
	return out
}

// Run executes rounds until one removes nothing, the round limit is reached,
// or ctx is cancelled. A dry run performs one round and deletes nothing.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	root, err := filepath.Abs(p.root)
	if err != nil {
		return nil, err
	}
	manifest := filepath.Join(root, p.cfg.Project.Manifest)
	if info, err := os.Stat(manifest); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, manifest)
	}
	base := filepath.Dir(root)

	patterns := append(append([]string(nil), p.cfg.Resources.Keep...), p.keep...)
	keep, err := CompileKeepList(patterns)
	if err != nil {
		return nil, err
	}
	scope, err := NewScope(base, append(append([]string(nil), p.cfg.Resources.Only...), p.only...))
	if err != nil {
		return nil, err
	}

	var store *backup.Store
	if !p.dryRun {
		store, err = backup.New(p.cfg.Backup.Dir, base, backup.WithVerify(p.cfg.Backup.Verify))
		if err != nil {
			return nil, err
		}
	}

	result := &Result{Root: root, Base: base, DryRun: p.dryRun}
	if store != nil {
		result.BackupDir = store.Dir()
	}

	walker := scanner.NewScanner(p.cfg, scanner.WithErrorFunc(func(path string, err error) {
		p.logger.Warn("skipping unreadable path", "path", path, "error", err)
	}))
	excluder := walker.Excluder(base)
	p.logger.Debug("exclusion rules loaded", "base", base, "rule_sets", excluder.Len())
	ix := indexer.New(p.cfg,
		indexer.WithSource(p.src),
		indexer.WithLogger(p.logger),
		indexer.WithExclude(excluder.Excluded),
	)
	del := deleter.New(deleter.WithBackup(store), deleter.WithLogger(p.logger))
	roots := append([]string{base}, p.extraRoots(root)...)

	storeReset := false
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		catalog, err := ix.Index(ctx, base)
		if err != nil {
			return result, err
		}
		round := Round{Number: n, Index: ix.Stats()}

		files := walker.ScanRoots(roots...)
		byDialect := walker.GroupByDialect(files)
		p.logger.Debug("files to scan", "round", n,
			"markup", len(byDialect[resource.DialectMarkup]), "code", len(byDialect[resource.DialectCode]))
		round.Scan, err = p.scan(ctx, n, walker.Detector(), catalog, files)
		if err != nil {
			return result, err
		}
		if p.dryRun && p.all {
			result.Resources = usesOf(catalog)
		}
		round.Kept = keep.Apply(catalog)
		round.OutOfScope = scope.Apply(catalog)

		candidates := catalog.Unused()
		round.Categories = counts(catalog, candidates)
		p.logger.Info("round scanned", "round", n, "resources", catalog.Len(),
			"unused", len(candidates), "files", round.Scan.FilesScanned)

		if p.dryRun || len(candidates) == 0 {
			if p.dryRun {
				result.Unused = unusedOf(candidates)
			}
			result.Rounds = append(result.Rounds, round)
			result.Converged = len(candidates) == 0
			return result, nil
		}

		if store != nil && !storeReset {
			if err := store.Reset(); err != nil {
				return result, err
			}
			storeReset = true
		}

		outcome, delErr := del.Delete(ctx, candidates)
		catalog.Settle()

		removedIn := outcome.RemovedIn()
		for i := range round.Categories {
			round.Categories[i].Removed = removedIn[round.Categories[i].Category]
		}
		round.Removed = len(outcome.Removed)
		round.Failed = outcome.Failed
		round.Files = outcome.FilesRemoved
		round.Rewritten = outcome.FilesRewritten

		result.Rounds = append(result.Rounds, round)
		result.TotalRemoved += round.Removed
		result.FilesRemoved = append(result.FilesRemoved, outcome.FilesRemoved...)
		p.logger.Info("round finished", "round", n, "removed", round.Removed, "failed", len(round.Failed))

		if delErr != nil {
			return result, delErr
		}
		if round.Removed == 0 {
			result.Converged = true
			return result, nil
		}
		if limit := p.cfg.Scan.MaxRounds; limit > 0 && n >= limit {
			p.logger.Info("round limit reached", "rounds", n)
			return result, nil
		}
	}
}

// extraRoots resolves configured roots against the project root and option
// roots against the working directory.
func (p *Pipeline) extraRoots(root string) []string {
	var out []string
	for _, r := range p.cfg.Project.ExtraRoots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(root, r)
		}
		out = append(out, filepath.Clean(r))
	}
	for _, r := range p.extra {
		if abs, err := filepath.Abs(r); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func (p *Pipeline) scan(ctx context.Context, n int, detector *resource.Detector, catalog *resource.Catalog, files []string) (usage.Stats, error) {
	opts := []usage.Option{
		usage.WithDetector(detector),
		usage.WithSource(p.src),
		usage.WithWorkers(p.cfg.Scan.Workers),
		usage.WithLogger(p.logger),
	}
	var bar Progress
	if p.progress != nil {
		bar = p.progress(fmt.Sprintf("Round %d: scanning", n), len(files))
		opts = append(opts, usage.WithProgress(bar.Tick))
	}
	stats, err := usage.New(opts...).Scan(ctx, catalog, files)
	if bar != nil {
		bar.FinishSuccess()
	}
	return stats, err
}

func counts(catalog *resource.Catalog, candidates []*resource.Record) []CategoryCount {
	unused := make(map[*resource.Category]int)
	for _, r := range candidates {
		unused[r.Category]++
	}
	out := make([]CategoryCount, 0, len(resource.Categories))
	for _, cat := range resource.Categories {
		out = append(out, CategoryCount{
			Category: cat.Name,
			Found:    catalog.Count(cat),
			Unused:   unused[cat],
		})
	}
	return out
}

func unusedOf(candidates []*resource.Record) []Unused {
	out := make([]Unused, 0, len(candidates))
	for _, r := range candidates {
		out = append(out, Unused{
			Category:  r.Category.Name,
			Name:      r.Name,
			Locations: append([]resource.Location(nil), r.Locations...),
		})
	}
	return out
}

// usesOf lists every record in category order, then by name.
func usesOf(catalog *resource.Catalog) []Resource {
	out := make([]Resource, 0, catalog.Len())
	for _, cat := range resource.Categories {
		for _, r := range catalog.Records(cat) {
			out = append(out, Resource{
				Category:  cat.Name,
				Name:      r.Name,
				Uses:      r.Uses(),
				Locations: append([]resource.Location(nil), r.Locations...),
			})
		}
	}
	return out
}
