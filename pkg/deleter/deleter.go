// Package deleter removes unused resources: declarations are cut out of
// shared definition files in place, whole files are archived and deleted.
package deleter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/panbanda/resprune/internal/backup"
	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/pkg/resource"
)

// ErrNotFound is reported for a declaration missing from its definition file.
var ErrNotFound = errors.New("declaration not found")

// Removal names one removed resource.
type Removal struct {
	Category string `json:"category" toon:"category"`
	Name     string `json:"name" toon:"name"`
}

// Failure is a resource that could not be removed and stays defined.
type Failure struct {
	Category string `json:"category" toon:"category"`
	Name     string `json:"name" toon:"name"`
	Path     string `json:"path" toon:"path"`
	Err      error  `json:"-" toon:"-"`
	Reason   string `json:"reason" toon:"reason"`
}

// Outcome is the result of one Delete call.
type Outcome struct {
	Removed        []Removal `json:"removed" toon:"removed"`
	Failed         []Failure `json:"failed,omitempty" toon:"failed"`
	FilesRemoved   []string  `json:"files_removed,omitempty" toon:"files_removed"`
	FilesRewritten []string  `json:"files_rewritten,omitempty" toon:"files_rewritten"`
}

// RemovedIn returns the number of removed resources per category name.
func (o *Outcome) RemovedIn() map[string]int {
	out := make(map[string]int)
	for _, r := range o.Removed {
		out[r.Category]++
	}
	return out
}

// Deleter removes candidates from the filesystem. It runs on one goroutine.
type Deleter struct {
	store  *backup.Store
	logger *slog.Logger
	remove func(string) error
}

// Option configures a Deleter.
type Option func(*Deleter)

// WithBackup archives whole files in store before they are deleted.
func WithBackup(store *backup.Store) Option {
	return func(d *Deleter) {
		d.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deleter) {
		d.logger = logger
	}
}

// New creates a deleter.
func New(opts ...Option) *Deleter {
	d := &Deleter{
		logger: logging.Discard(),
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type key struct {
	cat  *resource.Category
	name string
}

// pending tracks the files of one candidate still to be processed.
type pending struct {
	rec    *resource.Record
	left   int
	failed bool
}

// Delete removes every candidate. Inline candidates are grouped by host
// file so each definition file is rewritten at most once. A candidate that
// fails anywhere is reported in Failed and not in Removed; the rest of the
// batch continues. Context cancellation is checked between files and
// returns the outcome so far.
func (d *Deleter) Delete(ctx context.Context, candidates []*resource.Record) (*Outcome, error) {
	out := &Outcome{}
	state := make(map[key]*pending, len(candidates))
	hosts := make(map[string]map[key]bool)
	var files []*resource.Record

	for _, rec := range candidates {
		k := key{rec.Category, rec.Name}
		state[k] = &pending{rec: rec, left: len(rec.Files())}
		if rec.Category.Decl == resource.DeclFile {
			files = append(files, rec)
			continue
		}
		for _, loc := range rec.Locations {
			if hosts[loc.Path] == nil {
				hosts[loc.Path] = make(map[key]bool)
			}
			hosts[loc.Path][k] = true
		}
	}

	paths := make([]string, 0, len(hosts))
	for p := range hosts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		d.rewriteHost(out, state, path, hosts[path])
	}

	for _, rec := range files {
		p := state[key{rec.Category, rec.Name}]
		for _, path := range rec.Files() {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if err := d.removeFile(rec, path); err != nil {
				d.fail(out, p, path, err)
				break
			}
			out.FilesRemoved = append(out.FilesRemoved, path)
			p.left--
		}
	}

	for _, rec := range candidates {
		p := state[key{rec.Category, rec.Name}]
		if !p.failed && p.left <= 0 {
			out.Removed = append(out.Removed, Removal{Category: rec.Category.Name, Name: rec.Name})
		}
	}
	return out, nil
}

func (d *Deleter) fail(out *Outcome, p *pending, path string, err error) {
	if p.failed {
		return
	}
	p.failed = true
	out.Failed = append(out.Failed, Failure{
		Category: p.rec.Category.Name,
		Name:     p.rec.Name,
		Path:     path,
		Err:      err,
		Reason:   err.Error(),
	})
	d.logger.Error("resource not removed", "category", p.rec.Category.Name,
		"name", p.rec.Name, "path", path, "error", err)
}

// rewriteHost removes the selected declarations from one definition file.
func (d *Deleter) rewriteHost(out *Outcome, state map[key]*pending, path string, selected map[key]bool) {
	failAll := func(err error) {
		for k := range selected {
			d.fail(out, state[k], path, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		failAll(fmt.Errorf("stat: %w", err))
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		failAll(fmt.Errorf("read: %w", err))
		return
	}

	rewritten, removed, err := Rewrite(data, func(cat *resource.Category, name string) bool {
		return selected[key{cat, name}]
	})
	if err != nil {
		d.logger.Warn("definition file left untouched", "path", path, "error", err)
		failAll(err)
		return
	}
	if len(removed) > 0 {
		if err := writeFile(path, rewritten, info.Mode().Perm()); err != nil {
			failAll(fmt.Errorf("write: %w", err))
			return
		}
		out.FilesRewritten = append(out.FilesRewritten, path)
		d.logger.Debug("rewrote definition file", "path", path, "declarations", len(removed))
	}

	found := make(map[key]bool, len(removed))
	for _, decl := range removed {
		k := key{decl.Category, decl.Name}
		if !found[k] {
			found[k] = true
			state[k].left--
		}
	}
	for k := range selected {
		if !found[k] {
			d.fail(out, state[k], path, ErrNotFound)
		}
	}
}

// removeFile archives path, when a backup store is set, then deletes it.
func (d *Deleter) removeFile(rec *resource.Record, path string) error {
	if d.store != nil {
		if _, err := d.store.Save(path, rec.Category.Name, rec.Name); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	if err := d.remove(path); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	d.logger.Debug("removed file", "category", rec.Category.Name, "name", rec.Name, "path", path)
	return nil
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
