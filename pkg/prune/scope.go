package prune

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panbanda/resprune/pkg/resource"
)

// Scope limits removal to resources declared under matching paths. A record
// is in scope when every file declaring it matches one of the patterns,
// relative to the base. An empty Scope contains everything.
type Scope struct {
	base     string
	patterns []string
}

// NewScope validates doublestar patterns ("app/src/main/**",
// "feature-*/src/**/res/**").
func NewScope(base string, patterns []string) (*Scope, error) {
	s := &Scope{base: base}
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("scope pattern %q: %w", p, doublestar.ErrBadPattern)
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// Len returns the number of patterns.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Contains reports whether rec may be removed.
func (s *Scope) Contains(rec *resource.Record) bool {
	if s.Len() == 0 {
		return true
	}
	for _, path := range rec.Files() {
		if !s.matchFile(path) {
			return false
		}
	}
	return true
}

func (s *Scope) matchFile(path string) bool {
	rel, err := filepath.Rel(s.base, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Apply marks every out-of-scope record as used and returns how many it
// marked.
func (s *Scope) Apply(catalog *resource.Catalog) int {
	if s.Len() == 0 {
		return 0
	}
	n := 0
	for _, cat := range resource.Categories {
		for _, rec := range catalog.Records(cat) {
			if !s.Contains(rec) {
				rec.MarkUsed()
				n++
			}
		}
	}
	return n
}
