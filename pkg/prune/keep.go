package prune

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/panbanda/resprune/pkg/resource"
)

// keepRule is one compiled keep pattern, optionally limited to a category.
type keepRule struct {
	cat *resource.Category
	g   glob.Glob
}

// KeepList names resources that are never removed. Patterns are globs over
// resource names ("app_*", "ic_launcher*"), optionally prefixed with a
// category ("string:app_*", "string-array:*"). In dotted style names "*"
// stops at a dot and "**" does not.
type KeepList struct {
	rules []keepRule
}

// CompileKeepList compiles keep patterns.
func CompileKeepList(patterns []string) (*KeepList, error) {
	k := &KeepList{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var rule keepRule
		if prefix, rest, ok := strings.Cut(p, ":"); ok {
			cat, known := resource.Lookup(prefix)
			if !known {
				return nil, fmt.Errorf("keep pattern %q: unknown category %q", p, prefix)
			}
			rule.cat, p = cat, rest
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("keep pattern %q: %w", p, err)
		}
		rule.g = g
		k.rules = append(k.rules, rule)
	}
	return k, nil
}

// Len returns the number of rules.
func (k *KeepList) Len() int {
	if k == nil {
		return 0
	}
	return len(k.rules)
}

// Match reports whether a resource is kept.
func (k *KeepList) Match(cat *resource.Category, name string) bool {
	if k == nil {
		return false
	}
	for _, r := range k.rules {
		if (r.cat == nil || r.cat == cat) && r.g.Match(name) {
			return true
		}
	}
	return false
}

// Apply marks every kept record in the catalog as used and returns how many
// records it marked.
func (k *KeepList) Apply(catalog *resource.Catalog) int {
	if k.Len() == 0 {
		return 0
	}
	n := 0
	for _, cat := range resource.Categories {
		for _, rec := range catalog.Records(cat) {
			if k.Match(cat, rec.Name) {
				rec.MarkUsed()
				n++
			}
		}
	}
	return n
}
