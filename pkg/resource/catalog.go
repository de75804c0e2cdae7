package resource

import (
	"sort"
	"sync/atomic"
)

// Location is one place a resource is defined: a line range in a definition
// file (inline) or a whole file (file-derived, lines are zero).
type Location struct {
	Path      string `json:"path" toon:"path"`
	StartLine int    `json:"start_line,omitempty" toon:"start_line"`
	EndLine   int    `json:"end_line,omitempty" toon:"end_line"`
}

// Record is one declared resource and its usage counter for the current round.
type Record struct {
	Category  *Category
	Name      string
	Locations []Location

	uses   atomic.Int32
	tokens [3][]string
	idents [3][]string
}

func newRecord(cat *Category, name string) *Record {
	r := &Record{Category: cat, Name: name}
	for _, d := range []Dialect{DialectMarkup, DialectCode} {
		r.tokens[d] = cat.Tokens(d, name)
		r.idents[d] = cat.Identifiers(d, name)
	}
	return r
}

// Uses returns the number of lines that referenced the record this round.
func (r *Record) Uses() int { return int(r.uses.Load()) }

// MarkUsed increments the usage counter. Safe for concurrent use.
func (r *Record) MarkUsed() { r.uses.Add(1) }

// Unused reports whether nothing referenced the record this round.
func (r *Record) Unused() bool { return r.uses.Load() == 0 }

// Reset zeroes the usage counter for the next round.
func (r *Record) Reset() { r.uses.Store(0) }

// ReferencedBy reports whether line references the record in dialect d:
// any of its tokens or generated type names at a boundary, or one of the
// category's alias rules.
func (r *Record) ReferencedBy(d Dialect, line string) bool {
	for _, tok := range r.tokens[d] {
		if ContainsToken(line, tok) {
			return true
		}
	}
	for _, id := range r.idents[d] {
		if ContainsIdentifier(line, id) {
			return true
		}
	}
	for _, rule := range r.Category.Aliases(d) {
		if rule(line, r.Name) {
			return true
		}
	}
	return false
}

// Files returns the distinct files holding the record's definitions, in
// first-seen order.
func (r *Record) Files() []string {
	seen := make(map[string]bool, len(r.Locations))
	var out []string
	for _, loc := range r.Locations {
		if !seen[loc.Path] {
			seen[loc.Path] = true
			out = append(out, loc.Path)
		}
	}
	return out
}

// Catalog maps category -> name -> record. One catalog is built per round
// and owned by the pipeline running it.
type Catalog struct {
	records map[*Category]map[string]*Record
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	c := &Catalog{records: make(map[*Category]map[string]*Record, len(Categories))}
	for _, cat := range Categories {
		c.records[cat] = make(map[string]*Record)
	}
	return c
}

// Add registers a definition site. The first declaration of a name creates
// the record; later ones only add a location. added reports whether a new
// record was created.
func (c *Catalog) Add(cat *Category, name string, loc Location) (rec *Record, added bool) {
	m := c.records[cat]
	if m == nil {
		m = make(map[string]*Record)
		c.records[cat] = m
	}
	rec, ok := m[name]
	if !ok {
		rec = newRecord(cat, name)
		m[name] = rec
	}
	rec.Locations = append(rec.Locations, loc)
	return rec, !ok
}

// Get returns the record for name, or nil.
func (c *Catalog) Get(cat *Category, name string) *Record {
	return c.records[cat][name]
}

// Records returns the category's records sorted by name.
func (c *Catalog) Records(cat *Category) []*Record {
	m := c.records[cat]
	out := make([]*Record, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the category's resource names, sorted.
func (c *Catalog) Names(cat *Category) []string {
	recs := c.Records(cat)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

// Count returns the number of records in a category.
func (c *Catalog) Count(cat *Category) int {
	return len(c.records[cat])
}

// Len returns the total number of records.
func (c *Catalog) Len() int {
	n := 0
	for _, m := range c.records {
		n += len(m)
	}
	return n
}

// Unused returns every zero-counter record in category order, then by name.
func (c *Catalog) Unused() []*Record {
	var out []*Record
	for _, cat := range Categories {
		for _, r := range c.Records(cat) {
			if r.Unused() {
				out = append(out, r)
			}
		}
	}
	return out
}

// Evict removes a record so it is not reconsidered this round.
func (c *Catalog) Evict(r *Record) {
	if m := c.records[r.Category]; m != nil && m[r.Name] == r {
		delete(m, r.Name)
	}
}

// Settle ends a round: unused records are evicted and counted per category,
// used records are reset to zero.
func (c *Catalog) Settle() map[string]int {
	evicted := make(map[string]int)
	for cat, m := range c.records {
		for name, r := range m {
			if r.Unused() {
				delete(m, name)
				evicted[cat.Name]++
				continue
			}
			r.Reset()
		}
	}
	return evicted
}

// Summary returns the number of records per category name.
func (c *Catalog) Summary() map[string]int {
	out := make(map[string]int, len(c.records))
	for _, cat := range Categories {
		out[cat.Name] = len(c.records[cat])
	}
	return out
}
