package resource

import (
	"path/filepath"
	"strings"
)

// Dialect is the kind of text a file contains, which decides how references
// are spelled.
type Dialect int

const (
	DialectUnknown Dialect = iota
	// DialectMarkup is XML: layouts, manifests, values, drawables.
	DialectMarkup
	// DialectCode is Java or Kotlin source.
	DialectCode
)

// String returns the string representation.
func (d Dialect) String() string {
	switch d {
	case DialectMarkup:
		return "markup"
	case DialectCode:
		return "code"
	default:
		return "unknown"
	}
}

// LineCommentMarker starts a single-line comment in the code dialect.
const LineCommentMarker = "//"

// IsComment reports whether line is excluded from matching in this dialect.
func (d Dialect) IsComment(line string) bool {
	return d == DialectCode && strings.HasPrefix(strings.TrimSpace(line), LineCommentMarker)
}

// Detector maps file extensions to dialects.
type Detector struct {
	exts map[string]Dialect
}

// NewDetector creates a detector from extension lists (".xml", ".kt").
func NewDetector(markup, code []string) *Detector {
	d := &Detector{exts: make(map[string]Dialect, len(markup)+len(code))}
	for _, ext := range markup {
		d.exts[strings.ToLower(ext)] = DialectMarkup
	}
	for _, ext := range code {
		d.exts[strings.ToLower(ext)] = DialectCode
	}
	return d
}

// DefaultDetector recognizes .xml as markup and .java/.kt as code.
func DefaultDetector() *Detector {
	return NewDetector([]string{".xml"}, []string{".java", ".kt"})
}

// Detect returns the dialect of path, or DialectUnknown.
func (d *Detector) Detect(path string) Dialect {
	return d.exts[strings.ToLower(filepath.Ext(path))]
}
