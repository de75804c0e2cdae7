// Package resource models Android resources: the closed set of categories,
// how each one is declared and referenced, and the per-round catalog.
package resource

import "strings"

// DeclKind describes where a category's resources are declared.
type DeclKind int

const (
	// DeclInline resources are tagged elements inside values*/ definition files.
	DeclInline DeclKind = iota
	// DeclFile resources are whole files whose name is the resource name.
	DeclFile
)

// String returns the string representation.
func (k DeclKind) String() string {
	if k == DeclFile {
		return "file"
	}
	return "inline"
}

// TokenFunc builds one reference token for a resource name.
type TokenFunc func(c *Category, name string) string

// AliasRule reports whether line references name through something other
// than a plain token (style inheritance, for example).
type AliasRule func(line, name string) bool

// Category is one resource kind. The table in Categories drives the indexer,
// the usage scanner and the deleter, so adding a rule here applies to every
// scan path at once.
type Category struct {
	// Name is the declaration tag and the category key ("string-array").
	Name string
	// RefType is the type segment used by references ("array" for string-array).
	RefType string
	// Dir is the definition-directory prefix ("values", "drawable", "layout").
	Dir  string
	Decl DeclKind
	// Images allows image files to declare resources (drawable only).
	Images bool

	tokens  map[Dialect][]TokenFunc
	idents  map[Dialect][]TokenFunc
	aliases map[Dialect][]AliasRule
	needles map[Dialect][]string
}

// OpenTag returns the declaration opening prefix, e.g. "<string".
func (c *Category) OpenTag() string { return "<" + c.Name }

// CloseTag returns the declaration closing marker, e.g. "</string>".
func (c *Category) CloseTag() string { return "</" + c.Name + ">" }

// Tokens returns the reference tokens for name in the given dialect.
func (c *Category) Tokens(d Dialect, name string) []string {
	return build(c, c.tokens[d], name)
}

// Identifiers returns the generated type names that reference name in the
// given dialect. They are matched with ContainsIdentifier.
func (c *Category) Identifiers(d Dialect, name string) []string {
	return build(c, c.idents[d], name)
}

func build(c *Category, fns []TokenFunc, name string) []string {
	out := make([]string, 0, len(fns))
	for _, fn := range fns {
		if tok := fn(c, name); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Aliases returns the alias rules that apply in the given dialect.
func (c *Category) Aliases(d Dialect) []AliasRule {
	return c.aliases[d]
}

// MayReference is a cheap prefilter: it reports whether line contains any
// fixed prefix that a reference to this category must contain. A false
// result means no resource of this category can match the line.
func (c *Category) MayReference(d Dialect, line string) bool {
	for _, n := range c.needles[d] {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

func markupRef(c *Category, name string) string { return "@" + c.RefType + "/" + name }
func markupID(_ *Category, name string) string  { return "@id/" + name }
func codeRef(c *Category, name string) string   { return "R." + c.RefType + "." + CodeName(name) }
func codeID(_ *Category, name string) string    { return "R.id." + CodeName(name) }
func binding(_ *Category, name string) string   { return BindingName(name) }

// parentAttr matches parent="@style/NAME" and parent="NAME".
func parentAttr(line, name string) bool {
	return strings.Contains(line, `parent="@style/`+name+`"`) ||
		strings.Contains(line, `parent="`+name+`"`)
}

// dottedChild matches a quoted token starting with NAME. (a style named
// NAME.Child keeps NAME alive).
func dottedChild(line, name string) bool {
	return strings.Contains(line, `"`+name+`.`)
}

func newCategory(name, refType, dir string, decl DeclKind) *Category {
	c := &Category{
		Name:    name,
		RefType: refType,
		Dir:     dir,
		Decl:    decl,
		tokens: map[Dialect][]TokenFunc{
			DialectMarkup: {markupRef, markupID},
			DialectCode:   {codeRef, codeID},
		},
		idents:  map[Dialect][]TokenFunc{},
		aliases: map[Dialect][]AliasRule{},
	}
	c.needles = map[Dialect][]string{
		DialectMarkup: {"@" + refType + "/", "@id/"},
		DialectCode:   {"R." + refType + ".", "R.id."},
	}
	return c
}

// ValuesDir is the directory prefix shared by every inline category.
const ValuesDir = "values"

// Built-in categories.
var (
	String      = newCategory("string", "string", ValuesDir, DeclInline)
	Dimen       = newCategory("dimen", "dimen", ValuesDir, DeclInline)
	Color       = newCategory("color", "color", ValuesDir, DeclInline)
	StringArray = newCategory("string-array", "array", ValuesDir, DeclInline)
	Style       = newCategory("style", "style", ValuesDir, DeclInline)
	Layout      = newCategory("layout", "layout", "layout", DeclFile)
	Drawable    = newCategory("drawable", "drawable", "drawable", DeclFile)
)

func init() {
	Layout.idents[DialectCode] = []TokenFunc{binding}
	Layout.needles[DialectCode] = append(Layout.needles[DialectCode], BindingSuffix)

	Style.aliases[DialectMarkup] = []AliasRule{parentAttr, dottedChild}
	Style.needles[DialectMarkup] = append(Style.needles[DialectMarkup], `"`)

	Drawable.Images = true
}

// Categories is the closed set of categories in processing order.
var Categories = []*Category{String, Dimen, Color, StringArray, Style, Layout, Drawable}

// Lookup returns the category with the given name.
func Lookup(name string) (*Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Inline returns the categories declared inside definition files.
func Inline() []*Category {
	var out []*Category
	for _, c := range Categories {
		if c.Decl == DeclInline {
			out = append(out, c)
		}
	}
	return out
}
