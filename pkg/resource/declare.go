package resource

import (
	"strings"
	"unicode"
)

// Declaration is one inline resource declaration in a definition file.
// Lines are 1-based and inclusive.
type Declaration struct {
	Category  *Category
	Name      string
	StartLine int
	EndLine   int
}

// ParseDeclaration looks for an opening tag of one of the given categories
// (<string name="X", other attributes may precede name). It returns the
// declaration and the byte offset of the tag, or ok=false. A line holds at
// most one declaration; categories are tried in order.
func ParseDeclaration(line string, categories []*Category) (cat *Category, name string, pos int, ok bool) {
	for _, c := range categories {
		if n, p, found := parseTag(line, c.OpenTag()); found {
			return c, n, p, true
		}
	}
	return nil, "", -1, false
}

func parseTag(line, open string) (string, int, bool) {
	from := 0
	for {
		i := strings.Index(line[from:], open)
		if i < 0 {
			return "", -1, false
		}
		pos := from + i
		rest := line[pos+len(open):]
		// <string must be followed by whitespace; <string-array is another tag.
		if rest != "" && unicode.IsSpace(rune(rest[0])) {
			if name, ok := nameAttr(rest); ok {
				return name, pos, true
			}
		}
		from = pos + 1
	}
}

// nameAttr extracts the value of the name attribute from the attribute text
// of one tag, stopping at the end of the tag.
func nameAttr(attrs string) (string, bool) {
	if end := strings.IndexByte(attrs, '>'); end >= 0 {
		attrs = attrs[:end]
	}
	const key = `name="`
	from := 0
	for {
		i := strings.Index(attrs[from:], key)
		if i < 0 {
			return "", false
		}
		at := from + i
		if at > 0 && unicode.IsSpace(rune(attrs[at-1])) {
			val := attrs[at+len(key):]
			if q := strings.IndexByte(val, '"'); q > 0 {
				return val[:q], true
			}
			return "", false
		}
		from = at + 1
	}
}

// BlockTracker walks a definition file line by line and attributes each line
// to the declaration it belongs to. Multi-line blocks (string-array, style)
// are tracked explicitly: after an opening line the tracker waits for the
// end of the opening tag, then for the category's closing marker.
type BlockTracker struct {
	categories []*Category

	open        *Declaration
	closeTag    string
	pendingOpen bool
}

// NewBlockTracker creates a tracker for the inline categories.
func NewBlockTracker(categories []*Category) *BlockTracker {
	if categories == nil {
		categories = Inline()
	}
	return &BlockTracker{categories: categories}
}

// Feed consumes the line with the given 1-based number. It returns the
// declaration the line belongs to (nil for lines outside any declaration)
// and whether the declaration ends on this line. The same *Declaration is
// returned for every line of one block.
func (t *BlockTracker) Feed(lineNo int, line string) (*Declaration, bool) {
	if t.open != nil {
		d := t.open
		d.EndLine = lineNo
		rest := line
		if t.pendingOpen {
			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				return d, false
			}
			t.pendingOpen = false
			if gt > 0 && rest[gt-1] == '/' {
				t.open = nil
				return d, true
			}
			rest = rest[gt+1:]
		}
		if strings.Contains(rest, t.closeTag) {
			t.open = nil
			return d, true
		}
		return d, false
	}

	cat, name, pos, ok := ParseDeclaration(line, t.categories)
	if !ok {
		return nil, false
	}
	d := &Declaration{Category: cat, Name: name, StartLine: lineNo, EndLine: lineNo}

	tag := line[pos:]
	gt := strings.IndexByte(tag, '>')
	switch {
	case gt < 0:
		t.open, t.closeTag, t.pendingOpen = d, cat.CloseTag(), true
		return d, false
	case gt > 0 && tag[gt-1] == '/':
		return d, true
	case strings.Contains(tag[gt+1:], cat.CloseTag()):
		return d, true
	}
	t.open, t.closeTag, t.pendingOpen = d, cat.CloseTag(), false
	return d, false
}

// Unterminated returns the declaration still waiting for its closing marker
// once input is exhausted, or nil.
func (t *BlockTracker) Unterminated() *Declaration {
	return t.open
}
