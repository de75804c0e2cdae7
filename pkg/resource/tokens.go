package resource

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// BindingSuffix is appended to the generated view-binding type of a layout.
const BindingSuffix = "Binding"

// CodeName converts a resource name to its generated field name: dots in
// hierarchical names (Theme.App) become underscores (Theme_App).
func CodeName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// BindingName returns the generated view-binding type for a layout:
// fragment_main -> FragmentMainBinding.
func BindingName(layout string) string {
	var b strings.Builder
	for _, seg := range strings.Split(layout, "_") {
		if seg == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(seg)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(seg[size:])
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString(BindingSuffix)
	return b.String()
}

// isIdentRune reports whether r continues an identifier or dotted name.
func isIdentRune(r rune) bool {
	return r == '.' || isWordRune(r)
}

// isWordRune reports whether r continues a plain identifier.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ContainsToken reports whether line holds token as a complete reference:
// the character after the match must not continue an identifier. A false
// positive (R.string.foo inside R.string.foo_bar) does not end the search,
// because the same line can hold a later, valid reference.
func ContainsToken(line, token string) bool {
	return containsBounded(line, token, isIdentRune)
}

// ContainsIdentifier is ContainsToken for type names: a following '.' is
// member access and ends the name (FooBinding.inflate).
func ContainsIdentifier(line, ident string) bool {
	return containsBounded(line, ident, isWordRune)
}

func containsBounded(line, token string, continues func(rune) bool) bool {
	if token == "" {
		return false
	}
	start := 0
	for start <= len(line)-len(token) {
		i := strings.Index(line[start:], token)
		if i < 0 {
			return false
		}
		end := start + i + len(token)
		if end == len(line) {
			return true
		}
		r, _ := utf8.DecodeRuneInString(line[end:])
		if !continues(r) {
			return true
		}
		start += i + 1
	}
	return false
}
