package deleter

import (
	"bytes"
	"errors"

	"github.com/panbanda/resprune/pkg/resource"
)

var (
	// ErrUnterminated is returned when a selected block has no closing marker.
	ErrUnterminated = errors.New("unterminated declaration")
	// ErrWouldEmpty is returned when removing the selection leaves only whitespace.
	ErrWouldEmpty = errors.New("rewrite would leave an empty file")
)

// SelectFunc reports whether a declaration should be removed.
type SelectFunc func(cat *resource.Category, name string) bool

// Rewrite removes the selected inline declarations from a definition file.
// Lines are attributed to declarations with the same block tracker the
// indexer uses; every line outside a removed declaration is kept byte for
// byte, terminators included. When nothing is selected out is data and
// removed is empty. On error out is data, unchanged.
func Rewrite(data []byte, selected SelectFunc) (out []byte, removed []resource.Declaration, err error) {
	lines := resource.SplitLines(data)
	drop := make([]bool, len(lines))

	tracker := resource.NewBlockTracker(nil)
	for i, line := range lines {
		d, done := tracker.Feed(i+1, resource.LineText(line))
		if d == nil || !selected(d.Category, d.Name) {
			continue
		}
		drop[i] = true
		if done {
			removed = append(removed, *d)
		}
	}
	if d := tracker.Unterminated(); d != nil && selected(d.Category, d.Name) {
		return data, nil, ErrUnterminated
	}
	if len(removed) == 0 {
		return data, nil, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for i, line := range lines {
		if !drop[i] {
			buf.Write(line)
		}
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return data, nil, ErrWouldEmpty
	}
	return buf.Bytes(), removed, nil
}
