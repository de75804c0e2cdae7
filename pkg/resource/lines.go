package resource

import "bytes"

// SplitLines splits data into lines that keep their terminators, so joining
// the result reproduces data exactly. A final line without a newline is
// kept; an empty input yields no lines.
func SplitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineText returns a line's content without its "\n" or "\r\n" terminator.
func LineText(line []byte) string {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return string(line)
}
