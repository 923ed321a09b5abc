package source

import "strings"

// SourceId uniquely identifies a loaded compilation unit.
type SourceId uint32

// Buffer is an immutable source text with a stable identity.
type Buffer struct {
	ID       SourceId
	Path     string
	Contents string

	lines []string
}

// NewBuffer creates a buffer for one compilation unit.
func NewBuffer(id SourceId, path, contents string) *Buffer {
	return &Buffer{ID: id, Path: path, Contents: contents}
}

// Line returns the 1-indexed source line without its terminator, or ""
// when the line does not exist.
func (b *Buffer) Line(n int) string {
	if b.lines == nil {
		b.lines = strings.Split(strings.ReplaceAll(b.Contents, "\r\n", "\n"), "\n")
	}
	if n < 1 || n > len(b.lines) {
		return ""
	}
	return strings.TrimSuffix(b.lines[n-1], "\r")
}

// LineCount returns the number of lines in the buffer.
func (b *Buffer) LineCount() int {
	b.Line(1)
	return len(b.lines)
}
