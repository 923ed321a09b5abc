package ast

// SourceSpan covers a region of one source file. The zero span (Line == 0)
// means the location is unknown or synthesized.
type SourceSpan struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// NewSpan builds a span from explicit coordinates.
func NewSpan(line, column, endLine, endColumn int) SourceSpan {
	return SourceSpan{Line: line, Column: column, EndLine: endLine, EndColumn: endColumn}
}

// SpanAt builds a single-point span.
func SpanAt(line, column int) SourceSpan {
	return SourceSpan{Line: line, Column: column, EndLine: line, EndColumn: column}
}

// IsZero reports whether the span denotes an unknown location.
func (s SourceSpan) IsZero() bool {
	return s.Line == 0
}

// Union combines two spans into the smallest span covering both. Zero
// operands are ignored.
func (s SourceSpan) Union(other SourceSpan) SourceSpan {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}

	result := s
	if other.Line < s.Line || (other.Line == s.Line && other.Column < s.Column) {
		result.Line = other.Line
		result.Column = other.Column
	}
	if other.EndLine > s.EndLine || (other.EndLine == s.EndLine && other.EndColumn > s.EndColumn) {
		result.EndLine = other.EndLine
		result.EndColumn = other.EndColumn
	}
	return result
}
