package diagnostics

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
)

// Level classifies a diagnostic. Errors stop the pipeline between phases;
// warnings never do.
type Level int

const (
	Error Level = iota
	Warning
)

func (l Level) String() string {
	if l == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reported problem. Span may be the zero span when the
// location is unknown.
type Diagnostic struct {
	Message string
	Level   Level
	Span    ast.SourceSpan
}

func (d *Diagnostic) String() string {
	if d.Span.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", d.Level, d.Span.Line, d.Span.Column, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Level, d.Message)
}

// Diagnostics is an append-only collection. Order of entries matches the
// order of reporting.
type Diagnostics struct {
	entries []*Diagnostic
}

func New() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) Push(message string) {
	d.PushError(message, ast.SourceSpan{})
}

func (d *Diagnostics) PushAt(message string, line, column int) {
	d.PushError(message, ast.SpanAt(line, column))
}

func (d *Diagnostics) PushError(message string, span ast.SourceSpan) {
	d.entries = append(d.entries, &Diagnostic{Message: message, Level: Error, Span: span})
}

func (d *Diagnostics) PushWarning(message string, span ast.SourceSpan) {
	d.entries = append(d.entries, &Diagnostic{Message: message, Level: Warning, Span: span})
}

func (d *Diagnostics) Extend(other *Diagnostics) {
	if other == nil {
		return
	}
	d.entries = append(d.entries, other.entries...)
}

func (d *Diagnostics) Entries() []*Diagnostic {
	return d.entries
}

func (d *Diagnostics) IsEmpty() bool {
	return len(d.entries) == 0
}

func (d *Diagnostics) HasErrors() bool {
	for _, entry := range d.entries {
		if entry.Level == Error {
			return true
		}
	}
	return false
}

// ErrorStrings renders every error-level entry, mostly for tests.
func (d *Diagnostics) ErrorStrings() []string {
	var out []string
	for _, entry := range d.entries {
		if entry.Level == Error {
			out = append(out, entry.Message)
		}
	}
	return out
}
