// Package cli renders diagnostics and drives the pipeline for the tea
// command.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/source"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorDim    = "\x1b[2m"
)

// RenderDiagnostics writes each diagnostic with its source line, a caret
// underline, and a `-->` span reference.
func RenderDiagnostics(w io.Writer, diags *diagnostics.Diagnostics, buffer *source.Buffer, color bool) {
	for _, diag := range diags.Entries() {
		renderDiagnostic(w, diag, buffer, color)
	}
}

func renderDiagnostic(w io.Writer, diag *diagnostics.Diagnostic, buffer *source.Buffer, color bool) {
	level := diag.Level.String()
	if color {
		if diag.Level == diagnostics.Error {
			level = colorRed + level + colorReset
		} else {
			level = colorYellow + level + colorReset
		}
	}
	fmt.Fprintf(w, "%s: %s\n", level, diag.Message)

	if diag.Span.IsZero() || buffer == nil {
		return
	}
	reference := fmt.Sprintf("  --> %s:%d:%d", buffer.Path, diag.Span.Line, diag.Span.Column)
	if color {
		reference = colorDim + reference + colorReset
	}
	fmt.Fprintln(w, reference)

	line := buffer.Line(diag.Span.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "   | %s\n", line)

	caretStart := diag.Span.Column
	if caretStart < 1 {
		caretStart = 1
	}
	width := 1
	if diag.Span.EndLine == diag.Span.Line && diag.Span.EndColumn >= caretStart {
		width = diag.Span.EndColumn - caretStart + 1
	}
	fmt.Fprintf(w, "   | %s%s\n", strings.Repeat(" ", caretStart-1), strings.Repeat("^", width))
}
