package resolver

import (
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/lexer"
	"github.com/funvibe/tea/internal/parser"
)

func resolveSource(t *testing.T, input string) (*diagnostics.Diagnostics, map[int][]string) {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(input)
	if lexDiags.HasErrors() {
		t.Fatalf("lexer error: %v", lexDiags.ErrorStrings())
	}
	module, parseDiags := parser.Parse(tokens)
	if parseDiags.HasErrors() {
		t.Fatalf("parser error: %v", parseDiags.ErrorStrings())
	}
	return Resolve(module)
}

func firstError(diags *diagnostics.Diagnostics) string {
	errs := diags.ErrorStrings()
	if len(errs) == 0 {
		return ""
	}
	return errs[0]
}

func warnings(diags *diagnostics.Diagnostics) []string {
	var out []string
	for _, entry := range diags.Entries() {
		if entry.Level == diagnostics.Warning {
			out = append(out, entry.Message)
		}
	}
	return out
}

func TestDuplicateDeclaration(t *testing.T) {
	diags, _ := resolveSource(t, "var count = 1\nvar count = 2\n")
	msg := firstError(diags)
	if !strings.Contains(msg, "duplicate declaration of variable 'count'") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if !strings.Contains(msg, "first declared as variable at line 1, column 5") {
		t.Errorf("expected both spans cited, got %q", msg)
	}
}

func TestShadowingIsAnError(t *testing.T) {
	diags, _ := resolveSource(t, `def f(x: Int) -> Int
  var x = 2
  x
end
`)
	msg := firstError(diags)
	if !strings.Contains(msg, "shadows existing") {
		t.Fatalf("expected resolver to reject shadowing, got %q", msg)
	}
	if !strings.Contains(msg, "redeclaration of variable 'x'") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestConstReassignment(t *testing.T) {
	diags, _ := resolveSource(t, "const limit = 10\nlimit = 20\n")
	if !strings.Contains(firstError(diags), "cannot reassign const 'limit'") {
		t.Fatalf("unexpected message: %q", firstError(diags))
	}
}

func TestUndefinedBinding(t *testing.T) {
	diags, _ := resolveSource(t, "print(missing)\n")
	if !strings.Contains(firstError(diags), "use of undefined binding 'missing'") {
		t.Fatalf("unexpected message: %q", firstError(diags))
	}
}

// A known stdlib function name in the message suggests the matching use
// statement.
func TestStdlibImportSuggestion(t *testing.T) {
	diags, _ := resolveSource(t, "to_string(42)\n")
	msg := firstError(diags)
	if !strings.Contains(msg, "use of undefined binding 'to_string'") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if !strings.Contains(msg, "add `use util = \"std.util\"` to import it") {
		t.Errorf("expected import suggestion, got %q", msg)
	}
}

func TestUnknownStdModule(t *testing.T) {
	diags, _ := resolveSource(t, "use nope = \"std.nope\"\n")
	if !strings.Contains(firstError(diags), "unknown module 'std.nope'") {
		t.Fatalf("unexpected message: %q", firstError(diags))
	}
}

func TestUnusedWarnings(t *testing.T) {
	diags, _ := resolveSource(t, `use fs = "std.fs"
def f(unused_param: Int) -> Int
  var unused_local = 1
  return 2
end
f(1)
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.ErrorStrings())
	}
	all := strings.Join(warnings(diags), "\n")
	for _, expected := range []string{
		"unused variable 'unused_local'",
		"unused parameter 'unused_param'",
		"unused module alias 'fs'",
	} {
		if !strings.Contains(all, expected) {
			t.Errorf("missing warning %q in %q", expected, all)
		}
	}
}

func TestFunctionsAreHoisted(t *testing.T) {
	diags, _ := resolveSource(t, `def first() -> Int
  second()
end
def second() -> Int
  1
end
first()
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.ErrorStrings())
	}
}

func TestLambdaCaptures(t *testing.T) {
	diags, captures := resolveSource(t, `def run() -> Int
  var base = 40
  var add = |v: Int| => base + v
  add(2)
end
run()
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.ErrorStrings())
	}
	if len(captures) != 1 {
		t.Fatalf("expected 1 lambda, got %d", len(captures))
	}
	for _, names := range captures {
		if len(names) != 1 || names[0] != "base" {
			t.Fatalf("expected capture [base], got %v", names)
		}
	}
}

// Globals resolve through the globals table, never as captures.
func TestModuleGlobalsAreNotCaptured(t *testing.T) {
	_, captures := resolveSource(t, `var offset = 10
def run() -> Int
  var f = |v: Int| => offset + v
  f(1)
end
run()
`)
	for _, names := range captures {
		if len(names) != 0 {
			t.Fatalf("expected no captures, got %v", names)
		}
	}
}

func TestCaptureOrderIsFirstUse(t *testing.T) {
	_, captures := resolveSource(t, `def run() -> Int
  var a = 1
  var b = 2
  var f = || => b + a + b
  f()
end
run()
`)
	var names []string
	for _, captured := range captures {
		names = captured
	}
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("expected first-capture order [b a], got %v", names)
	}
}

func TestForLoopBindings(t *testing.T) {
	diags, _ := resolveSource(t, `var items = [1, 2, 3]
for item of items
  print(item)
end
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.ErrorStrings())
	}
}

func TestVarInitializerCannotSeeItself(t *testing.T) {
	diags, _ := resolveSource(t, "var x = x\n")
	if !strings.Contains(firstError(diags), "use of undefined binding 'x'") {
		t.Fatalf("unexpected message: %q", firstError(diags))
	}
}
