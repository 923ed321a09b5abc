package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/source"
)

func TestRenderDiagnosticWithCaret(t *testing.T) {
	buffer := source.NewBuffer(1, "main.tea", "var flag: Bool = 1\n")
	diags := diagnostics.New()
	diags.PushError("cannot initialize 'flag': expected Bool, found Int", ast.NewSpan(1, 18, 1, 18))

	var out bytes.Buffer
	RenderDiagnostics(&out, diags, buffer, false)
	rendered := out.String()

	if !strings.Contains(rendered, "error: cannot initialize 'flag'") {
		t.Errorf("missing message: %q", rendered)
	}
	if !strings.Contains(rendered, "--> main.tea:1:18") {
		t.Errorf("missing span reference: %q", rendered)
	}
	if !strings.Contains(rendered, "var flag: Bool = 1") {
		t.Errorf("missing source line: %q", rendered)
	}
	caretLine := ""
	for _, line := range strings.Split(rendered, "\n") {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	if caretLine == "" {
		t.Fatalf("missing caret underline: %q", rendered)
	}
	if !strings.HasSuffix(caretLine, strings.Repeat(" ", 17)+"^") {
		t.Errorf("caret misplaced: %q", caretLine)
	}
}

func TestRenderWarningWithoutSpan(t *testing.T) {
	diags := diagnostics.New()
	diags.PushWarning("unused variable 'x'", ast.SourceSpan{})

	var out bytes.Buffer
	RenderDiagnostics(&out, diags, nil, false)
	if !strings.Contains(out.String(), "warning: unused variable 'x'") {
		t.Errorf("unexpected rendering: %q", out.String())
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/main.tea"
	script := "print(40 + 2)\n"
	if err := writeFile(path, script); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Run(path, &Options{Stdout: &stdout, Stderr: &stderr})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr.String())
	}
	if stdout.String() != "42\n" {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestCheckReportsErrors(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.tea"
	if err := writeFile(path, "var flag: Bool = 1\n"); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Check(path, &Options{Stdout: &stdout, Stderr: &stderr})
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr.String(), "expected Bool, found Int") {
		t.Errorf("missing diagnostic: %q", stderr.String())
	}
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/suite.tea"
	script := `use assert = "std.assert"
def add(a: Int, b: Int) -> Int
  a + b
end
test "adds"
  assert.eq(add(1, 2), 3)
end
test "fails"
  assert.eq(add(1, 1), 3)
end
`
	if err := writeFile(path, script); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Test(path, &Options{Stdout: &stdout, Stderr: &stderr})
	if code == 0 {
		t.Fatal("expected failing suite to exit non-zero")
	}
	out := stdout.String()
	if !strings.Contains(out, "PASS adds") {
		t.Errorf("missing pass line: %q", out)
	}
	if !strings.Contains(out, "FAIL fails") {
		t.Errorf("missing fail line: %q", out)
	}
	if !strings.Contains(out, "1 passed, 1 failed") {
		t.Errorf("missing summary: %q", out)
	}
}
