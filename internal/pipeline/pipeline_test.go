package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/intrinsics"
	"github.com/funvibe/tea/internal/vm"
)

func TestCompileHappyPath(t *testing.T) {
	ctx := Compile("main.tea", "def fact(n: Int) -> Int\n  if n <= 1 return 1 end\n  n * fact(n - 1)\nend\nprint(fact(6))\n")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", ctx.Diags.ErrorStrings())
	}
	if ctx.Program == nil {
		t.Fatal("expected a program")
	}

	var out bytes.Buffer
	ictx := intrinsics.NewContext()
	ictx.Stdout = &out
	if err := vm.New(ctx.Program, ictx).Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "720\n" {
		t.Fatalf("expected 720, got %q", out.String())
	}
}

// A lexer error stops the pipeline before the parser runs.
func TestPhaseGating(t *testing.T) {
	ctx := Compile("main.tea", "var s = \"unterminated\n")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected a lexer error")
	}
	if ctx.Module != nil {
		t.Error("parser must not run after a lexer error")
	}
	if ctx.Program != nil {
		t.Error("no program may be produced after an error")
	}
}

func TestTypeErrorsBlockEmission(t *testing.T) {
	ctx := Compile("main.tea", "var flag: Bool = 1\n")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected a type error")
	}
	if ctx.Program != nil {
		t.Error("no program may be produced after a type error")
	}
}

func TestWarningsDoNotBlock(t *testing.T) {
	ctx := Compile("main.tea", "def f(unused: Int) -> Int\n  1\nend\nprint(f(1))\n")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Diags.ErrorStrings())
	}
	if ctx.Diags.IsEmpty() {
		t.Fatal("expected an unused-parameter warning")
	}
	if ctx.Program == nil {
		t.Fatal("warnings must not block emission")
	}
}

func TestRelativeImport(t *testing.T) {
	dir := t.TempDir()
	helper := `pub def shout(word: String) -> String
  word + "!"
end
`
	if err := os.WriteFile(filepath.Join(dir, "helper.tea"), []byte(helper), 0o644); err != nil {
		t.Fatal(err)
	}
	main := `use helper = "helper"
print(helper.shout("tea"))
`
	ctx := Compile(filepath.Join(dir, "main.tea"), main)
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", ctx.Diags.ErrorStrings())
	}

	var out bytes.Buffer
	ictx := intrinsics.NewContext()
	ictx.Stdout = &out
	if err := vm.New(ctx.Program, ictx).Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "tea!\n" {
		t.Fatalf("expected tea!, got %q", out.String())
	}
}

func TestMissingExportFromUserModule(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helper.tea"), []byte("pub def a() -> Int\n  1\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := Compile(filepath.Join(dir, "main.tea"), "use helper = \"helper\"\nprint(helper.missing())\n")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected missing-export error")
	}
	all := strings.Join(ctx.Diags.ErrorStrings(), "\n")
	if !strings.Contains(all, "module 'helper' has no export named 'missing'") {
		t.Fatalf("unexpected diagnostics: %s", all)
	}
}
