package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/tea/internal/intrinsics"
	"github.com/funvibe/tea/internal/pipeline"
	"github.com/funvibe/tea/internal/vm"
)

// Options configures one CLI invocation.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	ScriptArgs      []string
	UpdateSnapshots bool
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func compileFile(path string, opts *Options) (*pipeline.Context, int) {
	contents, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: cannot read %s: %v\n", path, err)
		return nil, 1
	}
	ctx := pipeline.Compile(path, string(contents))
	RenderDiagnostics(opts.Stderr, ctx.Diags, ctx.Source, colorEnabled(opts.Stderr))
	if ctx.Diags.HasErrors() {
		return ctx, 1
	}
	return ctx, 0
}

// Check compiles without executing. Exit code 0 when no errors.
func Check(path string, opts *Options) int {
	opts.defaults()
	_, code := compileFile(path, opts)
	return code
}

// Run compiles and executes a script.
func Run(path string, opts *Options) int {
	opts.defaults()
	ctx, code := compileFile(path, opts)
	if code != 0 {
		return code
	}

	ictx := intrinsics.NewContext()
	ictx.Stdout = opts.Stdout
	ictx.Stderr = opts.Stderr
	ictx.Args = opts.ScriptArgs
	ictx.ProgramName = path
	ictx.UpdateSnapshots = opts.UpdateSnapshots

	machine := vm.New(ctx.Program, ictx)
	if err := machine.Run(); err != nil {
		var exit *intrinsics.ExitRequest
		if errors.As(err, &exit) {
			return exit.Code
		}
		fmt.Fprintf(opts.Stderr, "runtime error: %s\n", err.Error())
		return 1
	}
	return 0
}

// Test compiles, runs the main chunk to install globals, then executes
// every test block.
func Test(path string, opts *Options) int {
	opts.defaults()
	ctx, code := compileFile(path, opts)
	if code != 0 {
		return code
	}

	ictx := intrinsics.NewContext()
	ictx.Stdout = opts.Stdout
	ictx.Stderr = opts.Stderr
	ictx.Args = opts.ScriptArgs
	ictx.ProgramName = path
	ictx.UpdateSnapshots = opts.UpdateSnapshots

	machine := vm.New(ctx.Program, ictx)
	if err := machine.Run(); err != nil {
		var exit *intrinsics.ExitRequest
		if !errors.As(err, &exit) {
			fmt.Fprintf(opts.Stderr, "runtime error: %s\n", err.Error())
			return 1
		}
	}

	failed := 0
	for _, test := range ctx.Program.Tests {
		if err := machine.RunTest(test); err != nil {
			failed++
			fmt.Fprintf(opts.Stdout, "FAIL %s: %s\n", test.Name, err.Error())
			continue
		}
		fmt.Fprintf(opts.Stdout, "PASS %s\n", test.Name)
	}
	fmt.Fprintf(opts.Stdout, "%d passed, %d failed\n", len(ctx.Program.Tests)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// Disasm prints the compiled program.
func Disasm(path string, opts *Options) int {
	opts.defaults()
	ctx, code := compileFile(path, opts)
	if code != 0 {
		return code
	}
	fmt.Fprint(opts.Stdout, ctx.Program.Disassemble())
	return 0
}
