// Package intrinsics implements the runtime contracts behind the stdlib
// registry. The VM dispatches BuiltinCall instructions here through a
// single kind-keyed table.
package intrinsics

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

// ExitRequest is returned by the exit builtin; the VM stops and the CLI
// exits with the code.
type ExitRequest struct {
	Code int
}

func (e *ExitRequest) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// Thrown wraps an error value an intrinsic wants to surface as a
// recoverable Tea error rather than a hard runtime failure.
type Thrown struct {
	Value value.Value
}

func (t *Thrown) Error() string {
	return "thrown: " + t.Value.Inspect()
}

// Context carries the ambient state intrinsics need: stdio, CLI arguments,
// snapshot configuration, and the spawned-process table. One context lives
// for one VM run.
type Context struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  *bufio.Reader

	Args        []string
	ProgramName string

	SnapshotDir     string
	UpdateSnapshots bool

	// ProgramDump renders the running program; wired by the VM for the
	// std.debug module.
	ProgramDump func() string

	processes map[int64]*process
	nextProc  int64
}

// NewContext builds a context bound to the real process environment.
func NewContext() *Context {
	return &Context{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Stdin:       bufio.NewReader(os.Stdin),
		Args:        os.Args[1:],
		ProgramName: os.Args[0],
		SnapshotDir: "snapshots",
		processes:   make(map[int64]*process),
	}
}

type implementation func(ctx *Context, args []value.Value) (value.Value, error)

var table = map[stdlib.FunctionKind]implementation{}

func register(kind stdlib.FunctionKind, impl implementation) {
	table[kind] = impl
}

// Call dispatches one intrinsic. The arguments arrive leftmost-deepest,
// already arity-checked by the type checker; implementations still validate
// shapes defensively.
func Call(ctx *Context, kind stdlib.FunctionKind, args []value.Value) (value.Value, error) {
	impl, ok := table[kind]
	if !ok {
		return value.Nil(), fmt.Errorf("intrinsic %d is not registered", kind)
	}
	return impl(ctx, args)
}

func wantString(args []value.Value, index int, fn string) (string, error) {
	if index >= len(args) || args[index].Kind != value.StringKind {
		return "", fmt.Errorf("%s: argument %d must be a String", fn, index+1)
	}
	return args[index].AsString(), nil
}

func wantInt(args []value.Value, index int, fn string) (int64, error) {
	if index >= len(args) || args[index].Kind != value.IntKind {
		return 0, fmt.Errorf("%s: argument %d must be an Int", fn, index+1)
	}
	return args[index].AsInt(), nil
}

func wantList(args []value.Value, index int, fn string) (*value.List, error) {
	if index >= len(args) || args[index].Kind != value.ListKind {
		return nil, fmt.Errorf("%s: argument %d must be a List", fn, index+1)
	}
	return args[index].AsList(), nil
}

func wantDict(args []value.Value, index int, fn string) (*value.Dict, error) {
	if index >= len(args) || args[index].Kind != value.DictKind {
		return nil, fmt.Errorf("%s: argument %d must be a Dict", fn, index+1)
	}
	return args[index].AsDict(), nil
}
