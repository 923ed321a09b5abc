package intrinsics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.AssertOk, assertOk)
	register(stdlib.AssertEq, assertEq)
	register(stdlib.AssertNe, assertNe)
	register(stdlib.AssertFail, assertFail)
	register(stdlib.AssertEmpty, assertEmpty)
	register(stdlib.AssertSnapshot, assertSnapshot)
}

func assertOk(_ *Context, args []value.Value) (value.Value, error) {
	if !args[0].IsTruthy() {
		return value.Nil(), fmt.Errorf("assertion failed: expected a truthy value, got %s", args[0].Inspect())
	}
	return value.Void(), nil
}

func assertEq(_ *Context, args []value.Value) (value.Value, error) {
	left, right := args[0], args[1]
	if left.Equals(right) {
		return value.Void(), nil
	}
	if left.Kind == value.StringKind && right.Kind == value.StringKind {
		diff := unifiedDiff(right.AsString(), left.AsString())
		return value.Nil(), fmt.Errorf("assertion failed: values differ\n%s", diff)
	}
	return value.Nil(), fmt.Errorf("assertion failed: %s != %s", left.Inspect(), right.Inspect())
}

func assertNe(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Equals(args[1]) {
		return value.Nil(), fmt.Errorf("assertion failed: both sides are %s", args[0].Inspect())
	}
	return value.Void(), nil
}

func assertFail(_ *Context, args []value.Value) (value.Value, error) {
	message, err := wantString(args, 0, "assert.fail")
	if err != nil {
		return value.Nil(), err
	}
	return value.Nil(), fmt.Errorf("assertion failed: %s", message)
}

func assertEmpty(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.StringKind:
		if args[0].AsString() == "" {
			return value.Void(), nil
		}
	case value.ListKind:
		if len(args[0].AsList().Elements) == 0 {
			return value.Void(), nil
		}
	case value.DictKind:
		if len(args[0].AsDict().Entries) == 0 {
			return value.Void(), nil
		}
	case value.NilKind:
		return value.Void(), nil
	}
	return value.Nil(), fmt.Errorf("assertion failed: expected an empty value, got %s", args[0].Inspect())
}

// assertSnapshot compares against <dir>/<name>.snap, writing the file on
// first run or when snapshot updating is enabled.
func assertSnapshot(ctx *Context, args []value.Value) (value.Value, error) {
	name, err := wantString(args, 0, "assert.snapshot")
	if err != nil {
		return value.Nil(), err
	}
	actual, err := wantString(args, 1, "assert.snapshot")
	if err != nil {
		return value.Nil(), err
	}
	dir := ctx.SnapshotDir
	if len(args) > 2 {
		if override, err := wantString(args, 2, "assert.snapshot"); err == nil {
			dir = override
		}
	}

	path := filepath.Join(dir, name+".snap")
	expected, readErr := os.ReadFile(path)
	if readErr != nil || ctx.UpdateSnapshots {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return value.Nil(), fmt.Errorf("assert.snapshot: %w", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			return value.Nil(), fmt.Errorf("assert.snapshot: %w", err)
		}
		return value.Void(), nil
	}
	if string(expected) == actual {
		return value.Void(), nil
	}
	return value.Nil(), fmt.Errorf("snapshot '%s' differs\n%s", name, unifiedDiff(string(expected), actual))
}

func unifiedDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
