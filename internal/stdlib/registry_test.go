package stdlib

import "testing"

func TestFindModule(t *testing.T) {
	for _, path := range []string{
		"std.debug", "std.assert", "std.util", "std.env", "std.fs", "std.path",
		"std.string", "std.io", "std.json", "std.yaml", "std.process",
		"std.args", "support.cli",
	} {
		if FindModule(path) == nil {
			t.Errorf("expected module %q to be registered", path)
		}
	}
	if FindModule("std.nope") != nil {
		t.Error("unexpected module std.nope")
	}
}

func TestModuleForFunction(t *testing.T) {
	path, ok := ModuleForFunction("to_string")
	if !ok || path != "std.util" {
		t.Errorf("expected std.util, got %q (%v)", path, ok)
	}
	path, ok = ModuleForFunction("read_text")
	if !ok || path != "std.fs" {
		t.Errorf("expected std.fs, got %q (%v)", path, ok)
	}
	if _, ok := ModuleForFunction("no_such_function"); ok {
		t.Error("unexpected hit for no_such_function")
	}
}

// to_string must be imported; the unqualified builtin set does not carry it.
func TestBuiltins(t *testing.T) {
	for _, name := range []string{"print", "println", "len", "type_of", "exit", "append", "delete", "clear", "min", "max"} {
		if FindBuiltin(name) == nil {
			t.Errorf("expected builtin %q", name)
		}
	}
	if FindBuiltin("to_string") != nil {
		t.Error("to_string must not be an unqualified builtin")
	}
}

func TestArityAllows(t *testing.T) {
	exact := Exact(2)
	if !exact.Allows(2) || exact.Allows(1) || exact.Allows(3) {
		t.Error("exact arity misbehaves")
	}
	ranged := Range(1, 3)
	if ranged.Allows(0) || !ranged.Allows(1) || !ranged.Allows(3) || ranged.Allows(4) {
		t.Error("ranged arity misbehaves")
	}
	open := Arity{Min: 1, Max: -1}
	if !open.Allows(99) || open.Allows(0) {
		t.Error("open arity misbehaves")
	}
}

func TestSnapshotArity(t *testing.T) {
	assertModule := FindModule("std.assert")
	snapshot := assertModule.Find("snapshot")
	if snapshot == nil {
		t.Fatal("expected snapshot in std.assert")
	}
	if !snapshot.Arity.Allows(2) || !snapshot.Arity.Allows(3) || snapshot.Arity.Allows(4) {
		t.Error("snapshot arity should be 2..3")
	}
}
