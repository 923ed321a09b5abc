package intrinsics

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func testContext() (*Context, *bytes.Buffer) {
	var out bytes.Buffer
	ctx := NewContext()
	ctx.Stdout = &out
	ctx.Stderr = &out
	return ctx, &out
}

func call(t *testing.T, ctx *Context, kind stdlib.FunctionKind, args ...value.Value) value.Value {
	t.Helper()
	result, err := Call(ctx, kind, args)
	if err != nil {
		t.Fatalf("intrinsic failed: %v", err)
	}
	return result
}

func list(elements ...value.Value) value.Value {
	return value.NewList(&value.List{Elements: elements})
}

func TestToStringAndTypeOf(t *testing.T) {
	ctx, _ := testContext()
	if got := call(t, ctx, stdlib.ToString, value.Int(42)).AsString(); got != "42" {
		t.Errorf("expected 42, got %q", got)
	}
	if got := call(t, ctx, stdlib.TypeOf, value.String("x")).AsString(); got != "String" {
		t.Errorf("expected String, got %q", got)
	}
}

func TestLen(t *testing.T) {
	ctx, _ := testContext()
	if got := call(t, ctx, stdlib.Length, value.String("tea")).AsInt(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := call(t, ctx, stdlib.Length, list(value.Int(1), value.Int(2))).AsInt(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestJsonRoundTrip(t *testing.T) {
	ctx, _ := testContext()
	original := value.NewDict(&value.Dict{Entries: map[string]value.Value{
		"name":  value.String("tea"),
		"count": value.Int(3),
		"tags":  list(value.String("a"), value.String("b")),
	}})
	encoded := call(t, ctx, stdlib.JsonEncode, original)
	decoded := call(t, ctx, stdlib.JsonDecode, encoded)

	dict := decoded.AsDict()
	if dict.Entries["name"].AsString() != "tea" {
		t.Errorf("name lost in round trip: %s", decoded.Inspect())
	}
	if dict.Entries["count"].AsInt() != 3 {
		t.Errorf("count lost in round trip: %s", decoded.Inspect())
	}
	if len(dict.Entries["tags"].AsList().Elements) != 2 {
		t.Errorf("tags lost in round trip: %s", decoded.Inspect())
	}
}

func TestYamlRoundTrip(t *testing.T) {
	ctx, _ := testContext()
	original := value.NewDict(&value.Dict{Entries: map[string]value.Value{
		"enabled": value.Bool(true),
		"limit":   value.Int(7),
	}})
	encoded := call(t, ctx, stdlib.YamlEncode, original)
	decoded := call(t, ctx, stdlib.YamlDecode, encoded)
	dict := decoded.AsDict()
	if !dict.Entries["enabled"].AsBool() || dict.Entries["limit"].AsInt() != 7 {
		t.Errorf("yaml round trip lost data: %s", decoded.Inspect())
	}
}

func TestPathHelpers(t *testing.T) {
	ctx, _ := testContext()
	joined := call(t, ctx, stdlib.PathJoin, list(value.String("a"), value.String("b"), value.String("c.tea")))
	if joined.AsString() != filepath.Join("a", "b", "c.tea") {
		t.Errorf("unexpected join: %q", joined.AsString())
	}
	ext := call(t, ctx, stdlib.PathExtension, value.String("notes.tea"))
	if ext.AsString() != "tea" {
		t.Errorf("expected tea, got %q", ext.AsString())
	}
	parts := call(t, ctx, stdlib.PathComponents, value.String("a/b/c")).AsList()
	if len(parts.Elements) != 3 {
		t.Errorf("expected 3 components, got %s", value.NewList(parts).Inspect())
	}
}

func TestStringHelpers(t *testing.T) {
	ctx, _ := testContext()
	if got := call(t, ctx, stdlib.StringIndexOf, value.String("tea"), value.String("a")).AsInt(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if !call(t, ctx, stdlib.StringContains, value.String("tea"), value.String("e")).AsBool() {
		t.Error("expected contains to hit")
	}
	split := call(t, ctx, stdlib.StringSplit, value.String("a,b,c"), value.String(",")).AsList()
	if len(split.Elements) != 3 {
		t.Errorf("expected 3 parts, got %d", len(split.Elements))
	}
}

func TestFsReadWrite(t *testing.T) {
	ctx, _ := testContext()
	dir := t.TempDir()
	target := filepath.Join(dir, "note.txt")

	call(t, ctx, stdlib.FsWriteText, value.String(target), value.String("hello"))
	got := call(t, ctx, stdlib.FsReadText, value.String(target))
	if got.AsString() != "hello" {
		t.Errorf("expected hello, got %q", got.AsString())
	}
	if !call(t, ctx, stdlib.FsExists, value.String(target)).AsBool() {
		t.Error("expected file to exist")
	}

	call(t, ctx, stdlib.FsWriteTextAtomic, value.String(target), value.String("replaced"))
	got = call(t, ctx, stdlib.FsReadText, value.String(target))
	if got.AsString() != "replaced" {
		t.Errorf("atomic write lost content: %q", got.AsString())
	}

	entries, err := Call(ctx, stdlib.FsListDir, []value.Value{value.String(dir)})
	if err != nil {
		t.Fatalf("list_dir failed: %v", err)
	}
	if len(entries.AsList().Elements) != 1 {
		t.Errorf("expected a single entry, got %s", entries.Inspect())
	}
}

func TestFsGlob(t *testing.T) {
	ctx, _ := testContext()
	dir := t.TempDir()
	call(t, ctx, stdlib.FsEnsureDir, value.String(filepath.Join(dir, "sub")))
	call(t, ctx, stdlib.FsWriteText, value.String(filepath.Join(dir, "sub", "a.tea")), value.String(""))
	call(t, ctx, stdlib.FsWriteText, value.String(filepath.Join(dir, "b.txt")), value.String(""))

	matches := call(t, ctx, stdlib.FsGlob, value.String(filepath.Join(dir, "**", "*.tea"))).AsList()
	if len(matches.Elements) != 1 {
		t.Errorf("expected one match, got %s", value.NewList(matches).Inspect())
	}
}

func TestAssertEqDiff(t *testing.T) {
	ctx, _ := testContext()
	_, err := Call(ctx, stdlib.AssertEq, []value.Value{value.String("a\nb\n"), value.String("a\nc\n")})
	if err == nil {
		t.Fatal("expected assertion failure")
	}
	if !strings.Contains(err.Error(), "assertion failed") {
		t.Errorf("unexpected message: %v", err)
	}
	if !strings.Contains(err.Error(), "-") || !strings.Contains(err.Error(), "+") {
		t.Errorf("expected a unified diff, got: %v", err)
	}
}

func TestAssertSnapshot(t *testing.T) {
	ctx, _ := testContext()
	ctx.SnapshotDir = t.TempDir()

	// First run writes the snapshot.
	call(t, ctx, stdlib.AssertSnapshot, value.String("greeting"), value.String("hello"))
	// Matching content passes.
	call(t, ctx, stdlib.AssertSnapshot, value.String("greeting"), value.String("hello"))
	// Divergence fails with a diff.
	_, err := Call(ctx, stdlib.AssertSnapshot, []value.Value{value.String("greeting"), value.String("bye")})
	if err == nil || !strings.Contains(err.Error(), "snapshot 'greeting' differs") {
		t.Fatalf("expected snapshot mismatch, got %v", err)
	}

	// Update mode rewrites.
	ctx.UpdateSnapshots = true
	call(t, ctx, stdlib.AssertSnapshot, value.String("greeting"), value.String("bye"))
	ctx.UpdateSnapshots = false
	call(t, ctx, stdlib.AssertSnapshot, value.String("greeting"), value.String("bye"))
}

func TestEnvRoundTrip(t *testing.T) {
	ctx, _ := testContext()
	call(t, ctx, stdlib.EnvSet, value.String("TEA_TEST_VAR"), value.String("1"))
	if !call(t, ctx, stdlib.EnvHas, value.String("TEA_TEST_VAR")).AsBool() {
		t.Error("expected env var to exist")
	}
	if got := call(t, ctx, stdlib.EnvGet, value.String("TEA_TEST_VAR")).AsString(); got != "1" {
		t.Errorf("expected 1, got %q", got)
	}
	call(t, ctx, stdlib.EnvUnset, value.String("TEA_TEST_VAR"))
	if call(t, ctx, stdlib.EnvHas, value.String("TEA_TEST_VAR")).AsBool() {
		t.Error("expected env var to be gone")
	}
}

func TestProcessRun(t *testing.T) {
	ctx, _ := testContext()
	result, err := Call(ctx, stdlib.ProcessRun, []value.Value{
		value.String("sh"),
		list(value.String("-c"), value.String("printf out; printf err >&2")),
	})
	if err != nil {
		t.Skipf("cannot run shell here: %v", err)
	}
	dict := result.AsDict()
	if dict.Entries["stdout"].AsString() != "out" {
		t.Errorf("unexpected stdout: %q", dict.Entries["stdout"].AsString())
	}
	if dict.Entries["stderr"].AsString() != "err" {
		t.Errorf("unexpected stderr: %q", dict.Entries["stderr"].AsString())
	}
	if dict.Entries["status"].AsInt() != 0 {
		t.Errorf("unexpected status: %d", dict.Entries["status"].AsInt())
	}
}

func TestCliCapture(t *testing.T) {
	ctx, _ := testContext()
	captured := call(t, ctx, stdlib.CliCapture, list(
		value.String("--verbose"),
		value.String("--out=report.txt"),
		value.String("input.tea"),
	)).AsDict()

	flags := captured.Entries["flags"].AsDict()
	if !flags.Entries["verbose"].AsBool() {
		t.Error("expected verbose flag")
	}
	if flags.Entries["out"].AsString() != "report.txt" {
		t.Errorf("unexpected out flag: %s", flags.Entries["out"].Inspect())
	}
	positional := captured.Entries["positional"].AsList()
	if len(positional.Elements) != 1 || positional.Elements[0].AsString() != "input.tea" {
		t.Errorf("unexpected positionals: %s", captured.Entries["positional"].Inspect())
	}
}
