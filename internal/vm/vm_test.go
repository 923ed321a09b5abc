package vm

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/intrinsics"
	"github.com/funvibe/tea/internal/lexer"
	"github.com/funvibe/tea/internal/parser"
	"github.com/funvibe/tea/internal/resolver"
	"github.com/funvibe/tea/internal/typechecker"
)

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(src)
	if lexDiags.HasErrors() {
		t.Fatalf("lexer error: %v", lexDiags.ErrorStrings())
	}
	module, parseDiags := parser.Parse(tokens)
	if parseDiags.HasErrors() {
		t.Fatalf("parser error: %v", parseDiags.ErrorStrings())
	}
	resolveDiags, captures := resolver.Resolve(module)
	if resolveDiags.HasErrors() {
		t.Fatalf("resolver error: %v", resolveDiags.ErrorStrings())
	}
	info, checkDiags := typechecker.Check(module)
	if checkDiags.HasErrors() {
		t.Fatalf("type error: %v", checkDiags.ErrorStrings())
	}
	program, err := Compile(module, info, captures, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return program
}

func runProgram(t *testing.T, program *Program) (string, error) {
	t.Helper()
	var out bytes.Buffer
	ctx := intrinsics.NewContext()
	ctx.Stdout = &out
	ctx.Stderr = &out
	machine := New(program, ctx)
	err := machine.Run()
	return out.String(), err
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	program := compileSource(t, src)
	out, err := runProgram(t, program)
	if err != nil {
		t.Fatalf("runtime error: %v (output so far: %q)", err, out)
	}
	return out
}

func runExpectingError(t *testing.T, src string) (string, error) {
	t.Helper()
	program := compileSource(t, src)
	out, err := runProgram(t, program)
	if err == nil {
		t.Fatalf("expected a runtime error, got output %q", out)
	}
	return out, err
}

func TestFactorialRecursion(t *testing.T) {
	out := runSource(t, "def fact(n: Int) -> Int\n  if n <= 1 return 1 end\n  n * fact(n - 1)\nend\nprint(fact(6))\n")
	if out != "720\n" {
		t.Fatalf("expected 720, got %q", out)
	}
}

func TestErrorPropagationWithCatch(t *testing.T) {
	out := runSource(t, `error DataError { Missing(path: String) Permission }
def read(p: String) -> String ! { DataError.Missing, DataError.Permission }
  if p == "missing" throw DataError.Missing(p) end
  if p == "secret" throw DataError.Permission() end
  return "content"
end
def describe(p: String) -> String
  try read(p) catch err
    case is DataError.Missing => `+"`missing:${err.path}`"+`
    case is DataError.Permission => "denied"
    case _ => "unexpected"
  end
end
print(describe("missing"))
var x = read("notes.txt") catch "fallback"
print(x)
var y = try read("secret") catch "handled"
print(y)
`)
	if out != "missing:missing\ncontent\nhandled\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestOptionalUnwrapFlow(t *testing.T) {
	out := runSource(t, `def greeting(name: String?) -> String
  var local = name
  if local == nil
    local = "tea"
  end
  return local!
end
print(greeting(nil))
`)
	if out != "tea\n" {
		t.Fatalf("expected tea, got %q", out)
	}
}

func TestLambdaCaptureAndClosureCall(t *testing.T) {
	src := `def run() -> Int
  var base = 40
  var add = |v: Int| => base + v
  add(2)
end
print(run())
`
	program := compileSource(t, src)

	closures := 0
	chunks := append([]*Chunk{program.Chunk}, nil...)
	for _, fn := range program.Functions {
		chunks = append(chunks, fn.Chunk)
	}
	for _, chunk := range chunks {
		for _, inst := range chunk.Instructions {
			if inst.Op == OpMakeClosure {
				closures++
				if inst.B != 1 {
					t.Errorf("expected capture count 1, got %d", inst.B)
				}
			}
		}
	}
	if closures != 1 {
		t.Fatalf("expected exactly one MakeClosure, got %d", closures)
	}

	out, err := runProgram(t, program)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "42\n" {
		t.Fatalf("expected 42, got %q", out)
	}
}

func TestBareLambdaUsesFunctionConstant(t *testing.T) {
	program := compileSource(t, `var twice = |v: Int| => v * 2
print(twice(21))
`)
	for _, inst := range program.Chunk.Instructions {
		if inst.Op == OpMakeClosure {
			t.Fatal("capture-free lambdas must not use MakeClosure")
		}
	}
	out, err := runProgram(t, program)
	if err != nil || out != "42\n" {
		t.Fatalf("expected 42, got %q (%v)", out, err)
	}
}

func TestArithmeticAndStrings(t *testing.T) {
	out := runSource(t, `print(7 % 3)
print(2.5 * 4.0)
print("te" + "a")
print(10 / 3)
`)
	if out != "1\n10\ntea\n3\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInterpolatedStrings(t *testing.T) {
	out := runSource(t, "var n = 6\nprint(`n is ${n}, doubled ${n * 2}`)\n")
	if out != "n is 6, doubled 12\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWhileUntilLoops(t *testing.T) {
	out := runSource(t, `var total = 0
var i = 0
while i < 5
  total += i
  i++
end
until total >= 20
  total += 5
end
print(total)
`)
	if out != "20\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestForOverListWithBreakContinue(t *testing.T) {
	out := runSource(t, `var total = 0
for n of [1, 2, 3, 4, 5, 6]
  if n == 2 continue end
  if n == 5 break end
  total += n
end
print(total)
`)
	if out != "8\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestForOverRange(t *testing.T) {
	out := runSource(t, `var exclusive = 0
for i of 0..4
  exclusive += i
end
var inclusive = 0
for j of 0...4
  inclusive += j
end
print(exclusive)
print(inclusive)
`)
	if out != "6\n10\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

// Dict iteration must visit every entry; no particular order is assumed.
func TestForOverDict(t *testing.T) {
	out := runSource(t, `var ages = { "ada": 36, "alan": 41, "grace": 85 }
var total = 0
var names = 0
for name, age of ages
  names += 1
  total += age
  if name == "" break end
end
print(names)
print(total)
`)
	if out != "3\n162\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStructsAndFieldAccess(t *testing.T) {
	out := runSource(t, `struct Point
  x: Int
  y: Int
end
var p = Point(1, 2)
var q = Point(y: 4, x: 3)
print(p.x + q.x)
print(q)
`)
	if out != "4\nPoint(x: 3, y: 4)\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestEnumMatch(t *testing.T) {
	out := runSource(t, `enum Color { Red Green Blue }
var c = Color.Green
var s = match c
  case Color.Red => "r"
  case Color.Green => "g"
  case Color.Blue => "b"
end
print(s)
print(c)
`)
	if out != "g\nColor.Green\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

// One JumpIfFalse per non-wildcard arm.
func TestMatchCompilationShape(t *testing.T) {
	program := compileSource(t, `var n = 2
var s = match n
  case 1 => "one"
  case 2 => "two"
  case _ => "many"
end
print(s)
`)
	jumps := 0
	for _, inst := range program.Chunk.Instructions {
		if inst.Op == OpJumpIfFalse {
			jumps++
		}
	}
	if jumps != 2 {
		t.Fatalf("expected 2 JumpIfFalse (one per non-wildcard arm), got %d", jumps)
	}
	out, err := runProgram(t, program)
	if err != nil || out != "two\n" {
		t.Fatalf("expected two, got %q (%v)", out, err)
	}
}

func TestEmissionIsDeterministic(t *testing.T) {
	src := `enum Color { Red Green }
struct Point
  x: Int
  y: Int
end
def area(p: Point) -> Int
  p.x * p.y
end
print(area(Point(3, 4)))
`
	first := compileSource(t, src)
	second := compileSource(t, src)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected byte-identical programs from repeated emission")
	}
}

func TestCoalesce(t *testing.T) {
	out := runSource(t, `def pick(name: String?) -> String
  return name ?? "default"
end
print(pick(nil))
print(pick("given"))
`)
	if out != "default\ngiven\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestUnlessAndElse(t *testing.T) {
	out := runSource(t, `var ready = false
unless ready
  print("waiting")
end
if ready
  print("go")
else
  print("stop")
end
`)
	if out != "waiting\nstop\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestBuiltins(t *testing.T) {
	out := runSource(t, `var items = [1, 2]
append(items, 3)
print(len(items))
print(min(3, 5))
print(max("a", "b"))
print(type_of(1.5))
var table = { "a": 1, "b": 2 }
delete(table, "a")
print(len(table))
clear(table)
print(len(table))
`)
	if out != "3\n3\nb\nFloat\n1\n0\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSharedListMutation(t *testing.T) {
	out := runSource(t, `var items = [1]
var same = items
append(items, 2)
print(len(same))
`)
	if out != "2\n" {
		t.Fatalf("expected shared mutation to be visible, got %q", out)
	}
}

func TestModuleAliasCalls(t *testing.T) {
	out := runSource(t, `use str = "std.string"
use path = "std.path"
print(str.replace("tea time", "time", "leaves"))
print(str.index_of("tea", "a"))
print(path.basename("/tmp/notes.tea"))
`)
	if out != "tea leaves\n2\nnotes.tea\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNegativeListIndex(t *testing.T) {
	out := runSource(t, `var items = [1, 2, 3]
print(items[-1])
`)
	if out != "3\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := runExpectingError(t, `def divide(a: Int, b: Int) -> Int
  a / b
end
print(divide(1, 0))
`)
	if !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "divide") {
		t.Fatalf("expected the function name in the message: %v", err)
	}
}

func TestPropagatedErrorCaughtAtTopLevel(t *testing.T) {
	program := compileSource(t, `error DataError { Missing(path: String) }
def read(p: String) -> String ! DataError.Missing
  throw DataError.Missing(p)
end
def main() -> String ! DataError.Missing
  return try read("gone")
end
var v = try main() catch "caught"
print(v)
`)
	out, err := runProgram(t, program)
	if err != nil {
		t.Fatalf("expected catch to handle the propagated error: %v", err)
	}
	if out != "caught\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	_, err := runExpectingError(t, "var items = [1]\nprint(items[5])\n")
	if !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStackOverflow(t *testing.T) {
	_, err := runExpectingError(t, `def loop(n: Int) -> Int
  loop(n + 1)
end
print(loop(0))
`)
	if !strings.Contains(err.Error(), "stack overflow") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFunctionChunksEndInReturn(t *testing.T) {
	program := compileSource(t, `def noop() -> Void
  return
end
def value() -> Int
  41 + 1
end
print(value())
noop()
`)
	for _, fn := range program.Functions {
		if len(fn.Chunk.Instructions) == 0 {
			t.Fatalf("function %s has an empty chunk", fn.Name)
		}
		last := fn.Chunk.Instructions[len(fn.Chunk.Instructions)-1]
		if last.Op != OpReturn {
			t.Errorf("function %s does not end in Return: %s", fn.Name, last)
		}
	}
}

func TestTestBlocksAreCollected(t *testing.T) {
	program := compileSource(t, `use assert = "std.assert"
def add(a: Int, b: Int) -> Int
  a + b
end
test "adds numbers"
  assert.eq(add(1, 2), 3)
end
`)
	if len(program.Tests) != 1 {
		t.Fatalf("expected 1 test, got %d", len(program.Tests))
	}
	if program.Tests[0].Name != "adds numbers" {
		t.Errorf("unexpected test name %q", program.Tests[0].Name)
	}

	var out bytes.Buffer
	ctx := intrinsics.NewContext()
	ctx.Stdout = &out
	machine := New(program, ctx)
	if err := machine.Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if err := machine.RunTest(program.Tests[0]); err != nil {
		t.Fatalf("test body failed: %v", err)
	}
}

func TestDefaultParameterValues(t *testing.T) {
	out := runSource(t, `def greet(name: String, suffix: String = "!") -> String
  name + suffix
end
print(greet("tea"))
print(greet("tea", "?"))
`)
	if out != "tea!\ntea?\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNamedArgumentsEvaluateInSourceOrder(t *testing.T) {
	out := runSource(t, `struct Pair
  first: Int
  second: Int
end
def trace(v: Int) -> Int
  print(v)
  v
end
var p = Pair(second: trace(2), first: trace(1))
print(p.first)
`)
	if out != "2\n1\n1\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCompoundAssignmentOnGlobals(t *testing.T) {
	out := runSource(t, `var counter = 10
counter -= 3
counter *= 2
counter += 1
counter--
print(counter)
`)
	if out != "14\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGenericFunctionRuns(t *testing.T) {
	out := runSource(t, `def identity<T>(v: T) -> T
  v
end
print(identity(41) + 1)
print(identity<String>("tea"))
`)
	if out != "42\ntea\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExitStopsExecution(t *testing.T) {
	program := compileSource(t, "print(1)\nexit(3)\nprint(2)\n")
	var out bytes.Buffer
	ctx := intrinsics.NewContext()
	ctx.Stdout = &out
	machine := New(program, ctx)
	err := machine.Run()
	exit, ok := err.(*intrinsics.ExitRequest)
	if !ok {
		t.Fatalf("expected exit request, got %v", err)
	}
	if exit.Code != 3 {
		t.Errorf("expected code 3, got %d", exit.Code)
	}
	if out.String() != "1\n" {
		t.Errorf("expected execution to stop after exit, got %q", out.String())
	}
}
