package typechecker

import (
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/lexer"
	"github.com/funvibe/tea/internal/parser"
)

func checkSource(t *testing.T, input string) (*Info, *diagnostics.Diagnostics) {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(input)
	if lexDiags.HasErrors() {
		t.Fatalf("lexer error: %v", lexDiags.ErrorStrings())
	}
	module, parseDiags := parser.Parse(tokens)
	if parseDiags.HasErrors() {
		t.Fatalf("parser error: %v", parseDiags.ErrorStrings())
	}
	return Check(module)
}

func expectError(t *testing.T, input, fragment string) {
	t.Helper()
	_, diags := checkSource(t, input)
	if !diags.HasErrors() {
		t.Fatalf("expected compilation to fail with %q", fragment)
	}
	all := strings.Join(diags.ErrorStrings(), "\n")
	if !strings.Contains(all, fragment) {
		t.Fatalf("expected %q in diagnostics, got:\n%s", fragment, all)
	}
}

func expectClean(t *testing.T, input string) {
	t.Helper()
	_, diags := checkSource(t, input)
	if diags.HasErrors() {
		t.Fatalf("expected no type diagnostics, found %v", diags.ErrorStrings())
	}
}

func TestAnnotationMismatch(t *testing.T) {
	expectError(t, "var flag: Bool = 1\n", "cannot initialize 'flag': expected Bool, found Int")
}

func TestNoImplicitNumericCoercion(t *testing.T) {
	expectError(t, "var v = 1 + 2.5\n", "operator '+' cannot be applied to Int and Float")
}

func TestConditionalGuardMustBeBool(t *testing.T) {
	_, diags := checkSource(t, "if 1\n  nil\nend\n")
	if !diags.HasErrors() {
		t.Fatal("expected conditional type error")
	}
	entry := diags.Entries()[0]
	if !strings.Contains(entry.Message, "conditional expression") {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.Span.IsZero() {
		t.Error("conditional diagnostic should have a span")
	}
}

func TestLoopGuardMustBeBool(t *testing.T) {
	_, diags := checkSource(t, "while 1\n  nil\nend\n")
	if !diags.HasErrors() {
		t.Fatal("expected loop condition type error")
	}
	entry := diags.Entries()[0]
	if !strings.Contains(entry.Message, "loop condition") {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.Span.IsZero() {
		t.Error("loop condition diagnostic should have a span")
	}
}

func TestArgumentMismatch(t *testing.T) {
	expectError(t, `def inc(value: Int) -> Int
  value + 1
end

inc(true)
`, "argument 1 to 'inc': expected Int, found Bool")
}

func TestReturnTypeMismatch(t *testing.T) {
	expectError(t, "def foo() -> Int\n  return true\nend\n", "cannot return Bool, expected Int")
}

func TestMissingReturnValue(t *testing.T) {
	expectError(t, "def foo() -> Int\n  var x = 1\nend\n",
		"function 'foo': missing return value (expected Int)")
}

func TestParameterAnnotationsRequired(t *testing.T) {
	expectError(t, "def foo(x)\n  x\nend\n", "parameter 'x' is missing a type annotation")
}

func TestConstRequiresInitializer(t *testing.T) {
	expectError(t, "const answer\n", "const 'answer' requires an initializer")
}

func TestVarWithoutInitializerNeedsAnnotation(t *testing.T) {
	expectError(t, "var x\n", "binding 'x' requires a type annotation or an initializer")
	expectClean(t, "var x: Int\nx = 1\nprint(x)\n")
}

func TestListElementTypes(t *testing.T) {
	expectError(t, "var values = [1, \"a\"]\n",
		"list elements must share one type: expected Int, found String")
	expectError(t, "var values = [1, 2]\nvalues = [true]\n",
		"cannot assign to 'values': expected List[Int], found List[Bool]")
}

func TestDictKeysMustBeString(t *testing.T) {
	expectError(t, "var mapping: Dict[Int, Int] = { \"a\": 1 }\n", "dict keys must be String")
}

func TestIndexTypes(t *testing.T) {
	expectError(t, "var numbers = [1, 2, 3]\nvar v = numbers[true]\n",
		"list index must be an Int, found Bool")
	expectClean(t, "var numbers = [1, 2, 3]\nvar v = numbers[-1]\nprint(v)\n")
}

func TestLambdaAnnotations(t *testing.T) {
	expectClean(t, "var double: Func(Int) -> Int = |x: Int| => x + 1\nprint(double(2))\n")
	expectError(t, "var double: Func(Int) -> Int = |x: Int| => x == 0\n",
		"cannot initialize 'double': expected Func(Int) -> Int, found Func(Int) -> Bool")
}

func TestOptionalFlowRefinement(t *testing.T) {
	expectClean(t, `def greeting(name: String?) -> String
  var local = name
  if local == nil
    local = "tea"
  end
  return local!
end
print(greeting(nil))
`)
	expectError(t, `def greeting(name: String?) -> String
  var local = name
  return local!
end
`, "cannot unwrap optional 'local': value may be nil here")
}

func TestGuardReturnRefines(t *testing.T) {
	expectClean(t, `def first(name: String?) -> String
  if name == nil
    return "none"
  end
  return name!
end
print(first("x"))
`)
}

func TestCoalesceProof(t *testing.T) {
	expectClean(t, `def pick(name: String?) -> String
  return name ?? "default"
end
print(pick(nil))
`)
}

func TestOptionalCannotBeUsedAsInner(t *testing.T) {
	expectError(t, `def shout(name: String?) -> String
  return name + "!"
end
`, "operator '+' cannot be applied to String? and String")
}

func TestMatchExhaustivenessEnum(t *testing.T) {
	_, diags := checkSource(t, `enum Color { Red Green Blue }
var c = Color.Red
var s = match c
  case Color.Red => "r"
  case Color.Green => "g"
end
print(s)
`)
	if !diags.HasErrors() {
		t.Fatal("expected compilation to fail")
	}
	all := strings.Join(diags.ErrorStrings(), "\n")
	if !strings.Contains(all, "match expression is not exhaustive") {
		t.Fatalf("missing exhaustiveness error: %s", all)
	}
	if !strings.Contains(all, "Color.Blue") {
		t.Errorf("expected the missing variant to be named: %s", all)
	}
}

func TestMatchExhaustivenessBool(t *testing.T) {
	expectError(t, `var b = true
var s = match b
  case true => "y"
end
print(s)
`, "missing `false`")
	expectClean(t, `var b = true
var s = match b
  case true => "y"
  case false => "n"
end
print(s)
`)
}

func TestMatchIntRequiresWildcard(t *testing.T) {
	expectError(t, `var n = 1
var s = match n
  case 1 => "one"
end
print(s)
`, "match expression is not exhaustive")
}

func TestMatchUnreachableWarnings(t *testing.T) {
	_, diags := checkSource(t, `var b = true
var s = match b
  case true => "y"
  case true => "again"
  case false => "n"
end
print(s)
`)
	found := false
	for _, entry := range diags.Entries() {
		if entry.Level == diagnostics.Warning && strings.Contains(entry.Message, "pattern `true` is unreachable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate-pattern warning, got %v", diags.Entries())
	}

	_, diags = checkSource(t, `var n = 1
var s = match n
  case _ => "any"
  case 1 => "one"
end
print(s)
`)
	found = false
	for _, entry := range diags.Entries() {
		if entry.Level == diagnostics.Warning && strings.Contains(entry.Message, "match arm is unreachable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected arm-after-wildcard warning, got %v", diags.Entries())
	}
}

func TestMatchArmsMustUnify(t *testing.T) {
	expectError(t, `var n = 1
var s = match n
  case 1 => "one"
  case _ => 2
end
print(s)
`, "match arms must produce one type")
}

func TestGenericTypeArgumentCount(t *testing.T) {
	expectError(t, `def pair<T, U>(a: T, b: U) -> T
  a
end
var p = pair<Int>(1, "x")
print(p)
`, "function 'pair' expects 2 type arguments [<T>, <U>] but 1 provided")
}

func TestGenericInference(t *testing.T) {
	expectClean(t, `def identity<T>(v: T) -> T
  v
end
var n = identity(41) + 1
print(n)
`)
}

func TestStructConstruction(t *testing.T) {
	expectClean(t, `struct Point
  x: Int
  y: Int
end
var p = Point(1, 2)
var q = Point(x: 3, y: 4)
print(p.x + q.y)
`)
	expectError(t, `struct Point
  x: Int
  y: Int
end
var p = Point(1, true)
`, "argument 2 to 'Point': expected Int, found Bool")
	expectError(t, `struct Point
  x: Int
  y: Int
end
var p = Point(1, y: 2)
`, "cannot mix positional and named arguments")
}

func TestGenericStructInferenceHint(t *testing.T) {
	expectError(t, `struct Box<T>
  item: T?
end
var b = Box(nil)
`, "cannot infer type argument <T> for struct 'Box'")
	expectClean(t, `struct Box<T>
  item: T
end
var b = Box(41)
print(b.item + 1)
`)
}

func TestUnionIsReserved(t *testing.T) {
	expectError(t, "union Shape { Int }\n", "union types are reserved and cannot be used yet")
}

func TestThrowRequiresDeclaredUnion(t *testing.T) {
	expectError(t, `error DataError { Missing(path: String) }
def read(p: String) -> String
  throw DataError.Missing(p)
end
`, "cannot throw 'DataError.Missing' from function 'read'")
}

func TestThrowingCallNeedsTry(t *testing.T) {
	expectError(t, `error DataError { Missing(path: String) }
def read(p: String) -> String ! DataError.Missing
  throw DataError.Missing(p)
end
def use_it() -> String
  return read("a")
end
`, "handle it with `try` or `catch`")
}

func TestPropagationRequiresDeclaredUnion(t *testing.T) {
	expectError(t, `error DataError { Missing(path: String) }
def read(p: String) -> String ! DataError.Missing
  throw DataError.Missing(p)
end
def use_it() -> String
  return try read("a")
end
`, "does not declare {DataError.Missing}")
	expectClean(t, `error DataError { Missing(path: String) }
def read(p: String) -> String ! DataError.Missing
  throw DataError.Missing(p)
end
def use_it() -> String ! DataError.Missing
  return try read("a")
end
def main() -> String
  return use_it() catch "fallback"
end
print(main())
`)
}

func TestCatchArmsConsumeVariants(t *testing.T) {
	expectClean(t, `error DataError { Missing(path: String) Permission }
def read(p: String) -> String ! { DataError.Missing, DataError.Permission }
  if p == "missing" throw DataError.Missing(p) end
  if p == "secret" throw DataError.Permission() end
  return "content"
end
def describe(p: String) -> String
  try read(p) catch err
    case is DataError.Missing => err.path
    case is DataError.Permission => "denied"
    case _ => "unexpected"
  end
end
print(describe("missing"))
`)
}

func TestErrorPayloadArity(t *testing.T) {
	expectError(t, `error DataError { Missing(path: String) }
def read(p: String) -> String ! DataError.Missing
  throw DataError.Missing(p, p)
end
`, "error variant 'DataError.Missing' expects 1 arguments but 2 provided")
}

func TestModuleAliasAccess(t *testing.T) {
	expectClean(t, `use str = "std.string"
var hit = str.contains("tea", "e")
print(hit)
`)
	expectError(t, `use str = "std.string"
var v = str.nope("a")
`, "module 'std.string' has no export named 'nope'")
}

func TestFieldImmutability(t *testing.T) {
	expectError(t, `struct Point
  x: Int
  y: Int
end
var p = Point(1, 2)
p.x = 3
`, "struct fields are immutable")
}

func TestRangeOnlyInForLoops(t *testing.T) {
	expectError(t, "var r = 1..10\n", "ranges may only be used as for-loop iterables")
}

func TestBareReturnOnlyForVoid(t *testing.T) {
	expectClean(t, "def side() -> Void\n  return\nend\nside()\n")
	expectError(t, "def v() -> Int\n  return\nend\n", "bare return in a function returning Int")
}
