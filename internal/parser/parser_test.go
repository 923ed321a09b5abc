package parser

import (
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/lexer"
)

func parseSource(t *testing.T, input string) *ast.Module {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(input)
	if lexDiags.HasErrors() {
		t.Fatalf("lexer error: %v", lexDiags.ErrorStrings())
	}
	module, diags := Parse(tokens)
	if diags.HasErrors() {
		t.Fatalf("parser error: %v", diags.ErrorStrings())
	}
	return module
}

func parseWithErrors(t *testing.T, input string) []string {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(input)
	if lexDiags.HasErrors() {
		t.Fatalf("lexer error: %v", lexDiags.ErrorStrings())
	}
	_, diags := Parse(tokens)
	return diags.ErrorStrings()
}

func TestVarStatement(t *testing.T) {
	module := parseSource(t, "var x: Int = 1, y = 2\n")
	if len(module.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(module.Statements))
	}
	varStmt, ok := module.Statements[0].(*ast.VarStatement)
	if !ok {
		t.Fatalf("expected VarStatement, got %T", module.Statements[0])
	}
	if len(varStmt.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(varStmt.Bindings))
	}
	if varStmt.Bindings[0].TypeAnnotation == nil {
		t.Error("expected type annotation on first binding")
	}
	if varStmt.Bindings[1].Initializer == nil {
		t.Error("expected initializer on second binding")
	}
}

func TestUseStatementRequiresAlias(t *testing.T) {
	errs := parseWithErrors(t, "use \"std.fs\"\n")
	if len(errs) == 0 {
		t.Fatal("expected parser to reject missing alias")
	}
	if !strings.Contains(errs[0], "module imports must specify an alias") {
		t.Errorf("unexpected message: %s", errs[0])
	}
}

func TestFunctionWithErrorUnion(t *testing.T) {
	module := parseSource(t, `error E { A B(code: Int) }
def f(p: Int) -> Int ! { E.A, E.B }
  return p
end
`)
	fn, ok := module.Statements[1].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("expected FunctionStatement, got %T", module.Statements[1])
	}
	if len(fn.ErrorSet) != 2 {
		t.Fatalf("expected 2 error variants, got %d", len(fn.ErrorSet))
	}
	if fn.ErrorSet[1].ErrorName != "E" || fn.ErrorSet[1].VariantName != "B" {
		t.Errorf("unexpected second variant: %+v", fn.ErrorSet[1])
	}
}

func TestPrecedence(t *testing.T) {
	module := parseSource(t, "var v = 1 + 2 * 3\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	add, ok := varStmt.Bindings[0].Initializer.(*ast.BinaryExpression)
	if !ok || add.Operator != ast.BinaryAdd {
		t.Fatalf("expected top-level add, got %T", varStmt.Bindings[0].Initializer)
	}
	mul, ok := add.Right.(*ast.BinaryExpression)
	if !ok || mul.Operator != ast.BinaryMultiply {
		t.Fatalf("expected multiply on the right, got %T", add.Right)
	}
}

func TestPostfixChain(t *testing.T) {
	module := parseSource(t, "var v = items[0].name\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	member, ok := varStmt.Bindings[0].Initializer.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("expected member expression, got %T", varStmt.Bindings[0].Initializer)
	}
	if _, ok := member.Object.(*ast.IndexExpression); !ok {
		t.Fatalf("expected index under member, got %T", member.Object)
	}
}

func TestUnwrapPostfix(t *testing.T) {
	module := parseSource(t, "var v = maybe!\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	if _, ok := varStmt.Bindings[0].Initializer.(*ast.UnwrapExpression); !ok {
		t.Fatalf("expected unwrap, got %T", varStmt.Bindings[0].Initializer)
	}
}

func TestIncrementLowersToCompoundAssignment(t *testing.T) {
	module := parseSource(t, "count++\n")
	exprStmt := module.Statements[0].(*ast.ExpressionStatement)
	assignment, ok := exprStmt.Expression.(*ast.AssignmentExpression)
	if !ok || assignment.Operator != ast.AssignAdd {
		t.Fatalf("expected add-assignment, got %T", exprStmt.Expression)
	}
}

func TestMatchExpression(t *testing.T) {
	module := parseSource(t, `var s = match c
  case Color.Red => "r"
  case Color.Green => "g"
  case _ => "other"
end
`)
	varStmt := module.Statements[0].(*ast.VarStatement)
	match, ok := varStmt.Bindings[0].Initializer.(*ast.MatchExpression)
	if !ok {
		t.Fatalf("expected match, got %T", varStmt.Bindings[0].Initializer)
	}
	if len(match.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(match.Arms))
	}
	if match.Arms[2].Pattern.Kind != ast.PatternWildcard {
		t.Errorf("expected wildcard last arm")
	}
}

func TestTryCatchForms(t *testing.T) {
	module := parseSource(t, "var x = read(\"a\") catch \"fallback\"\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	try, ok := varStmt.Bindings[0].Initializer.(*ast.TryExpression)
	if !ok || !try.HasCatch || try.CatchFallback == nil {
		t.Fatalf("expected catch-fallback try, got %#v", varStmt.Bindings[0].Initializer)
	}

	module = parseSource(t, `var y = try read("a") catch err
  case is E.A => "a"
  case _ => "rest"
end
`)
	varStmt = module.Statements[0].(*ast.VarStatement)
	try, ok = varStmt.Bindings[0].Initializer.(*ast.TryExpression)
	if !ok || try.CatchBinding != "err" || len(try.CatchArms) != 2 {
		t.Fatalf("expected catch-arm try, got %#v", varStmt.Bindings[0].Initializer)
	}
	if try.CatchArms[0].Pattern.Kind != ast.PatternType {
		t.Errorf("expected `is` pattern in first arm")
	}
}

func TestLambdaForms(t *testing.T) {
	module := parseSource(t, "var add = |a: Int, b: Int| => a + b\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	lambda, ok := varStmt.Bindings[0].Initializer.(*ast.LambdaExpression)
	if !ok {
		t.Fatalf("expected lambda, got %T", varStmt.Bindings[0].Initializer)
	}
	if len(lambda.Parameters) != 2 || lambda.ExprBody == nil {
		t.Fatalf("unexpected lambda shape: %+v", lambda)
	}

	module = parseSource(t, "var zero = || => 0\n")
	varStmt = module.Statements[0].(*ast.VarStatement)
	lambda = varStmt.Bindings[0].Initializer.(*ast.LambdaExpression)
	if len(lambda.Parameters) != 0 {
		t.Fatalf("expected zero parameters, got %d", len(lambda.Parameters))
	}
}

func TestGenericCallDisambiguation(t *testing.T) {
	module := parseSource(t, "var p = pair<Int, String>(1, \"a\")\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	call, ok := varStmt.Bindings[0].Initializer.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected call, got %T", varStmt.Bindings[0].Initializer)
	}
	if len(call.TypeArguments) != 2 {
		t.Fatalf("expected 2 type arguments, got %d", len(call.TypeArguments))
	}

	// A plain comparison must stay a comparison.
	module = parseSource(t, "var c = a < b\n")
	varStmt = module.Statements[0].(*ast.VarStatement)
	binary, ok := varStmt.Bindings[0].Initializer.(*ast.BinaryExpression)
	if !ok || binary.Operator != ast.BinaryLess {
		t.Fatalf("expected less-than, got %T", varStmt.Bindings[0].Initializer)
	}
}

func TestStructEnumErrorDeclarations(t *testing.T) {
	module := parseSource(t, `struct Point
  x: Int
  y: Int
end
enum Color { Red Green Blue }
error DataError { Missing(path: String) Permission }
`)
	if len(module.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(module.Statements))
	}
	structStmt := module.Statements[0].(*ast.StructStatement)
	if len(structStmt.Fields) != 2 {
		t.Errorf("expected 2 fields, got %d", len(structStmt.Fields))
	}
	enumStmt := module.Statements[1].(*ast.EnumStatement)
	if len(enumStmt.Variants) != 3 {
		t.Errorf("expected 3 variants, got %d", len(enumStmt.Variants))
	}
	errorStmt := module.Statements[2].(*ast.ErrorStatement)
	if len(errorStmt.Variants) != 2 {
		t.Fatalf("expected 2 error variants, got %d", len(errorStmt.Variants))
	}
	if len(errorStmt.Variants[0].Fields) != 1 {
		t.Errorf("expected payload field on Missing")
	}
}

func TestSingleLineBlocks(t *testing.T) {
	module := parseSource(t, "def fact(n: Int) -> Int\n  if n <= 1 return 1 end\n  n * fact(n - 1)\nend\nprint(fact(6))\n")
	if len(module.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(module.Statements))
	}
	fn := module.Statements[0].(*ast.FunctionStatement)
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(fn.Body.Statements))
	}
}

func TestLoops(t *testing.T) {
	module := parseSource(t, `for x of items
  print(x)
end
for k, v of table
  print(k)
end
for i of 0..10
  print(i)
end
while going
  break
end
until done
  continue
end
`)
	if len(module.Statements) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(module.Statements))
	}
	dictLoop := module.Statements[1].(*ast.LoopStatement)
	if len(dictLoop.Bindings) != 2 {
		t.Errorf("expected 2 loop bindings, got %d", len(dictLoop.Bindings))
	}
	rangeLoop := module.Statements[2].(*ast.LoopStatement)
	if _, ok := rangeLoop.Iterable.(*ast.RangeExpression); !ok {
		t.Errorf("expected range iterable, got %T", rangeLoop.Iterable)
	}
}

func TestRecoveryKeepsEarlierStatements(t *testing.T) {
	tokens, _ := lexer.Tokenize("var ok = 1\nvar = broken\nvar also = 2\n")
	module, diags := Parse(tokens)
	if !diags.HasErrors() {
		t.Fatal("expected a parse error")
	}
	if len(module.Statements) < 2 {
		t.Fatalf("expected recovery to keep parsing, got %d statements", len(module.Statements))
	}
}

func TestInterpolatedStringExpression(t *testing.T) {
	module := parseSource(t, "var s = `a${x}b`\n")
	varStmt := module.Statements[0].(*ast.VarStatement)
	interp, ok := varStmt.Bindings[0].Initializer.(*ast.InterpolatedString)
	if !ok {
		t.Fatalf("expected interpolated string, got %T", varStmt.Bindings[0].Initializer)
	}
	if len(interp.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(interp.Parts))
	}
	if interp.Parts[1].Expression == nil {
		t.Error("expected middle part to be an expression")
	}
}

func TestUnlessAndElse(t *testing.T) {
	module := parseSource(t, `unless ready
  print("waiting")
end
if ready
  print("go")
else
  print("stop")
end
`)
	unlessStmt := module.Statements[0].(*ast.ConditionalStatement)
	if unlessStmt.Kind != ast.ConditionalUnless {
		t.Errorf("expected unless kind")
	}
	ifStmt := module.Statements[1].(*ast.ConditionalStatement)
	if ifStmt.Alternative == nil {
		t.Errorf("expected else block")
	}
}
