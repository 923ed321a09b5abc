package vm

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typechecker"
	"github.com/funvibe/tea/internal/value"
)

const (
	builtinLengthKind   = int(stdlib.Length)
	builtinToStringKind = int(stdlib.ToString)
	builtinDictKeysKind = int(stdlib.DictKeys)
)

func (fc *funcCompiler) emitBuiltin(kind int, argCount int) {
	fc.chunk.Emit(Instruction{Op: OpBuiltinCall, A: kind, B: argCount})
}

func (fc *funcCompiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Identifier:
		return fc.emitName(e.Name, e.NameSpan)
	case *ast.Literal:
		fc.emitConstant(literalValue(e))
		return nil
	case *ast.InterpolatedString:
		return fc.compileInterpolatedString(e)
	case *ast.ListLiteral:
		for _, element := range e.Elements {
			if err := fc.compileExpression(element); err != nil {
				return err
			}
		}
		fc.chunk.Emit(Instruction{Op: OpMakeList, A: len(e.Elements)})
		return nil
	case *ast.DictLiteral:
		for _, entry := range e.Entries {
			fc.emitConstant(value.String(entry.Key))
			if err := fc.compileExpression(entry.Value); err != nil {
				return err
			}
		}
		fc.chunk.Emit(Instruction{Op: OpMakeDict, A: len(e.Entries)})
		return nil
	case *ast.UnaryExpression:
		return fc.compileUnary(e)
	case *ast.BinaryExpression:
		return fc.compileBinary(e)
	case *ast.UnwrapExpression:
		if err := fc.compileExpression(e.Operand); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpAssertNonNil})
		return nil
	case *ast.CallExpression:
		return fc.compileCall(e)
	case *ast.MemberExpression:
		return fc.compileMember(e)
	case *ast.IndexExpression:
		if err := fc.compileExpression(e.Object); err != nil {
			return err
		}
		if err := fc.compileExpression(e.Index); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpIndex})
		return nil
	case *ast.LambdaExpression:
		return fc.compileLambda(e)
	case *ast.AssignmentExpression:
		return fc.compileAssignment(e)
	case *ast.GroupingExpression:
		return fc.compileExpression(e.Inner)
	case *ast.TryExpression:
		return fc.compileTry(e)
	case *ast.MatchExpression:
		return fc.compileMatch(e)
	default:
		return fmt.Errorf("compiler: unsupported expression %T", expr)
	}
}

func literalValue(literal *ast.Literal) value.Value {
	switch literal.Kind {
	case ast.LiteralInt:
		return value.Int(literal.Int)
	case ast.LiteralFloat:
		return value.Float(literal.Float)
	case ast.LiteralString:
		return value.String(literal.Str)
	case ast.LiteralBool:
		return value.Bool(literal.Bool)
	default:
		return value.Nil()
	}
}

// compileInterpolatedString pushes each part (literal segments as String
// constants, expressions through to_string) and concatenates. The concat is
// elided for a single part.
func (fc *funcCompiler) compileInterpolatedString(expr *ast.InterpolatedString) error {
	if len(expr.Parts) == 0 {
		fc.emitConstant(value.String(""))
		return nil
	}
	for _, part := range expr.Parts {
		if part.Expression == nil {
			fc.emitConstant(value.String(part.Literal))
			continue
		}
		if err := fc.compileExpression(part.Expression); err != nil {
			return err
		}
		fc.emitBuiltin(builtinToStringKind, 1)
	}
	if len(expr.Parts) > 1 {
		fc.chunk.Emit(Instruction{Op: OpConcatStrings, A: len(expr.Parts)})
	}
	return nil
}

func (fc *funcCompiler) compileUnary(expr *ast.UnaryExpression) error {
	if err := fc.compileExpression(expr.Operand); err != nil {
		return err
	}
	switch expr.Operator {
	case ast.UnaryNegative:
		fc.chunk.Emit(Instruction{Op: OpNegate})
	case ast.UnaryNot:
		fc.chunk.Emit(Instruction{Op: OpNot})
	}
	return nil
}

var binaryOps = map[ast.BinaryOperator]Opcode{
	ast.BinaryAdd:          OpAdd,
	ast.BinarySubtract:     OpSubtract,
	ast.BinaryMultiply:     OpMultiply,
	ast.BinaryDivide:       OpDivide,
	ast.BinaryModulo:       OpModulo,
	ast.BinaryEqual:        OpEqual,
	ast.BinaryNotEqual:     OpNotEqual,
	ast.BinaryGreater:      OpGreater,
	ast.BinaryGreaterEqual: OpGreaterEqual,
	ast.BinaryLess:         OpLess,
	ast.BinaryLessEqual:    OpLessEqual,
}

func (fc *funcCompiler) compileBinary(expr *ast.BinaryExpression) error {
	switch expr.Operator {
	case ast.BinaryAnd:
		if err := fc.compileExpression(expr.Left); err != nil {
			return err
		}
		falseJump := fc.emitJump(OpJumpIfFalse)
		if err := fc.compileExpression(expr.Right); err != nil {
			return err
		}
		endJump := fc.emitJump(OpJump)
		fc.chunk.PatchJump(falseJump)
		fc.emitConstant(value.Bool(false))
		fc.chunk.PatchJump(endJump)
		return nil
	case ast.BinaryOr:
		if err := fc.compileExpression(expr.Left); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpNot})
		trueJump := fc.emitJump(OpJumpIfFalse)
		if err := fc.compileExpression(expr.Right); err != nil {
			return err
		}
		endJump := fc.emitJump(OpJump)
		fc.chunk.PatchJump(trueJump)
		fc.emitConstant(value.Bool(true))
		fc.chunk.PatchJump(endJump)
		return nil
	case ast.BinaryCoalesce:
		if err := fc.compileExpression(expr.Left); err != nil {
			return err
		}
		nilJump := fc.emitJump(OpJumpIfNil)
		endJump := fc.emitJump(OpJump)
		fc.chunk.PatchJump(nilJump)
		if err := fc.compileExpression(expr.Right); err != nil {
			return err
		}
		fc.chunk.PatchJump(endJump)
		return nil
	default:
		if err := fc.compileExpression(expr.Left); err != nil {
			return err
		}
		if err := fc.compileExpression(expr.Right); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: binaryOps[expr.Operator]})
		return nil
	}
}

func (fc *funcCompiler) compileAssignment(expr *ast.AssignmentExpression) error {
	target, ok := expr.Target.(*ast.Identifier)
	if !ok {
		return fmt.Errorf("compiler: unsupported assignment target %T", expr.Target)
	}

	if expr.Operator != ast.AssignSet {
		if err := fc.emitName(target.Name, target.NameSpan); err != nil {
			return err
		}
		if err := fc.compileExpression(expr.Value); err != nil {
			return err
		}
		switch expr.Operator {
		case ast.AssignAdd:
			fc.chunk.Emit(Instruction{Op: OpAdd})
		case ast.AssignSubtract:
			fc.chunk.Emit(Instruction{Op: OpSubtract})
		case ast.AssignMultiply:
			fc.chunk.Emit(Instruction{Op: OpMultiply})
		}
		return fc.emitStore(target.Name, target.NameSpan)
	}

	if err := fc.compileExpression(expr.Value); err != nil {
		return err
	}
	return fc.emitStore(target.Name, target.NameSpan)
}

func (fc *funcCompiler) compileMember(expr *ast.MemberExpression) error {
	info := fc.compiler.info.Members[expr]
	if info != nil {
		switch info.Kind {
		case typechecker.MemberEnumVariant:
			fc.emitConstant(value.NewEnum(&value.EnumVariant{
				EnumName:    info.EnumName,
				VariantName: info.VariantName,
				Ordinal:     info.Ordinal,
			}))
			return nil
		case typechecker.MemberErrorVariant:
			fc.emitConstant(fc.compiler.errorMarker(info.EnumName, info.VariantName))
			return nil
		case typechecker.MemberModuleExport:
			if index, ok := fc.compiler.globalIndex[info.Export]; ok {
				fc.chunk.Emit(Instruction{Op: OpGetGlobal, A: index})
				return nil
			}
			return fmt.Errorf("compiler: unresolved module export '%s'", info.Export)
		}
	}

	// Plain field access: object, then the field name, then GetField.
	if err := fc.compileExpression(expr.Object); err != nil {
		return err
	}
	fc.emitConstant(value.String(expr.Property))
	fc.chunk.Emit(Instruction{Op: OpGetField})
	return nil
}

// errorMarker builds the pre-assembled constant for an error variant.
func (c *Compiler) errorMarker(errorName, variantName string) value.Value {
	if decl, ok := c.info.Errors[errorName]; ok {
		for _, variant := range decl.Variants {
			if variant.Name == variantName {
				return value.NewError(&value.ErrorValue{
					ErrorName:   errorName,
					VariantName: variantName,
					Ordinal:     variant.Ordinal,
					FieldNames:  variant.FieldNames,
				})
			}
		}
	}
	return value.NewError(&value.ErrorValue{ErrorName: errorName, VariantName: variantName})
}

func (fc *funcCompiler) compileLambda(expr *ast.LambdaExpression) error {
	captured := fc.compiler.captures[expr.ID]

	lambda := &funcCompiler{
		compiler:  fc.compiler,
		chunk:     NewChunk(),
		enclosing: fc,
		captures:  captured,
	}
	lambda.pushScope()
	for _, param := range expr.Parameters {
		lambda.declareLocal(param.Name)
	}
	if expr.ExprBody != nil {
		if err := lambda.compileExpression(expr.ExprBody); err != nil {
			return err
		}
		lambda.chunk.Emit(Instruction{Op: OpReturn})
	} else if expr.BlockBody != nil {
		if err := lambda.compileBody(expr.BlockBody); err != nil {
			return err
		}
	} else {
		lambda.emitConstant(value.Void())
		lambda.chunk.Emit(Instruction{Op: OpReturn})
	}
	lambda.popScope()

	index := len(fc.compiler.functions)
	fc.compiler.functions = append(fc.compiler.functions, &Function{
		Name:       fmt.Sprintf("lambda#%d", expr.ID),
		Arity:      len(expr.Parameters),
		LocalCount: lambda.maxSlots,
		Chunk:      lambda.chunk,
	})

	// Bare functions use direct Function constants; MakeClosure appears
	// only when there is at least one capture.
	if len(captured) == 0 {
		fc.emitConstant(value.Function(index))
		return nil
	}
	for _, name := range captured {
		if err := fc.emitName(name, expr.LambdaSpan); err != nil {
			return err
		}
	}
	fc.chunk.Emit(Instruction{Op: OpMakeClosure, A: index, B: len(captured)})
	return nil
}

func (fc *funcCompiler) compileTry(expr *ast.TryExpression) error {
	if !expr.HasCatch {
		// Bare try: the declared union propagates through the VM's
		// unwinding; no handler frame is pushed.
		return fc.compileExpression(expr.Expression)
	}

	handler := fc.emitJump(OpPushHandler)
	if err := fc.compileExpression(expr.Expression); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpPopHandler})
	endJump := fc.emitJump(OpJump)

	fc.chunk.PatchJump(handler)
	// The VM pushes the thrown value at the handler target.
	if expr.CatchFallback != nil {
		fc.chunk.Emit(Instruction{Op: OpPop})
		if err := fc.compileExpression(expr.CatchFallback); err != nil {
			return err
		}
		fc.chunk.PatchJump(endJump)
		return nil
	}

	fc.pushScope()
	binding := fc.declareLocal(expr.CatchBinding)
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: binding})
	fc.chunk.Emit(Instruction{Op: OpPop})

	var exitJumps []int
	for i := range expr.CatchArms {
		arm := &expr.CatchArms[i]
		var testFail int
		hasTest := arm.Pattern.Kind != ast.PatternWildcard
		if hasTest {
			fc.chunk.Emit(Instruction{Op: OpGetLocal, A: binding})
			if err := fc.compileArmTest(&arm.Pattern); err != nil {
				return err
			}
			testFail = fc.emitJump(OpJumpIfFalse)
		}
		if err := fc.compileExpression(arm.Body); err != nil {
			return err
		}
		exitJumps = append(exitJumps, fc.emitJump(OpJump))
		if hasTest {
			fc.chunk.PatchJump(testFail)
		}
	}

	// No arm matched: re-throw, continuing the unwind.
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: binding})
	fc.chunk.Emit(Instruction{Op: OpThrow})
	fc.popScope()

	for _, jump := range exitJumps {
		fc.chunk.PatchJump(jump)
	}
	fc.chunk.PatchJump(endJump)
	return nil
}

func (fc *funcCompiler) compileMatch(expr *ast.MatchExpression) error {
	fc.pushScope()
	scrutinee := fc.declareTemp()
	if err := fc.compileExpression(expr.Scrutinee); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: scrutinee})
	fc.chunk.Emit(Instruction{Op: OpPop})

	var exitJumps []int
	for i := range expr.Arms {
		arm := &expr.Arms[i]
		var testFail int
		hasTest := arm.Pattern.Kind != ast.PatternWildcard
		if hasTest {
			fc.chunk.Emit(Instruction{Op: OpGetLocal, A: scrutinee})
			if err := fc.compileArmTest(&arm.Pattern); err != nil {
				return err
			}
			testFail = fc.emitJump(OpJumpIfFalse)
		}
		if err := fc.compileExpression(arm.Body); err != nil {
			return err
		}
		exitJumps = append(exitJumps, fc.emitJump(OpJump))
		if hasTest {
			fc.chunk.PatchJump(testFail)
		}
	}

	// The checker proved exhaustiveness; this slot is unreachable.
	fc.emitConstant(value.Nil())
	for _, jump := range exitJumps {
		fc.chunk.PatchJump(jump)
	}
	fc.popScope()
	return nil
}

// compileArmTest expects the scrutinee on the stack and leaves a Bool.
func (fc *funcCompiler) compileArmTest(pattern *ast.MatchPattern) error {
	switch pattern.Kind {
	case ast.PatternConstant:
		if err := fc.compileExpression(pattern.Constant); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpEqual})
		return nil
	case ast.PatternType:
		check, err := fc.compiler.typeCheckFor(pattern.Type)
		if err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpTypeIs, Check: check})
		return nil
	default:
		return fmt.Errorf("compiler: wildcard patterns have no test")
	}
}

// typeCheckFor lowers an `is` pattern's type into a runtime TypeCheck.
func (c *Compiler) typeCheckFor(te *ast.TypeExpression) (*TypeCheck, error) {
	if te == nil {
		return nil, fmt.Errorf("compiler: missing type pattern")
	}
	switch te.Kind {
	case ast.TypeName:
		switch te.Name {
		case "Bool":
			return &TypeCheck{Kind: CheckBool}, nil
		case "Int":
			return &TypeCheck{Kind: CheckInt}, nil
		case "Float":
			return &TypeCheck{Kind: CheckFloat}, nil
		case "String":
			return &TypeCheck{Kind: CheckString}, nil
		case "Nil":
			return &TypeCheck{Kind: CheckNil}, nil
		}
		for i := 0; i < len(te.Name); i++ {
			if te.Name[i] == '.' {
				return &TypeCheck{
					Kind:    CheckErrorVariant,
					Name:    te.Name[:i],
					Variant: te.Name[i+1:],
				}, nil
			}
		}
		if _, ok := c.info.Enums[te.Name]; ok {
			return &TypeCheck{Kind: CheckEnum, Name: te.Name}, nil
		}
		return &TypeCheck{Kind: CheckStruct, Name: te.Name}, nil
	case ast.TypeOptional:
		inner, err := c.typeCheckFor(te.Args[0])
		if err != nil {
			return nil, err
		}
		return &TypeCheck{Kind: CheckOptional, Inner: inner}, nil
	default:
		return nil, fmt.Errorf("compiler: unsupported type pattern")
	}
}
