package typechecker

import (
	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/typesystem"
)

func (c *Checker) checkStatements(statements []ast.Statement) {
	for _, stmt := range statements {
		c.checkStatement(stmt)
	}
}

func (c *Checker) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.UseStatement:
		// Collected up front.
	case *ast.VarStatement:
		c.checkVar(s)
	case *ast.FunctionStatement:
		c.checkFunction(s)
	case *ast.TestStatement:
		c.checkTest(s)
	case *ast.StructStatement, *ast.ErrorStatement, *ast.EnumStatement:
		// Shapes collected up front.
	case *ast.UnionStatement:
		c.errorf(s.NameSpan, "union types are reserved and cannot be used yet")
	case *ast.ConditionalStatement:
		c.checkConditional(s)
	case *ast.LoopStatement:
		c.checkLoop(s)
	case *ast.ReturnStatement:
		c.checkReturn(s)
	case *ast.BreakStatement:
		if c.loopDepth == 0 {
			c.errorf(s.StmtSpan, "'break' outside of a loop")
		}
	case *ast.ContinueStatement:
		if c.loopDepth == 0 {
			c.errorf(s.StmtSpan, "'continue' outside of a loop")
		}
	case *ast.ThrowStatement:
		c.checkThrow(s)
	case *ast.ExpressionStatement:
		c.checkExpression(s.Expression)
	}
}

func (c *Checker) checkVar(stmt *ast.VarStatement) {
	for i := range stmt.Bindings {
		b := &stmt.Bindings[i]

		var declared typesystem.Type
		if b.TypeAnnotation != nil {
			declared = c.resolveType(b.TypeAnnotation, nil)
		}

		if b.Initializer == nil {
			if stmt.IsConst {
				c.errorf(b.NameSpan, "const '%s' requires an initializer", b.Name)
				declared = typesystem.Unknown{}
			} else if declared == nil {
				c.errorf(b.NameSpan, "binding '%s' requires a type annotation or an initializer", b.Name)
				declared = typesystem.Unknown{}
			}
			c.bind(b.Name, declared)
			continue
		}

		initType := c.checkExpression(b.Initializer)
		if declared == nil {
			declared = initType
		} else if !typesystem.AssignableTo(initType, declared) {
			c.errorf(b.Initializer.Span(), "cannot initialize '%s': expected %s, found %s",
				b.Name, declared, initType)
		}
		c.bind(b.Name, declared)
	}
}

func (c *Checker) checkFunction(stmt *ast.FunctionStatement) {
	decl := c.funcs[stmt.Name]
	if decl == nil {
		return
	}

	outerFn := c.fn
	outerSink := c.throwSink
	c.fn = &functionContext{
		name:       stmt.Name,
		result:     decl.Result,
		errors:     decl.Errors,
		typeParams: make(map[string]bool),
	}
	for _, tp := range decl.TypeParams {
		c.fn.typeParams[tp] = true
	}
	c.throwSink = nil

	c.pushScope()
	for i, param := range stmt.Parameters {
		c.bind(param.Name, decl.Params[i].Type)
		if param.DefaultValue != nil {
			defaultType := c.checkExpression(param.DefaultValue)
			if !typesystem.AssignableTo(defaultType, decl.Params[i].Type) {
				c.errorf(param.DefaultValue.Span(), "default value for '%s': expected %s, found %s",
					param.Name, decl.Params[i].Type, defaultType)
			}
		}
	}
	c.checkBlock(&stmt.Body)

	if !typesystem.Equals(decl.Result, typesystem.Void) &&
		!typesystem.Equals(decl.Result, typesystem.Nil) &&
		!typesystem.IsUnknown(decl.Result) {
		if !c.blockProducesValue(&stmt.Body, decl.Result) {
			c.errorf(stmt.NameSpan, "function '%s': missing return value (expected %s)",
				stmt.Name, decl.Result)
		}
	}

	c.popScope()
	c.fn = outerFn
	c.throwSink = outerSink
}

func (c *Checker) checkTest(stmt *ast.TestStatement) {
	outerFn := c.fn
	c.fn = &functionContext{
		name:       stmt.Name,
		result:     typesystem.Void,
		errors:     NewErrorSet(),
		typeParams: make(map[string]bool),
	}
	c.pushScope()
	c.checkBlock(&stmt.Body)
	c.popScope()
	c.fn = outerFn
}

// checkBlock checks the statements of one block in order, applying
// optional-refinement proofs as it goes.
func (c *Checker) checkBlock(block *ast.Block) {
	c.pushScope()
	for _, stmt := range block.Statements {
		c.checkStatement(stmt)
		if cond, ok := stmt.(*ast.ConditionalStatement); ok {
			c.applyNilGuardProofs(cond)
		}
	}
	c.popScope()
}

// applyNilGuardProofs implements the two statement-level refinement proofs:
//
//	(a) if x == nil return/throw ... end   — the tail treats x as T
//	(b) if x == nil x = v end              — below the if, x is T
func (c *Checker) applyNilGuardProofs(cond *ast.ConditionalStatement) {
	if cond.Kind != ast.ConditionalIf || cond.Alternative != nil {
		return
	}
	name, ok := nilComparisonTarget(cond.Condition)
	if !ok {
		return
	}
	entry := c.lookup(name)
	if entry == nil {
		return
	}
	if _, isOptional := entry.current.(typesystem.Optional); !isOptional {
		return
	}

	if blockTerminates(&cond.Consequent) {
		c.refine(name, typesystem.NonNil(entry.declared))
		return
	}
	if assignsNonNil(&cond.Consequent, name) {
		c.refine(name, typesystem.NonNil(entry.declared))
	}
}

// nilComparisonTarget matches `x == nil` / `nil == x` guards.
func nilComparisonTarget(condition ast.Expression) (string, bool) {
	if group, ok := condition.(*ast.GroupingExpression); ok {
		return nilComparisonTarget(group.Inner)
	}
	binary, ok := condition.(*ast.BinaryExpression)
	if !ok || binary.Operator != ast.BinaryEqual {
		return "", false
	}
	if identifier, ok := binary.Left.(*ast.Identifier); ok && isNilLiteral(binary.Right) {
		return identifier.Name, true
	}
	if identifier, ok := binary.Right.(*ast.Identifier); ok && isNilLiteral(binary.Left) {
		return identifier.Name, true
	}
	return "", false
}

func isNilLiteral(expr ast.Expression) bool {
	literal, ok := expr.(*ast.Literal)
	return ok && literal.Kind == ast.LiteralNil
}

// blockTerminates reports whether the block always leaves the enclosing
// function (or loop) via return/throw/break/continue.
func blockTerminates(block *ast.Block) bool {
	if len(block.Statements) == 0 {
		return false
	}
	switch last := block.Statements[len(block.Statements)-1].(type) {
	case *ast.ReturnStatement, *ast.ThrowStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return true
	case *ast.ConditionalStatement:
		if last.Alternative == nil {
			return false
		}
		return blockTerminates(&last.Consequent) && blockTerminates(last.Alternative)
	default:
		return false
	}
}

// assignsNonNil reports whether the block assigns a non-nil-literal value
// to the given name.
func assignsNonNil(block *ast.Block, name string) bool {
	for _, stmt := range block.Statements {
		exprStmt, ok := stmt.(*ast.ExpressionStatement)
		if !ok {
			continue
		}
		assignment, ok := exprStmt.Expression.(*ast.AssignmentExpression)
		if !ok || assignment.Operator != ast.AssignSet {
			continue
		}
		target, ok := assignment.Target.(*ast.Identifier)
		if !ok || target.Name != name {
			continue
		}
		if !isNilLiteral(assignment.Value) {
			return true
		}
	}
	return false
}

// blockProducesValue reports whether the block ends by producing the
// function's return value: an explicit return, a trailing expression of
// the right type, or a conditional whose branches both do.
func (c *Checker) blockProducesValue(block *ast.Block, result typesystem.Type) bool {
	if len(block.Statements) == 0 {
		return false
	}
	switch last := block.Statements[len(block.Statements)-1].(type) {
	case *ast.ReturnStatement, *ast.ThrowStatement:
		return true
	case *ast.ExpressionStatement:
		exprType, ok := c.info.Types[last.Expression]
		if !ok {
			return true
		}
		if !typesystem.AssignableTo(exprType, result) {
			c.errorf(last.Expression.Span(), "function result: expected %s, found %s", result, exprType)
		}
		return true
	case *ast.ConditionalStatement:
		if last.Alternative == nil {
			return false
		}
		return c.blockProducesValue(&last.Consequent, result) &&
			c.blockProducesValue(last.Alternative, result)
	default:
		return false
	}
}

func (c *Checker) checkConditional(stmt *ast.ConditionalStatement) {
	guardType := c.checkExpression(stmt.Condition)
	if !typesystem.Equals(guardType, typesystem.Bool) && !typesystem.IsUnknown(guardType) {
		c.errorf(stmt.Condition.Span(), "conditional expression must be a Bool, found %s", guardType)
	}
	c.checkBlock(&stmt.Consequent)
	if stmt.Alternative != nil {
		c.checkBlock(stmt.Alternative)
	}
}

func (c *Checker) checkLoop(stmt *ast.LoopStatement) {
	switch stmt.Kind {
	case ast.LoopFor:
		c.checkForLoop(stmt)
	default:
		guardType := c.checkExpression(stmt.Condition)
		if !typesystem.Equals(guardType, typesystem.Bool) && !typesystem.IsUnknown(guardType) {
			c.errorf(stmt.Condition.Span(), "loop condition must be a Bool, found %s", guardType)
		}
		c.loopDepth++
		c.checkBlock(&stmt.Body)
		c.loopDepth--
	}
}

func (c *Checker) checkForLoop(stmt *ast.LoopStatement) {
	c.pushScope()

	if rangeExpr, ok := stmt.Iterable.(*ast.RangeExpression); ok {
		c.checkRangeBounds(rangeExpr)
		if len(stmt.Bindings) != 1 {
			c.errorf(stmt.StmtSpan, "range iteration binds exactly one name")
		}
		for _, b := range stmt.Bindings {
			c.bind(b.Name, typesystem.Int)
		}
	} else {
		iterType := c.checkExpression(stmt.Iterable)
		switch it := iterType.(type) {
		case typesystem.List:
			if len(stmt.Bindings) != 1 {
				c.errorf(stmt.StmtSpan, "list iteration binds exactly one name")
			}
			for _, b := range stmt.Bindings {
				c.bind(b.Name, it.Element)
			}
		case typesystem.Dict:
			switch len(stmt.Bindings) {
			case 1:
				c.bind(stmt.Bindings[0].Name, typesystem.String)
			case 2:
				c.bind(stmt.Bindings[0].Name, typesystem.String)
				c.bind(stmt.Bindings[1].Name, it.Value)
			default:
				c.errorf(stmt.StmtSpan, "dict iteration binds one or two names")
			}
		default:
			if !typesystem.IsUnknown(iterType) {
				c.errorf(stmt.Iterable.Span(), "cannot iterate over %s", iterType)
			}
			for _, b := range stmt.Bindings {
				c.bind(b.Name, typesystem.Unknown{})
			}
		}
	}

	c.loopDepth++
	c.checkBlock(&stmt.Body)
	c.loopDepth--
	c.popScope()
}

func (c *Checker) checkRangeBounds(expr *ast.RangeExpression) {
	startType := c.checkExpression(expr.Start)
	endType := c.checkExpression(expr.End)
	if !typesystem.Equals(startType, typesystem.Int) && !typesystem.IsUnknown(startType) {
		c.errorf(expr.Start.Span(), "range bounds must be Int, found %s", startType)
	}
	if !typesystem.Equals(endType, typesystem.Int) && !typesystem.IsUnknown(endType) {
		c.errorf(expr.End.Span(), "range bounds must be Int, found %s", endType)
	}
}

func (c *Checker) checkReturn(stmt *ast.ReturnStatement) {
	if c.fn == nil {
		c.errorf(stmt.StmtSpan, "'return' outside of a function")
		if stmt.Expression != nil {
			c.checkExpression(stmt.Expression)
		}
		return
	}

	if stmt.Expression == nil {
		if !typesystem.Equals(c.fn.result, typesystem.Void) &&
			!typesystem.Equals(c.fn.result, typesystem.Nil) {
			c.errorf(stmt.StmtSpan, "function '%s': bare return in a function returning %s",
				c.fn.name, c.fn.result)
		}
		return
	}

	returnType := c.checkExpression(stmt.Expression)
	if !typesystem.AssignableTo(returnType, c.fn.result) {
		c.errorf(stmt.Expression.Span(), "function '%s': cannot return %s, expected %s",
			c.fn.name, returnType, c.fn.result)
	}
}

func (c *Checker) checkThrow(stmt *ast.ThrowStatement) {
	thrownType := c.checkExpression(stmt.Expression)

	errType, ok := thrownType.(typesystem.Error)
	if !ok || errType.Variant == "" {
		if !typesystem.IsUnknown(thrownType) {
			c.errorf(stmt.Expression.Span(), "throw requires an error variant, found %s", thrownType)
		}
		return
	}
	if c.fn == nil {
		c.errorf(stmt.StmtSpan, "throw requires an enclosing function with a declared error set")
		return
	}
	if !c.fn.errors.Contains(errType.Name, errType.Variant) {
		c.errorf(stmt.StmtSpan, "cannot throw '%s.%s' from function '%s': it is not in the declared error set",
			errType.Name, errType.Variant, c.fn.name)
	}
}
