// Package resolver performs name resolution: lexical scopes, shadowing and
// duplicate checks, const enforcement, unused-binding warnings, and lambda
// capture analysis.
package resolver

import (
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/stdlib"
)

// BindingKind classifies a declared name.
type BindingKind int

const (
	Variable BindingKind = iota
	Const
	Parameter
	Function
	StructName
	ModuleAlias
	TypeName
)

func (k BindingKind) describe() string {
	switch k {
	case Variable:
		return "variable"
	case Const:
		return "const"
	case Parameter:
		return "parameter"
	case Function:
		return "function"
	case StructName:
		return "struct"
	case ModuleAlias:
		return "module alias"
	default:
		return "type"
	}
}

type binding struct {
	kind BindingKind
	span ast.SourceSpan
	used bool
}

type lambdaContext struct {
	id              int
	outerScopeIndex int
	captures        []string
}

type Resolver struct {
	scopes      []map[string]*binding
	lambdaStack []lambdaContext
	diags       *diagnostics.Diagnostics

	// Captures maps lambda id to its captured names in first-capture order.
	Captures map[int][]string
}

func New() *Resolver {
	return &Resolver{
		diags:    diagnostics.New(),
		Captures: make(map[int][]string),
	}
}

// Resolve walks the module and returns the collected diagnostics together
// with the lambda capture map.
func Resolve(module *ast.Module) (*diagnostics.Diagnostics, map[int][]string) {
	r := New()
	r.pushScope()
	r.hoistDeclarations(module.Statements)
	r.resolveStatements(module.Statements)
	r.popScope()
	return r.diags, r.Captures
}

// hoistDeclarations pre-declares top-level functions and type names so
// bodies may reference declarations that appear later in the file.
func (r *Resolver) hoistDeclarations(statements []ast.Statement) {
	for _, stmt := range statements {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			r.declare(s.Name, s.NameSpan, Function, false)
		case *ast.StructStatement:
			r.declare(s.Name, s.NameSpan, StructName, false)
		case *ast.ErrorStatement:
			r.declare(s.Name, s.NameSpan, TypeName, false)
		case *ast.EnumStatement:
			r.declare(s.Name, s.NameSpan, TypeName, false)
		case *ast.UnionStatement:
			r.declare(s.Name, s.NameSpan, TypeName, false)
		}
	}
}

func (r *Resolver) resolveStatements(statements []ast.Statement) {
	for _, stmt := range statements {
		r.resolveStatement(stmt)
	}
}

func (r *Resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.UseStatement:
		r.resolveUse(s)
	case *ast.VarStatement:
		r.resolveVar(s)
	case *ast.FunctionStatement:
		r.resolveFunction(s)
	case *ast.TestStatement:
		r.resolveBlock(&s.Body)
	case *ast.StructStatement, *ast.ErrorStatement, *ast.EnumStatement, *ast.UnionStatement:
		// Declared during hoisting; nothing inside to resolve.
	case *ast.ConditionalStatement:
		r.resolveExpression(s.Condition)
		r.resolveBlock(&s.Consequent)
		if s.Alternative != nil {
			r.resolveBlock(s.Alternative)
		}
	case *ast.LoopStatement:
		r.resolveLoop(s)
	case *ast.ReturnStatement:
		if s.Expression != nil {
			r.resolveExpression(s.Expression)
		}
	case *ast.ThrowStatement:
		r.resolveThrow(s)
	case *ast.BreakStatement, *ast.ContinueStatement:
	case *ast.ExpressionStatement:
		r.resolveExpression(s.Expression)
	}
}

func (r *Resolver) resolveUse(stmt *ast.UseStatement) {
	path := stmt.ModulePath
	if strings.HasPrefix(path, "std.") || strings.HasPrefix(path, "support.") {
		if stdlib.FindModule(path) == nil {
			r.diags.PushError(fmt.Sprintf("unknown module '%s'", path), stmt.ModuleSpan)
		}
	}
	r.declare(stmt.Alias, stmt.AliasSpan, ModuleAlias, true)
}

func (r *Resolver) resolveVar(stmt *ast.VarStatement) {
	kind := Variable
	if stmt.IsConst {
		kind = Const
	}
	for i := range stmt.Bindings {
		b := &stmt.Bindings[i]
		// The initializer is resolved before the name is visible, so
		// `var x = x` reports an undefined binding.
		if b.Initializer != nil {
			r.resolveExpression(b.Initializer)
		}
		r.declare(b.Name, b.NameSpan, kind, true)
	}
}

func (r *Resolver) resolveFunction(stmt *ast.FunctionStatement) {
	r.pushScope()
	for i := range stmt.Parameters {
		param := &stmt.Parameters[i]
		r.declare(param.Name, param.Span, Parameter, true)
		if param.DefaultValue != nil {
			r.resolveExpression(param.DefaultValue)
		}
	}
	r.resolveBlock(&stmt.Body)
	r.popScope()
}

func (r *Resolver) resolveLoop(stmt *ast.LoopStatement) {
	switch stmt.Kind {
	case ast.LoopFor:
		r.resolveExpression(stmt.Iterable)
		// Loop bindings live in a fresh scope wrapping the body.
		r.pushScope()
		for _, bindingName := range stmt.Bindings {
			r.declare(bindingName.Name, bindingName.NameSpan, Variable, true)
			r.markUsed(bindingName.Name) // loop names are implicitly used
		}
		r.resolveBlock(&stmt.Body)
		r.popScope()
	default:
		r.resolveExpression(stmt.Condition)
		r.resolveBlock(&stmt.Body)
	}
}

func (r *Resolver) resolveThrow(stmt *ast.ThrowStatement) {
	r.resolveExpression(stmt.Expression)
}

func (r *Resolver) resolveBlock(block *ast.Block) {
	r.pushScope()
	r.resolveStatements(block.Statements)
	r.popScope()
}

func (r *Resolver) resolveExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Identifier:
		r.resolveIdentifier(e)
	case *ast.Literal:
	case *ast.InterpolatedString:
		for _, part := range e.Parts {
			if part.Expression != nil {
				r.resolveExpression(part.Expression)
			}
		}
	case *ast.ListLiteral:
		for _, element := range e.Elements {
			r.resolveExpression(element)
		}
	case *ast.DictLiteral:
		for _, entry := range e.Entries {
			r.resolveExpression(entry.Value)
		}
	case *ast.UnaryExpression:
		r.resolveExpression(e.Operand)
	case *ast.BinaryExpression:
		r.resolveExpression(e.Left)
		r.resolveExpression(e.Right)
	case *ast.UnwrapExpression:
		r.resolveExpression(e.Operand)
	case *ast.CallExpression:
		r.resolveExpression(e.Callee)
		for _, arg := range e.Arguments {
			r.resolveExpression(arg.Expression)
		}
	case *ast.MemberExpression:
		r.resolveMember(e)
	case *ast.IndexExpression:
		r.resolveExpression(e.Object)
		r.resolveExpression(e.Index)
	case *ast.RangeExpression:
		r.resolveExpression(e.Start)
		r.resolveExpression(e.End)
	case *ast.LambdaExpression:
		r.resolveLambda(e)
	case *ast.AssignmentExpression:
		r.resolveAssignment(e)
	case *ast.GroupingExpression:
		r.resolveExpression(e.Inner)
	case *ast.TryExpression:
		r.resolveTry(e)
	case *ast.MatchExpression:
		r.resolveMatch(e)
	}
}

func (r *Resolver) resolveIdentifier(identifier *ast.Identifier) {
	if r.markUsed(identifier.Name) {
		return
	}
	if stdlib.FindBuiltin(identifier.Name) != nil {
		return
	}

	var message string
	if modulePath, ok := stdlib.ModuleForFunction(identifier.Name); ok {
		segments := strings.Split(modulePath, ".")
		suggestedAlias := segments[len(segments)-1]
		message = fmt.Sprintf(
			"use of undefined binding '%s'; add `use %s = \"%s\"` to import it",
			identifier.Name, suggestedAlias, modulePath,
		)
	} else {
		message = fmt.Sprintf("use of undefined binding '%s'", identifier.Name)
	}
	r.diags.PushError(message, identifier.NameSpan)
}

// resolveMember resolves the object side only: whether `a.b` is a module
// export or a struct field is the type checker's call.
func (r *Resolver) resolveMember(member *ast.MemberExpression) {
	r.resolveExpression(member.Object)
}

func (r *Resolver) resolveLambda(lambda *ast.LambdaExpression) {
	r.pushScope()
	r.lambdaStack = append(r.lambdaStack, lambdaContext{
		id:              lambda.ID,
		outerScopeIndex: len(r.scopes) - 1,
	})

	for i := range lambda.Parameters {
		param := &lambda.Parameters[i]
		r.declare(param.Name, param.Span, Parameter, true)
	}
	if lambda.ExprBody != nil {
		r.resolveExpression(lambda.ExprBody)
	}
	if lambda.BlockBody != nil {
		r.resolveBlock(lambda.BlockBody)
	}

	ctx := r.lambdaStack[len(r.lambdaStack)-1]
	r.lambdaStack = r.lambdaStack[:len(r.lambdaStack)-1]
	r.Captures[ctx.id] = ctx.captures
	r.popScope()
}

func (r *Resolver) resolveAssignment(assignment *ast.AssignmentExpression) {
	if identifier, ok := assignment.Target.(*ast.Identifier); ok {
		if b := r.lookup(identifier.Name); b != nil {
			if b.kind == Const {
				r.diags.PushError(
					fmt.Sprintf("cannot reassign const '%s'", identifier.Name),
					identifier.NameSpan,
				)
			}
			r.recordCapture(identifier.Name)
		} else if stdlib.FindBuiltin(identifier.Name) == nil {
			r.resolveIdentifier(identifier)
		}
	} else {
		r.resolveExpression(assignment.Target)
	}
	r.resolveExpression(assignment.Value)
}

func (r *Resolver) resolveTry(try *ast.TryExpression) {
	r.resolveExpression(try.Expression)
	if try.CatchFallback != nil {
		r.resolveExpression(try.CatchFallback)
	}
	if len(try.CatchArms) > 0 {
		r.pushScope()
		if try.CatchBinding != "" {
			r.declare(try.CatchBinding, try.BindingSpan, Variable, true)
			r.markUsed(try.CatchBinding)
		}
		for i := range try.CatchArms {
			r.resolveMatchArm(&try.CatchArms[i])
		}
		r.popScope()
	}
}

func (r *Resolver) resolveMatch(match *ast.MatchExpression) {
	r.resolveExpression(match.Scrutinee)
	for i := range match.Arms {
		r.resolveMatchArm(&match.Arms[i])
	}
}

func (r *Resolver) resolveMatchArm(arm *ast.MatchArm) {
	if arm.Pattern.Kind == ast.PatternConstant && arm.Pattern.Constant != nil {
		r.resolveExpression(arm.Pattern.Constant)
	}
	r.resolveExpression(arm.Body)
}

// --- scope machinery ---

func (r *Resolver) pushScope() {
	r.scopes = append(r.scopes, make(map[string]*binding))
}

func (r *Resolver) popScope() {
	scope := r.scopes[len(r.scopes)-1]
	for name, b := range scope {
		if b.used {
			continue
		}
		var message string
		switch b.kind {
		case Variable:
			message = fmt.Sprintf("unused variable '%s'", name)
		case Const:
			message = fmt.Sprintf("unused const '%s'", name)
		case Parameter:
			message = fmt.Sprintf("unused parameter '%s'", name)
		case ModuleAlias:
			message = fmt.Sprintf("unused module alias '%s'", name)
		default:
			continue
		}
		r.diags.PushWarning(message, b.span)
	}
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name string, span ast.SourceSpan, kind BindingKind, checkShadow bool) {
	scope := r.scopes[len(r.scopes)-1]
	if existing, ok := scope[name]; ok {
		r.diags.PushError(
			fmt.Sprintf(
				"duplicate declaration of %s '%s' (first declared as %s at line %d, column %d)",
				kind.describe(), name, existing.kind.describe(), existing.span.Line, existing.span.Column,
			),
			span,
		)
		return
	}

	if checkShadow {
		if existing := r.findInOuterScopes(name); existing != nil {
			r.diags.PushError(
				fmt.Sprintf(
					"redeclaration of %s '%s' shadows existing %s declared at line %d, column %d",
					kind.describe(), name, existing.kind.describe(), existing.span.Line, existing.span.Column,
				),
				span,
			)
		}
	}

	scope[name] = &binding{kind: kind, span: span}
}

func (r *Resolver) findInOuterScopes(name string) *binding {
	for i := len(r.scopes) - 2; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			return b
		}
	}
	return nil
}

func (r *Resolver) lookup(name string) *binding {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			return b
		}
	}
	return nil
}

// markUsed marks the nearest binding used and records lambda captures. It
// reports whether any binding was found.
func (r *Resolver) markUsed(name string) bool {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			b.used = true
			r.recordCaptureAt(name, i)
			return true
		}
	}
	return false
}

func (r *Resolver) recordCapture(name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.recordCaptureAt(name, i)
			return
		}
	}
}

// recordCaptureAt appends the name to every pending lambda whose scope the
// resolution crossed. Module-scope names resolve through globals, never
// captures.
func (r *Resolver) recordCaptureAt(name string, scopeIndex int) {
	if scopeIndex == 0 {
		return
	}
	for li := len(r.lambdaStack) - 1; li >= 0; li-- {
		ctx := &r.lambdaStack[li]
		if scopeIndex >= ctx.outerScopeIndex {
			break
		}
		alreadyCaptured := false
		for _, captured := range ctx.captures {
			if captured == name {
				alreadyCaptured = true
				break
			}
		}
		if !alreadyCaptured {
			ctx.captures = append(ctx.captures, name)
		}
	}
}
