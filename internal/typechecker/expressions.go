package typechecker

import (
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typesystem"
)

// checkExpression types one expression, records the type in the annotation
// table, and returns it.
func (c *Checker) checkExpression(expr ast.Expression) typesystem.Type {
	var t typesystem.Type
	switch e := expr.(type) {
	case *ast.Identifier:
		t = c.checkIdentifier(e)
	case *ast.Literal:
		t = literalType(e)
	case *ast.InterpolatedString:
		for _, part := range e.Parts {
			if part.Expression != nil {
				c.checkExpression(part.Expression)
			}
		}
		t = typesystem.String
	case *ast.ListLiteral:
		t = c.checkListLiteral(e)
	case *ast.DictLiteral:
		t = c.checkDictLiteral(e)
	case *ast.UnaryExpression:
		t = c.checkUnary(e)
	case *ast.BinaryExpression:
		t = c.checkBinary(e)
	case *ast.UnwrapExpression:
		t = c.checkUnwrap(e)
	case *ast.CallExpression:
		t = c.checkCall(e)
	case *ast.MemberExpression:
		t = c.checkMember(e)
	case *ast.IndexExpression:
		t = c.checkIndex(e)
	case *ast.RangeExpression:
		c.errorf(e.Span(), "ranges may only be used as for-loop iterables")
		c.checkRangeBounds(e)
		t = typesystem.Unknown{}
	case *ast.LambdaExpression:
		t = c.checkLambda(e)
	case *ast.AssignmentExpression:
		t = c.checkAssignment(e)
	case *ast.GroupingExpression:
		t = c.checkExpression(e.Inner)
	case *ast.TryExpression:
		t = c.checkTry(e)
	case *ast.MatchExpression:
		t = c.checkMatch(e)
	default:
		t = typesystem.Unknown{}
	}
	c.info.Types[expr] = t
	return t
}

func literalType(literal *ast.Literal) typesystem.Type {
	switch literal.Kind {
	case ast.LiteralInt:
		return typesystem.Int
	case ast.LiteralFloat:
		return typesystem.Float
	case ast.LiteralString:
		return typesystem.String
	case ast.LiteralBool:
		return typesystem.Bool
	default:
		return typesystem.Nil
	}
}

func (c *Checker) checkIdentifier(identifier *ast.Identifier) typesystem.Type {
	if entry := c.lookup(identifier.Name); entry != nil {
		return entry.current
	}
	if decl, ok := c.funcs[identifier.Name]; ok {
		return funcValueType(decl)
	}
	if builtin := stdlib.FindBuiltin(identifier.Name); builtin != nil {
		// A bare builtin reference is only meaningful in callee position;
		// checkCall intercepts that case before typing the callee.
		return typesystem.Unknown{}
	}
	if _, ok := c.enums[identifier.Name]; ok {
		c.errorf(identifier.NameSpan, "enum '%s' is a type, not a value", identifier.Name)
		return typesystem.Unknown{}
	}
	if _, ok := c.errors[identifier.Name]; ok {
		c.errorf(identifier.NameSpan, "error '%s' is a type, not a value", identifier.Name)
		return typesystem.Unknown{}
	}
	if _, ok := c.structs[identifier.Name]; ok {
		c.errorf(identifier.NameSpan, "struct '%s' must be constructed with arguments", identifier.Name)
		return typesystem.Unknown{}
	}
	// The resolver reported undefined bindings already.
	return typesystem.Unknown{}
}

func funcValueType(decl *FuncDecl) typesystem.Type {
	params := make([]typesystem.Type, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = p.Type
	}
	return typesystem.Function{Params: params, Result: decl.Result}
}

func (c *Checker) checkListLiteral(list *ast.ListLiteral) typesystem.Type {
	if len(list.Elements) == 0 {
		return typesystem.List{Element: typesystem.Unknown{}}
	}
	elementType := c.checkExpression(list.Elements[0])
	for _, element := range list.Elements[1:] {
		t := c.checkExpression(element)
		if !typesystem.AssignableTo(t, elementType) {
			c.errorf(element.Span(), "list elements must share one type: expected %s, found %s",
				elementType, t)
		}
	}
	return typesystem.List{Element: elementType}
}

func (c *Checker) checkDictLiteral(dict *ast.DictLiteral) typesystem.Type {
	if len(dict.Entries) == 0 {
		return typesystem.Dict{Value: typesystem.Unknown{}}
	}
	valueType := c.checkExpression(dict.Entries[0].Value)
	for _, entry := range dict.Entries[1:] {
		t := c.checkExpression(entry.Value)
		if !typesystem.AssignableTo(t, valueType) {
			c.errorf(entry.Value.Span(), "dict values must share one type: expected %s, found %s",
				valueType, t)
		}
	}
	return typesystem.Dict{Value: valueType}
}

func (c *Checker) checkUnary(unary *ast.UnaryExpression) typesystem.Type {
	operandType := c.checkExpression(unary.Operand)
	if typesystem.IsUnknown(operandType) {
		return operandType
	}
	switch unary.Operator {
	case ast.UnaryNot:
		if !typesystem.Equals(operandType, typesystem.Bool) {
			c.errorf(unary.Operand.Span(), "operator 'not' requires a Bool, found %s", operandType)
			return typesystem.Unknown{}
		}
		return typesystem.Bool
	default:
		if typesystem.Equals(operandType, typesystem.Int) || typesystem.Equals(operandType, typesystem.Float) {
			return operandType
		}
		c.errorf(unary.Operand.Span(), "unary '-' requires an Int or Float, found %s", operandType)
		return typesystem.Unknown{}
	}
}

func (c *Checker) checkBinary(binary *ast.BinaryExpression) typesystem.Type {
	if binary.Operator == ast.BinaryCoalesce {
		return c.checkCoalesce(binary)
	}

	leftType := c.checkExpression(binary.Left)
	rightType := c.checkExpression(binary.Right)
	if typesystem.IsUnknown(leftType) || typesystem.IsUnknown(rightType) {
		return binaryResultOnUnknown(binary.Operator)
	}

	switch binary.Operator {
	case ast.BinaryAdd, ast.BinarySubtract, ast.BinaryMultiply, ast.BinaryDivide, ast.BinaryModulo:
		if typesystem.Equals(leftType, rightType) {
			isNumeric := typesystem.Equals(leftType, typesystem.Int) || typesystem.Equals(leftType, typesystem.Float)
			if isNumeric {
				if binary.Operator == ast.BinaryModulo && typesystem.Equals(leftType, typesystem.Float) {
					c.errorf(binary.Left.Span(), "operator '%%' requires Int operands, found Float")
					return typesystem.Unknown{}
				}
				return leftType
			}
			if binary.Operator == ast.BinaryAdd && typesystem.Equals(leftType, typesystem.String) {
				return typesystem.String
			}
		}
		c.errorf(binary.Left.Span(), "operator '%s' cannot be applied to %s and %s",
			binaryOperatorLexeme(binary.Operator), leftType, rightType)
		return typesystem.Unknown{}
	case ast.BinaryEqual, ast.BinaryNotEqual:
		if !comparable(leftType, rightType) {
			c.errorf(binary.Left.Span(), "cannot compare %s with %s", leftType, rightType)
		}
		return typesystem.Bool
	case ast.BinaryGreater, ast.BinaryGreaterEqual, ast.BinaryLess, ast.BinaryLessEqual:
		ordered := typesystem.Equals(leftType, typesystem.Int) ||
			typesystem.Equals(leftType, typesystem.Float) ||
			typesystem.Equals(leftType, typesystem.String)
		if !ordered || !typesystem.Equals(leftType, rightType) {
			c.errorf(binary.Left.Span(), "operator '%s' cannot be applied to %s and %s",
				binaryOperatorLexeme(binary.Operator), leftType, rightType)
		}
		return typesystem.Bool
	case ast.BinaryAnd, ast.BinaryOr:
		if !typesystem.Equals(leftType, typesystem.Bool) || !typesystem.Equals(rightType, typesystem.Bool) {
			c.errorf(binary.Left.Span(), "logical operators require Bool operands, found %s and %s",
				leftType, rightType)
		}
		return typesystem.Bool
	}
	return typesystem.Unknown{}
}

func binaryResultOnUnknown(op ast.BinaryOperator) typesystem.Type {
	switch op {
	case ast.BinaryEqual, ast.BinaryNotEqual, ast.BinaryGreater, ast.BinaryGreaterEqual,
		ast.BinaryLess, ast.BinaryLessEqual, ast.BinaryAnd, ast.BinaryOr:
		return typesystem.Bool
	default:
		return typesystem.Unknown{}
	}
}

func binaryOperatorLexeme(op ast.BinaryOperator) string {
	switch op {
	case ast.BinaryAdd:
		return "+"
	case ast.BinarySubtract:
		return "-"
	case ast.BinaryMultiply:
		return "*"
	case ast.BinaryDivide:
		return "/"
	case ast.BinaryModulo:
		return "%"
	case ast.BinaryEqual:
		return "=="
	case ast.BinaryNotEqual:
		return "!="
	case ast.BinaryGreater:
		return ">"
	case ast.BinaryGreaterEqual:
		return ">="
	case ast.BinaryLess:
		return "<"
	case ast.BinaryLessEqual:
		return "<="
	case ast.BinaryAnd:
		return "&&"
	case ast.BinaryOr:
		return "||"
	default:
		return "??"
	}
}

func comparable(a, b typesystem.Type) bool {
	if typesystem.Equals(a, b) {
		return true
	}
	// nil compares against optionals; T compares against T?.
	if typesystem.Equals(a, typesystem.Nil) {
		_, ok := b.(typesystem.Optional)
		return ok
	}
	if typesystem.Equals(b, typesystem.Nil) {
		_, ok := a.(typesystem.Optional)
		return ok
	}
	if aOpt, ok := a.(typesystem.Optional); ok {
		return typesystem.Equals(aOpt.Inner, b)
	}
	if bOpt, ok := b.(typesystem.Optional); ok {
		return typesystem.Equals(bOpt.Inner, a)
	}
	return false
}

// checkCoalesce implements proof (c): `x ?? default` has type T when both
// sides' non-nil types unify.
func (c *Checker) checkCoalesce(binary *ast.BinaryExpression) typesystem.Type {
	leftType := c.checkExpression(binary.Left)
	rightType := c.checkExpression(binary.Right)

	leftValue := typesystem.NonNil(leftType)
	unified, ok := typesystem.Unify(leftValue, rightType)
	if !ok {
		c.errorf(binary.Right.Span(), "operator '??' requires matching types: %s and %s",
			leftValue, rightType)
		return typesystem.Unknown{}
	}
	return unified
}

func (c *Checker) checkUnwrap(unwrap *ast.UnwrapExpression) typesystem.Type {
	operandType := c.checkExpression(unwrap.Operand)
	if _, isOptional := operandType.(typesystem.Optional); !isOptional {
		return operandType
	}
	if identifier, ok := unwrap.Operand.(*ast.Identifier); ok {
		c.errorf(unwrap.BangSpan, "cannot unwrap optional '%s': value may be nil here", identifier.Name)
	} else {
		c.errorf(unwrap.BangSpan, "cannot unwrap optional value: it may be nil here")
	}
	return typesystem.NonNil(operandType)
}

func (c *Checker) checkIndex(index *ast.IndexExpression) typesystem.Type {
	objectType := c.checkExpression(index.Object)
	indexType := c.checkExpression(index.Index)

	switch ot := objectType.(type) {
	case typesystem.List:
		if !typesystem.Equals(indexType, typesystem.Int) && !typesystem.IsUnknown(indexType) {
			c.errorf(index.Index.Span(), "list index must be an Int, found %s", indexType)
		}
		return ot.Element
	case typesystem.Dict:
		if !typesystem.Equals(indexType, typesystem.String) && !typesystem.IsUnknown(indexType) {
			c.errorf(index.Index.Span(), "dict key must be a String, found %s", indexType)
		}
		return ot.Value
	default:
		if !typesystem.IsUnknown(objectType) {
			c.errorf(index.Object.Span(), "cannot index into %s", objectType)
		}
		return typesystem.Unknown{}
	}
}

func (c *Checker) checkLambda(lambda *ast.LambdaExpression) typesystem.Type {
	params := make([]typesystem.Type, len(lambda.Parameters))

	var declared typesystem.Type
	if lambda.ReturnType != nil {
		declared = c.resolveType(lambda.ReturnType, nil)
	}
	outerFn := c.fn
	if lambda.BlockBody != nil {
		// Block-bodied lambdas own their returns.
		lambdaResult := declared
		if lambdaResult == nil {
			lambdaResult = typesystem.Unknown{}
		}
		c.fn = &functionContext{
			name:       "lambda",
			result:     lambdaResult,
			errors:     NewErrorSet(),
			typeParams: map[string]bool{},
		}
		defer func() { c.fn = outerFn }()
	}

	c.pushScope()
	for i, param := range lambda.Parameters {
		var paramType typesystem.Type = typesystem.Unknown{}
		if param.TypeAnnotation != nil {
			paramType = c.resolveType(param.TypeAnnotation, nil)
		} else {
			c.errorf(param.Span, "parameter '%s' is missing a type annotation", param.Name)
		}
		params[i] = paramType
		c.bind(param.Name, paramType)
	}

	var result typesystem.Type = typesystem.Void
	if lambda.ExprBody != nil {
		result = c.checkExpression(lambda.ExprBody)
	} else if lambda.BlockBody != nil {
		c.checkBlock(lambda.BlockBody)
		if len(lambda.BlockBody.Statements) > 0 {
			if exprStmt, ok := lambda.BlockBody.Statements[len(lambda.BlockBody.Statements)-1].(*ast.ExpressionStatement); ok {
				if t, ok := c.info.Types[exprStmt.Expression]; ok {
					result = t
				}
			}
		}
	}
	if declared != nil {
		if !typesystem.AssignableTo(result, declared) {
			c.errorf(lambda.LambdaSpan, "lambda body: expected %s, found %s", declared, result)
		}
		result = declared
	}
	c.popScope()
	return typesystem.Function{Params: params, Result: result}
}

func (c *Checker) checkAssignment(assignment *ast.AssignmentExpression) typesystem.Type {
	switch target := assignment.Target.(type) {
	case *ast.Identifier:
		return c.checkIdentifierAssignment(assignment, target)
	case *ast.MemberExpression:
		c.checkExpression(assignment.Target)
		c.checkExpression(assignment.Value)
		c.errorf(target.PropertySpan, "struct fields are immutable; construct a new value instead")
		return typesystem.Unknown{}
	case *ast.IndexExpression:
		c.checkExpression(assignment.Target)
		c.checkExpression(assignment.Value)
		c.errorf(assignment.Target.Span(), "cannot assign to an element; lists and dicts are updated through intrinsics")
		return typesystem.Unknown{}
	default:
		c.checkExpression(assignment.Value)
		return typesystem.Unknown{}
	}
}

func (c *Checker) checkIdentifierAssignment(assignment *ast.AssignmentExpression, target *ast.Identifier) typesystem.Type {
	entry := c.lookup(target.Name)
	valueType := c.checkExpression(assignment.Value)
	if entry == nil {
		return typesystem.Unknown{}
	}

	if assignment.Operator != ast.AssignSet {
		// Compound assignment requires a numeric (or String for +=) binding
		// and a matching operand.
		ok := typesystem.Equals(entry.declared, typesystem.Int) ||
			typesystem.Equals(entry.declared, typesystem.Float) ||
			(assignment.Operator == ast.AssignAdd && typesystem.Equals(entry.declared, typesystem.String))
		if !ok && !typesystem.IsUnknown(entry.declared) {
			c.errorf(target.NameSpan, "compound assignment requires a numeric binding, '%s' is %s",
				target.Name, entry.declared)
			return entry.declared
		}
		if !typesystem.AssignableTo(valueType, entry.declared) {
			c.errorf(assignment.Value.Span(), "cannot assign to '%s': expected %s, found %s",
				target.Name, entry.declared, valueType)
		}
		return entry.declared
	}

	if !typesystem.AssignableTo(valueType, entry.declared) {
		c.errorf(assignment.Value.Span(), "cannot assign to '%s': expected %s, found %s",
			target.Name, entry.declared, valueType)
		return entry.declared
	}

	// Assignment resets or narrows the flow-sensitive view.
	if _, isOptional := entry.declared.(typesystem.Optional); isOptional {
		if typesystem.Equals(valueType, typesystem.Nil) {
			c.refine(target.Name, entry.declared)
		} else if typesystem.Equals(valueType, typesystem.NonNil(entry.declared)) {
			c.refine(target.Name, typesystem.NonNil(entry.declared))
		} else {
			c.refine(target.Name, entry.declared)
		}
	}
	return entry.declared
}

func (c *Checker) checkMember(member *ast.MemberExpression) typesystem.Type {
	// Module-alias access takes the module-qualified path when the object
	// resolves to an alias.
	if identifier, ok := member.Object.(*ast.Identifier); ok && c.lookup(identifier.Name) == nil {
		if module, ok := c.stdAliases[identifier.Name]; ok {
			return c.checkStdModuleMember(member, module)
		}
		if exports, ok := c.userAliases[identifier.Name]; ok {
			return c.checkUserModuleMember(member, identifier.Name, exports)
		}
		if enumDecl, ok := c.enums[identifier.Name]; ok {
			return c.checkEnumVariant(member, enumDecl)
		}
		if errDecl, ok := c.errors[identifier.Name]; ok {
			return c.checkErrorVariantRef(member, errDecl)
		}
	}

	objectType := c.checkExpression(member.Object)
	switch ot := objectType.(type) {
	case typesystem.Struct:
		return c.checkStructField(member, ot)
	case typesystem.Error:
		return c.checkErrorPayloadField(member, ot)
	default:
		if !typesystem.IsUnknown(objectType) {
			c.errorf(member.PropertySpan, "%s has no field '%s'", objectType, member.Property)
		}
		return typesystem.Unknown{}
	}
}

func (c *Checker) checkStdModuleMember(member *ast.MemberExpression, module *stdlib.Module) typesystem.Type {
	fn := module.Find(member.Property)
	if fn == nil {
		c.errorf(member.PropertySpan, "module '%s' has no export named '%s'", module.Path, member.Property)
		return typesystem.Unknown{}
	}
	// Intrinsics have no value representation; they only appear in callee
	// position, which checkMemberCall intercepts.
	c.errorf(member.PropertySpan, "module function '%s.%s' must be called directly",
		module.Path, member.Property)
	return typesystem.Unknown{}
}

func (c *Checker) checkUserModuleMember(member *ast.MemberExpression, alias string, exports *ModuleExports) typesystem.Type {
	if decl, ok := exports.Functions[member.Property]; ok {
		c.info.Members[member] = &MemberInfo{
			Kind:   MemberModuleExport,
			Export: alias + "." + member.Property,
		}
		return funcValueType(decl)
	}
	if constType, ok := exports.Consts[member.Property]; ok {
		c.info.Members[member] = &MemberInfo{
			Kind:   MemberModuleExport,
			Export: alias + "." + member.Property,
		}
		return constType
	}
	c.errorf(member.PropertySpan, "module '%s' has no export named '%s'", exports.Path, member.Property)
	return typesystem.Unknown{}
}

func (c *Checker) checkEnumVariant(member *ast.MemberExpression, decl *EnumDecl) typesystem.Type {
	for ordinal, variant := range decl.Variants {
		if variant == member.Property {
			c.info.Members[member] = &MemberInfo{
				Kind:        MemberEnumVariant,
				EnumName:    decl.Name,
				VariantName: variant,
				Ordinal:     ordinal,
			}
			return typesystem.Enum{Name: decl.Name}
		}
	}
	c.errorf(member.PropertySpan, "enum '%s' has no variant '%s'", decl.Name, member.Property)
	return typesystem.Unknown{}
}

func (c *Checker) checkErrorVariantRef(member *ast.MemberExpression, decl *ErrorDecl) typesystem.Type {
	variant := decl.variant(member.Property)
	if variant == nil {
		c.errorf(member.PropertySpan, "error '%s' has no variant '%s'", decl.Name, member.Property)
		return typesystem.Unknown{}
	}
	c.info.Members[member] = &MemberInfo{
		Kind:        MemberErrorVariant,
		EnumName:    decl.Name,
		VariantName: variant.Name,
		Ordinal:     variant.Ordinal,
	}
	return typesystem.Error{Name: decl.Name, Variant: variant.Name}
}

func (c *Checker) checkStructField(member *ast.MemberExpression, structType typesystem.Struct) typesystem.Type {
	decl, ok := c.structs[structType.Name]
	if !ok {
		return typesystem.Unknown{}
	}
	for i, fieldName := range decl.FieldNames {
		if fieldName == member.Property {
			c.info.Members[member] = &MemberInfo{Kind: MemberField, Field: fieldName}
			fieldType := decl.FieldTypes[i]
			if len(decl.TypeParams) > 0 && len(structType.TypeArgs) == len(decl.TypeParams) {
				bindings := make(map[string]typesystem.Type, len(decl.TypeParams))
				for j, paramName := range decl.TypeParams {
					bindings[paramName] = structType.TypeArgs[j]
				}
				fieldType = typesystem.Substitute(fieldType, bindings)
			}
			return fieldType
		}
	}
	c.errorf(member.PropertySpan, "struct '%s' has no field '%s'", structType.Name, member.Property)
	return typesystem.Unknown{}
}

// checkErrorPayloadField types `err.path` where err holds an error value.
// The field set is only known when the error type is narrowed to one
// variant (inside a `case is E.V` arm).
func (c *Checker) checkErrorPayloadField(member *ast.MemberExpression, errType typesystem.Error) typesystem.Type {
	decl, ok := c.errors[errType.Name]
	if !ok {
		return typesystem.Unknown{}
	}
	if errType.Variant == "" {
		c.errorf(member.PropertySpan, "cannot access '%s' before matching a variant of '%s'",
			member.Property, errType.Name)
		return typesystem.Unknown{}
	}
	variant := decl.variant(errType.Variant)
	if variant == nil {
		return typesystem.Unknown{}
	}
	for i, fieldName := range variant.FieldNames {
		if fieldName == member.Property {
			c.info.Members[member] = &MemberInfo{Kind: MemberField, Field: fieldName}
			return variant.FieldTypes[i]
		}
	}
	c.errorf(member.PropertySpan, "error variant '%s.%s' has no field '%s'",
		errType.Name, errType.Variant, member.Property)
	return typesystem.Unknown{}
}

// flattenTypeName renders "E.V"-style dotted names the annotation grammar
// cannot express directly.
func flattenTypeName(te *ast.TypeExpression) (string, string, bool) {
	if te == nil || te.Kind != ast.TypeName {
		return "", "", false
	}
	if idx := strings.IndexByte(te.Name, '.'); idx > 0 {
		return te.Name[:idx], te.Name[idx+1:], true
	}
	return te.Name, "", false
}
