package typechecker

import (
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typesystem"
)

func (c *Checker) checkCall(call *ast.CallExpression) typesystem.Type {
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		// Local bindings shadow functions, builtins, and struct names.
		if entry := c.lookup(callee.Name); entry != nil {
			return c.checkValueCall(call, entry.current)
		}
		if decl, ok := c.funcs[callee.Name]; ok {
			return c.checkFunctionCall(call, callee, decl)
		}
		if builtin := stdlib.FindBuiltin(callee.Name); builtin != nil {
			return c.checkStdFunctionCall(call, callee.Name, builtin)
		}
		if decl, ok := c.structs[callee.Name]; ok {
			return c.checkStructConstruction(call, callee, decl)
		}
		// Resolver reported the undefined binding.
		c.checkArgumentsLoosely(call)
		return typesystem.Unknown{}
	case *ast.MemberExpression:
		return c.checkMemberCall(call, callee)
	default:
		calleeType := c.checkExpression(call.Callee)
		return c.checkValueCall(call, calleeType)
	}
}

func (c *Checker) checkArgumentsLoosely(call *ast.CallExpression) {
	for _, arg := range call.Arguments {
		c.checkExpression(arg.Expression)
	}
}

// checkValueCall calls a first-class function value.
func (c *Checker) checkValueCall(call *ast.CallExpression, calleeType typesystem.Type) typesystem.Type {
	c.info.Calls[call] = &CallInfo{Kind: CallValue}
	fnType, ok := calleeType.(typesystem.Function)
	if !ok {
		if !typesystem.IsUnknown(calleeType) {
			c.errorf(call.Callee.Span(), "%s is not callable", calleeType)
		}
		c.checkArgumentsLoosely(call)
		return typesystem.Unknown{}
	}

	if len(call.TypeArguments) > 0 {
		c.errorf(call.Callee.Span(), "type arguments are not allowed on function values")
	}
	if c.rejectNamedArguments(call) {
		return fnType.Result
	}
	if len(call.Arguments) != len(fnType.Params) {
		c.errorf(call.Callee.Span(), "call expects %d arguments but %d provided",
			len(fnType.Params), len(call.Arguments))
		c.checkArgumentsLoosely(call)
		return fnType.Result
	}
	for i, arg := range call.Arguments {
		argType := c.checkExpression(arg.Expression)
		if !typesystem.AssignableTo(argType, fnType.Params[i]) {
			c.errorf(arg.Expression.Span(), "argument %d: expected %s, found %s",
				i+1, fnType.Params[i], argType)
		}
	}
	return fnType.Result
}

func (c *Checker) rejectNamedArguments(call *ast.CallExpression) bool {
	for _, arg := range call.Arguments {
		if arg.Name != "" {
			c.errorf(arg.NameSpan, "named arguments are not allowed here")
			c.checkArgumentsLoosely(call)
			return true
		}
	}
	return false
}

// checkFunctionCall calls a declared function, handling generics, named
// arguments, defaults, and the error union.
func (c *Checker) checkFunctionCall(call *ast.CallExpression, callee *ast.Identifier, decl *FuncDecl) typesystem.Type {
	c.info.Calls[call] = &CallInfo{Kind: CallValue}

	bindings := map[string]typesystem.Type{}
	if len(decl.TypeParams) > 0 {
		if len(call.TypeArguments) > 0 {
			if len(call.TypeArguments) != len(decl.TypeParams) {
				c.errorf(call.Callee.Span(), "function '%s' expects %d type arguments [%s] but %d provided",
					decl.Name, len(decl.TypeParams), renderTypeParams(decl.TypeParams), len(call.TypeArguments))
			}
			for i, ta := range call.TypeArguments {
				if i < len(decl.TypeParams) {
					bindings[decl.TypeParams[i]] = c.resolveType(ta, nil)
				}
			}
		}
	} else if len(call.TypeArguments) > 0 {
		c.errorf(call.Callee.Span(), "function '%s' is not generic", decl.Name)
	}

	args, ok := c.orderArguments(call, decl.Name, funcParamNames(decl), funcParamDefaults(decl))
	if !ok {
		return typesystem.Substitute(decl.Result, bindings)
	}

	// Infer missing type arguments from the argument types.
	if len(decl.TypeParams) > 0 && len(call.TypeArguments) == 0 {
		argTypes := make([]typesystem.Type, len(args))
		for i, arg := range args {
			if arg != nil {
				argTypes[i] = c.checkExpression(arg)
				c.info.Types[arg] = argTypes[i]
			}
		}
		for i, param := range decl.Params {
			if i < len(argTypes) && argTypes[i] != nil {
				inferTypeBindings(param.Type, argTypes[i], bindings)
			}
		}
		for _, tp := range decl.TypeParams {
			if _, ok := bindings[tp]; !ok {
				c.errorf(call.Callee.Span(),
					"cannot infer type argument <%s> for function '%s'; provide explicit type arguments",
					tp, decl.Name)
				bindings[tp] = typesystem.Unknown{}
			}
		}
		for i, arg := range args {
			if arg == nil || i >= len(decl.Params) {
				continue
			}
			expected := typesystem.Substitute(decl.Params[i].Type, bindings)
			if !typesystem.AssignableTo(argTypes[i], expected) {
				c.errorf(arg.Span(), "argument %d to '%s': expected %s, found %s",
					i+1, decl.Name, expected, argTypes[i])
			}
		}
	} else {
		for i, arg := range args {
			if arg == nil || i >= len(decl.Params) {
				continue
			}
			argType := c.checkExpression(arg)
			expected := typesystem.Substitute(decl.Params[i].Type, bindings)
			if !typesystem.AssignableTo(argType, expected) {
				c.errorf(arg.Span(), "argument %d to '%s': expected %s, found %s",
					i+1, decl.Name, expected, argType)
			}
		}
	}

	c.recordThrows(call, decl.Errors)
	return typesystem.Substitute(decl.Result, bindings)
}

func funcParamNames(decl *FuncDecl) []string {
	names := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		names[i] = p.Name
	}
	return names
}

func funcParamDefaults(decl *FuncDecl) []bool {
	defaults := make([]bool, len(decl.Params))
	for i, p := range decl.Params {
		defaults[i] = p.HasDefault
	}
	return defaults
}

func renderTypeParams(params []string) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = "<" + p + ">"
	}
	return strings.Join(parts, ", ")
}

// orderArguments validates positional/named argument shape and returns the
// argument expressions in parameter order (nil for defaulted slots).
func (c *Checker) orderArguments(call *ast.CallExpression, calleeName string, paramNames []string, hasDefault []bool) ([]ast.Expression, bool) {
	named := 0
	for _, arg := range call.Arguments {
		if arg.Name != "" {
			named++
		}
	}
	if named > 0 && named != len(call.Arguments) {
		c.errorf(call.Callee.Span(), "cannot mix positional and named arguments in a call to '%s'", calleeName)
		c.checkArgumentsLoosely(call)
		return nil, false
	}

	if named == 0 {
		minArity := 0
		for i := range paramNames {
			if !hasDefault[i] {
				minArity++
			}
		}
		if len(call.Arguments) < minArity || len(call.Arguments) > len(paramNames) {
			c.errorf(call.Callee.Span(), "function '%s' expects %d arguments but %d provided",
				calleeName, len(paramNames), len(call.Arguments))
			c.checkArgumentsLoosely(call)
			return nil, false
		}
		args := make([]ast.Expression, len(paramNames))
		for i, arg := range call.Arguments {
			args[i] = arg.Expression
		}
		return args, true
	}

	args := make([]ast.Expression, len(paramNames))
	for _, arg := range call.Arguments {
		idx := -1
		for i, name := range paramNames {
			if name == arg.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.errorf(arg.NameSpan, "'%s' has no parameter named '%s'", calleeName, arg.Name)
			c.checkExpression(arg.Expression)
			continue
		}
		if args[idx] != nil {
			c.errorf(arg.NameSpan, "duplicate argument '%s' in call to '%s'", arg.Name, calleeName)
			continue
		}
		args[idx] = arg.Expression
	}
	for i, name := range paramNames {
		if args[i] == nil && !hasDefault[i] {
			c.errorf(call.Callee.Span(), "call to '%s' is missing argument '%s'", calleeName, name)
		}
	}
	return args, true
}

// checkStdFunctionCall checks a builtin or stdlib module function call.
func (c *Checker) checkStdFunctionCall(call *ast.CallExpression, name string, fn *stdlib.Function) typesystem.Type {
	c.info.Calls[call] = &CallInfo{Kind: CallBuiltin, Builtin: fn.Kind}

	if c.rejectNamedArguments(call) {
		return stdlibReturnType(fn)
	}
	if !fn.Arity.Allows(len(call.Arguments)) {
		c.errorf(call.Callee.Span(), "function '%s' expects %s arguments but %d provided",
			name, describeArity(fn.Arity), len(call.Arguments))
		c.checkArgumentsLoosely(call)
		return stdlibReturnType(fn)
	}
	for i, arg := range call.Arguments {
		argType := c.checkExpression(arg.Expression)
		if i < len(fn.Params) && !stdlibParamAccepts(fn.Params[i], argType) {
			c.errorf(arg.Expression.Span(), "argument %d to '%s': expected %s, found %s",
				i+1, name, stdlibType(fn.Params[i]), argType)
		}
	}
	return stdlibReturnType(fn)
}

func describeArity(arity stdlib.Arity) string {
	if arity.Min == arity.Max {
		return fmt.Sprintf("%d", arity.Min)
	}
	if arity.Max < 0 {
		return fmt.Sprintf("at least %d", arity.Min)
	}
	return fmt.Sprintf("%d to %d", arity.Min, arity.Max)
}

// checkStructConstruction checks Name(...) and Name<T>(...).
func (c *Checker) checkStructConstruction(call *ast.CallExpression, callee *ast.Identifier, decl *StructDecl) typesystem.Type {
	named := len(call.Arguments) > 0 && call.Arguments[0].Name != ""
	c.info.Calls[call] = &CallInfo{Kind: CallStruct, StructName: decl.Name, Named: named}

	bindings := map[string]typesystem.Type{}
	if len(call.TypeArguments) > 0 {
		if len(call.TypeArguments) != len(decl.TypeParams) {
			c.errorf(call.Callee.Span(), "struct '%s' expects %d type arguments but %d provided",
				decl.Name, len(decl.TypeParams), len(call.TypeArguments))
		}
		for i, ta := range call.TypeArguments {
			if i < len(decl.TypeParams) {
				bindings[decl.TypeParams[i]] = c.resolveType(ta, nil)
			}
		}
	}

	noDefaults := make([]bool, len(decl.FieldNames))
	args, ok := c.orderArguments(call, decl.Name, decl.FieldNames, noDefaults)
	if !ok {
		return c.structResult(decl, bindings)
	}

	argTypes := make([]typesystem.Type, len(args))
	for i, arg := range args {
		if arg != nil {
			argTypes[i] = c.checkExpression(arg)
		}
	}

	// Infer type parameters from field values when brackets were omitted.
	if len(decl.TypeParams) > 0 && len(call.TypeArguments) == 0 {
		for i, fieldType := range decl.FieldTypes {
			if i < len(argTypes) && argTypes[i] != nil {
				inferTypeBindings(fieldType, argTypes[i], bindings)
			}
		}
		for _, tp := range decl.TypeParams {
			if _, ok := bindings[tp]; !ok {
				c.errorf(call.Callee.Span(),
					"cannot infer type argument <%s> for struct '%s'; provide explicit type arguments, e.g. %s<...>(...)",
					tp, decl.Name, decl.Name)
				bindings[tp] = typesystem.Unknown{}
			}
		}
	}

	for i, arg := range args {
		if arg == nil || i >= len(decl.FieldTypes) {
			continue
		}
		expected := typesystem.Substitute(decl.FieldTypes[i], bindings)
		if !typesystem.AssignableTo(argTypes[i], expected) {
			c.errorf(arg.Span(), "argument %d to '%s': expected %s, found %s",
				i+1, decl.Name, expected, argTypes[i])
		}
	}
	return c.structResult(decl, bindings)
}

func (c *Checker) structResult(decl *StructDecl, bindings map[string]typesystem.Type) typesystem.Type {
	if len(decl.TypeParams) == 0 {
		return typesystem.Struct{Name: decl.Name}
	}
	args := make([]typesystem.Type, len(decl.TypeParams))
	for i, tp := range decl.TypeParams {
		if bound, ok := bindings[tp]; ok {
			args[i] = bound
		} else {
			args[i] = typesystem.Unknown{}
		}
	}
	return typesystem.Struct{Name: decl.Name, TypeArgs: args}
}

// inferTypeBindings unifies a declared parameter type against an argument
// type, binding generic parameter names on first sight.
func inferTypeBindings(param, arg typesystem.Type, bindings map[string]typesystem.Type) {
	switch pt := param.(type) {
	case typesystem.GenericParameter:
		// A bare nil argument carries no type information.
		if _, ok := bindings[pt.Name]; !ok && !typesystem.IsUnknown(arg) && !typesystem.Equals(arg, typesystem.Nil) {
			bindings[pt.Name] = arg
		}
	case typesystem.Optional:
		if at, ok := arg.(typesystem.Optional); ok {
			inferTypeBindings(pt.Inner, at.Inner, bindings)
		} else {
			inferTypeBindings(pt.Inner, arg, bindings)
		}
	case typesystem.List:
		if at, ok := arg.(typesystem.List); ok {
			inferTypeBindings(pt.Element, at.Element, bindings)
		}
	case typesystem.Dict:
		if at, ok := arg.(typesystem.Dict); ok {
			inferTypeBindings(pt.Value, at.Value, bindings)
		}
	case typesystem.Function:
		if at, ok := arg.(typesystem.Function); ok && len(pt.Params) == len(at.Params) {
			for i := range pt.Params {
				inferTypeBindings(pt.Params[i], at.Params[i], bindings)
			}
			inferTypeBindings(pt.Result, at.Result, bindings)
		}
	case typesystem.Struct:
		if at, ok := arg.(typesystem.Struct); ok && pt.Name == at.Name && len(pt.TypeArgs) == len(at.TypeArgs) {
			for i := range pt.TypeArgs {
				inferTypeBindings(pt.TypeArgs[i], at.TypeArgs[i], bindings)
			}
		}
	}
}

// checkMemberCall checks alias.fn(...) and ErrorName.Variant(...) calls, or
// falls back to calling a field value.
func (c *Checker) checkMemberCall(call *ast.CallExpression, member *ast.MemberExpression) typesystem.Type {
	if identifier, ok := member.Object.(*ast.Identifier); ok && c.lookup(identifier.Name) == nil {
		if module, ok := c.stdAliases[identifier.Name]; ok {
			fn := module.Find(member.Property)
			if fn == nil {
				c.errorf(member.PropertySpan, "module '%s' has no export named '%s'",
					module.Path, member.Property)
				c.checkArgumentsLoosely(call)
				return typesystem.Unknown{}
			}
			c.info.Members[member] = &MemberInfo{Kind: MemberModuleFunction, Builtin: fn.Kind}
			qualified := identifier.Name + "." + member.Property
			return c.checkStdFunctionCall(call, qualified, fn)
		}
		if exports, ok := c.userAliases[identifier.Name]; ok {
			if decl, ok := exports.Functions[member.Property]; ok {
				c.info.Members[member] = &MemberInfo{
					Kind:   MemberModuleExport,
					Export: identifier.Name + "." + member.Property,
				}
				c.info.Types[member] = funcValueType(decl)
				return c.checkExportedFunctionCall(call, decl)
			}
			c.errorf(member.PropertySpan, "module '%s' has no export named '%s'",
				exports.Path, member.Property)
			c.checkArgumentsLoosely(call)
			return typesystem.Unknown{}
		}
		if errDecl, ok := c.errors[identifier.Name]; ok {
			return c.checkErrorConstruction(call, member, errDecl)
		}
	}

	calleeType := c.checkExpression(member)
	return c.checkValueCall(call, calleeType)
}

func (c *Checker) checkExportedFunctionCall(call *ast.CallExpression, decl *FuncDecl) typesystem.Type {
	c.info.Calls[call] = &CallInfo{Kind: CallValue}
	args, ok := c.orderArguments(call, decl.Name, funcParamNames(decl), funcParamDefaults(decl))
	if !ok {
		return decl.Result
	}
	for i, arg := range args {
		if arg == nil || i >= len(decl.Params) {
			continue
		}
		argType := c.checkExpression(arg)
		if !typesystem.AssignableTo(argType, decl.Params[i].Type) {
			c.errorf(arg.Span(), "argument %d to '%s': expected %s, found %s",
				i+1, decl.Name, decl.Params[i].Type, argType)
		}
	}
	c.recordThrows(call, decl.Errors)
	return decl.Result
}

// checkErrorConstruction checks `throw E.V(args)` payload shapes.
func (c *Checker) checkErrorConstruction(call *ast.CallExpression, member *ast.MemberExpression, decl *ErrorDecl) typesystem.Type {
	variant := decl.variant(member.Property)
	if variant == nil {
		c.errorf(member.PropertySpan, "error '%s' has no variant '%s'", decl.Name, member.Property)
		c.checkArgumentsLoosely(call)
		return typesystem.Unknown{}
	}
	c.info.Members[member] = &MemberInfo{
		Kind:        MemberErrorVariant,
		EnumName:    decl.Name,
		VariantName: variant.Name,
		Ordinal:     variant.Ordinal,
	}
	c.info.Calls[call] = &CallInfo{
		Kind:        CallError,
		ErrorName:   decl.Name,
		VariantName: variant.Name,
		Ordinal:     variant.Ordinal,
		FieldNames:  variant.FieldNames,
	}

	if c.rejectNamedArguments(call) {
		return typesystem.Error{Name: decl.Name, Variant: variant.Name}
	}
	if len(call.Arguments) != len(variant.FieldTypes) {
		c.errorf(call.Callee.Span(), "error variant '%s.%s' expects %d arguments but %d provided",
			decl.Name, variant.Name, len(variant.FieldTypes), len(call.Arguments))
		c.checkArgumentsLoosely(call)
		return typesystem.Error{Name: decl.Name, Variant: variant.Name}
	}
	for i, arg := range call.Arguments {
		argType := c.checkExpression(arg.Expression)
		if !typesystem.AssignableTo(argType, variant.FieldTypes[i]) {
			c.errorf(arg.Expression.Span(), "argument %d to '%s.%s': expected %s, found %s",
				i+1, decl.Name, variant.Name, variant.FieldTypes[i], argType)
		}
	}
	return typesystem.Error{Name: decl.Name, Variant: variant.Name}
}

// recordThrows routes a callee's declared error union to the nearest `try`,
// or reports the unhandled union.
func (c *Checker) recordThrows(call *ast.CallExpression, errors *ErrorSet) {
	if errors == nil || errors.IsEmpty() {
		return
	}
	if c.throwSink != nil {
		c.throwSink.Union(errors)
		return
	}
	c.errorf(call.Callee.Span(), "call can fail with {%s}; handle it with `try` or `catch`", errors)
}
