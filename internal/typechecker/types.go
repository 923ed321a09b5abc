package typechecker

import (
	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typesystem"
)

// resolveType converts a parsed annotation into a typesystem.Type. The
// typeParams set holds the generic parameter names in scope.
func (c *Checker) resolveType(te *ast.TypeExpression, typeParams map[string]bool) typesystem.Type {
	if te == nil {
		return typesystem.Unknown{}
	}

	switch te.Kind {
	case ast.TypeName:
		return c.resolveTypeName(te, typeParams)
	case ast.TypeOptional:
		inner := c.resolveType(te.Args[0], typeParams)
		if typesystem.IsUnknown(inner) {
			return typesystem.Unknown{}
		}
		return typesystem.Optional{Inner: inner}
	case ast.TypeList:
		element := c.resolveType(te.Args[0], typeParams)
		return typesystem.List{Element: element}
	case ast.TypeDict:
		key := c.resolveType(te.Args[0], typeParams)
		if !typesystem.Equals(key, typesystem.String) && !typesystem.IsUnknown(key) {
			c.errorf(te.Args[0].Span, "dict keys must be String, found %s", key)
		}
		value := c.resolveType(te.Args[1], typeParams)
		return typesystem.Dict{Value: value}
	case ast.TypeFunc:
		params := make([]typesystem.Type, len(te.Params))
		for i, p := range te.Params {
			params[i] = c.resolveType(p, typeParams)
		}
		result := c.resolveType(te.Result, typeParams)
		return typesystem.Function{Params: params, Result: result}
	case ast.TypeGeneric:
		decl, ok := c.structs[te.Name]
		if !ok {
			c.errorf(te.Span, "unknown type '%s'", te.Name)
			return typesystem.Unknown{}
		}
		if len(te.Args) != len(decl.TypeParams) {
			c.errorf(te.Span, "struct '%s' expects %d type arguments but %d provided",
				te.Name, len(decl.TypeParams), len(te.Args))
			return typesystem.Unknown{}
		}
		args := make([]typesystem.Type, len(te.Args))
		for i, a := range te.Args {
			args[i] = c.resolveType(a, typeParams)
		}
		return typesystem.Struct{Name: te.Name, TypeArgs: args}
	}
	return typesystem.Unknown{}
}

func (c *Checker) resolveTypeName(te *ast.TypeExpression, typeParams map[string]bool) typesystem.Type {
	switch te.Name {
	case "Bool":
		return typesystem.Bool
	case "Int":
		return typesystem.Int
	case "Float":
		return typesystem.Float
	case "String":
		return typesystem.String
	case "Nil":
		return typesystem.Nil
	case "Void":
		return typesystem.Void
	}
	if typeParams != nil && typeParams[te.Name] {
		return typesystem.GenericParameter{Name: te.Name}
	}
	if c.fn != nil && c.fn.typeParams[te.Name] {
		return typesystem.GenericParameter{Name: te.Name}
	}
	if decl, ok := c.structs[te.Name]; ok {
		if len(decl.TypeParams) > 0 {
			c.errorf(te.Span, "struct '%s' expects %d type arguments but 0 provided",
				te.Name, len(decl.TypeParams))
			return typesystem.Unknown{}
		}
		return typesystem.Struct{Name: te.Name}
	}
	if _, ok := c.enums[te.Name]; ok {
		return typesystem.Enum{Name: te.Name}
	}
	if _, ok := c.errors[te.Name]; ok {
		return typesystem.Error{Name: te.Name}
	}
	if _, ok := c.unions[te.Name]; ok {
		c.errorf(te.Span, "union types are reserved and cannot be used yet")
		return typesystem.Unknown{}
	}
	c.errorf(te.Span, "unknown type '%s'", te.Name)
	return typesystem.Unknown{}
}

// resolveErrorVariantType handles dotted `is ErrorName.Variant` patterns,
// which the annotation grammar parses as a plain name followed by a member
// chain flattened into "E.V".
func (c *Checker) resolveErrorVariantType(name, variant string, span ast.SourceSpan) typesystem.Type {
	decl, ok := c.errors[name]
	if !ok {
		c.errorf(span, "unknown error type '%s'", name)
		return typesystem.Unknown{}
	}
	if decl.variant(variant) == nil {
		c.errorf(span, "error '%s' has no variant '%s'", name, variant)
		return typesystem.Unknown{}
	}
	return typesystem.Error{Name: name, Variant: variant}
}

// stdlibType maps a registry StdType onto the full type model. Any maps to
// Unknown, which the checker treats as "accept everything".
func stdlibType(t stdlib.StdType) typesystem.Type {
	switch t {
	case stdlib.Bool:
		return typesystem.Bool
	case stdlib.Int:
		return typesystem.Int
	case stdlib.Float:
		return typesystem.Float
	case stdlib.String:
		return typesystem.String
	case stdlib.List:
		return typesystem.List{Element: typesystem.Unknown{}}
	case stdlib.Dict:
		return typesystem.Dict{Value: typesystem.Unknown{}}
	case stdlib.Nil:
		return typesystem.Nil
	case stdlib.Void:
		return typesystem.Void
	default:
		return typesystem.Unknown{}
	}
}

// stdlibReturnType refines a few registry entries whose coarse table type
// loses information.
func stdlibReturnType(fn *stdlib.Function) typesystem.Type {
	switch fn.Kind {
	case stdlib.IoReadLine:
		return typesystem.Optional{Inner: typesystem.String}
	case stdlib.FsListDir, stdlib.FsWalk, stdlib.FsGlob, stdlib.PathComponents,
		stdlib.StringSplit, stdlib.ArgsAll, stdlib.CliArgs:
		return typesystem.List{Element: typesystem.String}
	case stdlib.EnvVars:
		return typesystem.Dict{Value: typesystem.String}
	default:
		return stdlibType(fn.ReturnType)
	}
}

// stdlibParamAccepts checks one argument against a registry parameter type.
func stdlibParamAccepts(param stdlib.StdType, arg typesystem.Type) bool {
	if typesystem.IsUnknown(arg) {
		return true
	}
	switch param {
	case stdlib.Any:
		return true
	case stdlib.List:
		_, ok := arg.(typesystem.List)
		return ok
	case stdlib.Dict:
		_, ok := arg.(typesystem.Dict)
		return ok
	case stdlib.Struct:
		_, ok := arg.(typesystem.Struct)
		return ok
	default:
		return typesystem.Equals(stdlibType(param), arg)
	}
}
