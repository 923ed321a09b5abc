// Package typechecker performs static type checking over the resolved AST:
// scalar and container types, generics, optionals with flow-sensitive
// refinement, error-union return types, and match exhaustiveness.
package typechecker

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typesystem"
)

// CallKind classifies a call site for the bytecode compiler.
type CallKind int

const (
	// CallValue calls a first-class function value (user function, lambda).
	CallValue CallKind = iota
	// CallBuiltin dispatches to an intrinsic.
	CallBuiltin
	// CallStruct constructs a struct instance.
	CallStruct
	// CallError constructs an error value.
	CallError
)

// CallInfo is the checker's annotation for one call expression.
type CallInfo struct {
	Kind    CallKind
	Builtin stdlib.FunctionKind

	StructName string
	Named      bool

	ErrorName   string
	VariantName string
	Ordinal     int
	FieldNames  []string
}

// MemberKind classifies a member access for the compiler.
type MemberKind int

const (
	// MemberField reads a struct field.
	MemberField = iota
	// MemberEnumVariant references an enum constant.
	MemberEnumVariant
	// MemberErrorVariant references an error variant constructor.
	MemberErrorVariant
	// MemberModuleFunction references a stdlib module function (callee
	// position only).
	MemberModuleFunction
	// MemberModuleExport references an export of a user module.
	MemberModuleExport
)

// MemberInfo is the checker's annotation for one member expression.
type MemberInfo struct {
	Kind  MemberKind
	Field string

	EnumName    string
	VariantName string
	Ordinal     int

	Builtin stdlib.FunctionKind

	// Export is the qualified global name ("alias.name") of a user-module
	// export.
	Export string
}

// StructDecl is an ordered struct template exported to the compiler.
type StructDecl struct {
	Name       string
	TypeParams []string
	FieldNames []string
	FieldTypes []typesystem.Type
}

// EnumDecl is an enum's ordered variant list.
type EnumDecl struct {
	Name     string
	Variants []string
}

// ErrorVariantDecl is one declared error variant.
type ErrorVariantDecl struct {
	Name       string
	Ordinal    int
	FieldNames []string
	FieldTypes []typesystem.Type
}

// ErrorDecl is a declared error type.
type ErrorDecl struct {
	Name     string
	Variants []*ErrorVariantDecl
}

func (d *ErrorDecl) variant(name string) *ErrorVariantDecl {
	for _, v := range d.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// FuncParam is one parameter of a checked function signature.
type FuncParam struct {
	Name       string
	Type       typesystem.Type
	HasDefault bool
}

// FuncDecl is a checked function signature.
type FuncDecl struct {
	Name       string
	Public     bool
	TypeParams []string
	Params     []FuncParam
	Result     typesystem.Type
	Errors     *ErrorSet
}

// ModuleExports is the checked public surface of an imported user module,
// supplied by the module loader.
type ModuleExports struct {
	Path      string
	Functions map[string]*FuncDecl
	Consts    map[string]typesystem.Type
}

// Info is the annotation table the compiler consumes. Entries are keyed by
// AST node identity.
type Info struct {
	Types   map[ast.Expression]typesystem.Type
	Calls   map[*ast.CallExpression]*CallInfo
	Members map[*ast.MemberExpression]*MemberInfo

	Structs []*StructDecl
	Enums   map[string]*EnumDecl
	Errors  map[string]*ErrorDecl

	// UserModules maps alias to the imported module's exports, for the
	// compiler's cross-module linking.
	UserModules map[string]*ModuleExports
}

type envEntry struct {
	declared typesystem.Type
	current  typesystem.Type
}

type functionContext struct {
	name       string
	result     typesystem.Type
	errors     *ErrorSet
	typeParams map[string]bool
}

type Checker struct {
	diags *diagnostics.Diagnostics
	info  *Info

	structs map[string]*StructDecl
	enums   map[string]*EnumDecl
	errors  map[string]*ErrorDecl
	unions  map[string]ast.SourceSpan
	funcs   map[string]*FuncDecl

	stdAliases  map[string]*stdlib.Module
	userAliases map[string]*ModuleExports

	// Imports resolves relative module paths; nil outside the full
	// pipeline.
	Imports map[string]*ModuleExports

	scopes []map[string]*envEntry

	fn *functionContext
	// throwSink collects the error union of calls under the nearest `try`;
	// nil means throwing calls are not allowed here.
	throwSink *ErrorSet
	loopDepth int
}

func New() *Checker {
	return &Checker{
		diags: diagnostics.New(),
		info: &Info{
			Types:       make(map[ast.Expression]typesystem.Type),
			Calls:       make(map[*ast.CallExpression]*CallInfo),
			Members:     make(map[*ast.MemberExpression]*MemberInfo),
			Enums:       make(map[string]*EnumDecl),
			Errors:      make(map[string]*ErrorDecl),
			UserModules: make(map[string]*ModuleExports),
		},
		structs:     make(map[string]*StructDecl),
		enums:       make(map[string]*EnumDecl),
		errors:      make(map[string]*ErrorDecl),
		unions:      make(map[string]ast.SourceSpan),
		funcs:       make(map[string]*FuncDecl),
		stdAliases:  make(map[string]*stdlib.Module),
		userAliases: make(map[string]*ModuleExports),
	}
}

// Check type-checks the module and returns the annotation table plus all
// collected diagnostics.
func Check(module *ast.Module) (*Info, *diagnostics.Diagnostics) {
	return CheckWithImports(module, nil)
}

// CheckWithImports supplies pre-checked user-module exports for relative
// imports.
func CheckWithImports(module *ast.Module, imports map[string]*ModuleExports) (*Info, *diagnostics.Diagnostics) {
	c := New()
	c.Imports = imports
	return c.CheckModule(module)
}

// CheckModule runs the check on an existing Checker, so callers can pull
// the module's exports out afterwards.
func (c *Checker) CheckModule(module *ast.Module) (*Info, *diagnostics.Diagnostics) {
	c.pushScope()
	c.collectDeclarations(module)
	c.checkStatements(module.Statements)
	c.popScope()
	c.info.Enums = c.enums
	c.info.Errors = c.errors
	return c.info, c.diags
}

// Exports extracts the public surface of a checked module for use by
// importers.
func (c *Checker) Exports() *ModuleExports {
	exports := &ModuleExports{
		Functions: make(map[string]*FuncDecl),
		Consts:    make(map[string]typesystem.Type),
	}
	for name, decl := range c.funcs {
		if decl.Public {
			exports.Functions[name] = decl
		}
	}
	return exports
}

func (c *Checker) errorf(span ast.SourceSpan, format string, args ...interface{}) {
	c.diags.PushError(fmt.Sprintf(format, args...), span)
}

func (c *Checker) warnf(span ast.SourceSpan, format string, args ...interface{}) {
	c.diags.PushWarning(fmt.Sprintf(format, args...), span)
}

// collectDeclarations gathers struct/error/enum/union shapes and function
// signatures before any body is checked. Type declarations are collected in
// source order, so a struct field or error payload type may only name a type
// declared above it; function signatures may name any declared type.
func (c *Checker) collectDeclarations(module *ast.Module) {
	for _, stmt := range module.Statements {
		switch s := stmt.(type) {
		case *ast.StructStatement:
			c.collectStruct(s)
		case *ast.ErrorStatement:
			c.collectError(s)
		case *ast.EnumStatement:
			c.collectEnum(s)
		case *ast.UnionStatement:
			c.unions[s.Name] = s.NameSpan
		case *ast.UseStatement:
			c.collectUse(s)
		}
	}
	// Function signatures may mention structs/enums, so they resolve after
	// type declarations.
	for _, stmt := range module.Statements {
		if s, ok := stmt.(*ast.FunctionStatement); ok {
			c.collectFunction(s)
		}
	}
}

func (c *Checker) collectUse(stmt *ast.UseStatement) {
	if module := stdlib.FindModule(stmt.ModulePath); module != nil {
		c.stdAliases[stmt.Alias] = module
		return
	}
	if c.Imports != nil {
		if exports, ok := c.Imports[stmt.ModulePath]; ok {
			c.userAliases[stmt.Alias] = exports
			c.info.UserModules[stmt.Alias] = exports
		}
	}
}

func (c *Checker) collectStruct(stmt *ast.StructStatement) {
	decl := &StructDecl{Name: stmt.Name}
	for _, tp := range stmt.TypeParameters {
		decl.TypeParams = append(decl.TypeParams, tp.Name)
	}
	params := make(map[string]bool, len(decl.TypeParams))
	for _, name := range decl.TypeParams {
		params[name] = true
	}
	for _, field := range stmt.Fields {
		decl.FieldNames = append(decl.FieldNames, field.Name)
		decl.FieldTypes = append(decl.FieldTypes, c.resolveType(field.TypeAnnotation, params))
	}
	c.structs[stmt.Name] = decl
	c.info.Structs = append(c.info.Structs, decl)
}

func (c *Checker) collectError(stmt *ast.ErrorStatement) {
	decl := &ErrorDecl{Name: stmt.Name}
	for ordinal, variant := range stmt.Variants {
		v := &ErrorVariantDecl{Name: variant.Name, Ordinal: ordinal}
		for _, field := range variant.Fields {
			v.FieldNames = append(v.FieldNames, field.Name)
			v.FieldTypes = append(v.FieldTypes, c.resolveType(field.TypeAnnotation, nil))
		}
		decl.Variants = append(decl.Variants, v)
	}
	c.errors[stmt.Name] = decl
}

func (c *Checker) collectEnum(stmt *ast.EnumStatement) {
	decl := &EnumDecl{Name: stmt.Name}
	for _, variant := range stmt.Variants {
		decl.Variants = append(decl.Variants, variant.Name)
	}
	c.enums[stmt.Name] = decl
}

func (c *Checker) collectFunction(stmt *ast.FunctionStatement) {
	decl := &FuncDecl{Name: stmt.Name, Public: stmt.IsPublic, Errors: NewErrorSet()}
	params := make(map[string]bool)
	for _, tp := range stmt.TypeParameters {
		decl.TypeParams = append(decl.TypeParams, tp.Name)
		params[tp.Name] = true
	}
	for _, param := range stmt.Parameters {
		var paramType typesystem.Type = typesystem.Unknown{}
		if param.TypeAnnotation != nil {
			paramType = c.resolveType(param.TypeAnnotation, params)
		} else {
			c.errorf(param.Span, "parameter '%s' is missing a type annotation", param.Name)
		}
		decl.Params = append(decl.Params, FuncParam{
			Name:       param.Name,
			Type:       paramType,
			HasDefault: param.DefaultValue != nil,
		})
	}
	if stmt.ReturnType != nil {
		decl.Result = c.resolveType(stmt.ReturnType, params)
	} else {
		decl.Result = typesystem.Void
	}
	for _, ref := range stmt.ErrorSet {
		errDecl, ok := c.errors[ref.ErrorName]
		if !ok {
			c.errorf(ref.Span, "unknown error type '%s'", ref.ErrorName)
			continue
		}
		if errDecl.variant(ref.VariantName) == nil {
			c.errorf(ref.Span, "error '%s' has no variant '%s'", ref.ErrorName, ref.VariantName)
			continue
		}
		decl.Errors.Add(ref.ErrorName, ref.VariantName)
	}
	c.funcs[stmt.Name] = decl
}

// --- scope machinery ---

func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, make(map[string]*envEntry))
}

func (c *Checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Checker) bind(name string, declared typesystem.Type) {
	c.scopes[len(c.scopes)-1][name] = &envEntry{declared: declared, current: declared}
}

func (c *Checker) lookup(name string) *envEntry {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if entry, ok := c.scopes[i][name]; ok {
			return entry
		}
	}
	return nil
}

// refine narrows the binding's current type in place; the narrowing holds
// until the binding is reassigned or its block ends. Refinements write an
// overlay entry into the innermost scope so they expire with it.
func (c *Checker) refine(name string, narrowed typesystem.Type) {
	entry := c.lookup(name)
	if entry == nil {
		return
	}
	c.scopes[len(c.scopes)-1][name] = &envEntry{declared: entry.declared, current: narrowed}
}
