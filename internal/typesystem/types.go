// Package typesystem defines Tea's closed static type model.
package typesystem

import (
	"fmt"
	"strings"
)

// Type is implemented by every Tea type.
type Type interface {
	String() string
	typeNode()
}

// Primitive is one of the built-in scalar types.
type Primitive struct {
	Name string
}

func (t Primitive) String() string { return t.Name }
func (t Primitive) typeNode()      {}

var (
	Bool   = Primitive{Name: "Bool"}
	Int    = Primitive{Name: "Int"}
	Float  = Primitive{Name: "Float"}
	String = Primitive{Name: "String"}
	Nil    = Primitive{Name: "Nil"}
	Void   = Primitive{Name: "Void"}
)

// Optional is T?.
type Optional struct {
	Inner Type
}

func (t Optional) String() string { return t.Inner.String() + "?" }
func (t Optional) typeNode()      {}

// List is List[T].
type List struct {
	Element Type
}

func (t List) String() string { return "List[" + t.Element.String() + "]" }
func (t List) typeNode()      {}

// Dict is Dict[String, V]. Keys are always strings.
type Dict struct {
	Value Type
}

func (t Dict) String() string { return "Dict[String, " + t.Value.String() + "]" }
func (t Dict) typeNode()      {}

// Function is Func(P, ...) -> R.
type Function struct {
	Params []Type
	Result Type
}

func (t Function) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("Func(%s) -> %s", strings.Join(params, ", "), t.Result.String())
}
func (t Function) typeNode() {}

// Struct is a declared struct, possibly instantiated with type arguments.
type Struct struct {
	Name     string
	TypeArgs []Type
}

func (t Struct) String() string {
	if len(t.TypeArgs) == 0 {
		return t.Name
	}
	args := make([]string, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		args[i] = a.String()
	}
	return t.Name + "[" + strings.Join(args, ", ") + "]"
}
func (t Struct) typeNode() {}

// Enum is a declared enum type.
type Enum struct {
	Name string
}

func (t Enum) String() string { return t.Name }
func (t Enum) typeNode()      {}

// Union is a declared union type. Unions are reserved; the checker rejects
// their use.
type Union struct {
	Name string
}

func (t Union) String() string { return t.Name }
func (t Union) typeNode()      {}

// Error is a declared error type, optionally narrowed to one variant.
type Error struct {
	Name    string
	Variant string // empty when the whole error type is meant
}

func (t Error) String() string {
	if t.Variant == "" {
		return t.Name
	}
	return t.Name + "." + t.Variant
}
func (t Error) typeNode() {}

// GenericParameter is a user-declared type parameter; Name preserves the
// user's spelling for diagnostics.
type GenericParameter struct {
	Name string
}

func (t GenericParameter) String() string { return t.Name }
func (t GenericParameter) typeNode()      {}

// Unknown is the internal placeholder produced while recovering from type
// errors. It never escapes the type checker.
type Unknown struct{}

func (t Unknown) String() string { return "Unknown" }
func (t Unknown) typeNode()      {}

// IsUnknown reports whether t is the internal error placeholder.
func IsUnknown(t Type) bool {
	_, ok := t.(Unknown)
	return ok
}

// Equals reports structural equality of two types.
func Equals(a, b Type) bool {
	switch at := a.(type) {
	case Primitive:
		bt, ok := b.(Primitive)
		return ok && at.Name == bt.Name
	case Optional:
		bt, ok := b.(Optional)
		return ok && Equals(at.Inner, bt.Inner)
	case List:
		bt, ok := b.(List)
		return ok && Equals(at.Element, bt.Element)
	case Dict:
		bt, ok := b.(Dict)
		return ok && Equals(at.Value, bt.Value)
	case Function:
		bt, ok := b.(Function)
		if !ok || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Equals(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return Equals(at.Result, bt.Result)
	case Struct:
		bt, ok := b.(Struct)
		if !ok || at.Name != bt.Name || len(at.TypeArgs) != len(bt.TypeArgs) {
			return false
		}
		for i := range at.TypeArgs {
			if !Equals(at.TypeArgs[i], bt.TypeArgs[i]) {
				return false
			}
		}
		return true
	case Enum:
		bt, ok := b.(Enum)
		return ok && at.Name == bt.Name
	case Union:
		bt, ok := b.(Union)
		return ok && at.Name == bt.Name
	case Error:
		bt, ok := b.(Error)
		return ok && at.Name == bt.Name && at.Variant == bt.Variant
	case GenericParameter:
		bt, ok := b.(GenericParameter)
		return ok && at.Name == bt.Name
	case Unknown:
		_, ok := b.(Unknown)
		return ok
	}
	return false
}

// AssignableTo reports whether a value of type `from` may be bound where
// `to` is expected. There is no implicit numeric coercion; Nil is
// assignable to any Optional, and T is assignable to T?.
func AssignableTo(from, to Type) bool {
	if IsUnknown(from) || IsUnknown(to) {
		// Recovery: an Unknown operand never produces a second diagnostic.
		return true
	}
	if Equals(from, to) {
		return true
	}
	if opt, ok := to.(Optional); ok {
		if Equals(from, Nil) {
			return true
		}
		if Equals(from, opt.Inner) {
			return true
		}
		if fromOpt, ok := from.(Optional); ok {
			return Equals(fromOpt.Inner, opt.Inner)
		}
		return AssignableTo(from, opt.Inner)
	}
	// A narrowed error variant is assignable where its error type is
	// expected.
	if toErr, ok := to.(Error); ok && toErr.Variant == "" {
		if fromErr, ok := from.(Error); ok {
			return fromErr.Name == toErr.Name
		}
	}
	return false
}

// Substitute replaces generic parameters by the given bindings.
func Substitute(t Type, bindings map[string]Type) Type {
	switch tt := t.(type) {
	case GenericParameter:
		if bound, ok := bindings[tt.Name]; ok {
			return bound
		}
		return tt
	case Optional:
		return Optional{Inner: Substitute(tt.Inner, bindings)}
	case List:
		return List{Element: Substitute(tt.Element, bindings)}
	case Dict:
		return Dict{Value: Substitute(tt.Value, bindings)}
	case Function:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = Substitute(p, bindings)
		}
		return Function{Params: params, Result: Substitute(tt.Result, bindings)}
	case Struct:
		if len(tt.TypeArgs) == 0 {
			return tt
		}
		args := make([]Type, len(tt.TypeArgs))
		for i, a := range tt.TypeArgs {
			args[i] = Substitute(a, bindings)
		}
		return Struct{Name: tt.Name, TypeArgs: args}
	default:
		return t
	}
}

// NonNil strips one Optional layer, if present.
func NonNil(t Type) Type {
	if opt, ok := t.(Optional); ok {
		return opt.Inner
	}
	return t
}

// Unify merges the types of two branches that must agree (match arms,
// coalesce operands). It returns the common type and whether one exists.
func Unify(a, b Type) (Type, bool) {
	if IsUnknown(a) {
		return b, true
	}
	if IsUnknown(b) {
		return a, true
	}
	if Equals(a, b) {
		return a, true
	}
	if Equals(a, Nil) {
		if opt, ok := b.(Optional); ok {
			return opt, true
		}
		return Optional{Inner: b}, true
	}
	if Equals(b, Nil) {
		if opt, ok := a.(Optional); ok {
			return opt, true
		}
		return Optional{Inner: a}, true
	}
	if aOpt, ok := a.(Optional); ok && Equals(aOpt.Inner, b) {
		return aOpt, true
	}
	if bOpt, ok := b.(Optional); ok && Equals(bOpt.Inner, a) {
		return bOpt, true
	}
	// Two variants of one error type unify to the error type itself.
	if aErr, aOk := a.(Error); aOk {
		if bErr, bOk := b.(Error); bOk && aErr.Name == bErr.Name {
			return Error{Name: aErr.Name}, true
		}
	}
	return Unknown{}, false
}
