// Package value defines the VM's runtime values. Scalars are carried
// inline; strings, collections, structs, closures, and error values are
// shared by reference, so mutation through one holder is visible to every
// other.
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind identifies the payload of a Value.
type Kind uint8

const (
	NilKind Kind = iota
	VoidKind
	IntKind
	FloatKind
	BoolKind
	StringKind
	FunctionKind
	ClosureKind
	ListKind
	DictKind
	StructKind
	EnumKind
	ErrorKind
)

// Value is a tagged union. Data stores int64 bits, float64 bits, a bool
// (0/1), or a function index; Obj holds heap payloads.
type Value struct {
	Kind Kind
	Data uint64
	Obj  interface{}
}

// Constructors

func Nil() Value            { return Value{Kind: NilKind} }
func Void() Value           { return Value{Kind: VoidKind} }
func Int(v int64) Value     { return Value{Kind: IntKind, Data: uint64(v)} }
func Float(v float64) Value { return Value{Kind: FloatKind, Data: math.Float64bits(v)} }

func Bool(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Kind: BoolKind, Data: data}
}

func String(v string) Value        { return Value{Kind: StringKind, Obj: v} }
func Function(index int) Value     { return Value{Kind: FunctionKind, Data: uint64(index)} }
func NewList(l *List) Value        { return Value{Kind: ListKind, Obj: l} }
func NewDict(d *Dict) Value        { return Value{Kind: DictKind, Obj: d} }
func NewStruct(s *Struct) Value    { return Value{Kind: StructKind, Obj: s} }
func NewClosure(c *Closure) Value  { return Value{Kind: ClosureKind, Obj: c} }
func NewEnum(v *EnumVariant) Value { return Value{Kind: EnumKind, Obj: v} }
func NewError(e *ErrorValue) Value { return Value{Kind: ErrorKind, Obj: e} }

// Accessors

func (v Value) AsInt() int64     { return int64(v.Data) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsBool() bool     { return v.Data == 1 }

func (v Value) AsString() string {
	s, _ := v.Obj.(string)
	return s
}

func (v Value) AsFunction() int        { return int(v.Data) }
func (v Value) AsList() *List          { l, _ := v.Obj.(*List); return l }
func (v Value) AsDict() *Dict          { d, _ := v.Obj.(*Dict); return d }
func (v Value) AsStruct() *Struct      { s, _ := v.Obj.(*Struct); return s }
func (v Value) AsClosure() *Closure    { c, _ := v.Obj.(*Closure); return c }
func (v Value) AsEnum() *EnumVariant   { e, _ := v.Obj.(*EnumVariant); return e }
func (v Value) AsError() *ErrorValue   { e, _ := v.Obj.(*ErrorValue); return e }

func (v Value) IsNil() bool  { return v.Kind == NilKind }
func (v Value) IsVoid() bool { return v.Kind == VoidKind }

// IsTruthy follows the language rule: nil and void are falsy, booleans are
// themselves, everything else is truthy.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case NilKind, VoidKind:
		return false
	case BoolKind:
		return v.Data == 1
	default:
		return true
	}
}

// Heap payloads

// List is a mutable shared list.
type List struct {
	Elements []Value
}

// Dict is a mutable shared string-keyed map.
type Dict struct {
	Entries map[string]Value
}

// SortedKeys returns the keys in lexical order, for deterministic display.
func (d *Dict) SortedKeys() []string {
	keys := make([]string, 0, len(d.Entries))
	for key := range d.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// StructTemplate is a struct's shape: name plus ordered field names.
type StructTemplate struct {
	Name       string
	FieldNames []string
}

// FieldIndex returns the position of a named field, or -1.
func (t *StructTemplate) FieldIndex(name string) int {
	for i, fieldName := range t.FieldNames {
		if fieldName == name {
			return i
		}
	}
	return -1
}

// Struct is an instance: its template plus ordered field values.
type Struct struct {
	Template *StructTemplate
	Fields   []Value
}

// Closure pairs a function index with its captured values.
type Closure struct {
	FunctionIndex int
	Captures      []Value
}

// EnumVariant is a nullary enum constant. Marker instances live in constant
// pools and are shared.
type EnumVariant struct {
	EnumName    string
	VariantName string
	Ordinal     int
}

// ErrorValue is a thrown (or caught) error: its variant identity plus
// payload fields. A payload-less marker doubles as the constant-pool
// template from which instances are built.
type ErrorValue struct {
	ErrorName   string
	VariantName string
	Ordinal     int
	FieldNames  []string
	Fields      []Value
}

// Path renders the full ErrorName.VariantName path.
func (e *ErrorValue) Path() string {
	return e.ErrorName + "." + e.VariantName
}

// Field returns a payload field by name.
func (e *ErrorValue) Field(name string) (Value, bool) {
	for i, fieldName := range e.FieldNames {
		if fieldName == name && i < len(e.Fields) {
			return e.Fields[i], true
		}
	}
	return Nil(), false
}

// Equals implements language equality: scalars by value, collections and
// closures by identity, enum variants by (enum, variant, ordinal).
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case NilKind, VoidKind:
		return true
	case IntKind, BoolKind, FunctionKind:
		return v.Data == other.Data
	case FloatKind:
		return v.AsFloat() == other.AsFloat()
	case StringKind:
		return v.AsString() == other.AsString()
	case EnumKind:
		a, b := v.AsEnum(), other.AsEnum()
		return a.EnumName == b.EnumName && a.VariantName == b.VariantName && a.Ordinal == b.Ordinal
	default:
		return v.Obj == other.Obj
	}
}

// TypeName backs the type_of intrinsic.
func (v Value) TypeName() string {
	switch v.Kind {
	case NilKind:
		return "Nil"
	case VoidKind:
		return "Void"
	case IntKind:
		return "Int"
	case FloatKind:
		return "Float"
	case BoolKind:
		return "Bool"
	case StringKind:
		return "String"
	case FunctionKind, ClosureKind:
		return "Function"
	case ListKind:
		return "List"
	case DictKind:
		return "Dict"
	case StructKind:
		if s := v.AsStruct(); s != nil {
			return s.Template.Name
		}
		return "Struct"
	case EnumKind:
		if e := v.AsEnum(); e != nil {
			return e.EnumName
		}
		return "Enum"
	case ErrorKind:
		if e := v.AsError(); e != nil {
			return e.ErrorName
		}
		return "Error"
	default:
		return "Unknown"
	}
}

// Inspect renders the value the way print shows it.
func (v Value) Inspect() string {
	switch v.Kind {
	case NilKind:
		return "nil"
	case VoidKind:
		return "void"
	case IntKind:
		return fmt.Sprintf("%d", v.AsInt())
	case FloatKind:
		return formatFloat(v.AsFloat())
	case BoolKind:
		return fmt.Sprintf("%t", v.AsBool())
	case StringKind:
		return v.AsString()
	case FunctionKind:
		return "<function>"
	case ClosureKind:
		return "<closure>"
	case ListKind:
		list := v.AsList()
		parts := make([]string, len(list.Elements))
		for i, element := range list.Elements {
			parts[i] = element.Inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case DictKind:
		dict := v.AsDict()
		keys := dict.SortedKeys()
		parts := make([]string, len(keys))
		for i, key := range keys {
			parts[i] = key + ": " + dict.Entries[key].Inspect()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case StructKind:
		s := v.AsStruct()
		parts := make([]string, len(s.Fields))
		for i, field := range s.Fields {
			parts[i] = s.Template.FieldNames[i] + ": " + field.Inspect()
		}
		return s.Template.Name + "(" + strings.Join(parts, ", ") + ")"
	case EnumKind:
		e := v.AsEnum()
		return e.EnumName + "." + e.VariantName
	case ErrorKind:
		e := v.AsError()
		if len(e.Fields) == 0 {
			return e.Path()
		}
		parts := make([]string, len(e.Fields))
		for i, field := range e.Fields {
			parts[i] = e.FieldNames[i] + ": " + field.Inspect()
		}
		return e.Path() + "(" + strings.Join(parts, ", ") + ")"
	default:
		return "<?>"
	}
}

func formatFloat(f float64) string {
	formatted := fmt.Sprintf("%g", f)
	return formatted
}
