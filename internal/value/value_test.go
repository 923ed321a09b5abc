package value

import "testing"

func TestScalarEquality(t *testing.T) {
	if !Int(1).Equals(Int(1)) || Int(1).Equals(Int(2)) {
		t.Error("int equality broken")
	}
	if !String("a").Equals(String("a")) {
		t.Error("string equality broken")
	}
	if Int(1).Equals(Float(1)) {
		t.Error("no implicit numeric comparison across kinds")
	}
	if !Nil().Equals(Nil()) {
		t.Error("nil equals nil")
	}
}

// Collections compare by identity, not contents.
func TestCollectionIdentityEquality(t *testing.T) {
	a := NewList(&List{Elements: []Value{Int(1)}})
	b := NewList(&List{Elements: []Value{Int(1)}})
	if a.Equals(b) {
		t.Error("distinct lists must not compare equal")
	}
	if !a.Equals(a) {
		t.Error("a list equals itself")
	}
}

// Enum variants compare by (enum, variant, ordinal), even across instances.
func TestEnumEquality(t *testing.T) {
	a := NewEnum(&EnumVariant{EnumName: "Color", VariantName: "Red", Ordinal: 0})
	b := NewEnum(&EnumVariant{EnumName: "Color", VariantName: "Red", Ordinal: 0})
	c := NewEnum(&EnumVariant{EnumName: "Color", VariantName: "Blue", Ordinal: 2})
	if !a.Equals(b) {
		t.Error("same variant must compare equal")
	}
	if a.Equals(c) {
		t.Error("different variants must differ")
	}
}

func TestTruthiness(t *testing.T) {
	if Nil().IsTruthy() || Void().IsTruthy() || Bool(false).IsTruthy() {
		t.Error("nil/void/false are falsy")
	}
	if !Int(0).IsTruthy() || !String("").IsTruthy() {
		t.Error("zero and empty string are truthy")
	}
}

func TestInspect(t *testing.T) {
	cases := []struct {
		value    Value
		expected string
	}{
		{Int(42), "42"},
		{Float(2.5), "2.5"},
		{Bool(true), "true"},
		{Nil(), "nil"},
		{Void(), "void"},
		{String("tea"), "tea"},
		{NewList(&List{Elements: []Value{Int(1), String("a")}}), "[1, a]"},
		{NewEnum(&EnumVariant{EnumName: "Color", VariantName: "Red"}), "Color.Red"},
	}
	for _, tc := range cases {
		if got := tc.value.Inspect(); got != tc.expected {
			t.Errorf("Inspect(%v): expected %q, got %q", tc.value.Kind, tc.expected, got)
		}
	}
}

func TestDictInspectIsSorted(t *testing.T) {
	d := NewDict(&Dict{Entries: map[string]Value{
		"b": Int(2),
		"a": Int(1),
	}})
	if got := d.Inspect(); got != "{a: 1, b: 2}" {
		t.Errorf("expected sorted dict rendering, got %q", got)
	}
}

func TestStructInspectAndFields(t *testing.T) {
	template := &StructTemplate{Name: "Point", FieldNames: []string{"x", "y"}}
	p := NewStruct(&Struct{Template: template, Fields: []Value{Int(1), Int(2)}})
	if got := p.Inspect(); got != "Point(x: 1, y: 2)" {
		t.Errorf("unexpected struct rendering: %q", got)
	}
	if template.FieldIndex("y") != 1 || template.FieldIndex("z") != -1 {
		t.Error("field index lookup broken")
	}
}

func TestErrorValue(t *testing.T) {
	e := &ErrorValue{
		ErrorName:   "DataError",
		VariantName: "Missing",
		FieldNames:  []string{"path"},
		Fields:      []Value{String("a.txt")},
	}
	if e.Path() != "DataError.Missing" {
		t.Errorf("unexpected path: %q", e.Path())
	}
	field, ok := e.Field("path")
	if !ok || field.AsString() != "a.txt" {
		t.Error("payload field lookup broken")
	}
	if got := NewError(e).Inspect(); got != "DataError.Missing(path: a.txt)" {
		t.Errorf("unexpected rendering: %q", got)
	}
}

func TestTypeNames(t *testing.T) {
	if Int(1).TypeName() != "Int" || String("").TypeName() != "String" {
		t.Error("scalar type names broken")
	}
	template := &StructTemplate{Name: "Point"}
	if NewStruct(&Struct{Template: template}).TypeName() != "Point" {
		t.Error("struct type name should be the template name")
	}
}
