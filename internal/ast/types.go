package ast

// TypeExpressionKind tags a parsed type annotation.
type TypeExpressionKind int

const (
	// TypeName is a bare name: Bool, Int, String, a struct/enum/union name,
	// or a generic parameter.
	TypeName TypeExpressionKind = iota
	// TypeList is List[T].
	TypeList
	// TypeDict is Dict[String, V].
	TypeDict
	// TypeFunc is Func(P, ...) -> R.
	TypeFunc
	// TypeOptional is T?.
	TypeOptional
	// TypeGeneric is Name[T, ...].
	TypeGeneric
)

// TypeExpression is the parsed shape of a source type annotation. The type
// checker turns it into a typesystem.Type against the declared-type tables.
type TypeExpression struct {
	Kind TypeExpressionKind
	// Name for TypeName and TypeGeneric.
	Name string
	// Args: element type for TypeList, key/value for TypeDict, type
	// arguments for TypeGeneric, inner type for TypeOptional.
	Args []*TypeExpression
	// Params and Result for TypeFunc.
	Params []*TypeExpression
	Result *TypeExpression
	Span   SourceSpan
}
