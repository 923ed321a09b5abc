package ast

// Module is the root of every parsed compilation unit: an ordered sequence
// of statements.
type Module struct {
	Statements []Statement
}

// Statement is implemented by every statement node.
type Statement interface {
	Span() SourceSpan
	statementNode()
}

// UseStatement imports another module under a mandatory alias.
// use fs = "std.fs"
type UseStatement struct {
	Alias      string
	AliasSpan  SourceSpan
	ModulePath string
	ModuleSpan SourceSpan
}

func (s *UseStatement) Span() SourceSpan { return s.AliasSpan.Union(s.ModuleSpan) }
func (s *UseStatement) statementNode()   {}

// VarBinding is one name introduced by a var/const statement.
type VarBinding struct {
	Name           string
	NameSpan       SourceSpan
	TypeAnnotation *TypeExpression
	Initializer    Expression
}

// VarStatement declares one or more bindings.
// var x = 1    const a = 1, b = 2
type VarStatement struct {
	IsConst   bool
	Bindings  []VarBinding
	Docstring string
	StmtSpan  SourceSpan
}

func (s *VarStatement) Span() SourceSpan { return s.StmtSpan }
func (s *VarStatement) statementNode()   {}

// TypeParameter is a declared generic parameter, e.g. T in def pair<T>(...).
type TypeParameter struct {
	Name string
	Span SourceSpan
}

// FunctionParameter is one declared parameter.
type FunctionParameter struct {
	Name           string
	Span           SourceSpan
	TypeAnnotation *TypeExpression
	DefaultValue   Expression
}

// ErrorVariantRef names one ErrorName.Variant item of an error union.
type ErrorVariantRef struct {
	ErrorName   string
	VariantName string
	Span        SourceSpan
}

// FunctionStatement declares a named function.
// def greet(name: String) -> String ... end
type FunctionStatement struct {
	IsPublic       bool
	Name           string
	NameSpan       SourceSpan
	TypeParameters []TypeParameter
	Parameters     []FunctionParameter
	ReturnType     *TypeExpression
	// ErrorSet lists the declared throwable variants after `!`, empty when
	// the function declares none.
	ErrorSet  []ErrorVariantRef
	Body      Block
	Docstring string
}

func (s *FunctionStatement) Span() SourceSpan { return s.NameSpan }
func (s *FunctionStatement) statementNode()   {}

// TestStatement declares a named test block.
// test "adds numbers" ... end
type TestStatement struct {
	Name      string
	NameSpan  SourceSpan
	Body      Block
	Docstring string
}

func (s *TestStatement) Span() SourceSpan { return s.NameSpan }
func (s *TestStatement) statementNode()   {}

// StructField is one declared struct field.
type StructField struct {
	Name           string
	Span           SourceSpan
	TypeAnnotation *TypeExpression
}

// StructStatement declares a struct with ordered fields.
type StructStatement struct {
	Name           string
	NameSpan       SourceSpan
	TypeParameters []TypeParameter
	Fields         []StructField
	Docstring      string
}

func (s *StructStatement) Span() SourceSpan { return s.NameSpan }
func (s *StructStatement) statementNode()   {}

// ErrorVariant is one declared variant of an error type, with optional
// payload fields.
type ErrorVariant struct {
	Name   string
	Span   SourceSpan
	Fields []StructField
}

// ErrorStatement declares an error type.
// error DataError { Missing(path: String) Permission }
type ErrorStatement struct {
	Name      string
	NameSpan  SourceSpan
	Variants  []ErrorVariant
	Docstring string
}

func (s *ErrorStatement) Span() SourceSpan { return s.NameSpan }
func (s *ErrorStatement) statementNode()   {}

// EnumStatement declares an enum of nullary named constants.
// enum Color { Red Green Blue }
type EnumStatement struct {
	Name      string
	NameSpan  SourceSpan
	Variants  []Identifier
	Docstring string
}

func (s *EnumStatement) Span() SourceSpan { return s.NameSpan }
func (s *EnumStatement) statementNode()   {}

// UnionArm is one type-tagged arm of a union declaration.
type UnionArm struct {
	Type *TypeExpression
	Span SourceSpan
}

// UnionStatement declares a union. Unions are reserved: the parser accepts
// them and the type checker rejects their use.
type UnionStatement struct {
	Name      string
	NameSpan  SourceSpan
	Arms      []UnionArm
	Docstring string
}

func (s *UnionStatement) Span() SourceSpan { return s.NameSpan }
func (s *UnionStatement) statementNode()   {}

// ConditionalKind distinguishes if from unless.
type ConditionalKind int

const (
	ConditionalIf ConditionalKind = iota
	ConditionalUnless
)

// ConditionalStatement is an if/unless with an optional else block.
type ConditionalStatement struct {
	Kind        ConditionalKind
	Condition   Expression
	Consequent  Block
	Alternative *Block
	StmtSpan    SourceSpan
}

func (s *ConditionalStatement) Span() SourceSpan { return s.StmtSpan }
func (s *ConditionalStatement) statementNode()   {}

// LoopKind distinguishes the three loop forms.
type LoopKind int

const (
	LoopFor LoopKind = iota
	LoopWhile
	LoopUntil
)

// LoopStatement covers for-of, while, and until loops. For for-of loops
// Bindings holds the loop names (one for lists/ranges, optionally two for
// dicts) and Iterable the iterated expression; for while/until loops
// Condition holds the guard.
type LoopStatement struct {
	Kind      LoopKind
	Bindings  []Identifier
	Iterable  Expression
	Condition Expression
	Body      Block
	StmtSpan  SourceSpan
}

func (s *LoopStatement) Span() SourceSpan { return s.StmtSpan }
func (s *LoopStatement) statementNode()   {}

// ReturnStatement returns from the enclosing function, optionally with a
// value.
type ReturnStatement struct {
	StmtSpan   SourceSpan
	Expression Expression
}

func (s *ReturnStatement) Span() SourceSpan { return s.StmtSpan }
func (s *ReturnStatement) statementNode()   {}

// BreakStatement exits the innermost loop.
type BreakStatement struct {
	StmtSpan SourceSpan
}

func (s *BreakStatement) Span() SourceSpan { return s.StmtSpan }
func (s *BreakStatement) statementNode()   {}

// ContinueStatement continues the innermost loop.
type ContinueStatement struct {
	StmtSpan SourceSpan
}

func (s *ContinueStatement) Span() SourceSpan { return s.StmtSpan }
func (s *ContinueStatement) statementNode()   {}

// ThrowStatement throws an error value.
// throw DataError.Missing(path)
type ThrowStatement struct {
	StmtSpan   SourceSpan
	Expression Expression
}

func (s *ThrowStatement) Span() SourceSpan { return s.StmtSpan }
func (s *ThrowStatement) statementNode()   {}

// ExpressionStatement wraps an expression evaluated for effect.
type ExpressionStatement struct {
	Expression Expression
}

func (s *ExpressionStatement) Span() SourceSpan {
	if s.Expression != nil {
		return s.Expression.Span()
	}
	return SourceSpan{}
}
func (s *ExpressionStatement) statementNode() {}

// Block is a sequence of statements closed by `end`.
type Block struct {
	Statements []Statement
}
