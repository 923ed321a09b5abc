package lexer

import (
	"strings"
	"testing"

	"github.com/funvibe/tea/internal/token"
)

func kinds(tokens []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func mustTokenize(t *testing.T, input string) []token.Token {
	t.Helper()
	tokens, diags := Tokenize(input)
	if diags.HasErrors() {
		t.Fatalf("unexpected lexer error: %v", diags.ErrorStrings())
	}
	return tokens
}

func TestBasicTokens(t *testing.T) {
	tokens := mustTokenize(t, "var x = 42")
	expected := []token.TokenType{token.VAR, token.IDENT, token.ASSIGN, token.INT, token.EOF}
	got := kinds(tokens)
	if len(got) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(got), got)
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("token %d: expected %s, got %s", i, want, got[i])
		}
	}
	if tokens[3].Literal.(int64) != 42 {
		t.Errorf("expected literal 42, got %v", tokens[3].Literal)
	}
}

func TestKeywordsAndOperators(t *testing.T) {
	tokens := mustTokenize(t, "def f(a: Int) -> Int ! { E.V } a ?? 1 end")
	expected := []token.TokenType{
		token.DEF, token.IDENT, token.LPAREN, token.IDENT, token.COLON, token.IDENT,
		token.RPAREN, token.ARROW, token.IDENT, token.BANG, token.LBRACE,
		token.IDENT, token.DOT, token.IDENT, token.RBRACE,
		token.IDENT, token.NULL_COALESCE, token.INT, token.END, token.EOF,
	}
	got := kinds(tokens)
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("token %d: expected %s, got %s", i, want, got[i])
		}
	}
}

func TestNewlinesCollapseToTokens(t *testing.T) {
	tokens := mustTokenize(t, "var a = 1\r\nvar b = 2\n")
	newlines := 0
	for _, tok := range tokens {
		if tok.Type == token.NEWLINE {
			newlines++
		}
	}
	if newlines != 2 {
		t.Fatalf("expected 2 newline tokens, got %d", newlines)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	tokens := mustTokenize(t, "var x\nvar y")
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Errorf("first token at %d:%d, expected 1:1", tokens[0].Line, tokens[0].Column)
	}
	// tokens: var x NEWLINE var y EOF
	if tokens[3].Line != 2 || tokens[3].Column != 1 {
		t.Errorf("second var at %d:%d, expected 2:1", tokens[3].Line, tokens[3].Column)
	}
	if tokens[4].Line != 2 || tokens[4].Column != 5 {
		t.Errorf("y at %d:%d, expected 2:5", tokens[4].Line, tokens[4].Column)
	}
}

func TestNumberSeparatorsAndFloats(t *testing.T) {
	tokens := mustTokenize(t, "1_000 3.14 2_0.5_0")
	if tokens[0].Literal.(int64) != 1000 {
		t.Errorf("expected 1000, got %v", tokens[0].Literal)
	}
	if tokens[1].Literal.(float64) != 3.14 {
		t.Errorf("expected 3.14, got %v", tokens[1].Literal)
	}
	if tokens[2].Literal.(float64) != 20.50 {
		t.Errorf("expected 20.5, got %v", tokens[2].Literal)
	}
}

func TestRangeDoesNotSwallowDots(t *testing.T) {
	tokens := mustTokenize(t, "0..10")
	expected := []token.TokenType{token.INT, token.DOT_DOT, token.INT, token.EOF}
	got := kinds(tokens)
	for i, want := range expected {
		if got[i] != want {
			t.Fatalf("expected %v, got %v", expected, got)
		}
	}

	tokens = mustTokenize(t, "0...10")
	if tokens[1].Type != token.ELLIPSIS {
		t.Fatalf("expected ellipsis, got %s", tokens[1].Type)
	}
}

func TestIntegerOverflowIsError(t *testing.T) {
	_, diags := Tokenize("99999999999999999999")
	if !diags.HasErrors() {
		t.Fatal("expected overflow error")
	}
	if !strings.Contains(diags.ErrorStrings()[0], "overflows Int") {
		t.Errorf("unexpected message: %s", diags.ErrorStrings()[0])
	}
}

func TestStringEscapes(t *testing.T) {
	tokens := mustTokenize(t, `"a\n\t\"b\\"`)
	if tokens[0].Lexeme != "a\n\t\"b\\" {
		t.Errorf("unexpected decoded string: %q", tokens[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, diags := Tokenize(`"abc`)
	if !diags.HasErrors() {
		t.Fatal("expected error")
	}
	if !strings.Contains(diags.ErrorStrings()[0], "unterminated string") {
		t.Errorf("unexpected message: %s", diags.ErrorStrings()[0])
	}
}

func TestNewlineInStringIsError(t *testing.T) {
	_, diags := Tokenize("\"ab\ncd\"")
	if !diags.HasErrors() {
		t.Fatal("expected error")
	}
	if !strings.Contains(diags.ErrorStrings()[0], "newline in string") {
		t.Errorf("unexpected message: %s", diags.ErrorStrings()[0])
	}
}

func TestLineAndDocComments(t *testing.T) {
	tokens := mustTokenize(t, "# plain comment\n## Documented thing  \nvar x = 1")
	var doc *token.Token
	for i := range tokens {
		if tokens[i].Type == token.DOC_COMMENT {
			doc = &tokens[i]
		}
	}
	if doc == nil {
		t.Fatal("expected a doc comment token")
	}
	if doc.Lexeme != "Documented thing" {
		t.Errorf("expected trimmed doc text, got %q", doc.Lexeme)
	}
}

func TestInterpolatedString(t *testing.T) {
	tokens := mustTokenize(t, "`a${x}b`")
	expected := []token.TokenType{
		token.INTERP_START, token.INTERP_SEGMENT, token.INTERP_EXPR_START,
		token.IDENT, token.INTERP_EXPR_END, token.INTERP_SEGMENT, token.INTERP_END,
		token.EOF,
	}
	got := kinds(tokens)
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("token %d: expected %s, got %s", i, want, got[i])
		}
	}
	if tokens[1].Lexeme != "a" || tokens[5].Lexeme != "b" {
		t.Errorf("unexpected segments: %q %q", tokens[1].Lexeme, tokens[5].Lexeme)
	}
}

func TestInterpolatedStringBracesInExpression(t *testing.T) {
	tokens := mustTokenize(t, "`v=${ {\"a\": 1}[\"a\"] }`")
	var exprEnds int
	for _, tok := range tokens {
		if tok.Type == token.INTERP_EXPR_END {
			exprEnds++
		}
	}
	if exprEnds != 1 {
		t.Fatalf("expected exactly one expression end, got %d", exprEnds)
	}
}

// Nested templates exercise the template stack; a single in-progress flag
// would fail here.
func TestNestedInterpolatedStrings(t *testing.T) {
	tokens := mustTokenize(t, "`a${`b${x}`}`")
	expected := []token.TokenType{
		token.INTERP_START, token.INTERP_SEGMENT, token.INTERP_EXPR_START,
		token.INTERP_START, token.INTERP_SEGMENT, token.INTERP_EXPR_START,
		token.IDENT, token.INTERP_EXPR_END, token.INTERP_END,
		token.INTERP_EXPR_END, token.INTERP_END, token.EOF,
	}
	got := kinds(tokens)
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("token %d: expected %s, got %s", i, want, got[i])
		}
	}
}

func TestUnterminatedTemplateAnchorsAtOpeningBacktick(t *testing.T) {
	_, diags := Tokenize("var x = `abc")
	if !diags.HasErrors() {
		t.Fatal("expected error")
	}
	entry := diags.Entries()[0]
	if !strings.Contains(entry.Message, "unterminated interpolated string") {
		t.Errorf("unexpected message: %s", entry.Message)
	}
	if entry.Span.Line != 1 || entry.Span.Column != 9 {
		t.Errorf("expected anchor at 1:9, got %d:%d", entry.Span.Line, entry.Span.Column)
	}
}

func TestTemplateEscapes(t *testing.T) {
	tokens := mustTokenize(t, "`a\\`b\\$c`")
	if tokens[1].Lexeme != "a`b$c" {
		t.Errorf("unexpected segment: %q", tokens[1].Lexeme)
	}
}
