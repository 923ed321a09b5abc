package parser

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/token"
)

// MaxRecursionDepth bounds expression nesting so pathological input cannot
// blow the Go stack.
const MaxRecursionDepth = 500

// Operator precedence, lowest first.
const (
	LOWEST = iota
	ASSIGNMENT // = += -= *=
	CATCH      // expr catch ...
	LOGIC_OR   // || or
	LOGIC_AND  // && and
	COALESCE   // ??
	EQUALITY   // == !=
	RELATIONAL // < <= > >=
	RANGE      // .. ...
	SUM        // + -
	PRODUCT    // * / %
	PREFIX     // -x not x
	POSTFIX    // x! x.f x[i] x(args)
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:          ASSIGNMENT,
	token.PLUS_ASSIGN:     ASSIGNMENT,
	token.MINUS_ASSIGN:    ASSIGNMENT,
	token.ASTERISK_ASSIGN: ASSIGNMENT,
	token.CATCH:           CATCH,
	token.OR:              LOGIC_OR,
	token.AND:             LOGIC_AND,
	token.NULL_COALESCE:   COALESCE,
	token.EQ:              EQUALITY,
	token.NOT_EQ:          EQUALITY,
	token.LT:              RELATIONAL,
	token.LTE:             RELATIONAL,
	token.GT:              RELATIONAL,
	token.GTE:             RELATIONAL,
	token.DOT_DOT:         RANGE,
	token.ELLIPSIS:        RANGE,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.ASTERISK:        PRODUCT,
	token.SLASH:           PRODUCT,
	token.PERCENT:         PRODUCT,
	token.BANG:            POSTFIX,
	token.PLUS_PLUS:       POSTFIX,
	token.MINUS_MINUS:     POSTFIX,
	token.DOT:             POSTFIX,
	token.LBRACKET:        POSTFIX,
	token.LPAREN:          POSTFIX,
}

type prefixParseFn func() ast.Expression
type infixParseFn func(ast.Expression) ast.Expression

type Parser struct {
	tokens   []token.Token
	pos      int
	curToken token.Token

	diags  *diagnostics.Diagnostics
	depth  int
	lambda int // next lambda id

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	pendingDoc string
}

// New creates a parser over a complete token stream.
func New(tokens []token.Token) *Parser {
	p := &Parser{
		tokens: tokens,
		pos:    -1,
		diags:  diagnostics.New(),
	}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:        p.parseIdentifier,
		token.INT:          p.parseIntegerLiteral,
		token.FLOAT:        p.parseFloatLiteral,
		token.STRING:       p.parseStringLiteral,
		token.TRUE:         p.parseBooleanLiteral,
		token.FALSE:        p.parseBooleanLiteral,
		token.NIL:          p.parseNilLiteral,
		token.INTERP_START: p.parseInterpolatedString,
		token.LBRACKET:     p.parseListLiteral,
		token.LBRACE:       p.parseDictLiteral,
		token.MINUS:        p.parseUnaryExpression,
		token.PLUS:         p.parseUnaryExpression,
		token.NOT:          p.parseUnaryExpression,
		token.LPAREN:       p.parseGroupingExpression,
		token.PIPE:         p.parseLambdaExpression,
		token.OR:           p.parseEmptyLambdaExpression,
		token.TRY:          p.parseTryExpression,
		token.MATCH:        p.parseMatchExpression,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:            p.parseBinaryExpression,
		token.MINUS:           p.parseBinaryExpression,
		token.ASTERISK:        p.parseBinaryExpression,
		token.SLASH:           p.parseBinaryExpression,
		token.PERCENT:         p.parseBinaryExpression,
		token.EQ:              p.parseBinaryExpression,
		token.NOT_EQ:          p.parseBinaryExpression,
		token.LT:              p.parseLessThanOrGenericCall,
		token.LTE:             p.parseBinaryExpression,
		token.GT:              p.parseBinaryExpression,
		token.GTE:             p.parseBinaryExpression,
		token.AND:             p.parseBinaryExpression,
		token.OR:              p.parseBinaryExpression,
		token.NULL_COALESCE:   p.parseBinaryExpression,
		token.DOT_DOT:         p.parseRangeExpression,
		token.ELLIPSIS:        p.parseRangeExpression,
		token.ASSIGN:          p.parseAssignmentExpression,
		token.PLUS_ASSIGN:     p.parseAssignmentExpression,
		token.MINUS_ASSIGN:    p.parseAssignmentExpression,
		token.ASTERISK_ASSIGN: p.parseAssignmentExpression,
		token.BANG:            p.parseUnwrapExpression,
		token.PLUS_PLUS:       p.parseIncrementExpression,
		token.MINUS_MINUS:     p.parseIncrementExpression,
		token.DOT:             p.parseMemberExpression,
		token.LBRACKET:        p.parseIndexExpression,
		token.LPAREN:          p.parseCallExpression,
		token.CATCH:           p.parseCatchExpression,
	}

	p.nextToken()
	return p
}

// Parse produces the module and all collected diagnostics. The parser
// recovers from local errors and never discards previously parsed
// statements.
func Parse(tokens []token.Token) (*ast.Module, *diagnostics.Diagnostics) {
	p := New(tokens)
	module := p.ParseModule()
	return module, p.diags
}

func (p *Parser) ParseModule() *ast.Module {
	module := &ast.Module{}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			module.Statements = append(module.Statements, stmt)
		}
	}
	return module
}

func (p *Parser) nextToken() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.curToken = p.tokens[p.pos]
	} else {
		p.curToken = token.Token{Type: token.EOF}
	}
}

func (p *Parser) peekToken() token.Token {
	return p.peekTokenAt(1)
}

func (p *Parser) peekTokenAt(n int) token.Token {
	idx := p.pos + n
	if idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return token.Token{Type: token.EOF}
}

// mark/restore implement backtracking for the generic-call lookahead.
func (p *Parser) mark() int {
	return p.pos
}

func (p *Parser) restore(mark int) {
	p.pos = mark
	if p.pos >= 0 && p.pos < len(p.tokens) {
		p.curToken = p.tokens[p.pos]
	} else {
		p.curToken = token.Token{Type: token.EOF}
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken().Type == t
}

func (p *Parser) expect(t token.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorAtCurrent("expected '%s', found '%s'", t, describeToken(p.curToken))
	return false
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken().Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) spanOf(tok token.Token) ast.SourceSpan {
	width := len(tok.Lexeme)
	if width == 0 {
		width = 1
	}
	return ast.NewSpan(tok.Line, tok.Column, tok.Line, tok.Column+width-1)
}

func (p *Parser) errorAtCurrent(format string, args ...interface{}) {
	p.diags.PushError(fmt.Sprintf(format, args...), p.spanOf(p.curToken))
}

func (p *Parser) errorAt(span ast.SourceSpan, format string, args ...interface{}) {
	p.diags.PushError(fmt.Sprintf(format, args...), span)
}

// synchronize skips tokens until the next statement boundary so one error
// does not cascade into dozens.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.NEWLINE:
			p.nextToken()
			return
		case token.END, token.DEF, token.VAR, token.CONST, token.TEST, token.STRUCT,
			token.ERROR, token.ENUM, token.UNION, token.USE, token.IF, token.UNLESS,
			token.FOR, token.WHILE, token.UNTIL, token.RETURN:
			return
		}
		p.nextToken()
	}
}

// skipNewlines consumes any run of newline tokens.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) takeDocstring() string {
	doc := p.pendingDoc
	p.pendingDoc = ""
	return doc
}

func describeToken(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.NEWLINE:
		return "newline"
	default:
		return tok.Lexeme
	}
}
