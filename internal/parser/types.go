package parser

import (
	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/token"
)

// parseTypeExpression parses the type-annotation sub-grammar:
//
//	Bool Int Float String Nil Void
//	List[T]    Dict[String, V]    Func(P, ...) -> R
//	Name       Name[T, ...]       T?
func (p *Parser) parseTypeExpression() *ast.TypeExpression {
	base := p.parseTypeAtom()
	if base == nil {
		return nil
	}
	for p.curTokenIs(token.QUESTION) {
		base = &ast.TypeExpression{
			Kind: ast.TypeOptional,
			Args: []*ast.TypeExpression{base},
			Span: base.Span.Union(p.spanOf(p.curToken)),
		}
		p.nextToken()
	}
	return base
}

func (p *Parser) parseTypeAtom() *ast.TypeExpression {
	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected type, found '%s'", describeToken(p.curToken))
		return nil
	}

	name := p.curToken.Lexeme
	span := p.spanOf(p.curToken)
	p.nextToken()

	switch name {
	case "List":
		if !p.expect(token.LBRACKET) {
			return nil
		}
		element := p.parseTypeExpression()
		if element == nil {
			return nil
		}
		span = span.Union(p.spanOf(p.curToken))
		if !p.expect(token.RBRACKET) {
			return nil
		}
		return &ast.TypeExpression{Kind: ast.TypeList, Args: []*ast.TypeExpression{element}, Span: span}
	case "Dict":
		if !p.expect(token.LBRACKET) {
			return nil
		}
		key := p.parseTypeExpression()
		if key == nil {
			return nil
		}
		if !p.expect(token.COMMA) {
			return nil
		}
		value := p.parseTypeExpression()
		if value == nil {
			return nil
		}
		span = span.Union(p.spanOf(p.curToken))
		if !p.expect(token.RBRACKET) {
			return nil
		}
		return &ast.TypeExpression{Kind: ast.TypeDict, Args: []*ast.TypeExpression{key, value}, Span: span}
	case "Func":
		if !p.expect(token.LPAREN) {
			return nil
		}
		var params []*ast.TypeExpression
		for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
			param := p.parseTypeExpression()
			if param == nil {
				return nil
			}
			params = append(params, param)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
			}
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		if !p.expect(token.ARROW) {
			return nil
		}
		result := p.parseTypeExpression()
		if result == nil {
			return nil
		}
		return &ast.TypeExpression{
			Kind:   ast.TypeFunc,
			Params: params,
			Result: result,
			Span:   span.Union(result.Span),
		}
	}

	// Dotted names cover error-variant references in `is` patterns and
	// catch arms (`is DataError.Missing`).
	if p.curTokenIs(token.DOT) && p.peekTokenIs(token.IDENT) {
		p.nextToken()
		name = name + "." + p.curToken.Lexeme
		span = span.Union(p.spanOf(p.curToken))
		p.nextToken()
		return &ast.TypeExpression{Kind: ast.TypeName, Name: name, Span: span}
	}

	if p.curTokenIs(token.LBRACKET) {
		p.nextToken()
		var args []*ast.TypeExpression
		for !p.curTokenIs(token.RBRACKET) && !p.curTokenIs(token.EOF) {
			arg := p.parseTypeExpression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
			}
		}
		span = span.Union(p.spanOf(p.curToken))
		if !p.expect(token.RBRACKET) {
			return nil
		}
		return &ast.TypeExpression{Kind: ast.TypeGeneric, Name: name, Args: args, Span: span}
	}

	return &ast.TypeExpression{Kind: ast.TypeName, Name: name, Span: span}
}
