package parser

import (
	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/token"
)

// parseExpression is the Pratt core. Every prefix/infix function consumes
// its tokens fully, leaving the cursor on the first token after the
// expression.
func (p *Parser) parseExpression(minPrecedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errorAtCurrent("expression too deeply nested")
		p.synchronize()
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAtCurrent("cannot parse expression starting with '%s'", describeToken(p.curToken))
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for {
		precedence, ok := precedences[p.curToken.Type]
		if !ok || precedence <= minPrecedence {
			break
		}
		infix := p.infixParseFns[p.curToken.Type]
		if infix == nil {
			break
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	expr := &ast.Identifier{Name: p.curToken.Lexeme, NameSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(int64)
	expr := &ast.Literal{Kind: ast.LiteralInt, Int: value, LitSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(float64)
	expr := &ast.Literal{Kind: ast.LiteralFloat, Float: value, LitSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseStringLiteral() ast.Expression {
	expr := &ast.Literal{Kind: ast.LiteralString, Str: p.curToken.Lexeme, LitSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	expr := &ast.Literal{
		Kind:    ast.LiteralBool,
		Bool:    p.curTokenIs(token.TRUE),
		LitSpan: p.spanOf(p.curToken),
	}
	p.nextToken()
	return expr
}

func (p *Parser) parseNilLiteral() ast.Expression {
	expr := &ast.Literal{Kind: ast.LiteralNil, LitSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseInterpolatedString() ast.Expression {
	expr := &ast.InterpolatedString{StrSpan: p.spanOf(p.curToken)}
	p.nextToken() // consume opening backtick

	for {
		switch p.curToken.Type {
		case token.INTERP_SEGMENT:
			expr.Parts = append(expr.Parts, ast.InterpolatedStringPart{Literal: p.curToken.Lexeme})
			p.nextToken()
		case token.INTERP_EXPR_START:
			p.nextToken()
			inner := p.parseExpression(LOWEST)
			if inner == nil {
				return nil
			}
			expr.Parts = append(expr.Parts, ast.InterpolatedStringPart{Expression: inner})
			if !p.expect(token.INTERP_EXPR_END) {
				return nil
			}
		case token.INTERP_END:
			expr.StrSpan = expr.StrSpan.Union(p.spanOf(p.curToken))
			p.nextToken()
			return expr
		default:
			p.errorAtCurrent("unexpected token in interpolated string")
			return nil
		}
	}
}

func (p *Parser) parseListLiteral() ast.Expression {
	expr := &ast.ListLiteral{ListSpan: p.spanOf(p.curToken)}
	p.nextToken()
	p.skipNewlines()

	for !p.curTokenIs(token.RBRACKET) && !p.curTokenIs(token.EOF) {
		element := p.parseExpression(LOWEST)
		if element == nil {
			return nil
		}
		expr.Elements = append(expr.Elements, element)
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	expr.ListSpan = expr.ListSpan.Union(p.spanOf(p.curToken))
	p.expect(token.RBRACKET)
	return expr
}

func (p *Parser) parseDictLiteral() ast.Expression {
	expr := &ast.DictLiteral{DictSpan: p.spanOf(p.curToken)}
	p.nextToken()
	p.skipNewlines()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.STRING) {
			p.errorAtCurrent("dict keys must be string literals, found '%s'", describeToken(p.curToken))
			return nil
		}
		entry := ast.DictEntry{Key: p.curToken.Lexeme, KeySpan: p.spanOf(p.curToken)}
		p.nextToken()
		if !p.expect(token.COLON) {
			return nil
		}
		entry.Value = p.parseExpression(LOWEST)
		if entry.Value == nil {
			return nil
		}
		expr.Entries = append(expr.Entries, entry)
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	expr.DictSpan = expr.DictSpan.Union(p.spanOf(p.curToken))
	p.expect(token.RBRACE)
	return expr
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	opSpan := p.spanOf(p.curToken)
	var op ast.UnaryOperator
	switch p.curToken.Type {
	case token.MINUS:
		op = ast.UnaryNegative
	case token.PLUS:
		op = ast.UnaryPositive
	case token.NOT:
		op = ast.UnaryNot
	}
	p.nextToken()

	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpression{Operator: op, Operand: operand, OpSpan: opSpan}
}

func (p *Parser) parseGroupingExpression() ast.Expression {
	span := p.spanOf(p.curToken)
	p.nextToken()
	p.skipNewlines()

	inner := p.parseExpression(LOWEST)
	if inner == nil {
		return nil
	}
	p.skipNewlines()
	span = span.Union(p.spanOf(p.curToken))
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ast.GroupingExpression{Inner: inner, GroupSpan: span}
}

var binaryOperators = map[token.TokenType]ast.BinaryOperator{
	token.PLUS:          ast.BinaryAdd,
	token.MINUS:         ast.BinarySubtract,
	token.ASTERISK:      ast.BinaryMultiply,
	token.SLASH:         ast.BinaryDivide,
	token.PERCENT:       ast.BinaryModulo,
	token.EQ:            ast.BinaryEqual,
	token.NOT_EQ:        ast.BinaryNotEqual,
	token.GT:            ast.BinaryGreater,
	token.GTE:           ast.BinaryGreaterEqual,
	token.LT:            ast.BinaryLess,
	token.LTE:           ast.BinaryLessEqual,
	token.AND:           ast.BinaryAnd,
	token.OR:            ast.BinaryOr,
	token.NULL_COALESCE: ast.BinaryCoalesce,
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	op := binaryOperators[p.curToken.Type]
	precedence := p.curPrecedence()
	p.nextToken()
	p.skipNewlines()

	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{Operator: op, Left: left, Right: right}
}

// parseLessThanOrGenericCall disambiguates `a < b` from `f<T, U>(args)` by
// backtracking: if a well-formed type-argument list closed by `>` leads
// straight into `(`, it is a generic call.
func (p *Parser) parseLessThanOrGenericCall(left ast.Expression) ast.Expression {
	mark := p.mark()
	if typeArgs, ok := p.tryParseTypeArguments(); ok {
		return p.parseCallWithTypeArguments(left, typeArgs)
	}
	p.restore(mark)
	return p.parseBinaryExpression(left)
}

func (p *Parser) tryParseTypeArguments() ([]*ast.TypeExpression, bool) {
	// Suppress diagnostics while probing; the probe either commits or the
	// caller rewinds and reparses as a comparison.
	saved := p.diags
	p.diags = diagnostics.New()
	defer func() { p.diags = saved }()

	p.nextToken() // consume '<'
	var args []*ast.TypeExpression
	for {
		arg := p.parseTypeExpression()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.curTokenIs(token.GT) || !p.peekTokenIs(token.LPAREN) {
		return nil, false
	}
	p.nextToken() // consume '>'
	return args, true
}

func (p *Parser) parseCallWithTypeArguments(callee ast.Expression, typeArgs []*ast.TypeExpression) ast.Expression {
	call := p.parseCallExpression(callee)
	if call == nil {
		return nil
	}
	if callExpr, ok := call.(*ast.CallExpression); ok {
		callExpr.TypeArguments = typeArgs
	}
	return call
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	expr := &ast.CallExpression{Callee: left}
	p.nextToken() // consume '('
	p.skipNewlines()

	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		arg := ast.CallArgument{}
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.COLON) {
			arg.Name = p.curToken.Lexeme
			arg.NameSpan = p.spanOf(p.curToken)
			p.nextToken()
			p.nextToken()
		}
		arg.Expression = p.parseExpression(LOWEST)
		if arg.Expression == nil {
			return nil
		}
		expr.Arguments = append(expr.Arguments, arg)
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	expr.CallSpan = p.spanOf(p.curToken)
	p.expect(token.RPAREN)
	return expr
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume '.'
	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected property name after '.', found '%s'", describeToken(p.curToken))
		return nil
	}
	expr := &ast.MemberExpression{
		Object:       left,
		Property:     p.curToken.Lexeme,
		PropertySpan: p.spanOf(p.curToken),
	}
	p.nextToken()
	return expr
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume '['
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil
	}
	expr := &ast.IndexExpression{Object: left, Index: index, CloseSpan: p.spanOf(p.curToken)}
	if !p.expect(token.RBRACKET) {
		return nil
	}
	return expr
}

// parseIncrementExpression lowers x++ / x-- into a compound assignment.
func (p *Parser) parseIncrementExpression(left ast.Expression) ast.Expression {
	op := ast.AssignAdd
	if p.curTokenIs(token.MINUS_MINUS) {
		op = ast.AssignSubtract
	}
	oneSpan := p.spanOf(p.curToken)
	p.nextToken()

	if _, ok := left.(*ast.Identifier); !ok {
		p.errorAt(left.Span(), "invalid assignment target")
	}
	return &ast.AssignmentExpression{
		Operator: op,
		Target:   left,
		Value:    &ast.Literal{Kind: ast.LiteralInt, Int: 1, LitSpan: oneSpan},
	}
}

func (p *Parser) parseUnwrapExpression(left ast.Expression) ast.Expression {
	expr := &ast.UnwrapExpression{Operand: left, BangSpan: p.spanOf(p.curToken)}
	p.nextToken()
	return expr
}

func (p *Parser) parseRangeExpression(left ast.Expression) ast.Expression {
	inclusive := p.curTokenIs(token.ELLIPSIS)
	precedence := p.curPrecedence()
	p.nextToken()

	end := p.parseExpression(precedence)
	if end == nil {
		return nil
	}
	return &ast.RangeExpression{Start: left, End: end, Inclusive: inclusive}
}

var assignmentOperators = map[token.TokenType]ast.AssignmentOperator{
	token.ASSIGN:          ast.AssignSet,
	token.PLUS_ASSIGN:     ast.AssignAdd,
	token.MINUS_ASSIGN:    ast.AssignSubtract,
	token.ASTERISK_ASSIGN: ast.AssignMultiply,
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
	default:
		p.errorAt(left.Span(), "invalid assignment target")
	}

	op := assignmentOperators[p.curToken.Type]
	p.nextToken()

	// Right-associative.
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}
	return &ast.AssignmentExpression{Operator: op, Target: left, Value: value}
}

// |v: Int| => v + 1    |x| => ... end (block form after a newline)
func (p *Parser) parseLambdaExpression() ast.Expression {
	expr := &ast.LambdaExpression{ID: p.lambda, LambdaSpan: p.spanOf(p.curToken)}
	p.lambda++
	p.nextToken() // consume '|'

	for !p.curTokenIs(token.PIPE) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected lambda parameter name, found '%s'", describeToken(p.curToken))
			return nil
		}
		param := ast.FunctionParameter{Name: p.curToken.Lexeme, Span: p.spanOf(p.curToken)}
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			param.TypeAnnotation = p.parseTypeExpression()
		}
		expr.Parameters = append(expr.Parameters, param)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	if !p.expect(token.PIPE) {
		return nil
	}
	return p.parseLambdaBody(expr)
}

// || => 42 — the empty parameter list lexes as a single '||' token.
func (p *Parser) parseEmptyLambdaExpression() ast.Expression {
	expr := &ast.LambdaExpression{ID: p.lambda, LambdaSpan: p.spanOf(p.curToken)}
	p.lambda++
	p.nextToken()
	return p.parseLambdaBody(expr)
}

func (p *Parser) parseLambdaBody(expr *ast.LambdaExpression) ast.Expression {
	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		expr.ReturnType = p.parseTypeExpression()
	}
	if !p.expect(token.FAT_ARROW) {
		return nil
	}

	if p.curTokenIs(token.NEWLINE) {
		block := p.parseBlock(token.END)
		p.expect(token.END)
		expr.BlockBody = &block
		return expr
	}

	body := p.parseExpression(ASSIGNMENT)
	if body == nil {
		return nil
	}
	expr.ExprBody = body
	return expr
}

// try expr [catch ...]
func (p *Parser) parseTryExpression() ast.Expression {
	trySpan := p.spanOf(p.curToken)
	p.nextToken()

	inner := p.parseExpression(CATCH)
	if inner == nil {
		return nil
	}
	expr := &ast.TryExpression{TrySpan: trySpan, Expression: inner}
	if p.curTokenIs(token.CATCH) {
		return p.parseCatchInto(expr)
	}
	return expr
}

// parseCatchExpression handles the bare `expr catch fallback` form, where
// no `try` keyword introduced the expression.
func (p *Parser) parseCatchExpression(left ast.Expression) ast.Expression {
	if try, ok := left.(*ast.TryExpression); ok && !try.HasCatch {
		return p.parseCatchInto(try)
	}
	expr := &ast.TryExpression{TrySpan: left.Span(), Expression: left}
	return p.parseCatchInto(expr)
}

func (p *Parser) parseCatchInto(expr *ast.TryExpression) ast.Expression {
	expr.HasCatch = true
	p.nextToken() // consume 'catch'

	// `catch name case ... end` binds the thrown error and matches on it;
	// anything else is the expression-fallback form.
	if p.curTokenIs(token.IDENT) && p.catchArmsFollow() {
		expr.CatchBinding = p.curToken.Lexeme
		expr.BindingSpan = p.spanOf(p.curToken)
		p.nextToken()
		p.skipNewlines()
		expr.CatchArms = p.parseMatchArms()
		p.expect(token.END)
		return expr
	}

	fallback := p.parseExpression(CATCH)
	if fallback == nil {
		return nil
	}
	expr.CatchFallback = fallback
	return expr
}

// catchArmsFollow peeks past the binding name (and newlines) for `case`.
func (p *Parser) catchArmsFollow() bool {
	for i := 1; ; i++ {
		tok := p.peekTokenAt(i)
		switch tok.Type {
		case token.NEWLINE:
			continue
		case token.CASE:
			return true
		default:
			return false
		}
	}
}

// match expr case p1 => e1 case _ => e2 end
func (p *Parser) parseMatchExpression() ast.Expression {
	expr := &ast.MatchExpression{MatchSpan: p.spanOf(p.curToken)}
	p.nextToken()

	expr.Scrutinee = p.parseExpression(LOWEST)
	if expr.Scrutinee == nil {
		return nil
	}
	p.skipNewlines()
	expr.Arms = p.parseMatchArms()
	p.expect(token.END)
	return expr
}

func (p *Parser) parseMatchArms() []ast.MatchArm {
	var arms []ast.MatchArm
	p.skipNewlines()
	for p.curTokenIs(token.CASE) {
		armSpan := p.spanOf(p.curToken)
		p.nextToken()

		pattern := p.parseMatchPattern()
		if !p.expect(token.FAT_ARROW) {
			p.synchronize()
			p.skipNewlines()
			continue
		}
		body := p.parseExpression(LOWEST)
		if body == nil {
			p.synchronize()
			p.skipNewlines()
			continue
		}
		arms = append(arms, ast.MatchArm{
			Pattern: pattern,
			Body:    body,
			ArmSpan: armSpan.Union(body.Span()),
		})
		p.skipNewlines()
	}
	return arms
}

func (p *Parser) parseMatchPattern() ast.MatchPattern {
	patSpan := p.spanOf(p.curToken)

	if p.curTokenIs(token.IS) {
		p.nextToken()
		typeExpr := p.parseTypeExpression()
		return ast.MatchPattern{Kind: ast.PatternType, Type: typeExpr, PatSpan: patSpan}
	}
	if p.curTokenIs(token.IDENT) && p.curToken.Lexeme == "_" && p.peekTokenIs(token.FAT_ARROW) {
		p.nextToken()
		return ast.MatchPattern{Kind: ast.PatternWildcard, PatSpan: patSpan}
	}

	constant := p.parseExpression(CATCH)
	if constant != nil {
		patSpan = patSpan.Union(constant.Span())
	}
	return ast.MatchPattern{Kind: ast.PatternConstant, Constant: constant, PatSpan: patSpan}
}
