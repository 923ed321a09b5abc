package parser

import (
	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/token"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.DOC_COMMENT:
		p.pendingDoc = p.curToken.Lexeme
		p.nextToken()
		p.skipNewlines()
		if p.curTokenIs(token.EOF) {
			return nil
		}
		return p.parseStatement()
	case token.USE:
		return p.parseUseStatement()
	case token.VAR, token.CONST:
		return p.parseVarStatement()
	case token.PUB:
		if !p.peekTokenIs(token.DEF) {
			p.errorAtCurrent("'pub' must be followed by 'def'")
			p.synchronize()
			return nil
		}
		p.nextToken()
		return p.parseFunctionStatement(true)
	case token.DEF:
		return p.parseFunctionStatement(false)
	case token.TEST:
		return p.parseTestStatement()
	case token.STRUCT:
		return p.parseStructStatement()
	case token.ERROR:
		return p.parseErrorStatement()
	case token.ENUM:
		return p.parseEnumStatement()
	case token.UNION:
		return p.parseUnionStatement()
	case token.IF, token.UNLESS:
		return p.parseConditionalStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE, token.UNTIL:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{StmtSpan: p.spanOf(p.curToken)}
		p.nextToken()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{StmtSpan: p.spanOf(p.curToken)}
		p.nextToken()
		return stmt
	case token.THROW:
		return p.parseThrowStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// use alias = "module.path"
func (p *Parser) parseUseStatement() ast.Statement {
	useSpan := p.spanOf(p.curToken)
	p.nextToken()

	if p.curTokenIs(token.STRING) {
		p.errorAt(useSpan, "module imports must specify an alias")
		p.nextToken()
		p.synchronize()
		return nil
	}
	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected module alias, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}

	stmt := &ast.UseStatement{
		Alias:     p.curToken.Lexeme,
		AliasSpan: p.spanOf(p.curToken),
	}
	p.nextToken()

	if !p.expect(token.ASSIGN) {
		p.synchronize()
		return nil
	}
	if !p.curTokenIs(token.STRING) {
		p.errorAtCurrent("expected module path string, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.ModulePath = p.curToken.Lexeme
	stmt.ModuleSpan = p.spanOf(p.curToken)
	p.nextToken()
	return stmt
}

// var x = 1    const a: Int = 1, b = 2
func (p *Parser) parseVarStatement() ast.Statement {
	stmt := &ast.VarStatement{
		IsConst:   p.curTokenIs(token.CONST),
		Docstring: p.takeDocstring(),
		StmtSpan:  p.spanOf(p.curToken),
	}
	p.nextToken()

	for {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected binding name, found '%s'", describeToken(p.curToken))
			p.synchronize()
			return stmt
		}
		binding := ast.VarBinding{
			Name:     p.curToken.Lexeme,
			NameSpan: p.spanOf(p.curToken),
		}
		p.nextToken()

		if p.curTokenIs(token.COLON) {
			p.nextToken()
			binding.TypeAnnotation = p.parseTypeExpression()
		}
		if p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			binding.Initializer = p.parseExpression(ASSIGNMENT)
		}
		stmt.Bindings = append(stmt.Bindings, binding)

		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return stmt
}

// def name<T>(a: Int, b: Int = 0) -> Int ! { E.V } ... end
func (p *Parser) parseFunctionStatement(isPublic bool) ast.Statement {
	stmt := &ast.FunctionStatement{
		IsPublic:  isPublic,
		Docstring: p.takeDocstring(),
	}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected function name, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	if p.curTokenIs(token.LT) {
		stmt.TypeParameters = p.parseTypeParameters()
	}

	if !p.expect(token.LPAREN) {
		p.synchronize()
		return nil
	}
	stmt.Parameters = p.parseFunctionParameters()

	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		stmt.ReturnType = p.parseTypeExpression()
		if p.curTokenIs(token.BANG) {
			p.nextToken()
			stmt.ErrorSet = p.parseErrorSet()
		}
	}

	stmt.Body = p.parseBlock(token.END)
	p.expect(token.END)
	return stmt
}

func (p *Parser) parseTypeParameters() []ast.TypeParameter {
	var params []ast.TypeParameter
	p.nextToken() // consume '<'
	for !p.curTokenIs(token.GT) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected type parameter name, found '%s'", describeToken(p.curToken))
			break
		}
		params = append(params, ast.TypeParameter{
			Name: p.curToken.Lexeme,
			Span: p.spanOf(p.curToken),
		})
		p.nextToken()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.expect(token.GT)
	return params
}

func (p *Parser) parseFunctionParameters() []ast.FunctionParameter {
	var params []ast.FunctionParameter
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected parameter name, found '%s'", describeToken(p.curToken))
			break
		}
		param := ast.FunctionParameter{
			Name: p.curToken.Lexeme,
			Span: p.spanOf(p.curToken),
		}
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			param.TypeAnnotation = p.parseTypeExpression()
		}
		if p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			param.DefaultValue = p.parseExpression(ASSIGNMENT)
		}
		params = append(params, param)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.expect(token.RPAREN)
	return params
}

// parseErrorSet parses `ErrorName.Variant` or `{ E.V, E.V }` after `!`.
func (p *Parser) parseErrorSet() []ast.ErrorVariantRef {
	var set []ast.ErrorVariantRef
	if p.curTokenIs(token.LBRACE) {
		p.nextToken()
		p.skipNewlines()
		for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
			if ref, ok := p.parseErrorVariantRef(); ok {
				set = append(set, ref)
			} else {
				break
			}
			p.skipNewlines()
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				p.skipNewlines()
			}
		}
		p.expect(token.RBRACE)
		return set
	}
	if ref, ok := p.parseErrorVariantRef(); ok {
		set = append(set, ref)
	}
	return set
}

func (p *Parser) parseErrorVariantRef() (ast.ErrorVariantRef, bool) {
	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected error variant, found '%s'", describeToken(p.curToken))
		return ast.ErrorVariantRef{}, false
	}
	ref := ast.ErrorVariantRef{
		ErrorName: p.curToken.Lexeme,
		Span:      p.spanOf(p.curToken),
	}
	p.nextToken()
	if !p.expect(token.DOT) {
		return ast.ErrorVariantRef{}, false
	}
	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected error variant name, found '%s'", describeToken(p.curToken))
		return ast.ErrorVariantRef{}, false
	}
	ref.VariantName = p.curToken.Lexeme
	ref.Span = ref.Span.Union(p.spanOf(p.curToken))
	p.nextToken()
	return ref, true
}

// test "name" ... end
func (p *Parser) parseTestStatement() ast.Statement {
	stmt := &ast.TestStatement{Docstring: p.takeDocstring()}
	p.nextToken()

	if !p.curTokenIs(token.STRING) {
		p.errorAtCurrent("expected test name string, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	stmt.Body = p.parseBlock(token.END)
	p.expect(token.END)
	return stmt
}

// struct Point ... fields ... end
func (p *Parser) parseStructStatement() ast.Statement {
	stmt := &ast.StructStatement{Docstring: p.takeDocstring()}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected struct name, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	if p.curTokenIs(token.LT) {
		stmt.TypeParameters = p.parseTypeParameters()
	}

	p.skipNewlines()
	for !p.curTokenIs(token.END) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected field name, found '%s'", describeToken(p.curToken))
			p.synchronize()
			p.skipNewlines()
			continue
		}
		field := ast.StructField{
			Name: p.curToken.Lexeme,
			Span: p.spanOf(p.curToken),
		}
		p.nextToken()
		if !p.expect(token.COLON) {
			p.synchronize()
			p.skipNewlines()
			continue
		}
		field.TypeAnnotation = p.parseTypeExpression()
		stmt.Fields = append(stmt.Fields, field)
		p.skipNewlines()
	}
	p.expect(token.END)
	return stmt
}

// error DataError { Missing(path: String) Permission }
func (p *Parser) parseErrorStatement() ast.Statement {
	stmt := &ast.ErrorStatement{Docstring: p.takeDocstring()}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected error name, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	if !p.expect(token.LBRACE) {
		p.synchronize()
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected error variant name, found '%s'", describeToken(p.curToken))
			break
		}
		variant := ast.ErrorVariant{
			Name: p.curToken.Lexeme,
			Span: p.spanOf(p.curToken),
		}
		p.nextToken()
		if p.curTokenIs(token.LPAREN) {
			p.nextToken()
			for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
				if !p.curTokenIs(token.IDENT) {
					p.errorAtCurrent("expected payload field name, found '%s'", describeToken(p.curToken))
					break
				}
				field := ast.StructField{
					Name: p.curToken.Lexeme,
					Span: p.spanOf(p.curToken),
				}
				p.nextToken()
				if !p.expect(token.COLON) {
					break
				}
				field.TypeAnnotation = p.parseTypeExpression()
				variant.Fields = append(variant.Fields, field)
				if p.curTokenIs(token.COMMA) {
					p.nextToken()
				}
			}
			p.expect(token.RPAREN)
		}
		stmt.Variants = append(stmt.Variants, variant)
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return stmt
}

// enum Color { Red Green Blue }
func (p *Parser) parseEnumStatement() ast.Statement {
	stmt := &ast.EnumStatement{Docstring: p.takeDocstring()}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected enum name, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	if !p.expect(token.LBRACE) {
		p.synchronize()
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected enum variant name, found '%s'", describeToken(p.curToken))
			break
		}
		stmt.Variants = append(stmt.Variants, ast.Identifier{
			Name:     p.curToken.Lexeme,
			NameSpan: p.spanOf(p.curToken),
		})
		p.nextToken()
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return stmt
}

// union Shape { Circle Square } — parsed, reserved for a future release.
func (p *Parser) parseUnionStatement() ast.Statement {
	stmt := &ast.UnionStatement{Docstring: p.takeDocstring()}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorAtCurrent("expected union name, found '%s'", describeToken(p.curToken))
		p.synchronize()
		return nil
	}
	stmt.Name = p.curToken.Lexeme
	stmt.NameSpan = p.spanOf(p.curToken)
	p.nextToken()

	if !p.expect(token.LBRACE) {
		p.synchronize()
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		armSpan := p.spanOf(p.curToken)
		arm := p.parseTypeExpression()
		if arm == nil {
			break
		}
		stmt.Arms = append(stmt.Arms, ast.UnionArm{Type: arm, Span: armSpan})
		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return stmt
}

// if cond ... else ... end / unless cond ... end
func (p *Parser) parseConditionalStatement() ast.Statement {
	stmt := &ast.ConditionalStatement{StmtSpan: p.spanOf(p.curToken)}
	if p.curTokenIs(token.UNLESS) {
		stmt.Kind = ast.ConditionalUnless
	}
	p.nextToken()

	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		p.synchronize()
		return nil
	}

	stmt.Consequent = p.parseBlock(token.END, token.ELSE)
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		alt := p.parseBlock(token.END)
		stmt.Alternative = &alt
	}
	p.expect(token.END)
	return stmt
}

// for x of items ... end / for k, v of dict ... end
func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.LoopStatement{Kind: ast.LoopFor, StmtSpan: p.spanOf(p.curToken)}
	p.nextToken()

	for {
		if !p.curTokenIs(token.IDENT) {
			p.errorAtCurrent("expected loop binding name, found '%s'", describeToken(p.curToken))
			p.synchronize()
			return nil
		}
		stmt.Bindings = append(stmt.Bindings, ast.Identifier{
			Name:     p.curToken.Lexeme,
			NameSpan: p.spanOf(p.curToken),
		})
		p.nextToken()
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expect(token.OF) {
		p.synchronize()
		return nil
	}
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil {
		p.synchronize()
		return nil
	}

	stmt.Body = p.parseBlock(token.END)
	p.expect(token.END)
	return stmt
}

// while cond ... end / until cond ... end
func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.LoopStatement{StmtSpan: p.spanOf(p.curToken)}
	if p.curTokenIs(token.UNTIL) {
		stmt.Kind = ast.LoopUntil
	} else {
		stmt.Kind = ast.LoopWhile
	}
	p.nextToken()

	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		p.synchronize()
		return nil
	}

	stmt.Body = p.parseBlock(token.END)
	p.expect(token.END)
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{StmtSpan: p.spanOf(p.curToken)}
	p.nextToken()

	if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.END) &&
		!p.curTokenIs(token.EOF) && !p.curTokenIs(token.SEMICOLON) {
		stmt.Expression = p.parseExpression(LOWEST)
	}
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{StmtSpan: p.spanOf(p.curToken)}
	p.nextToken()

	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		p.synchronize()
		return nil
	}
	return &ast.ExpressionStatement{Expression: expr}
}

// parseBlock parses statements until one of the terminator keywords. The
// terminator is left for the caller to consume.
func (p *Parser) parseBlock(terminators ...token.TokenType) ast.Block {
	block := ast.Block{}
	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		for _, t := range terminators {
			if p.curTokenIs(t) {
				return block
			}
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.skipNewlines()
	}
	if len(terminators) > 0 {
		p.errorAtCurrent("expected '%s' to close block, found end of file", terminators[0])
	}
	return block
}
