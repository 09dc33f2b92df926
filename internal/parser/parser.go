// Package parser implements a recursive-descent parser over the
// lexer's token stream, producing the internal/ast tree the compiler
// consumes. It covers a pragmatic subset of ECMAScript: enough
// declarations, expressions, control flow, functions (arrow/async/
// generator), and object/array literals with spread to drive the
// engine's §8 end-to-end scenarios — not the full ECMA-262 grammar
// (spec.md scopes lexer/parser as external; this is the engine's own
// minimal front end for exercising the rest of the pipeline).
package parser

import (
	"fmt"

	"github.com/nmxmxh/esengine/internal/ast"
	"github.com/nmxmxh/esengine/internal/lexer"
)

// SyntaxError is returned for any input the parser cannot accept.
type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (line %d)", e.Msg, e.Line)
}

// Parser holds one token of lookahead over a Scanner.
type Parser struct {
	sc   *lexer.Scanner
	tok  lexer.Token
	prev lexer.Token
}

// Parse parses a full program.
func Parse(src string) (*ast.Program, error) {
	p := &Parser{sc: lexer.New(src)}
	p.next()
	return p.parseProgram()
}

func (p *Parser) next() {
	p.prev = p.tok
	p.tok = p.sc.Scan()
}

func (p *Parser) fail(msg string) error {
	return &SyntaxError{Msg: msg, Line: p.tok.Line}
}

func (p *Parser) is(kind lexer.Kind, lit string) bool {
	return p.tok.Kind == kind && p.tok.Literal == lit
}

func (p *Parser) isPunct(lit string) bool   { return p.is(lexer.Punct, lit) }
func (p *Parser) isKeyword(lit string) bool { return p.is(lexer.Keyword, lit) }

func (p *Parser) expectPunct(lit string) error {
	if !p.isPunct(lit) {
		return p.fail("expected '" + lit + "', found '" + p.tok.Literal + "'")
	}
	p.next()
	return nil
}

// consumeSemicolon implements automatic semicolon insertion: an explicit
// `;`, a `}` / EOF, or a line break before the next token all end a
// statement.
func (p *Parser) consumeSemicolon() {
	if p.isPunct(";") {
		p.next()
		return
	}
	if p.isPunct("}") || p.tok.Kind == lexer.EOF || p.tok.NLBefore {
		return
	}
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.tok.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("const"):
		d, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		return d, nil
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("function"):
		return p.parseFunctionDecl(false)
	case p.isKeyword("async") && p.peekIsFunctionAfterAsync():
		p.next()
		return p.parseFunctionDecl(true)
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("throw"):
		return p.parseThrow()
	case p.isKeyword("try"):
		return p.parseTry()
	case p.isKeyword("break"):
		p.next()
		p.consumeSemicolon()
		return &ast.BreakStatement{}, nil
	case p.isKeyword("continue"):
		p.next()
		p.consumeSemicolon()
		return &ast.ContinueStatement{}, nil
	case p.isPunct(";"):
		p.next()
		return &ast.BlockStatement{}, nil
	default:
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		return &ast.ExprStatement{X: e}, nil
	}
}

// peekIsFunctionAfterAsync distinguishes `async function` from an
// identifier literally named `async`; this lexer doesn't back up, so we
// only treat `async` as a modifier when it is immediately followed by the
// `function` keyword on the same statement.
func (p *Parser) peekIsFunctionAfterAsync() bool {
	save := *p.sc
	savedTok := p.tok
	p.next()
	isFn := p.isKeyword("function")
	*p.sc = save
	p.tok = savedTok
	return isFn
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	blk := &ast.BlockStatement{}
	for !p.isPunct("}") && p.tok.Kind != lexer.EOF {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Body = append(blk.Body, s)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	kind := ast.VarVar
	switch p.tok.Literal {
	case "let":
		kind = ast.VarLet
	case "const":
		kind = ast.VarConst
	}
	p.next()
	decl := &ast.VarDecl{Kind: kind}
	for {
		if p.tok.Kind != lexer.Ident {
			return nil, p.fail("expected binding identifier")
		}
		name := p.tok.Literal
		p.next()
		var init ast.Expression
		if p.isPunct("=") {
			p.next()
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			init = e
		}
		decl.Decls = append(decl.Decls, ast.Declarator{Name: name, Init: init})
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	return decl, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	p.next()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Test: test, Consequent: cons}
	if p.isKeyword("else") {
		p.next()
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	p.next()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Test: test, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	p.next()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var init ast.Node
	kind := ast.VarVar
	hasKind := false
	if p.isKeyword("let") || p.isKeyword("const") || p.isKeyword("var") {
		hasKind = true
		switch p.tok.Literal {
		case "let":
			kind = ast.VarLet
		case "const":
			kind = ast.VarConst
		}
		p.next()
	}

	if hasKind && p.tok.Kind == lexer.Ident {
		name := p.tok.Literal
		p.next()
		if p.isKeyword("of") {
			p.next()
			right, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.ForOfStatement{Kind: kind, Name: name, Right: right, Body: body}, nil
		}
		decl := &ast.VarDecl{Kind: kind}
		var first ast.Expression
		if p.isPunct("=") {
			p.next()
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			first = e
		}
		decl.Decls = append(decl.Decls, ast.Declarator{Name: name, Init: first})
		for p.isPunct(",") {
			p.next()
			if p.tok.Kind != lexer.Ident {
				return nil, p.fail("expected binding identifier")
			}
			n := p.tok.Literal
			p.next()
			var init2 ast.Expression
			if p.isPunct("=") {
				p.next()
				e, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				init2 = e
			}
			decl.Decls = append(decl.Decls, ast.Declarator{Name: n, Init: init2})
		}
		init = decl
	} else if !p.isPunct(";") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		init = e
	}

	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var test ast.Expression
	if !p.isPunct(";") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		test = e
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var update ast.Expression
	if !p.isPunct(")") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		update = e
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Init: init, Test: test, Update: update, Body: body}, nil
}

func (p *Parser) parseFunctionDecl(isAsync bool) (ast.Statement, error) {
	fn, err := p.parseFunctionLiteral(isAsync, false)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{Fn: fn}, nil
}

func (p *Parser) parseFunctionLiteral(isAsync, isArrow bool) (*ast.FunctionLiteral, error) {
	p.next() // "function"
	isGenerator := false
	if p.isPunct("*") {
		isGenerator = true
		p.next()
	}
	name := ""
	if p.tok.Kind == lexer.Ident {
		name = p.tok.Literal
		p.next()
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionLiteral{Name: name, Params: params, Body: body, IsAsync: isAsync, IsGenerator: isGenerator}, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []string
	for !p.isPunct(")") {
		if p.tok.Kind != lexer.Ident {
			return nil, p.fail("expected parameter name")
		}
		params = append(params, p.tok.Literal)
		p.next()
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	p.next()
	if p.isPunct(";") || p.isPunct("}") || p.tok.Kind == lexer.EOF || p.tok.NLBefore {
		p.consumeSemicolon()
		return &ast.ReturnStatement{}, nil
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ReturnStatement{Argument: e}, nil
}

func (p *Parser) parseThrow() (ast.Statement, error) {
	p.next()
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ThrowStatement{Argument: e}, nil
}

func (p *Parser) parseTry() (ast.Statement, error) {
	p.next()
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.TryStatement{Block: block}
	if p.isKeyword("catch") {
		p.next()
		cc := &ast.CatchClause{}
		if p.isPunct("(") {
			p.next()
			if p.tok.Kind == lexer.Ident {
				cc.Param = p.tok.Literal
				p.next()
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		cc.Body = body
		stmt.Catch = cc
	}
	if p.isKeyword("finally") {
		p.next()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Finally = body
	}
	return stmt, nil
}
