package parser

import (
	"strconv"

	"github.com/nmxmxh/esengine/internal/ast"
	"github.com/nmxmxh/esengine/internal/lexer"
)

func (p *Parser) parseExpression() (ast.Expression, error) {
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	seq := &ast.SequenceExpression{Expressions: []ast.Expression{first}}
	for p.isPunct(",") {
		p.next()
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.Expressions = append(seq.Expressions, e)
	}
	return seq, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

func (p *Parser) parseAssign() (ast.Expression, error) {
	if arrow, ok, err := p.tryParseArrow(); ok || err != nil {
		return arrow, err
	}
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Punct && assignOps[p.tok.Literal] {
		op := p.tok.Literal
		p.next()
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpression{Op: op, Target: left, Value: right}, nil
	}
	return left, nil
}

// tryParseArrow speculatively parses `(params) => body` or `x => body`.
// Returns ok=false (no error) if the input doesn't match an arrow head, in
// which case the scanner/token state is rewound for the caller to retry
// as an ordinary expression.
func (p *Parser) tryParseArrow() (ast.Expression, bool, error) {
	savedSc := *p.sc
	savedTok := p.tok
	savedPrev := p.prev

	isAsync := false
	if p.isKeyword("async") {
		p.next()
		if p.tok.Kind != lexer.Ident && !p.isPunct("(") {
			*p.sc = savedSc
			p.tok = savedTok
			p.prev = savedPrev
			return nil, false, nil
		}
		isAsync = true
	} else if p.tok.Kind != lexer.Ident && !p.isPunct("(") {
		return nil, false, nil
	}

	var params []string
	matched := true
	if p.tok.Kind == lexer.Ident {
		params = []string{p.tok.Literal}
		p.next()
	} else {
		ps, err := p.parseParamList()
		if err != nil {
			matched = false
		} else {
			params = ps
		}
	}
	if matched && p.isPunct("=>") {
		p.next()
		fn := &ast.FunctionLiteral{Params: params, IsArrow: true, IsAsync: isAsync}
		if p.isPunct("{") {
			body, err := p.parseBlock()
			if err != nil {
				return nil, false, err
			}
			fn.Body = body
		} else {
			e, err := p.parseAssign()
			if err != nil {
				return nil, false, err
			}
			fn.Body = &ast.BlockStatement{Body: []ast.Statement{&ast.ReturnStatement{Argument: e}}}
		}
		return fn, true, nil
	}

	*p.sc = savedSc
	p.tok = savedTok
	p.prev = savedPrev
	return nil, false, nil
}

func (p *Parser) parseConditional() (ast.Expression, error) {
	test, err := p.parseNullish()
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return test, nil
	}
	p.next()
	cons, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	alt, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt}, nil
}

func (p *Parser) parseNullish() (ast.Expression, error) {
	return p.parseBinaryLevel(0)
}

// precedence levels, lowest first: ??/||, &&, equality, relational,
// additive, multiplicative, exponent.
var precLevels = [][]string{
	{"??", "||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", ">", "<=", ">=", "instanceof", "in"},
	{"+", "-"},
	{"*", "/", "%"},
	{"**"},
}

func (p *Parser) parseBinaryLevel(level int) (ast.Expression, error) {
	if level >= len(precLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinaryLevel(level + 1)
	if err != nil {
		return nil, err
	}
	ops := precLevels[level]
	for p.matchesAny(ops) {
		op := p.tok.Literal
		p.next()
		var right ast.Expression
		if ops[0] == "**" {
			right, err = p.parseBinaryLevel(level) // right-associative
		} else {
			right, err = p.parseBinaryLevel(level + 1)
		}
		if err != nil {
			return nil, err
		}
		if op == "&&" || op == "||" || op == "??" {
			left = &ast.LogicalExpression{Op: op, Left: left, Right: right}
		} else {
			left = &ast.BinaryExpression{Op: op, Left: left, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) matchesAny(ops []string) bool {
	if p.tok.Kind != lexer.Punct && p.tok.Kind != lexer.Keyword {
		return false
	}
	for _, op := range ops {
		if p.tok.Literal == op {
			return true
		}
	}
	return false
}

var unaryOps = map[string]bool{"+": true, "-": true, "!": true, "~": true}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.tok.Kind == lexer.Punct && unaryOps[p.tok.Literal] {
		op := p.tok.Literal
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Op: op, Operand: operand}, nil
	}
	if p.isKeyword("typeof") || p.isKeyword("void") || p.isKeyword("delete") {
		op := p.tok.Literal
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Op: op, Operand: operand}, nil
	}
	if p.isKeyword("await") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Argument: operand}, nil
	}
	if p.isKeyword("yield") {
		p.next()
		delegate := false
		if p.isPunct("*") {
			delegate = true
			p.next()
		}
		if p.isPunct(")") || p.isPunct(";") || p.isPunct("}") || p.isPunct(",") || p.tok.Kind == lexer.EOF {
			return &ast.YieldExpression{Delegate: delegate}, nil
		}
		arg, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.YieldExpression{Argument: arg, Delegate: delegate}, nil
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := p.tok.Literal
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Op: op, Operand: operand, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	e, err := p.parseCallMember()
	if err != nil {
		return nil, err
	}
	if !p.tok.NLBefore && (p.isPunct("++") || p.isPunct("--")) {
		op := p.tok.Literal
		p.next()
		return &ast.UpdateExpression{Op: op, Operand: e, Prefix: false}, nil
	}
	return e, nil
}

func (p *Parser) parseCallMember() (ast.Expression, error) {
	var e ast.Expression
	if p.isKeyword("new") {
		p.next()
		callee, err := p.parseCallMemberNoCall()
		if err != nil {
			return nil, err
		}
		args, err := p.tryParseArgs()
		if err != nil {
			return nil, err
		}
		e = &ast.NewExpression{Callee: callee, Args: args}
	} else {
		prim, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		e = prim
	}

	for {
		switch {
		case p.isPunct("."):
			p.next()
			if p.tok.Kind != lexer.Ident && p.tok.Kind != lexer.Keyword {
				return nil, p.fail("expected property name")
			}
			prop := &ast.Identifier{Name: p.tok.Literal}
			p.next()
			e = &ast.MemberExpression{Object: e, Property: prop, Computed: false}
		case p.isPunct("["):
			p.next()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			e = &ast.MemberExpression{Object: e, Property: idx, Computed: true}
		case p.isPunct("("):
			args, err := p.tryParseArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.CallExpression{Callee: e, Args: args}
		default:
			return e, nil
		}
	}
}

// parseCallMemberNoCall parses a `new` callee: member expressions but not
// a trailing call (the call belongs to `new`, not the callee).
func (p *Parser) parseCallMemberNoCall() (ast.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			p.next()
			if p.tok.Kind != lexer.Ident && p.tok.Kind != lexer.Keyword {
				return nil, p.fail("expected property name")
			}
			prop := &ast.Identifier{Name: p.tok.Literal}
			p.next()
			e = &ast.MemberExpression{Object: e, Property: prop, Computed: false}
		case p.isPunct("["):
			p.next()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			e = &ast.MemberExpression{Object: e, Property: idx, Computed: true}
		default:
			return e, nil
		}
	}
}

func (p *Parser) tryParseArgs() ([]ast.Argument, error) {
	if !p.isPunct("(") {
		return nil, nil
	}
	p.next()
	var args []ast.Argument
	for !p.isPunct(")") {
		spread := false
		if p.isPunct("...") {
			spread = true
			p.next()
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Argument{Value: e, Spread: spread})
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch {
	case p.tok.Kind == lexer.Number:
		v, _ := strconv.ParseFloat(p.tok.Literal, 64)
		p.next()
		return &ast.NumberLiteral{Value: v}, nil
	case p.tok.Kind == lexer.String:
		s := p.tok.Literal
		p.next()
		return &ast.StringLiteral{Value: s}, nil
	case p.isKeyword("true"):
		p.next()
		return &ast.BoolLiteral{Value: true}, nil
	case p.isKeyword("false"):
		p.next()
		return &ast.BoolLiteral{Value: false}, nil
	case p.isKeyword("null"):
		p.next()
		return &ast.NullLiteral{}, nil
	case p.isKeyword("undefined"):
		p.next()
		return &ast.UndefinedLiteral{}, nil
	case p.isKeyword("this"):
		p.next()
		return &ast.ThisExpression{}, nil
	case p.isKeyword("function"):
		return p.parseFunctionLiteral(false, false)
	case p.isKeyword("async"):
		p.next()
		if p.isKeyword("function") {
			return p.parseFunctionLiteral(true, false)
		}
		return &ast.Identifier{Name: "async"}, nil
	case p.tok.Kind == lexer.Ident:
		name := p.tok.Literal
		p.next()
		return &ast.Identifier{Name: name}, nil
	case p.isPunct("("):
		p.next()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.isPunct("["):
		return p.parseArrayLiteral()
	case p.isPunct("{"):
		return p.parseObjectLiteral()
	case p.isPunct("..."):
		p.next()
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.SpreadExpression{Argument: e}, nil
	default:
		return nil, p.fail("unexpected token '" + p.tok.Literal + "'")
	}
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	p.next()
	lit := &ast.ArrayLiteral{}
	for !p.isPunct("]") {
		spread := false
		if p.isPunct("...") {
			spread = true
			p.next()
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, ast.ArrayElement{Value: e, Spread: spread})
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseObjectLiteral() (ast.Expression, error) {
	p.next()
	lit := &ast.ObjectLiteral{}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			p.next()
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			lit.Props = append(lit.Props, ast.Property{Spread: true, Value: e})
			if p.isPunct(",") {
				p.next()
				continue
			}
			break
		}

		computed := false
		var key ast.Expression
		if p.isPunct("[") {
			computed = true
			p.next()
			k, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			key = k
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
		} else if p.tok.Kind == lexer.String {
			key = &ast.StringLiteral{Value: p.tok.Literal}
			p.next()
		} else if p.tok.Kind == lexer.Number {
			key = &ast.StringLiteral{Value: p.tok.Literal}
			p.next()
		} else if p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.Keyword {
			key = &ast.Identifier{Name: p.tok.Literal}
			p.next()
		} else {
			return nil, p.fail("expected property key")
		}

		var val ast.Expression
		if p.isPunct(":") {
			p.next()
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			val = v
		} else if p.isPunct("(") {
			// method shorthand: key(params) { body }
			params, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			val = &ast.FunctionLiteral{Params: params, Body: body}
		} else if id, ok := key.(*ast.Identifier); ok {
			val = &ast.Identifier{Name: id.Name} // shorthand { x }
		} else {
			return nil, p.fail("expected ':' in property definition")
		}

		lit.Props = append(lit.Props, ast.Property{Key: key, Value: val, Computed: computed})
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return lit, nil
}
