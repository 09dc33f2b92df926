package compiler

import (
	"github.com/nmxmxh/esengine/internal/ast"
	"github.com/nmxmxh/esengine/internal/values"
)

var binaryOps = map[string]Opcode{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod, "**": OpExp,
	"<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
	"==": OpEq, "!=": OpNeq, "===": OpStrictEq, "!==": OpStrictNeq,
	"instanceof": OpInstanceof, "in": OpIn,
}

var unaryOps = map[string]Opcode{
	"+": OpPos, "-": OpNeg, "!": OpNot, "~": OpBitNot, "typeof": OpTypeof, "void": OpVoid,
}

var compoundOps = map[string]Opcode{
	"+=": OpAdd, "-=": OpSub, "*=": OpMul, "/=": OpDiv, "%=": OpMod,
}

func (c *Compiler) compileExpr(e ast.Expression) error {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		c.emit(OpPushLiteral, c.addConst(values.Float64(n.Value)), 0, -1)
	case *ast.StringLiteral:
		c.emit(OpPushLiteral, c.addConst(values.String(values.NewString(n.Value))), 0, -1)
	case *ast.BoolLiteral:
		if n.Value {
			c.emit(OpPushTrue, 0, 0, -1)
		} else {
			c.emit(OpPushFalse, 0, 0, -1)
		}
	case *ast.NullLiteral:
		c.emit(OpPushNull, 0, 0, -1)
	case *ast.UndefinedLiteral:
		c.emit(OpPushUndefined, 0, 0, -1)
	case *ast.ThisExpression:
		c.emit(OpPushThis, 0, 0, -1)
	case *ast.Identifier:
		c.compileIdentifierGet(n.Name)
	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(n)
	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(n)
	case *ast.FunctionLiteral:
		idx, err := c.compileFunctionLiteral(n)
		if err != nil {
			return err
		}
		c.emit(OpMakeFunction, idx, 0, -1)
	case *ast.CallExpression:
		return c.compileCall(n)
	case *ast.NewExpression:
		return c.compileNew(n)
	case *ast.MemberExpression:
		return c.compileMemberGet(n)
	case *ast.BinaryExpression:
		return c.compileBinary(n)
	case *ast.LogicalExpression:
		return c.compileLogical(n)
	case *ast.UnaryExpression:
		return c.compileUnary(n)
	case *ast.UpdateExpression:
		return c.compileUpdate(n)
	case *ast.AssignExpression:
		return c.compileAssign(n)
	case *ast.ConditionalExpression:
		return c.compileConditional(n)
	case *ast.SequenceExpression:
		for i, sub := range n.Expressions {
			if err := c.compileExpr(sub); err != nil {
				return err
			}
			if i != len(n.Expressions)-1 {
				c.emit(OpPop, 0, 0, -1)
			}
		}
	case *ast.YieldExpression:
		if n.Argument != nil {
			if err := c.compileExpr(n.Argument); err != nil {
				return err
			}
		} else {
			c.emit(OpPushUndefined, 0, 0, -1)
		}
		delegate := int32(0)
		if n.Delegate {
			delegate = 1
		}
		c.emit(OpYield, delegate, 0, -1)
	case *ast.AwaitExpression:
		if err := c.compileExpr(n.Argument); err != nil {
			return err
		}
		c.emit(OpAwait, 0, 0, -1)
	default:
		return unsupported("expression")
	}
	return nil
}

func (c *Compiler) compileIdentifierGet(name string) {
	if depth, slot, ok := c.sc.resolve(name); ok {
		c.emit(OpGetBinding, int32(depth), int32(slot), -1)
		return
	}
	c.emit(OpGetName, c.addName(name), 0, -1)
}

func (c *Compiler) compileIdentifierSet(name string) {
	if depth, slot, ok := c.sc.resolve(name); ok {
		c.emit(OpSetBinding, int32(depth), int32(slot), -1)
		return
	}
	c.emit(OpSetName, c.addName(name), 0, -1)
}

func (c *Compiler) compileObjectLiteral(n *ast.ObjectLiteral) error {
	c.emit(OpNewObject, 0, 0, -1)
	for _, p := range n.Props {
		if p.Spread {
			if err := c.compileExpr(p.Value); err != nil {
				return err
			}
			c.emit(OpObjectSpread, 0, 0, -1)
			continue
		}
		switch k := p.Key.(type) {
		case *ast.Identifier:
			c.emit(OpPushLiteral, c.addConst(values.String(values.NewString(k.Name))), 0, -1)
		case *ast.StringLiteral:
			c.emit(OpPushLiteral, c.addConst(values.String(values.NewString(k.Value))), 0, -1)
		default:
			if err := c.compileExpr(p.Key); err != nil {
				return err
			}
		}
		if err := c.compileExpr(p.Value); err != nil {
			return err
		}
		c.emit(OpObjectSet, 0, 0, -1)
	}
	return nil
}

func (c *Compiler) compileArrayLiteral(n *ast.ArrayLiteral) error {
	c.emit(OpNewArray, 0, 0, -1)
	for _, el := range n.Elements {
		if err := c.compileExpr(el.Value); err != nil {
			return err
		}
		if el.Spread {
			c.emit(OpArraySpread, 0, 0, -1)
		} else {
			c.emit(OpArrayPush, 0, 0, -1)
		}
	}
	return nil
}

func (c *Compiler) hasSpreadArg(args []ast.Argument) bool {
	for _, a := range args {
		if a.Spread {
			return true
		}
	}
	return false
}

// compileArgsArray builds a single array value holding every argument,
// spreading any marked ast.Argument.Spread — the calling convention for
// call_spread/construct_spread.
func (c *Compiler) compileArgsArray(args []ast.Argument) error {
	c.emit(OpNewArray, 0, 0, -1)
	for _, a := range args {
		if err := c.compileExpr(a.Value); err != nil {
			return err
		}
		if a.Spread {
			c.emit(OpArraySpread, 0, 0, -1)
		} else {
			c.emit(OpArrayPush, 0, 0, -1)
		}
	}
	return nil
}

func (c *Compiler) compileCall(n *ast.CallExpression) error {
	if err := c.compileCallThisAndCallee(n.Callee); err != nil {
		return err
	}
	if c.hasSpreadArg(n.Args) {
		if err := c.compileArgsArray(n.Args); err != nil {
			return err
		}
		c.emit(OpCallSpread, 0, 0, -1)
		return nil
	}
	for _, a := range n.Args {
		if err := c.compileExpr(a.Value); err != nil {
			return err
		}
	}
	c.emit(OpCall, int32(len(n.Args)), 0, -1)
	return nil
}

// compileCallThisAndCallee pushes [thisValue, calleeFunc] per the VM's
// calling convention, binding `this` to the receiver for method calls.
func (c *Compiler) compileCallThisAndCallee(callee ast.Expression) error {
	member, ok := callee.(*ast.MemberExpression)
	if !ok {
		c.emit(OpPushUndefined, 0, 0, -1)
		return c.compileExpr(callee)
	}
	if err := c.compileExpr(member.Object); err != nil {
		return err
	}
	c.emit(OpDup, 0, 0, -1)
	if !member.Computed {
		ident, ok := member.Property.(*ast.Identifier)
		if !ok {
			return unsupported("computed property key without Computed flag")
		}
		c.emit(OpGetPropName, c.addName(ident.Name), 0, c.newIC())
		return nil
	}
	if err := c.compileExpr(member.Property); err != nil {
		return err
	}
	c.emit(OpGetPropValue, 0, 0, -1)
	return nil
}

func (c *Compiler) compileNew(n *ast.NewExpression) error {
	if err := c.compileExpr(n.Callee); err != nil {
		return err
	}
	if c.hasSpreadArg(n.Args) {
		if err := c.compileArgsArray(n.Args); err != nil {
			return err
		}
		c.emit(OpConstructSpread, 0, 0, -1)
		return nil
	}
	for _, a := range n.Args {
		if err := c.compileExpr(a.Value); err != nil {
			return err
		}
	}
	c.emit(OpConstruct, int32(len(n.Args)), 0, -1)
	return nil
}

func (c *Compiler) compileMemberGet(n *ast.MemberExpression) error {
	if err := c.compileExpr(n.Object); err != nil {
		return err
	}
	if !n.Computed {
		ident, ok := n.Property.(*ast.Identifier)
		if !ok {
			return unsupported("computed property key without Computed flag")
		}
		c.emit(OpGetPropName, c.addName(ident.Name), 0, c.newIC())
		return nil
	}
	if err := c.compileExpr(n.Property); err != nil {
		return err
	}
	c.emit(OpGetPropValue, 0, 0, -1)
	return nil
}

func (c *Compiler) compileBinary(n *ast.BinaryExpression) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		return unsupported("binary operator " + n.Op)
	}
	c.emit(op, 0, 0, -1)
	return nil
}

func (c *Compiler) compileLogical(n *ast.LogicalExpression) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	switch n.Op {
	case "&&":
		c.emit(OpDup, 0, 0, -1)
		jmp := c.emit(OpJumpIfFalse, 0, 0, -1)
		c.emit(OpPop, 0, 0, -1)
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.patch(jmp, c.here())
	case "||":
		c.emit(OpDup, 0, 0, -1)
		jmp := c.emit(OpJumpIfTrue, 0, 0, -1)
		c.emit(OpPop, 0, 0, -1)
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.patch(jmp, c.here())
	case "??":
		c.emit(OpDup, 0, 0, -1)
		jmpNullish := c.emit(OpJumpIfNullish, 0, 0, -1)
		jmpEnd := c.emit(OpJump, 0, 0, -1)
		c.patch(jmpNullish, c.here())
		c.emit(OpPop, 0, 0, -1)
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.patch(jmpEnd, c.here())
	default:
		return unsupported("logical operator " + n.Op)
	}
	return nil
}

func (c *Compiler) compileUnary(n *ast.UnaryExpression) error {
	if n.Op == "delete" {
		m, ok := n.Operand.(*ast.MemberExpression)
		if !ok {
			return unsupported("delete of a non-member operand")
		}
		if err := c.compileExpr(m.Object); err != nil {
			return err
		}
		if ident, isIdent := m.Property.(*ast.Identifier); isIdent && !m.Computed {
			c.emit(OpPushLiteral, c.addConst(values.String(values.NewString(ident.Name))), 0, -1)
		} else if err := c.compileExpr(m.Property); err != nil {
			return err
		}
		c.emit(OpDeleteProp, 0, 0, -1)
		return nil
	}
	if err := c.compileExpr(n.Operand); err != nil {
		return err
	}
	op, ok := unaryOps[n.Op]
	if !ok {
		return unsupported("unary operator " + n.Op)
	}
	c.emit(op, 0, 0, -1)
	return nil
}

func (c *Compiler) compileUpdate(n *ast.UpdateExpression) error {
	ident, ok := n.Operand.(*ast.Identifier)
	if !ok {
		return unsupported("update expression on non-identifier target")
	}
	c.compileIdentifierGet(ident.Name)
	if !n.Prefix {
		c.emit(OpDup, 0, 0, -1)
	}
	c.emit(OpPushLiteral, c.addConst(values.Float64(1)), 0, -1)
	if n.Op == "++" {
		c.emit(OpAdd, 0, 0, -1)
	} else {
		c.emit(OpSub, 0, 0, -1)
	}
	c.compileIdentifierSet(ident.Name)
	if !n.Prefix {
		c.emit(OpPop, 0, 0, -1)
	}
	return nil
}

func (c *Compiler) compileAssign(n *ast.AssignExpression) error {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		if n.Op == "=" {
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
		} else {
			op, ok := compoundOps[n.Op]
			if !ok {
				return unsupported("compound assignment operator " + n.Op)
			}
			c.compileIdentifierGet(target.Name)
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(op, 0, 0, -1)
		}
		c.compileIdentifierSet(target.Name)
		return nil

	case *ast.MemberExpression:
		if target.Computed {
			if n.Op != "=" {
				return unsupported("compound assignment on computed member expression")
			}
			if err := c.compileExpr(target.Object); err != nil {
				return err
			}
			if err := c.compileExpr(target.Property); err != nil {
				return err
			}
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(OpSetPropValue, 0, 0, -1)
			return nil
		}
		ident, ok := target.Property.(*ast.Identifier)
		if !ok {
			return unsupported("computed property key without Computed flag")
		}
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		if n.Op == "=" {
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
		} else {
			op, ok := compoundOps[n.Op]
			if !ok {
				return unsupported("compound assignment operator " + n.Op)
			}
			c.emit(OpDup, 0, 0, -1)
			c.emit(OpGetPropName, c.addName(ident.Name), 0, c.newIC())
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(op, 0, 0, -1)
		}
		c.emit(OpSetPropName, c.addName(ident.Name), 0, c.newIC())
		return nil

	default:
		return unsupported("assignment to non-identifier, non-member target")
	}
}

func (c *Compiler) compileConditional(n *ast.ConditionalExpression) error {
	if err := c.compileExpr(n.Test); err != nil {
		return err
	}
	jmpElse := c.emit(OpJumpIfFalse, 0, 0, -1)
	if err := c.compileExpr(n.Consequent); err != nil {
		return err
	}
	jmpEnd := c.emit(OpJump, 0, 0, -1)
	c.patch(jmpElse, c.here())
	if err := c.compileExpr(n.Alternate); err != nil {
		return err
	}
	c.patch(jmpEnd, c.here())
	return nil
}
