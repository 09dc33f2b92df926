package compiler

import "github.com/nmxmxh/esengine/internal/ast"

// compileStatements compiles a statement list as a block body: every
// expression statement's value is discarded (pop), matching function/
// block-body semantics. The top-level program uses its own loop in
// Compile to keep the final completion value instead.
func (c *Compiler) compileStatements(body []ast.Statement) error {
	needsScope := blockNeedsScope(body)
	if needsScope {
		c.pushScope(false)
	}
	for _, s := range body {
		if err := c.compileStatement(s); err != nil {
			if needsScope {
				c.popScope()
			}
			return err
		}
	}
	if needsScope {
		c.popScope()
	}
	return nil
}

func (c *Compiler) compileStatement(s ast.Statement) error {
	switch n := s.(type) {
	case *ast.ExprStatement:
		if err := c.compileExpr(n.X); err != nil {
			return err
		}
		c.emit(OpPop, 0, 0, -1)
		return nil

	case *ast.VarDecl:
		return c.compileVarDecl(n)

	case *ast.BlockStatement:
		return c.compileStatements(n.Body)

	case *ast.IfStatement:
		return c.compileIf(n)

	case *ast.WhileStatement:
		return c.compileWhile(n)

	case *ast.ForStatement:
		return c.compileFor(n)

	case *ast.ForOfStatement:
		return c.compileForOf(n)

	case *ast.ReturnStatement:
		return c.compileReturn(n)

	case *ast.ThrowStatement:
		if err := c.compileExpr(n.Argument); err != nil {
			return err
		}
		c.emit(OpThrow, 0, 0, -1)
		return nil

	case *ast.BreakStatement:
		return c.compileBreak()

	case *ast.ContinueStatement:
		return c.compileContinue()

	case *ast.TryStatement:
		return c.compileTry(n)

	case *ast.FunctionDecl:
		return c.compileFunctionDecl(n)

	default:
		return unsupported("statement")
	}
}

func (c *Compiler) compileVarDecl(n *ast.VarDecl) error {
	mutable := int32(1)
	if n.Kind == ast.VarConst {
		mutable = 0
	}
	for _, d := range n.Decls {
		slot := c.sc.declare(d.Name)
		nameIdx := c.addName(d.Name)
		c.emit(OpDeclareVar, nameIdx, mutable, -1)
		if d.Init != nil {
			if err := c.compileExpr(d.Init); err != nil {
				return err
			}
		} else {
			c.emit(OpPushUndefined, 0, 0, -1)
		}
		c.emit(OpInitBinding, 0, int32(slot), -1)
	}
	return nil
}

func (c *Compiler) compileFunctionDecl(n *ast.FunctionDecl) error {
	slot := c.sc.declare(n.Fn.Name)
	nameIdx := c.addName(n.Fn.Name)
	funcIdx, err := c.compileFunctionLiteral(n.Fn)
	if err != nil {
		return err
	}
	c.emit(OpDeclareVar, nameIdx, 1, -1)
	c.emit(OpMakeFunction, funcIdx, 0, -1)
	c.emit(OpInitBinding, 0, int32(slot), -1)
	return nil
}

func (c *Compiler) compileIf(n *ast.IfStatement) error {
	if err := c.compileExpr(n.Test); err != nil {
		return err
	}
	jumpElse := c.emit(OpJumpIfFalse, 0, 0, -1)
	if err := c.compileStatement(n.Consequent); err != nil {
		return err
	}
	if n.Alternate == nil {
		c.patch(jumpElse, c.here())
		return nil
	}
	jumpEnd := c.emit(OpJump, 0, 0, -1)
	c.patch(jumpElse, c.here())
	if err := c.compileStatement(n.Alternate); err != nil {
		return err
	}
	c.patch(jumpEnd, c.here())
	return nil
}

func (c *Compiler) compileWhile(n *ast.WhileStatement) error {
	loopStart := c.here()
	if err := c.compileExpr(n.Test); err != nil {
		return err
	}
	jumpEnd := c.emit(OpJumpIfFalse, 0, 0, -1)

	c.loops = append(c.loops, loopCtx{baseEnvDepth: c.envDepth})
	if err := c.compileStatement(n.Body); err != nil {
		c.loops = c.loops[:len(c.loops)-1]
		return err
	}
	lc := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	c.emit(OpJump, loopStart, 0, -1)
	end := c.here()
	c.patch(jumpEnd, end)
	for _, p := range lc.breakPatches {
		c.patch(p, end)
	}
	for _, p := range lc.continuePatches {
		c.patch(p, loopStart)
	}
	return nil
}

func (c *Compiler) compileFor(n *ast.ForStatement) error {
	hasOwnScope := false
	if decl, ok := n.Init.(*ast.VarDecl); ok {
		hasOwnScope = true
		c.pushScope(false)
		if err := c.compileVarDecl(decl); err != nil {
			c.popScope()
			return err
		}
	} else if initExpr, ok := n.Init.(ast.Expression); ok && initExpr != nil {
		if err := c.compileExpr(initExpr); err != nil {
			return err
		}
		c.emit(OpPop, 0, 0, -1)
	}

	loopStart := c.here()
	jumpEnd := -1
	if n.Test != nil {
		if err := c.compileExpr(n.Test); err != nil {
			return err
		}
		jumpEnd = c.emit(OpJumpIfFalse, 0, 0, -1)
	}

	c.loops = append(c.loops, loopCtx{baseEnvDepth: c.envDepth})
	if err := c.compileStatement(n.Body); err != nil {
		c.loops = c.loops[:len(c.loops)-1]
		if hasOwnScope {
			c.popScope()
		}
		return err
	}
	lc := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	updateStart := c.here()
	if n.Update != nil {
		if err := c.compileExpr(n.Update); err != nil {
			return err
		}
		c.emit(OpPop, 0, 0, -1)
	}
	c.emit(OpJump, loopStart, 0, -1)
	end := c.here()
	if jumpEnd != -1 {
		c.patch(jumpEnd, end)
	}
	for _, p := range lc.breakPatches {
		c.patch(p, end)
	}
	for _, p := range lc.continuePatches {
		c.patch(p, updateStart)
	}
	if hasOwnScope {
		c.popScope()
	}
	return nil
}

func (c *Compiler) compileForOf(n *ast.ForOfStatement) error {
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	c.emit(OpGetIterator, 0, 0, -1)

	loopStart := c.here()
	c.emit(OpIteratorNext, 0, 0, -1) // pushes value, then done
	jumpDone := c.emit(OpJumpIfTrue, 0, 0, -1)

	c.pushScope(false)
	mutable := int32(1)
	if n.Kind == ast.VarConst {
		mutable = 0
	}
	slot := c.sc.declare(n.Name)
	nameIdx := c.addName(n.Name)
	c.emit(OpDeclareVar, nameIdx, mutable, -1)
	c.emit(OpInitBinding, 0, int32(slot), -1)

	// The per-iteration scope is inside the loop, so break/continue must
	// pop it too: the loop's base depth is the one before pushScope.
	c.loops = append(c.loops, loopCtx{baseEnvDepth: c.envDepth - 1, isForOf: true})
	if err := c.compileStatement(n.Body); err != nil {
		c.loops = c.loops[:len(c.loops)-1]
		c.popScope()
		return err
	}
	lc := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	c.popScope()

	c.emit(OpJump, loopStart, 0, -1)

	c.patch(jumpDone, c.here())
	c.emit(OpPop, 0, 0, -1) // discard the leftover iterated value
	c.emit(OpIteratorClose, 0, 0, -1)
	end := c.here()

	for _, p := range lc.breakPatches {
		c.patch(p, end)
	}
	for _, p := range lc.continuePatches {
		c.patch(p, loopStart)
	}
	return nil
}

func (c *Compiler) unwindToLoop(lc loopCtx) {
	for d := c.envDepth; d > lc.baseEnvDepth; d-- {
		c.emit(OpPopEnv, 0, 0, -1)
	}
}

func (c *Compiler) compileBreak() error {
	if len(c.loops) == 0 {
		return unsupported("break outside loop")
	}
	idx := len(c.loops) - 1
	lc := &c.loops[idx]
	c.unwindToLoop(*lc)
	if lc.isForOf {
		c.emit(OpIteratorClose, 0, 0, -1)
	}
	pos := c.emit(OpJump, 0, 0, -1)
	lc.breakPatches = append(lc.breakPatches, pos)
	return nil
}

func (c *Compiler) compileContinue() error {
	if len(c.loops) == 0 {
		return unsupported("continue outside loop")
	}
	idx := len(c.loops) - 1
	lc := &c.loops[idx]
	c.unwindToLoop(*lc)
	pos := c.emit(OpJump, 0, 0, -1)
	lc.continuePatches = append(lc.continuePatches, pos)
	return nil
}

func (c *Compiler) compileReturn(n *ast.ReturnStatement) error {
	if n.Argument != nil {
		if err := c.compileExpr(n.Argument); err != nil {
			return err
		}
	} else {
		c.emit(OpPushUndefined, 0, 0, -1)
	}
	for i := len(c.finallies) - 1; i >= 0; i-- {
		if err := c.compileStatements(c.finallies[i].Body); err != nil {
			return err
		}
	}
	c.emit(OpReturn, 0, 0, -1)
	return nil
}

func (c *Compiler) compileTry(n *ast.TryStatement) error {
	tryStart := c.here()
	if n.Finally != nil {
		c.finallies = append(c.finallies, n.Finally)
	}
	if err := c.compileStatements(n.Block.Body); err != nil {
		return err
	}
	if n.Finally != nil {
		c.finallies = c.finallies[:len(c.finallies)-1]
	}
	tryEnd := c.here()

	if n.Finally != nil {
		if err := c.compileStatements(n.Finally.Body); err != nil {
			return err
		}
	}

	skipCatch := -1
	if n.Catch != nil {
		skipCatch = c.emit(OpJump, 0, 0, -1)
	}

	catchStart := c.here()
	if n.Catch != nil {
		if n.Finally != nil {
			c.finallies = append(c.finallies, n.Finally)
		}
		c.pushScope(false)
		if n.Catch.Param != "" {
			slot := c.sc.declare(n.Catch.Param)
			nameIdx := c.addName(n.Catch.Param)
			c.emit(OpDeclareVar, nameIdx, 1, -1)
			c.emit(OpInitBinding, 0, int32(slot), -1)
		} else {
			c.emit(OpPop, 0, 0, -1) // discard the exception value
		}
		if err := c.compileStatements(n.Catch.Body.Body); err != nil {
			c.popScope()
			return err
		}
		c.popScope()
		if n.Finally != nil {
			c.finallies = c.finallies[:len(c.finallies)-1]
			if err := c.compileStatements(n.Finally.Body); err != nil {
				return err
			}
		}
	}
	afterCatch := c.here()
	if skipCatch != -1 {
		c.patch(skipCatch, afterCatch)
	}

	skipFinallyOnly := -1
	finallyOnlyTarget := afterCatch
	if n.Finally != nil {
		skipFinallyOnly = c.emit(OpJump, 0, 0, -1)
		finallyOnlyTarget = c.here()
		if err := c.compileStatements(n.Finally.Body); err != nil {
			return err
		}
		c.emit(OpRethrow, 0, 0, -1)
	}
	afterAll := c.here()
	if skipFinallyOnly != -1 {
		c.patch(skipFinallyOnly, afterAll)
	}

	h := HandlerRange{Start: tryStart, End: tryEnd}
	if n.Catch != nil {
		h.HasCatch = true
		h.CatchTarget = catchStart
		h.CatchParam = n.Catch.Param
	}
	if n.Finally != nil {
		h.HasFinally = true
		h.FinallyTarget = finallyOnlyTarget
	}
	c.handlers = append(c.handlers, h)

	if n.Catch != nil && n.Finally != nil {
		c.handlers = append(c.handlers, HandlerRange{
			Start: catchStart, End: afterCatch,
			HasFinally: true, FinallyTarget: finallyOnlyTarget,
		})
	}
	return nil
}
