package compiler

import (
	"fmt"

	"github.com/nmxmxh/esengine/internal/ast"
	"github.com/nmxmxh/esengine/internal/values"
)

// CompileError is returned for AST shapes the compiler cannot lower
// (spec.md scopes the parser/compiler's input as whatever the front end
// accepted — this only rejects constructs genuinely outside the
// representative subset, e.g. destructuring patterns).
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return "CompileError: " + e.Msg }

type loopCtx struct {
	breakPatches    []int
	continuePatches []int
	baseEnvDepth    int
	isForOf         bool
}

// Compiler lowers one function or program body to a CodeBlock. A new
// Compiler is created per function (including the implicit top-level
// program function); nested functions recurse into a child Compiler.
type Compiler struct {
	parent *Compiler

	code      []Instruction
	consts    []values.Value
	names     []string
	functions []*CodeBlock
	handlers  []HandlerRange
	icCount   int

	sc       *scope
	envDepth int

	loops     []loopCtx
	finallies []*ast.BlockStatement

	isGenerator bool
	isAsync     bool
	isStrict    bool
	paramNames  []string
}

// directivePrologueIsStrict scans the leading run of bare string-literal
// expression statements (ECMA-262's directive prologue) for "use strict".
func directivePrologueIsStrict(body []ast.Statement) bool {
	for _, s := range body {
		expr, ok := s.(*ast.ExprStatement)
		if !ok {
			break
		}
		lit, ok := expr.X.(*ast.StringLiteral)
		if !ok {
			break
		}
		if lit.Value == "use strict" {
			return true
		}
	}
	return false
}

// Compile compiles a top-level program into its CodeBlock. Unlike a
// function body, a script's completion value (spec.md §6 Context::eval
// "returning its completion value") is the value of its last expression
// statement, if it has one, rather than always undefined.
func Compile(prog *ast.Program) (*CodeBlock, error) {
	c := &Compiler{sc: newScope(nil, true), isStrict: directivePrologueIsStrict(prog.Body)}
	if err := c.compileProgramBody(prog.Body); err != nil {
		return nil, err
	}
	return c.finish(""), nil
}

// compileProgramBody is compileStatements, specialized so a trailing
// expression statement leaves its value on the stack for op_return
// instead of being discarded like every other statement.
func (c *Compiler) compileProgramBody(body []ast.Statement) error {
	needsScope := blockNeedsScope(body)
	if needsScope {
		c.pushScope(false)
	}
	for i, s := range body {
		if i == len(body)-1 {
			if expr, ok := s.(*ast.ExprStatement); ok {
				if err := c.compileExpr(expr.X); err != nil {
					if needsScope {
						c.popScope()
					}
					return err
				}
				if needsScope {
					c.popScope()
				}
				c.emit(OpReturn, 0, 0, -1)
				return nil
			}
		}
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
	c.emit(OpReturnUndefined, 0, 0, -1)
	return nil
}

func (c *Compiler) finish(name string) *CodeBlock {
	return &CodeBlock{
		Name:        name,
		ParamNames:  c.paramNames,
		Code:        c.code,
		Constants:   c.consts,
		Names:       c.names,
		Functions:   c.functions,
		Handlers:    c.handlers,
		IsStrict:    c.isStrict,
		IsGenerator: c.isGenerator,
		IsAsync:     c.isAsync,
		NumICSlots:  c.icCount,
	}
}

func (c *Compiler) emit(op Opcode, a, b int32, ic int32) int {
	c.code = append(c.code, Instruction{Op: op, A: a, B: b, IC: ic})
	return len(c.code) - 1
}

func (c *Compiler) patch(pos int, target int32) {
	c.code[pos].A = target
}

func (c *Compiler) here() int32 { return int32(len(c.code)) }

func (c *Compiler) addConst(v values.Value) int32 {
	c.consts = append(c.consts, v)
	return int32(len(c.consts) - 1)
}

func (c *Compiler) addName(name string) int32 {
	for i, n := range c.names {
		if n == name {
			return int32(i)
		}
	}
	c.names = append(c.names, name)
	return int32(len(c.names) - 1)
}

func (c *Compiler) newIC() int32 {
	c.icCount++
	return int32(c.icCount - 1)
}

func (c *Compiler) pushScope(isFunc bool) {
	c.sc = newScope(c.sc, isFunc)
	c.envDepth++
	c.emit(OpPushEnv, 0, 0, -1)
}

func (c *Compiler) popScope() {
	c.sc = c.sc.parent
	c.envDepth--
	c.emit(OpPopEnv, 0, 0, -1)
}

// compileFunctionLiteral compiles fn into a nested CodeBlock and returns
// its index in c.functions.
func (c *Compiler) compileFunctionLiteral(fn *ast.FunctionLiteral) (int32, error) {
	child := &Compiler{
		parent:      c,
		isGenerator: fn.IsGenerator,
		isAsync:     fn.IsAsync,
		isStrict:    c.isStrict || directivePrologueIsStrict(fn.Body.Body),
	}
	child.sc = newScope(nil, true)
	child.paramNames = fn.Params
	for _, p := range fn.Params {
		child.sc.declare(p)
	}
	if err := child.compileStatements(fn.Body.Body); err != nil {
		return 0, err
	}
	child.emit(OpReturnUndefined, 0, 0, -1)
	cb := child.finish(fn.Name)
	c.functions = append(c.functions, cb)
	return int32(len(c.functions) - 1), nil
}

func blockNeedsScope(body []ast.Statement) bool {
	for _, s := range body {
		switch s.(type) {
		case *ast.VarDecl, *ast.FunctionDecl:
			return true
		}
	}
	return false
}

func unsupported(what string) error {
	return &CompileError{Msg: fmt.Sprintf("unsupported construct: %s", what)}
}
