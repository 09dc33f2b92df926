package compiler

import "github.com/nmxmxh/esengine/internal/values"

// HandlerRange marks a [Start, End) instruction range protected by a
// try/catch/finally: if an exception unwinds while pc is in range, control
// transfers to CatchTarget (0 meaning absent) and/or FinallyTarget.
type HandlerRange struct {
	Start, End             int
	CatchTarget            int
	HasCatch               bool
	FinallyTarget          int
	HasFinally             bool
	CatchParam             string // "" if the catch clause binds nothing
}

// CodeBlock is the compiler's sole output: an immutable, self-contained
// unit of compiled code for one function or top-level program body
// (spec.md §3 "CodeBlock (E)").
type CodeBlock struct {
	Name       string
	ParamNames []string
	Code       []Instruction

	// Constants holds every literal value the code references by index
	// (numbers and strings) via push_literal.
	Constants []values.Value

	// Names holds every identifier referenced by get_name/set_name/
	// get_binding's slow path/declare_var, as plain strings (env.Record's
	// by-name API takes strings directly).
	Names []string

	// Functions holds nested function CodeBlocks, referenced by
	// make_function's operand.
	Functions []*CodeBlock

	Handlers []HandlerRange

	IsStrict    bool
	IsArrow     bool
	IsGenerator bool
	IsAsync     bool
	HasArguments bool

	// NumICSlots sizes the per-instance inline-cache vector a VM call
	// frame allocates for get_prop_name/set_prop_name sites.
	NumICSlots int
}

// FindHandler returns the innermost handler range covering pc, if any.
// Structurally nested try statements always finish compiling (and so get
// appended to Handlers) before their enclosing try does, so a forward
// scan from index 0 encounters the innermost covering range first.
func (c *CodeBlock) FindHandler(pc int) (HandlerRange, bool) {
	for _, h := range c.Handlers {
		if pc >= h.Start && pc < h.End {
			return h, true
		}
	}
	return HandlerRange{}, false
}
