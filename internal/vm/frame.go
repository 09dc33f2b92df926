package vm

import (
	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/ic"
	"github.com/nmxmxh/esengine/internal/values"
)

// iterKind distinguishes the closed set of native iteration sources the
// simplified for-of lowering supports (DESIGN.md component F: no general
// Symbol.iterator dispatch).
type iterKind uint8

const (
	iterArray iterKind = iota
	iterString
)

type iterState struct {
	kind   iterKind
	source values.Value
	idx    int
	length int
}

// CallFrame is one activation record: a CodeBlock, its operand stack, its
// environment chain, and a per-call inline-cache vector sized from the
// CodeBlock (spec.md §4.F "CallFrame").
type CallFrame struct {
	cb  *compiler.CodeBlock
	pc  int
	stk []values.Value
	env *env.Record
	ic  ic.Vector

	this      values.Value
	newTarget values.Value

	iters []iterState

	pendingException *values.Value

	// co is non-nil when this frame is the body of a generator/async
	// function driven through a Coroutine: op_yield/op_await rendezvous on
	// its channels instead of running to completion in one go.
	co *Coroutine
}

func newFrame(cb *compiler.CodeBlock, envRec *env.Record, this, newTarget values.Value) *CallFrame {
	return &CallFrame{
		cb:        cb,
		env:       envRec,
		ic:        ic.NewVector(cb.NumICSlots),
		this:      this,
		newTarget: newTarget,
	}
}

func (f *CallFrame) push(v values.Value) { f.stk = append(f.stk, v) }

func (f *CallFrame) pop() values.Value {
	n := len(f.stk) - 1
	v := f.stk[n]
	f.stk = f.stk[:n]
	return v
}

func (f *CallFrame) peek() values.Value { return f.stk[len(f.stk)-1] }

// roots returns every heap object cell this frame's live state can reach,
// for registration with the GC as a transient RootProvider (spec.md §4.A).
func (f *CallFrame) roots() []gc.CellID {
	var out []gc.CellID
	collect := func(v values.Value) {
		if v.IsObject() {
			out = append(out, v.AsObject().ID())
		}
	}
	for _, v := range f.stk {
		collect(v)
	}
	collect(f.this)
	collect(f.newTarget)
	for _, it := range f.iters {
		collect(it.source)
	}
	return out
}
