package vm

import (
	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/realm"
	"github.com/nmxmxh/esengine/internal/values"
)

// closure implements object.Callable for a compiled user function: a
// CodeBlock plus the environment it closed over (spec.md §4.F "closures").
type closure struct {
	vm         *VM
	cb         *compiler.CodeBlock
	closureEnv *env.Record
}

func (c *closure) Call(this values.Value, args []values.Value) (values.Value, error) {
	return c.vm.invoke(c.cb, c.closureEnv, this, values.Undefined, args)
}

func (c *closure) Construct(args []values.Value, newTarget values.Value) (values.Value, error) {
	return c.vm.Construct(c.cb, c.closureEnv, newTarget, args, newTarget)
}

// makeFunction allocates the function object for make_function, closing
// cb over the current frame's environment.
func (v *VM) makeFunction(f *CallFrame, cb *compiler.CodeBlock) (values.Value, error) {
	cl := &closure{vm: v, cb: cb, closureEnv: f.env}
	o := newFunctionObject(v.Realm, cl)
	h, err := allocObject(v.Realm, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

// CallValue invokes any callable Value from outside the package —
// internal/asyncjob drives promise reaction handlers and await
// continuations through this, since it cannot reach the unexported
// opcode-level call machinery directly.
func (v *VM) CallValue(fn values.Value, this values.Value, args []values.Value) (values.Value, error) {
	return v.callValue(fn, this, args)
}

// callValue invokes any callable Value (a closure or a realm.NativeFunc),
// routing native host calls through the circuit breaker (spec.md §4.F /
// SPEC_FULL.md DOMAIN STACK).
func (v *VM) callValue(fn values.Value, this values.Value, args []values.Value) (values.Value, error) {
	if !fn.IsObject() {
		return values.Undefined, v.throwTypeError("value is not callable")
	}
	o, release, err := v.asObject(fn)
	if err != nil {
		return values.Undefined, err
	}
	defer release()
	if !o.IsCallable() {
		return values.Undefined, v.throwTypeError("value is not callable")
	}
	if nf, ok := payloadOf(o).(*realm.NativeFunc); ok {
		return v.CallNative(nf, this, args)
	}
	return o.Call(this, args)
}
