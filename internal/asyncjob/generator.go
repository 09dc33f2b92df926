package asyncjob

import (
	"errors"

	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
	"github.com/nmxmxh/esengine/internal/vm"
)

// errNotAGenerator mirrors errNotAPromise for Generator.prototype methods.
var errNotAGenerator = errors.New("asyncjob: receiver is not a Generator")

// generatorData is a Generator object's Payload: the Coroutine driving its
// body plus whether Start has been called yet (a generator function call
// only builds the object — the body runs lazily from the first next()).
type generatorData struct {
	co      *vm.Coroutine
	started bool
}

// onGenerator is installed as VM.OnGenerator: calling a generator function
// never runs its body immediately, it just parks a Coroutine and hands
// back the Generator object (spec.md §4.H "calling a generator function
// returns a Generator object without running its body").
func (d *Driver) onGenerator(v *vm.VM, cb *compiler.CodeBlock, closureEnv *env.Record, this, newTarget values.Value, _ []values.Value) (values.Value, error) {
	co := vm.NewCoroutine(v, cb, closureEnv, this, newTarget)
	o := object.New(&d.r.GeneratorProto)
	o.SetKind(object.KindGenerator)
	o.Payload = &generatorData{co: co}
	h, err := gc.Alloc[values.HeapObject](d.r.Heap, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

func (d *Driver) generatorDataOf(val values.Value) (*generatorData, error) {
	o, release, err := borrowObject(val)
	if err != nil {
		return nil, err
	}
	defer release()
	gd, ok := o.Payload.(*generatorData)
	if !ok {
		return nil, errNotAGenerator
	}
	return gd, nil
}

func (d *Driver) iterResult(value values.Value, done bool) (values.Value, error) {
	o := object.New(&d.r.ObjectProto)
	o.SetKind(object.KindIteratorResult)
	o.DefineOwnProperty(key("value"), object.DataDescriptor(value, true, true, true))
	o.DefineOwnProperty(key("done"), object.DataDescriptor(values.Bool(done), true, true, true))
	h, err := gc.Alloc[values.HeapObject](d.r.Heap, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

func (d *Driver) signalToIterResult(sig vm.Signal) (values.Value, error) {
	switch sig.Kind {
	case vm.SigYield:
		return d.iterResult(sig.Value, false)
	case vm.SigReturn:
		return d.iterResult(sig.Value, true)
	case vm.SigThrow:
		if sig.Err != nil {
			return values.Undefined, sig.Err
		}
		return values.Undefined, &vm.JSException{Value: sig.Value}
	default: // SigAwait: only reachable from an async generator, out of scope (SPEC_FULL.md Non-goals).
		return values.Undefined, d.typeError("await used inside a non-async generator")
	}
}

func (d *Driver) generatorNext(this values.Value, args []values.Value) (values.Value, error) {
	gd, err := d.generatorDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Generator.prototype.next called on a non-Generator")
	}
	if gd.co.Done() {
		return d.iterResult(values.Undefined, true)
	}
	var sig vm.Signal
	if !gd.started {
		gd.started = true
		sig = gd.co.Start()
	} else {
		sig = gd.co.Resume(vm.Resume{Kind: vm.ResumeNext, Value: argOrUndefined(args, 0)})
	}
	return d.signalToIterResult(sig)
}

func (d *Driver) generatorReturn(this values.Value, args []values.Value) (values.Value, error) {
	gd, err := d.generatorDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Generator.prototype.return called on a non-Generator")
	}
	arg := argOrUndefined(args, 0)
	if !gd.started || gd.co.Done() {
		gd.started = true
		return d.iterResult(arg, true)
	}
	sig := gd.co.Resume(vm.Resume{Kind: vm.ResumeReturn, Value: arg})
	return d.signalToIterResult(sig)
}

func (d *Driver) generatorThrow(this values.Value, args []values.Value) (values.Value, error) {
	gd, err := d.generatorDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Generator.prototype.throw called on a non-Generator")
	}
	arg := argOrUndefined(args, 0)
	if !gd.started || gd.co.Done() {
		gd.started = true
		return values.Undefined, &vm.JSException{Value: arg}
	}
	sig := gd.co.Resume(vm.Resume{Kind: vm.ResumeThrow, Value: arg})
	return d.signalToIterResult(sig)
}

func (d *Driver) installGeneratorProto() {
	o, release, err := borrowObject(values.Object(d.r.GeneratorProto))
	if err != nil {
		return
	}
	defer release()
	d.defineMethod(o, "next", d.generatorNext)
	d.defineMethod(o, "return", d.generatorReturn)
	d.defineMethod(o, "throw", d.generatorThrow)
}

// onAsync is installed as VM.OnAsync: an async function call returns a
// Promise immediately, its body driven by a Coroutine whose op_await
// suspensions resolve against PromiseResolve'd awaited values rather than
// an explicit next()/resume() caller (spec.md §4.H, §8 scenario 5).
func (d *Driver) onAsync(v *vm.VM, cb *compiler.CodeBlock, closureEnv *env.Record, this, newTarget values.Value, _ []values.Value) (values.Value, error) {
	co := vm.NewCoroutine(v, cb, closureEnv, this, newTarget)
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	sig := co.Start()
	d.handleAsyncSignal(co, pd, sig)
	return pv, nil
}

// handleAsyncSignal advances an async function's driving promise each time
// its Coroutine suspends or completes, re-entering itself from a queued
// promise reaction once an awaited value settles.
func (d *Driver) handleAsyncSignal(co *vm.Coroutine, pd *promiseData, sig vm.Signal) {
	switch sig.Kind {
	case vm.SigReturn:
		d.resolve(pd, sig.Value)
	case vm.SigThrow:
		if sig.Err != nil {
			d.reject(pd, d.r.NewNativeError("Error", sig.Err.Error()))
		} else {
			d.reject(pd, sig.Value)
		}
	case vm.SigAwait:
		awaited := d.promiseResolveValue(sig.Value)
		d.subscribe(awaited, func(fulfilled bool, value values.Value) {
			var resume vm.Resume
			if fulfilled {
				resume = vm.Resume{Kind: vm.ResumeNext, Value: value}
			} else {
				resume = vm.Resume{Kind: vm.ResumeThrow, Value: value}
			}
			next := co.Resume(resume)
			d.handleAsyncSignal(co, pd, next)
		})
	default: // SigYield: an async function body never emits op_yield.
		d.reject(pd, d.r.NewNativeError("TypeError", "yield used inside an async function"))
	}
}
