package asyncjob

import (
	"errors"
	"strconv"

	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
	"github.com/nmxmxh/esengine/internal/vm"
)

// errNotAPromise signals a Promise.prototype method called on a receiver
// without the internal promiseData payload; callers map it to a TypeError
// at the JS boundary rather than exposing it directly.
var errNotAPromise = errors.New("asyncjob: receiver is not a Promise")

var arrayLengthKey = values.PropertyKey{Str: values.NewString("length")}

func arrayIndexKey(i int) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(strconv.Itoa(i))}
}

// promiseState is the three-state machine ECMA-262's PromiseState
// describes (spec.md §4.H), held as Payload on a KindPromise object.
type promiseState uint8

const (
	statePending promiseState = iota
	stateFulfilled
	stateRejected
)

type promiseData struct {
	state   promiseState
	result  values.Value
	waiters []func(fulfilled bool, value values.Value)
}

// newPromise allocates a pending Promise object and returns both its
// JS-visible Value and the internal state the driver settles directly —
// no resolve/reject functions are synthesized until something asks for
// them (the Promise constructor, or PromiseResolve's thenable adoption).
func (d *Driver) newPromise() (values.Value, *promiseData, error) {
	o := object.New(&d.r.PromiseProto)
	o.SetKind(object.KindPromise)
	pd := &promiseData{state: statePending}
	o.Payload = pd
	h, err := gc.Alloc[values.HeapObject](d.r.Heap, o)
	if err != nil {
		return values.Undefined, nil, err
	}
	return values.Object(h), pd, nil
}

func (d *Driver) promiseDataOf(val values.Value) (*promiseData, error) {
	o, release, err := borrowObject(val)
	if err != nil {
		return nil, err
	}
	defer release()
	if o.Kind() != object.KindPromise {
		return nil, errNotAPromise
	}
	pd, ok := o.Payload.(*promiseData)
	if !ok {
		return nil, errNotAPromise
	}
	return pd, nil
}

// subscribe registers fn to run — as a queued microtask — once pd
// settles. If pd is already settled, fn's job is enqueued immediately
// rather than run inline, so a `.then` on an already-resolved promise
// still honors run-to-completion job ordering (spec.md §8 scenario 5).
func (d *Driver) subscribe(pd *promiseData, fn func(fulfilled bool, value values.Value)) {
	if pd.state == statePending {
		pd.waiters = append(pd.waiters, fn)
		return
	}
	fulfilled := pd.state == stateFulfilled
	value := pd.result
	d.jobs.Enqueue(func() error { fn(fulfilled, value); return nil })
}

// resolve implements ECMA-262's [[Resolve]]: adopting the state of a
// thenable (here, narrowed to our own Promise kind — see DESIGN.md
// component H) rather than fulfilling with the promise object itself.
func (d *Driver) resolve(pd *promiseData, value values.Value) {
	if pd.state != statePending {
		return
	}
	if value.IsObject() {
		if o, release, err := borrowObject(value); err == nil {
			if o.Kind() == object.KindPromise {
				inner, ok := o.Payload.(*promiseData)
				release()
				if ok {
					if inner == pd {
						d.settle(pd, false, d.r.NewNativeError("TypeError", "chaining cycle detected for promise"))
						return
					}
					d.subscribe(inner, func(fulfilled bool, v values.Value) { d.settle(pd, fulfilled, v) })
					return
				}
			} else {
				release()
			}
		}
	}
	d.settle(pd, true, value)
}

func (d *Driver) reject(pd *promiseData, reason values.Value) {
	d.settle(pd, false, reason)
}

func (d *Driver) settle(pd *promiseData, fulfilled bool, value values.Value) {
	if pd.state != statePending {
		return
	}
	if fulfilled {
		pd.state = stateFulfilled
	} else {
		pd.state = stateRejected
	}
	pd.result = value
	waiters := pd.waiters
	pd.waiters = nil
	for _, fn := range waiters {
		fn := fn
		d.jobs.Enqueue(func() error { fn(fulfilled, value); return nil })
	}
}

// promiseResolveValue implements PromiseResolve: returns value itself if
// already one of our promises, otherwise wraps it in a newly resolved one
// (used to coerce an awaited value per spec.md §4.H op_await semantics).
func (d *Driver) promiseResolveValue(value values.Value) *promiseData {
	if value.IsObject() {
		if o, release, err := borrowObject(value); err == nil {
			if o.Kind() == object.KindPromise {
				if pd, ok := o.Payload.(*promiseData); ok {
					release()
					return pd
				}
			}
			release()
		}
	}
	_, pd, err := d.newPromise()
	if err != nil {
		pd = &promiseData{state: stateRejected, result: d.r.NewNativeError("Error", err.Error())}
		return pd
	}
	d.resolve(pd, value)
	return pd
}

// then implements PerformPromiseThen: a new promise settled by whichever
// reaction handler runs, or by passthrough when no handler is given.
func (d *Driver) then(pd *promiseData, onFulfilled, onRejected values.Value) (values.Value, error) {
	resultVal, resultPd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	d.subscribe(pd, func(fulfilled bool, value values.Value) {
		handler := onRejected
		if fulfilled {
			handler = onFulfilled
		}
		if !handler.IsCallable() {
			if fulfilled {
				d.resolve(resultPd, value)
			} else {
				d.reject(resultPd, value)
			}
			return
		}
		result, callErr := d.v.CallValue(handler, values.Undefined, []values.Value{value})
		if callErr != nil {
			if je, ok := callErr.(*vm.JSException); ok {
				d.reject(resultPd, je.Value)
				return
			}
			d.reject(resultPd, d.r.NewNativeError("Error", callErr.Error()))
			return
		}
		d.resolve(resultPd, result)
	})
	return resultVal, nil
}

func (d *Driver) thenMethod(this values.Value, args []values.Value) (values.Value, error) {
	pd, err := d.promiseDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Promise.prototype.then called on a non-Promise")
	}
	onFulfilled, onRejected := argOrUndefined(args, 0), argOrUndefined(args, 1)
	return d.then(pd, onFulfilled, onRejected)
}

func (d *Driver) catchMethod(this values.Value, args []values.Value) (values.Value, error) {
	pd, err := d.promiseDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Promise.prototype.catch called on a non-Promise")
	}
	return d.then(pd, values.Undefined, argOrUndefined(args, 0))
}

func (d *Driver) finallyMethod(this values.Value, args []values.Value) (values.Value, error) {
	pd, err := d.promiseDataOf(this)
	if err != nil {
		return values.Undefined, d.typeError("Promise.prototype.finally called on a non-Promise")
	}
	onFinally := argOrUndefined(args, 0)
	if !onFinally.IsCallable() {
		return d.then(pd, values.Undefined, values.Undefined)
	}
	wrapFulfilled, ferr := d.r.NewNativeFunction("", func(_ values.Value, a []values.Value) (values.Value, error) {
		if _, err := d.v.CallValue(onFinally, values.Undefined, nil); err != nil {
			return values.Undefined, err
		}
		return argOrUndefined(a, 0), nil
	})
	wrapRejected, rerr := d.r.NewNativeFunction("", func(_ values.Value, a []values.Value) (values.Value, error) {
		if _, err := d.v.CallValue(onFinally, values.Undefined, nil); err != nil {
			return values.Undefined, err
		}
		return values.Undefined, &vm.JSException{Value: argOrUndefined(a, 0)}
	})
	if ferr != nil || rerr != nil {
		return d.then(pd, values.Undefined, values.Undefined)
	}
	return d.then(pd, wrapFulfilled, wrapRejected)
}

func (d *Driver) installPromiseProto() {
	o, release, err := borrowObject(values.Object(d.r.PromiseProto))
	if err != nil {
		return
	}
	defer release()
	d.defineMethod(o, "then", d.thenMethod)
	d.defineMethod(o, "catch", d.catchMethod)
	d.defineMethod(o, "finally", d.finallyMethod)
}

func (d *Driver) promiseConstructorCall(_ values.Value, args []values.Value) (values.Value, error) {
	executor := argOrUndefined(args, 0)
	if !executor.IsCallable() {
		return values.Undefined, d.typeError("Promise resolver is not a function")
	}
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	resolveFn, _ := d.r.NewNativeFunction("", func(_ values.Value, a []values.Value) (values.Value, error) {
		d.resolve(pd, argOrUndefined(a, 0))
		return values.Undefined, nil
	})
	rejectFn, _ := d.r.NewNativeFunction("", func(_ values.Value, a []values.Value) (values.Value, error) {
		d.reject(pd, argOrUndefined(a, 0))
		return values.Undefined, nil
	})
	_, callErr := d.v.CallValue(executor, values.Undefined, []values.Value{resolveFn, rejectFn})
	if callErr != nil {
		if je, ok := callErr.(*vm.JSException); ok {
			d.reject(pd, je.Value)
		} else {
			return values.Undefined, callErr
		}
	}
	return pv, nil
}

// ResolvedPromise and RejectedPromise let callers outside this package
// (engine.go's Module::evaluate) hand back an already-settled Promise
// without reaching into the unexported promiseData machinery.
func (d *Driver) ResolvedPromise(value values.Value) (values.Value, error) {
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	d.resolve(pd, value)
	return pv, nil
}

func (d *Driver) RejectedPromise(reason values.Value) (values.Value, error) {
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	d.reject(pd, reason)
	return pv, nil
}

func (d *Driver) promiseResolveStatic(_ values.Value, args []values.Value) (values.Value, error) {
	value := argOrUndefined(args, 0)
	if value.IsObject() {
		if o, release, err := borrowObject(value); err == nil {
			isPromise := o.Kind() == object.KindPromise
			release()
			if isPromise {
				return value, nil
			}
		}
	}
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	d.resolve(pd, value)
	return pv, nil
}

func (d *Driver) promiseRejectStatic(_ values.Value, args []values.Value) (values.Value, error) {
	pv, pd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	d.reject(pd, argOrUndefined(args, 0))
	return pv, nil
}

// promiseAllStatic implements Promise.all over an already-materialized
// array-like of promises (spec.md's simplified native iteration — see
// DESIGN.md component F — applies here too: args[0] must already be an
// array, not an arbitrary iterable).
func (d *Driver) promiseAllStatic(_ values.Value, args []values.Value) (values.Value, error) {
	items, err := d.collectArrayLike(argOrUndefined(args, 0))
	if err != nil {
		return values.Undefined, err
	}
	resultVal, resultPd, err := d.newPromise()
	if err != nil {
		return values.Undefined, err
	}
	if len(items) == 0 {
		arr, aerr := d.buildArray(nil)
		if aerr != nil {
			return values.Undefined, aerr
		}
		d.resolve(resultPd, arr)
		return resultVal, nil
	}
	results := make([]values.Value, len(items))
	remaining := len(items)
	for i, item := range items {
		i := i
		pd := d.promiseResolveValue(item)
		d.subscribe(pd, func(fulfilled bool, value values.Value) {
			if resultPd.state != statePending {
				return
			}
			if !fulfilled {
				d.reject(resultPd, value)
				return
			}
			results[i] = value
			remaining--
			if remaining == 0 {
				arr, aerr := d.buildArray(results)
				if aerr != nil {
					d.reject(resultPd, d.r.NewNativeError("Error", aerr.Error()))
					return
				}
				d.resolve(resultPd, arr)
			}
		})
	}
	return resultVal, nil
}

// collectArrayLike reads a dense array-like object's "length" and indexed
// properties eagerly — the same simplified-iteration stance DESIGN.md
// documents for the VM's native for-of lowering (component F): Promise.all
// here accepts a real array, not an arbitrary iterable.
func (d *Driver) collectArrayLike(val values.Value) ([]values.Value, error) {
	if !val.IsObject() {
		return nil, d.typeError("Promise.all argument must be an array")
	}
	o, release, err := borrowObject(val)
	if err != nil {
		return nil, err
	}
	defer release()
	lengthVal, err := o.Get(arrayLengthKey, val)
	if err != nil {
		return nil, err
	}
	n := int(lengthVal.ToNumber())
	out := make([]values.Value, n)
	for i := 0; i < n; i++ {
		v, err := o.Get(arrayIndexKey(i), val)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Driver) buildArray(items []values.Value) (values.Value, error) {
	o := object.NewArray(&d.r.ArrayProto)
	for i, v := range items {
		o.DefineOwnProperty(arrayIndexKey(i), object.DataDescriptor(v, true, true, true))
	}
	h, err := gc.Alloc[values.HeapObject](d.r.Heap, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

func (d *Driver) installPromiseConstructor() {
	ctor, err := d.r.NewNativeFunction("Promise", d.promiseConstructorCall)
	if err != nil {
		return
	}
	d.r.DefineGlobal("Promise", ctor)
	o, release, err := borrowObject(ctor)
	if err != nil {
		return
	}
	defer release()
	d.defineMethod(o, "resolve", d.promiseResolveStatic)
	d.defineMethod(o, "reject", d.promiseRejectStatic)
	d.defineMethod(o, "all", d.promiseAllStatic)
}

func (d *Driver) defineMethod(o *object.Object, name string, fn func(values.Value, []values.Value) (values.Value, error)) {
	v, err := d.r.NewNativeFunction(name, fn)
	if err != nil {
		return
	}
	o.DefineOwnProperty(key(name), object.DataDescriptor(v, true, false, true))
}

func argOrUndefined(args []values.Value, i int) values.Value {
	if i < len(args) {
		return args[i]
	}
	return values.Undefined
}

func (d *Driver) typeError(msg string) error {
	return &vm.JSException{Value: d.r.NewNativeError("TypeError", msg)}
}
