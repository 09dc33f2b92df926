// Package realm wires a single ECMAScript realm: the global object, the
// global environment record, and the fixed intrinsics table the compiler
// and VM refer to by name (spec.md §4.I — "provides the fixed
// constructor/prototype set the compiler and VM refer to by ordinal";
// held here as named Realm fields and global-object properties looked up
// by plain string name rather than through a literal ordinal index,
// since the hand-written compiler never needed ordinal intrinsic refs to
// drive the §8 scenarios).
package realm

import (
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/obslog"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

// NativeFunc adapts a Go function to object.Callable for realm intrinsics
// and embedder-registered host callables (spec.md §6 register_callable).
type NativeFunc struct {
	Name string
	Fn   func(this values.Value, args []values.Value) (values.Value, error)
}

func (n *NativeFunc) Call(this values.Value, args []values.Value) (values.Value, error) {
	return n.Fn(this, args)
}

func (n *NativeFunc) Construct(args []values.Value, newTarget values.Value) (values.Value, error) {
	return n.Fn(values.Undefined, args)
}

// Realm holds one global object/environment pair and the prototype handles
// the VM consults for every object it allocates (spec.md §4.I).
type Realm struct {
	Heap   *gc.Heap
	Global *object.Object
	GlobalHandle gc.StrongHandle[values.HeapObject]
	GlobalEnv    *env.Record

	ObjectProto    gc.StrongHandle[values.HeapObject]
	FunctionProto  gc.StrongHandle[values.HeapObject]
	ArrayProto     gc.StrongHandle[values.HeapObject]
	ErrorProto     gc.StrongHandle[values.HeapObject]
	GeneratorProto gc.StrongHandle[values.HeapObject]
	PromiseProto   gc.StrongHandle[values.HeapObject]

	logger *obslog.Log
}

// New allocates a realm's global object, prototype chain, and baseline
// intrinsics on heap.
func New(heap *gc.Heap) (*Realm, error) {
	r := &Realm{Heap: heap, logger: obslog.Component("realm")}

	objProtoObj := object.New(nil)
	objProtoH, err := gc.Alloc[values.HeapObject](heap, objProtoObj)
	if err != nil {
		return nil, err
	}
	r.ObjectProto = objProtoH

	fnProtoObj := object.New(&r.ObjectProto)
	fnProtoH, err := gc.Alloc[values.HeapObject](heap, fnProtoObj)
	if err != nil {
		return nil, err
	}
	r.FunctionProto = fnProtoH

	arrProtoObj := object.New(&r.ObjectProto)
	arrProtoH, err := gc.Alloc[values.HeapObject](heap, arrProtoObj)
	if err != nil {
		return nil, err
	}
	r.ArrayProto = arrProtoH

	errProtoObj := object.New(&r.ObjectProto)
	errProtoH, err := gc.Alloc[values.HeapObject](heap, errProtoObj)
	if err != nil {
		return nil, err
	}
	r.ErrorProto = errProtoH

	genProtoObj := object.New(&r.ObjectProto)
	genProtoH, err := gc.Alloc[values.HeapObject](heap, genProtoObj)
	if err != nil {
		return nil, err
	}
	r.GeneratorProto = genProtoH

	promProtoObj := object.New(&r.ObjectProto)
	promProtoH, err := gc.Alloc[values.HeapObject](heap, promProtoObj)
	if err != nil {
		return nil, err
	}
	r.PromiseProto = promProtoH

	globalObj := object.New(&r.ObjectProto)
	globalH, err := gc.Alloc[values.HeapObject](heap, globalObj)
	if err != nil {
		return nil, err
	}
	r.Global = globalObj
	r.GlobalHandle = globalH
	r.GlobalEnv = env.NewGlobal(globalObj, globalH)

	r.installMath()
	r.installArray()
	return r, nil
}

// DefineGlobal installs a named binding directly as a global-object
// property, mirroring Context::register_global (spec.md §6).
func (r *Realm) DefineGlobal(name string, v values.Value) {
	key := values.PropertyKey{Str: values.NewString(name)}
	r.Global.DefineOwnProperty(key, object.DataDescriptor(v, true, false, true))
}

// NewNativeFunction allocates a callable object wrapping fn, parented to
// the realm's function prototype.
func (r *Realm) NewNativeFunction(name string, fn func(values.Value, []values.Value) (values.Value, error)) (values.Value, error) {
	o := object.NewFunction(&r.FunctionProto, &NativeFunc{Name: name, Fn: fn})
	h, err := gc.Alloc[values.HeapObject](r.Heap, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

func (r *Realm) installMath() {
	mathObj := object.New(&r.ObjectProto)
	mathH, err := gc.Alloc[values.HeapObject](r.Heap, mathObj)
	if err != nil {
		r.logger.Error("failed to allocate Math intrinsic", obslog.Err(err))
		return
	}
	r.defineMethod(mathObj, "abs", mathAbs)
	r.defineMethod(mathObj, "sign", mathSign)
	r.defineMethod(mathObj, "trunc", mathTrunc)
	r.defineMethod(mathObj, "max", mathMax)
	r.defineMethod(mathObj, "min", mathMin)
	r.DefineGlobal("Math", values.Object(mathH))
}

// NewNativeError builds an Error-kind object for an engine-raised
// exception (TypeError, ReferenceError, ...), matching the teacher's typed-
// error convention at the JS-visible boundary: the VM never panics, it
// constructs a catchable value (spec.md §7).
func (r *Realm) NewNativeError(kind, message string) values.Value {
	o := object.New(&r.ErrorProto)
	o.SetKind(object.KindError)
	nameKey := values.PropertyKey{Str: values.NewString("name")}
	msgKey := values.PropertyKey{Str: values.NewString("message")}
	o.DefineOwnProperty(nameKey, object.DataDescriptor(values.String(values.NewString(kind)), true, false, true))
	o.DefineOwnProperty(msgKey, object.DataDescriptor(values.String(values.NewString(message)), true, false, true))
	h, err := gc.Alloc[values.HeapObject](r.Heap, o)
	if err != nil {
		r.logger.Error("failed to allocate error object", obslog.Err(err))
		return values.String(values.NewString(kind + ": " + message))
	}
	return values.Object(h)
}

func (r *Realm) defineMethod(o *object.Object, name string, fn func(values.Value, []values.Value) (values.Value, error)) {
	v, err := r.NewNativeFunction(name, fn)
	if err != nil {
		r.logger.Error("failed to define intrinsic method", obslog.String("name", name), obslog.Err(err))
		return
	}
	key := values.PropertyKey{Str: values.NewString(name)}
	o.DefineOwnProperty(key, object.DataDescriptor(v, true, false, true))
}
