// Package esengine is the embeddable ECMAScript engine's public surface
// (spec.md §6): a Context wraps one realm's heap, globals, and job queue,
// and is the only thing an embedder constructs directly.
package esengine

import (
	"github.com/nmxmxh/esengine/internal/asyncjob"
	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/parser"
	"github.com/nmxmxh/esengine/internal/realm"
	"github.com/nmxmxh/esengine/internal/values"
	"github.com/nmxmxh/esengine/internal/vm"
)

// Value re-exports the engine's tagged value type so embedders never need
// to import internal/values directly.
type Value = values.Value

// Config bundles the heap and VM tuning knobs an embedder may set,
// mirroring the teacher's struct-of-options configuration pattern
// (SPEC_FULL.md ambient-stack configuration section) rather than
// functional options.
type Config struct {
	HeapSoftLimit int
	HeapPageSize  int
	VM            vm.Config
}

// DefaultConfig returns the suggested defaults from spec.md §5.
func DefaultConfig() Config {
	return Config{VM: vm.DefaultConfig()}
}

// Context is one realm plus the machinery (VM, Promise/generator driver,
// job queue) needed to run scripts against it (spec.md §6 Context::new).
type Context struct {
	heap   *gc.Heap
	realm  *realm.Realm
	vm     *vm.VM
	driver *asyncjob.Driver
}

// New creates a realm plus its intrinsics (spec.md §6 Context::new).
func New(cfg Config) (*Context, error) {
	heap := gc.NewHeap(gc.Config{SoftLimit: cfg.HeapSoftLimit, PageSize: cfg.HeapPageSize})
	r, err := realm.New(heap)
	if err != nil {
		return nil, err
	}
	v := vm.New(r, cfg.VM)
	d := asyncjob.NewDriver(r, v)
	return &Context{heap: heap, realm: r, vm: v, driver: d}, nil
}

// Eval parses, compiles, and executes source as a top-level script,
// returning its completion value (spec.md §6 Context::eval).
func (c *Context) Eval(source string) (Value, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return values.Undefined, err
	}
	cb, err := compiler.Compile(prog)
	if err != nil {
		return values.Undefined, err
	}
	return c.vm.RunProgram(cb)
}

// RunJobs drains the microtask queue (spec.md §6 Context::run_jobs).
func (c *Context) RunJobs() error {
	return c.driver.RunJobs()
}

// JobsPending reports whether the microtask queue still has work, so an
// embedder driving an event loop knows whether to keep calling RunJobs.
func (c *Context) JobsPending() bool {
	return c.driver.JobsPending()
}

// RegisterGlobal installs a binding directly on the global object
// (spec.md §6 Context::register_global).
func (c *Context) RegisterGlobal(name string, v Value) {
	c.realm.DefineGlobal(name, v)
}

// RegisterCallable installs a native Go function as a global callable
// (spec.md §6 Context::register_callable). arity is not separately
// enforced — native functions read whatever args they are given, same as
// every other NativeFunc in the realm.
func (c *Context) RegisterCallable(name string, fn func(this Value, args []Value) (Value, error)) error {
	v, err := c.realm.NewNativeFunction(name, fn)
	if err != nil {
		return err
	}
	c.realm.DefineGlobal(name, v)
	return nil
}

// Module is a parsed, linked module body (spec.md §6 Context::parse_module
// / Module::link / Module::evaluate). Import/export resolution is out of
// scope for this engine's front end (the parser accepts no import/export
// syntax); Link is a no-op
// placeholder kept for API completeness, and Evaluate runs the body as a
// single module-environment CodeBlock. A module wanting another module's
// bindings should use register_global/register_callable to wire them in
// from the embedder side instead of a module graph.
type Module struct {
	ctx *Context
	cb  *compiler.CodeBlock
	env *env.Record
}

// ParseModule parses and compiles source as a module body, giving it its
// own module environment (spec.md §4.D) parented to the realm's global
// environment.
func (c *Context) ParseModule(source string) (*Module, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	cb, err := compiler.Compile(prog)
	if err != nil {
		return nil, err
	}
	return &Module{ctx: c, cb: cb, env: env.NewModule(c.realm.GlobalEnv)}, nil
}

// Link resolves a module's imports against its dependency graph. This
// engine has no import/export syntax (see Module's doc comment), so Link
// always succeeds immediately.
func (m *Module) Link() error { return nil }

// Evaluate runs the module body, returning a Promise that settles with the
// body's completion value or rejects with its uncaught exception — module
// evaluation is always async per spec.md §6, even though this module body
// cannot itself contain a top-level `await` (no import/export linking
// means no cross-module await ordering to honor).
func (m *Module) Evaluate() (Value, error) {
	result, err := m.ctx.vm.RunModule(m.cb, m.env)
	if err != nil {
		if je, ok := err.(*vm.JSException); ok {
			return m.ctx.driver.RejectedPromise(je.Value)
		}
		return values.Undefined, err
	}
	return m.ctx.driver.ResolvedPromise(result)
}

// Undefined, Null, Bool, Int32, Float64, and String are the Value
// constructors spec.md §6 calls for ("Value constructors for each
// primitive variant"), re-exported so embedders never import
// internal/values directly.
var (
	Undefined = values.Undefined
	Null      = values.Null
)

func Bool(b bool) Value       { return values.Bool(b) }
func Int32(i int32) Value     { return values.Int32(i) }
func Float64(f float64) Value { return values.Float64(f) }
func String(s string) Value   { return values.String(values.NewString(s)) }

// Object wraps a heap object handle with the get/set/define_property/
// call/construct surface spec.md §6 names ("mirroring the internal
// methods"), so an embedder can interact with engine objects without
// importing internal/object or internal/gc.
type Object struct {
	ctx *Context
	val Value
}

// NewObject allocates a fresh ordinary object parented to %Object.prototype%.
func (c *Context) NewObject() (Object, error) {
	o := object.New(&c.realm.ObjectProto)
	h, err := gc.Alloc[values.HeapObject](c.heap, o)
	if err != nil {
		return Object{}, err
	}
	return Object{ctx: c, val: values.Object(h)}, nil
}

// WrapObject adapts an already-obtained object Value (e.g. Eval's result)
// to the Object convenience surface. Ok is false if v is not an object.
func (c *Context) WrapObject(v Value) (Object, bool) {
	if !v.IsObject() {
		return Object{}, false
	}
	return Object{ctx: c, val: v}, true
}

// Value returns the underlying engine Value.
func (o Object) Value() Value { return o.val }

func (o Object) borrow() (*object.Object, func(), error) {
	h, release, err := o.val.AsObject().Borrow()
	if err != nil {
		return nil, func() {}, err
	}
	obj, ok := h.(*object.Object)
	if !ok {
		release()
		return nil, func() {}, err
	}
	return obj, release, nil
}

// Get implements [[Get]] with o as both target and receiver. Accessor
// properties are not resolved here — internal/object never invokes
// functions itself (see object.ErrIsAccessor), and only the VM's opcode
// path (internal/vm's getProp/setProp) carries the call machinery needed
// to invoke a getter/setter. An embedder reading/writing an accessor
// property from Go should do so through Eval instead.
func (o Object) Get(name string) (Value, error) {
	obj, release, err := o.borrow()
	if err != nil {
		return values.Undefined, err
	}
	defer release()
	return obj.Get(values.PropertyKey{Str: values.NewString(name)}, o.val)
}

// Set implements [[Set]] with o as both target and receiver.
func (o Object) Set(name string, v Value) error {
	obj, release, err := o.borrow()
	if err != nil {
		return err
	}
	defer release()
	_, err = obj.Set(values.PropertyKey{Str: values.NewString(name)}, v, o.val)
	return err
}

// DefineProperty implements [[DefineOwnProperty]] for a plain data
// property with the given attributes.
func (o Object) DefineProperty(name string, v Value, writable, enumerable, configurable bool) error {
	obj, release, err := o.borrow()
	if err != nil {
		return err
	}
	defer release()
	obj.DefineOwnProperty(values.PropertyKey{Str: values.NewString(name)}, object.DataDescriptor(v, writable, enumerable, configurable))
	return nil
}

// Call invokes o as a function.
func (o Object) Call(this Value, args []Value) (Value, error) {
	return o.ctx.vm.CallValue(o.val, this, args)
}

// Construct invokes o as a constructor.
func (o Object) Construct(args []Value) (Value, error) {
	obj, release, err := o.borrow()
	if err != nil {
		return values.Undefined, err
	}
	defer release()
	return obj.Construct(args, o.val)
}
