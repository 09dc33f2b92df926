// Package vm implements the bytecode dispatch loop (spec.md §4.F): call
// frames, the operand stack, exception unwinding via CodeBlock handler
// ranges, and the inline-cache-consulting property opcodes.
package vm

import (
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/errs"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/obslog"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/realm"
	"github.com/nmxmxh/esengine/internal/values"
)

// Config tunes resource limits the dispatch loop enforces, mirroring the
// teacher's LoggerConfig/ResourceProfile struct-of-options pattern
// (SPEC_FULL.md ambient-stack configuration section).
type Config struct {
	// InstructionsPerTick bounds how many opcodes run between rate-limiter
	// consultations, each consuming one token; 0 consults it on every
	// opcode.
	InstructionsPerTick int
	// InstructionRateLimit is the sustained budget in limiter tokens per
	// second (one token per InstructionsPerTick opcodes); 0 disables
	// metering.
	InstructionRateLimit float64
	InstructionBurst     int
	// MaxCallDepth bounds recursion (spec.md §5 "embedder may configure a
	// recursion-depth limit").
	MaxCallDepth int
}

// DefaultConfig mirrors spec.md §5's suggested defaults for an embedder
// that does not configure explicit limits.
func DefaultConfig() Config {
	return Config{
		InstructionsPerTick:  256,
		InstructionRateLimit: 5_000_000,
		InstructionBurst:     100_000,
		MaxCallDepth:         2000,
	}
}

// GeneratorHook lets a higher layer (internal/asyncjob) intercept calls to
// generator/async functions without internal/vm importing it back —
// resolving the vm<->asyncjob dependency direction without a Go import
// cycle. Wired by the top-level Context construction (engine.go).
type GeneratorHook func(vm *VM, cb *compiler.CodeBlock, closureEnv *env.Record, this, newTarget values.Value, args []values.Value) (values.Value, error)

// VM executes compiled CodeBlocks against one Realm. One VM per realm
// (spec.md §5 "one realm is single-threaded cooperative").
type VM struct {
	Realm  *realm.Realm
	Config Config
	logger *obslog.Log

	limiter *rate.Limiter
	tick    int

	breaker *gobreaker.CircuitBreaker[values.Value]

	framesMu sync.Mutex
	frames   []*CallFrame
	depth    int

	OnGenerator GeneratorHook
	OnAsync     GeneratorHook
}

// New creates a VM bound to realm r, registers it as a GC root provider,
// and wires the rate limiter / circuit breaker named in SPEC_FULL.md's
// DOMAIN STACK table.
func New(r *realm.Realm, cfg Config) *VM {
	v := &VM{
		Realm:  r,
		Config: cfg,
		logger: obslog.Component("vm"),
	}
	if cfg.InstructionRateLimit > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(cfg.InstructionRateLimit), cfg.InstructionBurst)
	}
	v.breaker = gobreaker.NewCircuitBreaker[values.Value](gobreaker.Settings{
		Name:        "native-calls",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	r.Heap.AddRootProvider(v.rootProvider)
	return v
}

func (v *VM) rootProvider() []gc.CellID {
	v.framesMu.Lock()
	defer v.framesMu.Unlock()
	var out []gc.CellID
	for _, f := range v.frames {
		out = append(out, f.roots()...)
	}
	return out
}

func (v *VM) pushActiveFrame(f *CallFrame) {
	v.framesMu.Lock()
	v.frames = append(v.frames, f)
	v.framesMu.Unlock()
}

func (v *VM) popActiveFrame(f *CallFrame) {
	v.framesMu.Lock()
	for i := len(v.frames) - 1; i >= 0; i-- {
		if v.frames[i] == f {
			v.frames = append(v.frames[:i], v.frames[i+1:]...)
			break
		}
	}
	v.framesMu.Unlock()
}

// JSException carries a catchable thrown value across Go's error-return
// channel. Engine-internal sentinels (errs.RuntimeLimitError and friends)
// are returned as plain errors instead and are never wrapped here, since
// spec.md §7 says those unwind past every handler.
type JSException struct {
	Value values.Value
}

func (e *JSException) Error() string { return e.Value.ToStringValue().GoString() }

func (v *VM) throwTypeError(msg string) error {
	return &JSException{Value: v.Realm.NewNativeError("TypeError", msg)}
}

func (v *VM) throwReferenceError(msg string) error {
	return &JSException{Value: v.Realm.NewNativeError("ReferenceError", msg)}
}

func (v *VM) throwRangeError(msg string) error {
	return &JSException{Value: v.Realm.NewNativeError("RangeError", msg)}
}

// RunProgram executes a top-level CodeBlock in the realm's global
// environment, returning the program's completion value (spec.md §6
// Context::eval).
func (v *VM) RunProgram(cb *compiler.CodeBlock) (values.Value, error) {
	f := newFrame(cb, v.Realm.GlobalEnv, values.Object(v.Realm.GlobalHandle), values.Undefined)
	return v.run(f)
}

// RunModule executes a top-level CodeBlock against a caller-supplied
// environment (a module environment from env.NewModule, spec.md §4.D)
// rather than the realm's global environment (spec.md §6
// Module::evaluate).
func (v *VM) RunModule(cb *compiler.CodeBlock, moduleEnv *env.Record) (values.Value, error) {
	f := newFrame(cb, moduleEnv, values.Undefined, values.Undefined)
	return v.run(f)
}

// Call invokes cb as an ordinary function with the given this/args,
// closing over closureEnv (spec.md §4.F call semantics).
func (v *VM) Call(cb *compiler.CodeBlock, closureEnv *env.Record, this values.Value, args []values.Value) (values.Value, error) {
	return v.invoke(cb, closureEnv, this, values.Undefined, args)
}

// Construct invokes cb as a constructor: `this` is a fresh ordinary object
// linked to the callee's "prototype" property (or ObjectProto if absent/
// non-object), and the function's own return value is used only if it is
// itself an object (ECMA-262 [[Construct]] ordinary-function behavior).
func (v *VM) Construct(cb *compiler.CodeBlock, closureEnv *env.Record, calleeFn values.Value, args []values.Value, newTarget values.Value) (values.Value, error) {
	proto := v.Realm.ObjectProto
	if calleeFn.IsObject() {
		fo, release, err := v.asObject(calleeFn)
		if err == nil {
			if p, ok := fo.Get(values.PropertyKey{Str: values.NewString("prototype")}, calleeFn); ok == nil && p.IsObject() {
				proto = p.AsObject()
			}
			release()
		}
	}
	inst := object.New(&proto)
	h, err := gc.Alloc[values.HeapObject](v.Realm.Heap, inst)
	if err != nil {
		return values.Undefined, err
	}
	thisVal := values.Object(h)
	result, err := v.invoke(cb, closureEnv, thisVal, newTarget, args)
	if err != nil {
		return values.Undefined, err
	}
	if result.IsObject() {
		return result, nil
	}
	return thisVal, nil
}

func (v *VM) invoke(cb *compiler.CodeBlock, closureEnv *env.Record, this, newTarget values.Value, args []values.Value) (values.Value, error) {
	if v.Config.MaxCallDepth > 0 && v.depth >= v.Config.MaxCallDepth {
		return values.Undefined, errs.RuntimeLimitError
	}
	v.depth++
	defer func() { v.depth-- }()

	fnEnv := env.NewFunction(closureEnv, env.ThisInitialized, this, newTarget)
	for i, name := range cb.ParamNames {
		fnEnv.CreateMutableBinding(name)
		var arg values.Value
		if i < len(args) {
			arg = args[i]
		} else {
			arg = values.Undefined
		}
		fnEnv.InitializeBinding(name, arg)
	}

	if cb.IsGenerator && v.OnGenerator != nil {
		return v.OnGenerator(v, cb, fnEnv, this, newTarget, args)
	}
	if cb.IsAsync && v.OnAsync != nil {
		return v.OnAsync(v, cb, fnEnv, this, newTarget, args)
	}

	f := newFrame(cb, fnEnv, this, newTarget)
	return v.run(f)
}

func (v *VM) meterInstruction() error {
	if v.limiter == nil {
		return nil
	}
	v.tick++
	if v.Config.InstructionsPerTick > 0 && v.tick%v.Config.InstructionsPerTick != 0 {
		return nil
	}
	if !v.limiter.AllowN(time.Now(), 1) {
		return errs.RuntimeLimitError
	}
	return nil
}

// CallNative invokes a host-provided callable through the circuit breaker
// named in SPEC_FULL.md's DOMAIN STACK table: repeated failures trip the
// breaker and further calls fail fast with a TypeError instead of
// re-entering broken host code.
func (v *VM) CallNative(fn object.Callable, this values.Value, args []values.Value) (values.Value, error) {
	result, err := v.breaker.Execute(func() (values.Value, error) {
		return fn.Call(this, args)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return values.Undefined, v.throwTypeError("native call unavailable: " + err.Error())
	}
	if err != nil {
		if _, isJS := err.(*JSException); isJS {
			return values.Undefined, err
		}
		if nt, ok := err.(*realm.NativeThrow); ok {
			return values.Undefined, &JSException{Value: v.Realm.NewNativeError(nt.Kind, nt.Message)}
		}
		return values.Undefined, &JSException{Value: v.Realm.NewNativeError("Error", err.Error())}
	}
	return result, nil
}

func (v *VM) asObject(val values.Value) (*object.Object, func(), error) {
	if !val.IsObject() {
		return nil, func() {}, errs.BorrowError
	}
	h, release, err := val.AsObject().Borrow()
	if err != nil {
		return nil, func() {}, err
	}
	o, ok := h.(*object.Object)
	if !ok {
		release()
		return nil, func() {}, errs.BorrowError
	}
	return o, release, nil
}

func indexKey(i int) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(strconv.Itoa(i))}
}
