package vm

import (
	"math"

	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/errs"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

// run executes f's CodeBlock to completion: a Return, an uncaught throw,
// or (for a generator/async body driven through a Coroutine) a yield/await
// suspension. The dispatch is a plain switch over Opcode — spec.md §4.F
// says correctness does not depend on computed-goto vs switch.
func (v *VM) run(f *CallFrame) (values.Value, error) {
	v.pushActiveFrame(f)
	defer v.popActiveFrame(f)

	for {
		if err := v.meterInstruction(); err != nil {
			return values.Undefined, err
		}

		instrPC := f.pc
		instr := f.cb.Code[f.pc]
		f.pc++

		result, jumped, err := v.step(f, instr, instrPC)
		if err != nil {
			if v.handleException(f, instrPC, err) {
				continue
			}
			return values.Undefined, err
		}
		if jumped {
			continue
		}
		if result.done {
			return result.value, nil
		}
	}
}

type stepResult struct {
	done  bool
	value values.Value
}

// step executes one instruction. The bool return reports whether pc was
// already redirected by the instruction itself (jumps); err carries both
// JSException (catchable) and errs sentinels (not catchable) uniformly, so
// run's single handleException call covers every opcode.
func (v *VM) step(f *CallFrame, instr compiler.Instruction, pc int) (stepResult, bool, error) {
	switch instr.Op {
	case compiler.OpPushUndefined:
		f.push(values.Undefined)
	case compiler.OpPushNull:
		f.push(values.Null)
	case compiler.OpPushTrue:
		f.push(values.Bool(true))
	case compiler.OpPushFalse:
		f.push(values.Bool(false))
	case compiler.OpPushThis:
		f.push(f.this)
	case compiler.OpPushNewTarget:
		f.push(f.newTarget)
	case compiler.OpPushLiteral:
		f.push(f.cb.Constants[instr.A])
	case compiler.OpPop:
		f.pop()
	case compiler.OpDup:
		f.push(f.peek())

	case compiler.OpAdd:
		b, a := f.pop(), f.pop()
		r, err := v.add(a, b)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(r)
	case compiler.OpSub:
		b, a := f.pop(), f.pop()
		f.push(values.Float64(a.ToNumber() - b.ToNumber()))
	case compiler.OpMul:
		b, a := f.pop(), f.pop()
		f.push(values.Float64(a.ToNumber() * b.ToNumber()))
	case compiler.OpDiv:
		b, a := f.pop(), f.pop()
		f.push(values.Float64(a.ToNumber() / b.ToNumber()))
	case compiler.OpMod:
		b, a := f.pop(), f.pop()
		f.push(values.Float64(math.Mod(a.ToNumber(), b.ToNumber())))
	case compiler.OpExp:
		b, a := f.pop(), f.pop()
		f.push(values.Float64(math.Pow(a.ToNumber(), b.ToNumber())))
	case compiler.OpNeg:
		f.push(values.Float64(-f.pop().ToNumber()))
	case compiler.OpPos:
		f.push(values.Float64(f.pop().ToNumber()))
	case compiler.OpNot:
		f.push(values.Bool(!f.pop().ToBoolean()))
	case compiler.OpBitNot:
		f.push(values.Int32(^f.pop().ToInt32()))
	case compiler.OpTypeof:
		f.push(values.String(values.NewString(f.pop().TypeOf())))
	case compiler.OpVoid:
		f.pop()
		f.push(values.Undefined)

	case compiler.OpLt, compiler.OpLte, compiler.OpGt, compiler.OpGte:
		b, a := f.pop(), f.pop()
		f.push(values.Bool(v.compare(instr.Op, a, b)))
	case compiler.OpEq:
		b, a := f.pop(), f.pop()
		f.push(values.Bool(v.looseEquals(a, b)))
	case compiler.OpNeq:
		b, a := f.pop(), f.pop()
		f.push(values.Bool(!v.looseEquals(a, b)))
	case compiler.OpStrictEq:
		b, a := f.pop(), f.pop()
		f.push(values.Bool(values.StrictEquals(a, b)))
	case compiler.OpStrictNeq:
		b, a := f.pop(), f.pop()
		f.push(values.Bool(!values.StrictEquals(a, b)))
	case compiler.OpInstanceof:
		b, a := f.pop(), f.pop()
		r, err := v.instanceOf(a, b)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(values.Bool(r))
	case compiler.OpIn:
		b, a := f.pop(), f.pop()
		r, err := v.hasIn(a, b)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(values.Bool(r))

	case compiler.OpGetName:
		name := f.cb.Names[instr.A]
		owner, local, ok := env.ResolveByName(f.env, name)
		if !ok {
			return stepResult{}, false, v.throwReferenceError(name + " is not defined")
		}
		val, err := owner.GetBindingValue(local)
		if err != nil {
			return stepResult{}, false, v.mapEnvErr(err, name)
		}
		f.push(val)
	case compiler.OpSetName:
		name := f.cb.Names[instr.A]
		val := f.peek()
		owner, local, ok := env.ResolveByName(f.env, name)
		if !ok {
			return stepResult{}, false, v.throwReferenceError(name + " is not defined")
		}
		if err := owner.SetMutableBinding(local, val, f.cb.IsStrict); err != nil {
			return stepResult{}, false, v.mapEnvErr(err, name)
		}
	case compiler.OpGetBinding:
		rec := env.Resolve(f.env, int(instr.A))
		val, err := rec.GetBindingAtSlot(int(instr.B))
		if err != nil {
			return stepResult{}, false, v.mapEnvErr(err, f.cb.Names[0])
		}
		f.push(val)
	case compiler.OpSetBinding:
		rec := env.Resolve(f.env, int(instr.A))
		val := f.peek()
		if err := rec.SetBindingAtSlot(int(instr.B), val, f.cb.IsStrict); err != nil {
			return stepResult{}, false, v.mapEnvErr(err, "")
		}
	case compiler.OpInitBinding:
		rec := env.Resolve(f.env, int(instr.A))
		val := f.pop()
		rec.InitializeBindingAtSlot(int(instr.B), val)
	case compiler.OpDeclareVar:
		name := f.cb.Names[instr.A]
		if instr.B == 1 {
			f.env.CreateMutableBinding(name)
		} else {
			f.env.CreateImmutableBinding(name)
		}
	case compiler.OpPushEnv:
		f.env = env.NewDeclarative(f.env)
	case compiler.OpPopEnv:
		f.env = f.env.Parent()

	case compiler.OpGetPropName:
		obj := f.pop()
		val, err := v.getProp(f, obj, f.cb.Names[instr.A], instr.IC)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(val)
	case compiler.OpSetPropName:
		val := f.pop()
		obj := f.pop()
		if err := v.setProp(f, obj, f.cb.Names[instr.A], val, instr.IC); err != nil {
			return stepResult{}, false, err
		}
		f.push(val)
	case compiler.OpGetPropValue:
		key := f.pop()
		obj := f.pop()
		val, err := v.getProp(f, obj, key.ToStringValue().GoString(), -1)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(val)
	case compiler.OpSetPropValue:
		val := f.pop()
		key := f.pop()
		obj := f.pop()
		if err := v.setProp(f, obj, key.ToStringValue().GoString(), val, -1); err != nil {
			return stepResult{}, false, err
		}
		f.push(val)
	case compiler.OpDeleteProp:
		key := f.pop()
		obj := f.pop()
		ok := false
		if obj.IsObject() {
			o, release, err := v.asObject(obj)
			if err == nil {
				ok = o.Delete(key.ToPropertyKey())
				release()
			}
		}
		if !ok && f.cb.IsStrict {
			return stepResult{}, false, v.throwTypeError("cannot delete property '" + key.ToStringValue().GoString() + "'")
		}
		f.push(values.Bool(ok))

	case compiler.OpJump:
		f.pc = int(instr.A)
		return stepResult{}, true, nil
	case compiler.OpJumpIfTrue:
		if f.pop().ToBoolean() {
			f.pc = int(instr.A)
			return stepResult{}, true, nil
		}
	case compiler.OpJumpIfFalse:
		if !f.pop().ToBoolean() {
			f.pc = int(instr.A)
			return stepResult{}, true, nil
		}
	case compiler.OpJumpIfNullish:
		if f.pop().IsNullish() {
			f.pc = int(instr.A)
			return stepResult{}, true, nil
		}

	case compiler.OpMakeFunction:
		cb := f.cb.Functions[instr.A]
		val, err := v.makeFunction(f, cb)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(val)
	case compiler.OpCall:
		return v.dispatchCall(f, int(instr.A), false)
	case compiler.OpCallSpread:
		return v.dispatchCall(f, 0, true)
	case compiler.OpConstruct:
		return v.dispatchConstruct(f, int(instr.A), false)
	case compiler.OpConstructSpread:
		return v.dispatchConstruct(f, 0, true)
	case compiler.OpReturn:
		return stepResult{done: true, value: f.pop()}, false, nil
	case compiler.OpReturnUndefined:
		return stepResult{done: true, value: values.Undefined}, false, nil

	case compiler.OpThrow:
		val := f.pop()
		return stepResult{}, false, &JSException{Value: val}
	case compiler.OpRethrow:
		if f.pendingException == nil {
			return stepResult{}, false, &JSException{Value: values.Undefined}
		}
		val := *f.pendingException
		f.pendingException = nil
		return stepResult{}, false, &JSException{Value: val}
	case compiler.OpPushHandler, compiler.OpPopHandler:
		// Handler ranges are resolved statically via CodeBlock.FindHandler;
		// these opcodes are never emitted by the compiler (see DESIGN.md).

	case compiler.OpGetIterator:
		src := f.pop()
		it, err := v.newIterator(src)
		if err != nil {
			return stepResult{}, false, err
		}
		f.iters = append(f.iters, it)
	case compiler.OpIteratorNext:
		val, done := v.iteratorNext(&f.iters[len(f.iters)-1])
		f.push(val)
		f.push(values.Bool(done))
	case compiler.OpIteratorClose:
		if len(f.iters) > 0 {
			f.iters = f.iters[:len(f.iters)-1]
		}

	case compiler.OpYield:
		return v.doYield(f, instr.A == 1)
	case compiler.OpAwait:
		return v.doAwait(f)

	case compiler.OpNewArray:
		o := object.NewArray(&v.Realm.ArrayProto)
		h, err := allocObject(v.Realm, o)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(values.Object(h))
	case compiler.OpArrayPush:
		val := f.pop()
		arr := f.peek()
		if err := v.arrayPush(arr, val); err != nil {
			return stepResult{}, false, err
		}
	case compiler.OpArraySpread:
		val := f.pop()
		arr := f.peek()
		if err := v.arraySpread(arr, val); err != nil {
			return stepResult{}, false, err
		}
	case compiler.OpNewObject:
		o := object.New(&v.Realm.ObjectProto)
		h, err := allocObject(v.Realm, o)
		if err != nil {
			return stepResult{}, false, err
		}
		f.push(values.Object(h))
	case compiler.OpObjectSet:
		val := f.pop()
		key := f.pop()
		obj := f.peek()
		if err := v.setProp(f, obj, key.ToStringValue().GoString(), val, -1); err != nil {
			return stepResult{}, false, err
		}
	case compiler.OpObjectSpread:
		src := f.pop()
		obj := f.peek()
		if err := v.objectSpread(obj, src); err != nil {
			return stepResult{}, false, err
		}
	case compiler.OpNewRegExp:
		f.push(values.Undefined) // regexp literals are out of scope (spec.md Non-goals)

	case compiler.OpSequenceDiscard:
		f.pop()

	default:
		return stepResult{}, false, v.throwTypeError("unimplemented opcode " + instr.Op.String())
	}
	return stepResult{}, false, nil
}

// handleException consults f.cb.FindHandler(pc) and, on a match,
// redirects f.pc to the catch or finally target, returning true. A JS-
// visible exception always carries *JSException; engine-internal
// sentinels (errs.RuntimeLimitError et al.) are never caught (spec.md §7).
func (v *VM) handleException(f *CallFrame, pc int, err error) bool {
	if err == errs.RuntimeLimitError || err == errs.OutOfMemory {
		return false
	}
	je, ok := err.(*JSException)
	if !ok {
		return false
	}
	h, found := f.cb.FindHandler(pc)
	if !found {
		return false
	}
	if h.HasCatch {
		f.pc = h.CatchTarget
		f.push(je.Value)
		return true
	}
	if h.HasFinally {
		f.pc = h.FinallyTarget
		pending := je.Value
		f.pendingException = &pending
		return true
	}
	return false
}

func (v *VM) mapEnvErr(err error, name string) error {
	if err == env.ErrTDZ {
		return v.throwReferenceError("cannot access '" + name + "' before initialization")
	}
	if err == env.ErrUnresolved {
		return v.throwReferenceError(name + " is not defined")
	}
	return err
}
