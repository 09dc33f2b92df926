package vm

import (
	"github.com/nmxmxh/esengine/internal/compiler"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

var lengthKey = values.PropertyKey{Str: values.NewString("length")}

// toPrimitive reduces an object to a primitive via its valueOf/toString
// methods (ECMA-262 OrdinaryToPrimitive); non-objects pass through
// unchanged. values.Value.ToPrimitive cannot do this itself since it would
// require calling back into the VM (see values/conversions.go).
func (v *VM) toPrimitive(val values.Value, hint values.Hint) (values.Value, error) {
	if prim, ok := val.ToPrimitive(hint); ok {
		return prim, nil
	}
	o, release, err := v.asObject(val)
	if err != nil {
		return values.Undefined, err
	}
	defer release()

	methods := []string{"valueOf", "toString"}
	if hint == values.HintString {
		methods = []string{"toString", "valueOf"}
	}
	for _, name := range methods {
		d, owner, rel, found := v.findDescriptor(o, values.PropertyKey{Str: values.NewString(name)})
		if rel != nil {
			defer rel()
		}
		if !found {
			continue
		}
		fn := d.Value
		if d.IsAccessor {
			if d.Get == nil {
				continue
			}
			var gerr error
			fn, gerr = v.callValue(*d.Get, val, nil)
			if gerr != nil {
				return values.Undefined, gerr
			}
		}
		_ = owner
		if !fn.IsCallable() {
			continue
		}
		result, cerr := v.callValue(fn, val, nil)
		if cerr != nil {
			return values.Undefined, cerr
		}
		if !result.IsObject() {
			return result, nil
		}
	}
	return values.Undefined, v.throwTypeError("cannot convert object to primitive value")
}

// add implements the `+` operator's dual string-concat/numeric-add
// semantics (ECMA-262 12.8.3): both operands are reduced to primitives
// first, and a string operand on either side forces concatenation.
func (v *VM) add(a, b values.Value) (values.Value, error) {
	pa, err := v.toPrimitive(a, values.HintDefault)
	if err != nil {
		return values.Undefined, err
	}
	pb, err := v.toPrimitive(b, values.HintDefault)
	if err != nil {
		return values.Undefined, err
	}
	if pa.Kind() == values.KindString || pb.Kind() == values.KindString {
		return values.String(values.Concat(pa.ToStringValue(), pb.ToStringValue())), nil
	}
	return values.Float64(pa.ToNumber() + pb.ToNumber()), nil
}

func (v *VM) compare(op compiler.Opcode, a, b values.Value) bool {
	an, bn := a.ToNumber(), b.ToNumber()
	if a.Kind() == values.KindString && b.Kind() == values.KindString {
		as, bs := a.AsString().GoString(), b.AsString().GoString()
		switch op {
		case compiler.OpLt:
			return as < bs
		case compiler.OpLte:
			return as <= bs
		case compiler.OpGt:
			return as > bs
		case compiler.OpGte:
			return as >= bs
		}
	}
	switch op {
	case compiler.OpLt:
		return an < bn
	case compiler.OpLte:
		return an <= bn
	case compiler.OpGt:
		return an > bn
	case compiler.OpGte:
		return an >= bn
	}
	return false
}

func (v *VM) looseEquals(a, b values.Value) bool {
	if a.Kind() == b.Kind() {
		return values.StrictEquals(a, b)
	}
	if a.IsObject() && !b.IsObject() && !b.IsNullish() {
		pa, err := v.toPrimitive(a, values.HintDefault)
		if err != nil {
			return false
		}
		return v.looseEquals(pa, b)
	}
	if b.IsObject() && !a.IsObject() && !a.IsNullish() {
		pb, err := v.toPrimitive(b, values.HintDefault)
		if err != nil {
			return false
		}
		return v.looseEquals(a, pb)
	}
	return values.AbstractEquals(a, b)
}

// instanceOf implements `a instanceof b`: walk a's prototype chain for b's
// "prototype" property value.
func (v *VM) instanceOf(a, b values.Value) (bool, error) {
	if !b.IsObject() || !b.IsCallable() {
		return false, v.throwTypeError("right-hand side of 'instanceof' is not callable")
	}
	bo, release, err := v.asObject(b)
	if err != nil {
		return false, err
	}
	protoVal, perr := bo.Get(values.PropertyKey{Str: values.NewString("prototype")}, b)
	release()
	if perr != nil || !protoVal.IsObject() {
		return false, nil
	}
	target := protoVal.AsObject().ID()
	if !a.IsObject() {
		return false, nil
	}
	ao, release2, err := v.asObject(a)
	if err != nil {
		return false, err
	}
	defer release2()
	cur := ao
	var rel func()
	for {
		proto, hasProto := cur.Prototype()
		if !hasProto {
			return false, nil
		}
		if proto.ID() == target {
			if rel != nil {
				rel()
			}
			return true, nil
		}
		po, r, err := proto.Borrow()
		if rel != nil {
			rel()
		}
		if err != nil {
			return false, nil
		}
		protoObj, ok := po.(*object.Object)
		if !ok {
			r()
			return false, nil
		}
		cur = protoObj
		rel = r
	}
}

func (v *VM) hasIn(a, b values.Value) (bool, error) {
	if !b.IsObject() {
		return false, v.throwTypeError("cannot use 'in' operator on a non-object")
	}
	o, release, err := v.asObject(b)
	if err != nil {
		return false, err
	}
	defer release()
	return o.HasProperty(a.ToPropertyKey()), nil
}

func (v *VM) arrayPush(arr, val values.Value) error {
	o, release, err := v.asObject(arr)
	if err != nil {
		return err
	}
	defer release()
	length, err := o.Get(lengthKey, arr)
	if err != nil {
		return err
	}
	idx := indexKey(int(length.ToNumber()))
	o.DefineOwnProperty(idx, object.DataDescriptor(val, true, true, true))
	return nil
}

func (v *VM) arraySpread(arr, src values.Value) error {
	if !src.IsObject() {
		if src.Kind() == values.KindString {
			s := src.AsString()
			for i := 0; i < s.Length(); i++ {
				if err := v.arrayPush(arr, values.Float64(float64(s.CodeUnitAt(i)))); err != nil {
					return err
				}
			}
			return nil
		}
		return v.throwTypeError("value is not iterable")
	}
	it, err := v.newIterator(src)
	if err != nil {
		return err
	}
	for {
		val, done := v.iteratorNext(&it)
		if done {
			return nil
		}
		if err := v.arrayPush(arr, val); err != nil {
			return err
		}
	}
}

// objectSpread copies src's own enumerable properties onto obj, per
// ECMA-262 CopyDataProperties (object spread / Object.assign semantics).
func (v *VM) objectSpread(obj, src values.Value) error {
	if !src.IsObject() {
		return nil // spreading a primitive into an object literal is a no-op
	}
	so, release, err := v.asObject(src)
	if err != nil {
		return err
	}
	defer release()
	do, release2, err := v.asObject(obj)
	if err != nil {
		return err
	}
	defer release2()
	for _, key := range so.OwnPropertyKeys() {
		d, ok := so.GetOwnProperty(key)
		if !ok || !d.Enumerable {
			continue
		}
		val := d.Value
		if d.IsAccessor {
			if d.Get == nil {
				continue
			}
			val, err = v.callValue(*d.Get, src, nil)
			if err != nil {
				return err
			}
		}
		do.DefineOwnProperty(key, object.DataDescriptor(val, true, true, true))
	}
	return nil
}

// dispatchCall implements op_call/op_call_spread: pop [this, callee, args...]
// (spread reads the arg count dynamically from the pre-built argument array
// compile-time already pushed by compileArgsArray; see internal/compiler
// expr.go compileCall).
func (v *VM) dispatchCall(f *CallFrame, argc int, spread bool) (stepResult, bool, error) {
	var args []values.Value
	if spread {
		arr := f.pop()
		a, err := v.collectArray(arr)
		if err != nil {
			return stepResult{}, false, err
		}
		args = a
	} else {
		args = make([]values.Value, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = f.pop()
		}
	}
	callee := f.pop()
	this := f.pop()
	result, err := v.callValue(callee, this, args)
	if err != nil {
		return stepResult{}, false, err
	}
	f.push(result)
	return stepResult{}, false, nil
}

func (v *VM) dispatchConstruct(f *CallFrame, argc int, spread bool) (stepResult, bool, error) {
	var args []values.Value
	if spread {
		arr := f.pop()
		a, err := v.collectArray(arr)
		if err != nil {
			return stepResult{}, false, err
		}
		args = a
	} else {
		args = make([]values.Value, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = f.pop()
		}
	}
	callee := f.pop()
	if !callee.IsObject() || !callee.IsCallable() {
		return stepResult{}, false, v.throwTypeError("value is not a constructor")
	}
	o, release, err := v.asObject(callee)
	if err != nil {
		return stepResult{}, false, err
	}
	result, cerr := o.Construct(args, callee)
	release()
	if cerr != nil {
		return stepResult{}, false, cerr
	}
	f.push(result)
	return stepResult{}, false, nil
}

func (v *VM) collectArray(arr values.Value) ([]values.Value, error) {
	it, err := v.newIterator(arr)
	if err != nil {
		return nil, err
	}
	var out []values.Value
	for {
		val, done := v.iteratorNext(&it)
		if done {
			return out, nil
		}
		out = append(out, val)
	}
}
