package vm

import "github.com/nmxmxh/esengine/internal/values"

// newIterator builds the simplified native iterator spec.md §4.F's for-of
// support uses (DESIGN.md documents this as a deliberate simplification:
// arrays and strings iterate directly over their own storage rather than
// going through a user-overridable Symbol.iterator protocol).
func (v *VM) newIterator(src values.Value) (iterState, error) {
	if src.Kind() == values.KindString {
		return iterState{kind: iterString, source: src, length: src.AsString().Length()}, nil
	}
	if !src.IsObject() {
		return iterState{}, v.throwTypeError("value is not iterable")
	}
	o, release, err := v.asObject(src)
	if err != nil {
		return iterState{}, err
	}
	defer release()
	length, err := o.Get(lengthKey, src)
	if err != nil {
		return iterState{}, err
	}
	return iterState{kind: iterArray, source: src, length: int(length.ToNumber())}, nil
}

// iteratorNext advances it, returning (value, true) at exhaustion.
func (v *VM) iteratorNext(it *iterState) (values.Value, bool) {
	if it.idx >= it.length {
		return values.Undefined, true
	}
	idx := it.idx
	it.idx++
	switch it.kind {
	case iterString:
		return values.Float64(float64(it.source.AsString().CodeUnitAt(idx))), false
	case iterArray:
		o, release, err := v.asObject(it.source)
		if err != nil {
			return values.Undefined, true
		}
		defer release()
		val, err := o.Get(indexKey(idx), it.source)
		if err != nil {
			return values.Undefined, true
		}
		return val, false
	}
	return values.Undefined, true
}
