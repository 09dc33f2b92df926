package object

import (
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/values"
)

const maxArrayLength = 1<<32 - 1 // spec.md §8: Array(2**32-1) succeeds, Array(2**32) throws.

var lengthKey = values.PropertyKey{Str: values.NewString("length")}

// ArrayMethods overrides only the entries Array needs (spec.md §4.C): a
// synthetic `length` own property whose setter truncates, backed by the
// shared indexedStorage rather than a shape slot.
var ArrayMethods = Methods{
	GetOwnProperty: func(o *Object, key values.PropertyKey) (Descriptor, bool) {
		if key.Symbol == nil && key.Str.Equal(lengthKey.Str) {
			return DataDescriptor(values.Float64(float64(o.indexed.length)), true, false, false), true
		}
		return ordinaryGetOwnProperty(o, key)
	},
	DefineOwnProperty: func(o *Object, key values.PropertyKey, desc Descriptor) bool {
		if key.Symbol == nil && key.Str.Equal(lengthKey.Str) {
			n := desc.Value.ToNumber()
			if n < 0 || n != float64(uint32(n)) || n > maxArrayLength {
				return false // caller (VM) maps this to RangeError
			}
			newLen := uint32(n)
			if newLen < o.indexed.length {
				for i := newLen; i < o.indexed.length; i++ {
					o.indexed.delete(i)
				}
			}
			o.indexed.length = newLen
			return true
		}
		ok := ordinaryDefineOwnProperty(o, key, desc)
		if ok {
			if idx, isIdx := indexOf(key); isIdx && idx+1 > o.indexed.length {
				o.indexed.length = idx + 1
			}
		}
		return ok
	},
	Get: func(o *Object, key values.PropertyKey, receiver values.Value) (values.Value, error) {
		if key.Symbol == nil && key.Str.Equal(lengthKey.Str) {
			return values.Float64(float64(o.indexed.length)), nil
		}
		return ordinaryGet(o, key, receiver)
	},
	Set: func(o *Object, key values.PropertyKey, v values.Value, receiver values.Value) (bool, error) {
		if key.Symbol == nil && key.Str.Equal(lengthKey.Str) {
			return ArrayMethods.DefineOwnProperty(o, key, DataDescriptor(v, true, false, false)), nil
		}
		return ordinarySet(o, key, v, receiver)
	},
	HasProperty: func(o *Object, key values.PropertyKey) bool {
		if key.Symbol == nil && key.Str.Equal(lengthKey.Str) {
			return true
		}
		return ordinaryHasProperty(o, key)
	},
	Delete:          ordinaryDelete,
	OwnPropertyKeys: ordinaryOwnPropertyKeys,
}

// NewArray creates an empty array object with the given prototype.
func NewArray(proto *gc.StrongHandle[values.HeapObject]) *Object {
	o := New(proto)
	o.SetKind(KindArray)
	return o
}
