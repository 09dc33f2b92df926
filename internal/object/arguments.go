package object

import (
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/values"
)

// ArgumentsMapping is implemented by a sloppy-mode function's arguments
// Payload to link indexed arguments-object properties back to the
// function's own local-variable slots (spec.md §4.C "mapped arguments
// object"). Strict-mode and arrow functions never install one, giving
// plain unmapped arguments.
type ArgumentsMapping interface {
	MappedGet(idx uint32) (values.Value, bool)
	MappedSet(idx uint32, v values.Value) bool
}

// ArgumentsMethods overrides indexed Get/Set to consult the mapping
// (if any) before falling back to the object's own indexed storage.
var ArgumentsMethods = Methods{
	GetOwnProperty:    ordinaryGetOwnProperty,
	DefineOwnProperty: ordinaryDefineOwnProperty,
	Get: func(o *Object, key values.PropertyKey, receiver values.Value) (values.Value, error) {
		if idx, ok := indexOf(key); ok {
			if m, isMapped := o.Payload.(ArgumentsMapping); isMapped {
				if v, present := m.MappedGet(idx); present {
					return v, nil
				}
			}
		}
		return ordinaryGet(o, key, receiver)
	},
	Set: func(o *Object, key values.PropertyKey, v values.Value, receiver values.Value) (bool, error) {
		if idx, ok := indexOf(key); ok {
			if m, isMapped := o.Payload.(ArgumentsMapping); isMapped {
				if m.MappedSet(idx, v) {
					return true, nil
				}
			}
		}
		return ordinarySet(o, key, v, receiver)
	},
	HasProperty:     ordinaryHasProperty,
	Delete:          ordinaryDelete,
	OwnPropertyKeys: ordinaryOwnPropertyKeys,
}

// NewArguments creates an arguments object over the given positional
// values. mapping may be nil for unmapped (strict-mode) arguments.
func NewArguments(proto *gc.StrongHandle[values.HeapObject], args []values.Value, mapping ArgumentsMapping) *Object {
	o := New(proto)
	for i, v := range args {
		o.indexed.set(uint32(i), v)
	}
	o.Payload = mapping
	o.SetKind(KindArguments)
	return o
}
