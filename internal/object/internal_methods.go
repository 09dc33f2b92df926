package object

import (
	"github.com/nmxmxh/esengine/internal/values"
)

// Methods is the internal-methods vtable of spec.md §4.C: a record of
// function references per object kind rather than open inheritance.
// Adding a new exotic object means supplying a new Methods value and a new
// Payload variant — the VM never needs to change (spec.md §9).
type Methods struct {
	GetOwnProperty    func(o *Object, key values.PropertyKey) (Descriptor, bool)
	DefineOwnProperty func(o *Object, key values.PropertyKey, desc Descriptor) bool
	Get               func(o *Object, key values.PropertyKey, receiver values.Value) (values.Value, error)
	Set               func(o *Object, key values.PropertyKey, v values.Value, receiver values.Value) (bool, error)
	HasProperty       func(o *Object, key values.PropertyKey) bool
	Delete            func(o *Object, key values.PropertyKey) bool
	OwnPropertyKeys   func(o *Object) []values.PropertyKey
}

// OrdinaryMethods implements the default ([[...]]) behavior shared by
// every object kind that does not override a given entry.
var OrdinaryMethods = Methods{
	GetOwnProperty:    ordinaryGetOwnProperty,
	DefineOwnProperty: ordinaryDefineOwnProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	HasProperty:       ordinaryHasProperty,
	Delete:            ordinaryDelete,
	OwnPropertyKeys:   ordinaryOwnPropertyKeys,
}

func ordinaryGetOwnProperty(o *Object, key values.PropertyKey) (Descriptor, bool) {
	if key.Symbol != nil {
		if d, ok := o.symbolProp[key.Symbol]; ok {
			return *d, true
		}
		return Descriptor{}, false
	}
	if idx, ok := indexOf(key); ok {
		v, present := o.indexed.get(idx)
		if !present {
			return Descriptor{}, false
		}
		return DataDescriptor(v, true, true, true), true
	}
	slot, attrs, ok := o.shape.Lookup(key)
	if !ok {
		return Descriptor{}, false
	}
	if attrs.Accessor {
		if get, set, ok2 := o.accessorAt(slot); ok2 {
			return AccessorDescriptor(get, set, attrs.Enumerable, attrs.Configurable), true
		}
	}
	v := o.slots[slot]
	return DataDescriptor(v, attrs.Writable, attrs.Enumerable, attrs.Configurable), true
}

func ordinaryDefineOwnProperty(o *Object, key values.PropertyKey, desc Descriptor) bool {
	if key.Symbol != nil {
		if existing, ok := o.symbolProp[key.Symbol]; ok && !existing.Configurable {
			if desc.Configurable || (desc.Enumerable != existing.Enumerable) {
				return false
			}
		} else if !ok && !o.extensible {
			return false
		}
		d := desc
		o.symbolProp[key.Symbol] = &d
		return true
	}
	if idx, ok := indexOf(key); ok {
		if !o.extensible {
			if _, present := o.indexed.get(idx); !present {
				return false
			}
		}
		o.indexed.set(idx, desc.Value)
		return true
	}

	slot, attrs, exists := o.shape.Lookup(key)
	if exists {
		if !attrs.Configurable {
			if desc.Configurable {
				return false
			}
			if !desc.IsAccessor && !attrs.Accessor && !attrs.Writable && desc.Writable {
				return false
			}
		}
		o.slots[slot] = desc.Value
		if desc.IsAccessor {
			o.setAccessorAt(slot, desc.Get, desc.Set)
		}
		return true
	}
	if !o.extensible {
		return false
	}
	newShape := o.shape.Transition(key, desc.attrs())
	o.shape = newShape
	o.slots = append(o.slots, desc.Value)
	if desc.IsAccessor {
		o.setAccessorAt(newShape.slot, desc.Get, desc.Set)
	}
	return true
}

func ordinaryGet(o *Object, key values.PropertyKey, receiver values.Value) (values.Value, error) {
	d, ok := o.GetOwnProperty(key)
	if !ok {
		proto, hasProto := o.Prototype()
		if !hasProto {
			return values.Undefined, nil
		}
		po, release, err := proto.Borrow()
		if err != nil {
			return values.Undefined, err
		}
		defer release()
		if ordObj, ok := po.(*Object); ok {
			return ordObj.methods.Get(ordObj, key, receiver)
		}
		return values.Undefined, nil
	}
	if d.IsAccessor {
		if d.Get == nil {
			return values.Undefined, nil
		}
		return values.Undefined, ErrIsAccessor
	}
	return d.Value, nil
}

func ordinarySet(o *Object, key values.PropertyKey, v values.Value, receiver values.Value) (bool, error) {
	d, ok := o.GetOwnProperty(key)
	if ok {
		if d.IsAccessor {
			if d.Set == nil {
				return false, nil
			}
			return false, ErrIsAccessor
		}
		if !d.Writable {
			return false, nil
		}
		return o.DefineOwnProperty(key, DataDescriptor(v, true, d.Enumerable, d.Configurable)), nil
	}
	proto, hasProto := o.Prototype()
	if hasProto {
		po, release, err := proto.Borrow()
		if err != nil {
			return false, err
		}
		defer release()
		if ordObj, ok := po.(*Object); ok {
			if has := ordObj.methods.HasProperty(ordObj, key); has {
				return ordObj.methods.Set(ordObj, key, v, receiver)
			}
		}
	}
	if !o.extensible {
		return false, nil
	}
	return o.DefineOwnProperty(key, DataDescriptor(v, true, true, true)), nil
}

func ordinaryHasProperty(o *Object, key values.PropertyKey) bool {
	if _, ok := o.GetOwnProperty(key); ok {
		return true
	}
	proto, hasProto := o.Prototype()
	if !hasProto {
		return false
	}
	po, release, err := proto.Borrow()
	if err != nil {
		return false
	}
	defer release()
	if ordObj, ok := po.(*Object); ok {
		return ordObj.methods.HasProperty(ordObj, key)
	}
	return false
}

func ordinaryDelete(o *Object, key values.PropertyKey) bool {
	if key.Symbol != nil {
		d, ok := o.symbolProp[key.Symbol]
		if !ok {
			return true
		}
		if !d.Configurable {
			return false
		}
		delete(o.symbolProp, key.Symbol)
		return true
	}
	if idx, ok := indexOf(key); ok {
		o.indexed.delete(idx)
		return true
	}
	_, attrs, ok := o.shape.Lookup(key)
	if !ok {
		return true
	}
	if !attrs.Configurable {
		return false
	}
	// Deleting forces a dictionary-shape transition unique to this object
	// (spec.md §4.C): further additions never share shapes with other
	// objects that happened to reach the same layout.
	newShape := o.shape.ToDictionary(key)
	newSlots := make([]values.Value, newShape.SlotCount())
	for _, k := range newShape.Keys() {
		if slot, _, ok := o.shape.Lookup(k); ok {
			if ns, _, ok2 := newShape.Lookup(k); ok2 {
				newSlots[ns] = o.slots[slot]
			}
		}
	}
	o.shape = newShape
	o.slots = newSlots
	return true
}

func ordinaryOwnPropertyKeys(o *Object) []values.PropertyKey {
	keys := make([]values.PropertyKey, 0, o.shape.SlotCount()+len(o.symbolProp))
	for _, idx := range o.indexed.keys() {
		keys = append(keys, values.PropertyKey{Str: values.NewString(uintToString(idx))})
	}
	for _, k := range o.shape.Keys() {
		keys = append(keys, k)
	}
	for sym := range o.symbolProp {
		keys = append(keys, values.PropertyKey{Symbol: sym})
	}
	return keys
}

// GetOwnProperty, DefineOwnProperty, etc. as Object methods dispatch
// through the object's own Methods vtable, so exotic kinds automatically
// route to their overrides.
func (o *Object) GetOwnProperty(key values.PropertyKey) (Descriptor, bool) {
	return o.methods.GetOwnProperty(o, key)
}
func (o *Object) DefineOwnProperty(key values.PropertyKey, desc Descriptor) bool {
	return o.methods.DefineOwnProperty(o, key, desc)
}
func (o *Object) Get(key values.PropertyKey, receiver values.Value) (values.Value, error) {
	return o.methods.Get(o, key, receiver)
}
func (o *Object) Set(key values.PropertyKey, v values.Value, receiver values.Value) (bool, error) {
	return o.methods.Set(o, key, v, receiver)
}
func (o *Object) HasProperty(key values.PropertyKey) bool {
	return o.methods.HasProperty(o, key)
}
func (o *Object) Delete(key values.PropertyKey) bool {
	return o.methods.Delete(o, key)
}
func (o *Object) OwnPropertyKeys() []values.PropertyKey {
	return o.methods.OwnPropertyKeys(o)
}

func indexOf(key values.PropertyKey) (uint32, bool) {
	if key.Symbol != nil {
		return 0, false
	}
	s := key.Str.GoString()
	if s == "" {
		return 0, false
	}
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
		if n > 0xFFFFFFFE {
			return 0, false
		}
	}
	if s[0] == '0' && len(s) > 1 {
		return 0, false
	}
	return uint32(n), true
}

func uintToString(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
