package vm

import (
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

// findDescriptor walks o's prototype chain looking for key's own
// descriptor, returning the object that owns it (needed to invoke an
// accessor's getter/setter with the correct receiver distinct from `this`).
func (v *VM) findDescriptor(o *object.Object, key values.PropertyKey) (object.Descriptor, *object.Object, func(), bool) {
	cur := o
	var release func()
	for {
		if d, ok := cur.GetOwnProperty(key); ok {
			return d, cur, release, true
		}
		proto, hasProto := cur.Prototype()
		if !hasProto {
			return object.Descriptor{}, nil, release, false
		}
		po, rel, err := proto.Borrow()
		if release != nil {
			release()
		}
		if err != nil {
			return object.Descriptor{}, nil, func() {}, false
		}
		protoObj, ok := po.(*object.Object)
		if !ok {
			rel()
			return object.Descriptor{}, nil, func() {}, false
		}
		cur = protoObj
		release = rel
	}
}

// getProp implements get_prop_name/get_prop_value: inline-cache
// consultation for the named, non-computed case, full shape/prototype walk
// on a miss, and accessor invocation through the VM's call machinery
// (object.Object.Get cannot itself call a getter — see object package doc).
func (v *VM) getProp(f *CallFrame, receiver values.Value, name string, icSlot int32) (values.Value, error) {
	if !receiver.IsObject() {
		return v.getPrimitiveProp(receiver, name)
	}
	o, release, err := v.asObject(receiver)
	if err != nil {
		return values.Undefined, err
	}
	defer release()

	key := values.PropertyKey{Str: values.NewString(name)}

	if icSlot >= 0 {
		if slot, _, ok := f.ic[icSlot].Lookup(o.Shape()); ok {
			return o.SlotValue(slot), nil
		}
	}

	d, owner, rel, found := v.findDescriptor(o, key)
	if rel != nil {
		defer rel()
	}
	if !found {
		return values.Undefined, nil
	}
	if d.IsAccessor {
		if d.Get == nil {
			return values.Undefined, nil
		}
		return v.callValue(*d.Get, receiver, nil)
	}
	if icSlot >= 0 && owner == o {
		if slot, attrs, ok := o.Shape().Lookup(key); ok {
			f.ic[icSlot].Update(o.Shape(), slot, attrs)
		}
	}
	return d.Value, nil
}

func (v *VM) getPrimitiveProp(val values.Value, name string) (values.Value, error) {
	if val.Kind() == values.KindString && name == "length" {
		return values.Float64(float64(val.AsString().Length())), nil
	}
	return values.Undefined, nil
}

// setProp implements set_prop_name/set_prop_value analogously to getProp.
func (v *VM) setProp(f *CallFrame, receiver values.Value, name string, val values.Value, icSlot int32) error {
	if !receiver.IsObject() {
		if f.cb.IsStrict {
			return v.throwTypeError("cannot create property '" + name + "' on a primitive value")
		}
		return nil // sloppy-mode write to a primitive is a silent no-op
	}
	o, release, err := v.asObject(receiver)
	if err != nil {
		return err
	}
	defer release()

	key := values.PropertyKey{Str: values.NewString(name)}

	if icSlot >= 0 {
		if slot, attrs, ok := f.ic[icSlot].Lookup(o.Shape()); ok && attrs.Writable && !attrs.Accessor {
			o.SetSlotValue(slot, val)
			return nil
		}
	}

	if d, ok := o.GetOwnProperty(key); ok && d.IsAccessor {
		if d.Set == nil {
			return nil
		}
		_, err := v.callValue(*d.Set, receiver, []values.Value{val})
		return err
	}

	ok, err := o.Set(key, val, receiver)
	if err != nil {
		if err == object.ErrIsAccessor {
			return nil
		}
		return err
	}
	if !ok {
		if o.Kind() == object.KindArray && name == "length" {
			return v.throwRangeError("invalid array length")
		}
		if f.cb.IsStrict {
			return v.throwTypeError("cannot assign to read only property '" + name + "' of object")
		}
		return nil
	}
	if icSlot >= 0 {
		if slot, attrs, found := o.Shape().Lookup(key); found {
			f.ic[icSlot].Update(o.Shape(), slot, attrs)
		}
	}
	return nil
}
