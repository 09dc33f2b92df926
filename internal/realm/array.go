package realm

import (
	"strconv"

	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/obslog"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

// NativeThrow lets a realm-defined intrinsic raise a typed JS exception
// without importing the vm package (NativeFunc.Call only returns a plain
// error); CallNative recognizes this concrete type and constructs the
// matching native error kind via NewNativeError.
type NativeThrow struct {
	Kind    string
	Message string
}

func (e *NativeThrow) Error() string { return e.Kind + ": " + e.Message }

func indexKey(i int) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(strconv.Itoa(i))}
}

// arrayConstructor implements the single-numeric-arg length form and the
// element-list form (ECMA-262 Array(len) / Array(e1, e2, ...)); spec.md §8
// names Array(2**32-1) succeeding and Array(2**32) throwing RangeError as
// a mandatory boundary scenario.
func (r *Realm) arrayConstructor(this values.Value, args []values.Value) (values.Value, error) {
	o := object.NewArray(&r.ArrayProto)

	if len(args) == 1 && args[0].IsNumber() {
		lengthKey := values.PropertyKey{Str: values.NewString("length")}
		if !o.DefineOwnProperty(lengthKey, object.DataDescriptor(args[0], true, false, false)) {
			return values.Undefined, &NativeThrow{Kind: "RangeError", Message: "invalid array length"}
		}
	} else {
		for i, a := range args {
			o.DefineOwnProperty(indexKey(i), object.DataDescriptor(a, true, true, true))
		}
	}

	h, err := gc.Alloc[values.HeapObject](r.Heap, o)
	if err != nil {
		return values.Undefined, err
	}
	return values.Object(h), nil
}

func (r *Realm) installArray() {
	ctor, err := r.NewNativeFunction("Array", r.arrayConstructor)
	if err != nil {
		r.logger.Error("failed to define Array intrinsic", obslog.Err(err))
		return
	}
	r.DefineGlobal("Array", ctor)
}
