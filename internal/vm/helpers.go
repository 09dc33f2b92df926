package vm

import (
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/realm"
	"github.com/nmxmxh/esengine/internal/values"
)

func newFunctionObject(r *realm.Realm, fn object.Callable) *object.Object {
	return object.NewFunction(&r.FunctionProto, fn)
}

func allocObject(r *realm.Realm, o *object.Object) (gc.StrongHandle[values.HeapObject], error) {
	return gc.Alloc[values.HeapObject](r.Heap, o)
}

func payloadOf(o *object.Object) any { return o.Payload }
