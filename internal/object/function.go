package object

import (
	"errors"

	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/values"
)

// ErrNotCallable is returned by Call/Construct on a non-function object.
var ErrNotCallable = errors.New("object: not callable")

// Callable is implemented by whatever the VM installs as a function
// object's Payload (a CodeBlock closure, a native Go func, a bound
// function, ...). The object package never invokes it itself — Call and
// Construct exist so callers elsewhere in the engine have one place to
// reach through Payload, not so the object package can drive execution.
type Callable interface {
	Call(this values.Value, args []values.Value) (values.Value, error)
	Construct(args []values.Value, newTarget values.Value) (values.Value, error)
}

// FunctionMethods is presently the ordinary property behavior: a function
// object's callability lives in Payload/IsCallable, not in a
// [[GetOwnProperty]]-style override. Kept as a distinct vtable (rather
// than aliasing OrdinaryMethods) so a function-specific override — e.g.
// lazy "prototype" own-property vivification — has a home without
// touching every other kind.
var FunctionMethods = OrdinaryMethods

// NewFunction creates a callable object wrapping fn.
func NewFunction(proto *gc.StrongHandle[values.HeapObject], fn Callable) *Object {
	o := New(proto)
	o.Payload = fn
	o.SetKind(KindFunction)
	return o
}

// Call invokes the object as a function. Returns ErrNotCallable if the
// object's Payload does not implement Callable.
func (o *Object) Call(this values.Value, args []values.Value) (values.Value, error) {
	fn, ok := o.Payload.(Callable)
	if !ok {
		return values.Undefined, ErrNotCallable
	}
	return fn.Call(this, args)
}

// Construct invokes the object as a constructor.
func (o *Object) Construct(args []values.Value, newTarget values.Value) (values.Value, error) {
	fn, ok := o.Payload.(Callable)
	if !ok {
		return values.Undefined, ErrNotCallable
	}
	return fn.Construct(args, newTarget)
}
