package object

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/values"
)

// ErrIsAccessor signals that a Get/Set resolved to an accessor property:
// the object package does not itself invoke functions (that crosses into
// the VM's call machinery), so the caller must fetch the getter/setter via
// GetOwnProperty and invoke it, passing the original receiver as `this`.
var ErrIsAccessor = errors.New("object: property is an accessor")

// Kind tags an Object's exotic variant (spec.md §3).
type Kind uint8

const (
	KindOrdinary Kind = iota
	KindArray
	KindFunction
	KindArguments
	KindError
	KindBooleanWrapper
	KindNumberWrapper
	KindStringWrapper
	KindBigIntWrapper
	KindPromise
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindGenerator
	KindAsyncGenerator
	KindIteratorResult
	KindRegExp
	KindModuleNamespace
	KindProxy
)

// sparseDensityThreshold: once an indexed write would grow the dense
// vector by this many holes or more, storage falls back to a sparse map
// (spec.md §4.C "sparse storage kicks in at a density threshold").
const sparseDensityThreshold = 256

type indexedStorage struct {
	dense     []values.Value
	holes     *bitset.BitSet
	sparse    map[uint32]values.Value
	useSparse bool
	length    uint32
}

func newIndexedStorage() *indexedStorage {
	return &indexedStorage{holes: bitset.New(0)}
}

func (s *indexedStorage) get(idx uint32) (values.Value, bool) {
	if s.useSparse {
		v, ok := s.sparse[idx]
		return v, ok
	}
	if idx >= uint32(len(s.dense)) {
		return values.Undefined, false
	}
	if s.holes.Test(uint(idx)) {
		return values.Undefined, false
	}
	return s.dense[idx], true
}

func (s *indexedStorage) set(idx uint32, v values.Value) {
	if s.useSparse {
		s.sparse[idx] = v
		if idx+1 > s.length {
			s.length = idx + 1
		}
		return
	}
	if int(idx) >= len(s.dense)+sparseDensityThreshold {
		s.toSparse()
		s.sparse[idx] = v
		if idx+1 > s.length {
			s.length = idx + 1
		}
		return
	}
	for uint32(len(s.dense)) <= idx {
		s.dense = append(s.dense, values.Undefined)
		s.holes.Set(uint(len(s.dense) - 1))
	}
	s.dense[idx] = v
	s.holes.Clear(uint(idx))
	if idx+1 > s.length {
		s.length = idx + 1
	}
}

func (s *indexedStorage) delete(idx uint32) {
	if s.useSparse {
		delete(s.sparse, idx)
		return
	}
	if idx < uint32(len(s.dense)) {
		s.dense[idx] = values.Undefined
		s.holes.Set(uint(idx))
	}
}

func (s *indexedStorage) toSparse() {
	s.sparse = make(map[uint32]values.Value, len(s.dense))
	for i, v := range s.dense {
		if !s.holes.Test(uint(i)) {
			s.sparse[uint32(i)] = v
		}
	}
	s.dense = nil
	s.holes = bitset.New(0)
	s.useSparse = true
}

func (s *indexedStorage) keys() []uint32 {
	var out []uint32
	if s.useSparse {
		for k := range s.sparse {
			out = append(out, k)
		}
		return out
	}
	for i := range s.dense {
		if !s.holes.Test(uint(i)) {
			out = append(out, uint32(i))
		}
	}
	return out
}

// Object is the engine's record type for every object kind: ordinary,
// array, function, and so on, with kind-specific state in Payload
// (spec.md §3).
type Object struct {
	shape      *Shape
	slots      []values.Value
	indexed    *indexedStorage
	symbolProp map[*values.Symbol]*Descriptor

	proto      gc.WeakHandle[values.HeapObject]
	hasProto   bool
	extensible bool

	kind    Kind
	Payload any

	methods   Methods
	accessors map[int]accessorPair
}

type accessorPair struct {
	get, set *values.Value
}

func (o *Object) accessorAt(slot int) (get, set *values.Value, ok bool) {
	p, found := o.accessors[slot]
	if !found {
		return nil, nil, false
	}
	return p.get, p.set, true
}

func (o *Object) setAccessorAt(slot int, get, set *values.Value) {
	if o.accessors == nil {
		o.accessors = make(map[int]accessorPair)
	}
	o.accessors[slot] = accessorPair{get: get, set: set}
}

// New creates an ordinary object with the given prototype (nil for
// %Object.prototype% absence / null prototype) and extensible=true.
func New(proto *gc.StrongHandle[values.HeapObject]) *Object {
	o := &Object{
		shape:      EmptyShape(),
		indexed:    newIndexedStorage(),
		symbolProp: make(map[*values.Symbol]*Descriptor),
		extensible: true,
		kind:       KindOrdinary,
	}
	if proto != nil {
		o.proto = proto.Weak()
		o.hasProto = true
	}
	o.methods = OrdinaryMethods
	return o
}

func (o *Object) ClassName() string {
	switch o.kind {
	case KindArray:
		return "Array"
	case KindFunction:
		return "Function"
	case KindError:
		return "Error"
	default:
		return "Object"
	}
}

func (o *Object) IsCallable() bool {
	return o.kind == KindFunction
}

// Kind returns the object's exotic-variant tag.
func (o *Object) Kind() Kind { return o.kind }

// Shape returns the object's current property-layout shape, for use as an
// inline-cache key (spec.md §4.G): two objects sharing a shape pointer
// share named-property layout, so a cache hit can skip the shape walk.
func (o *Object) Shape() *Shape { return o.shape }

// SlotValue reads a named-property slot directly by index, bypassing
// shape lookup. Callers (the inline cache) must have already confirmed
// the object's current Shape matches the shape the slot index was
// resolved against.
func (o *Object) SlotValue(slot int) values.Value { return o.slots[slot] }

// SetSlotValue writes a named-property slot directly by index, under the
// same caller obligation as SlotValue.
func (o *Object) SetSlotValue(slot int, v values.Value) { o.slots[slot] = v }

// SetKind reassigns the object's variant tag and, for Function, installs
// the function internal-methods overrides.
func (o *Object) SetKind(k Kind) {
	o.kind = k
	switch k {
	case KindFunction:
		o.methods = FunctionMethods
	case KindArray:
		o.methods = ArrayMethods
	case KindArguments:
		o.methods = ArgumentsMethods
	default:
		o.methods = OrdinaryMethods
	}
}

// Trace implements gc.Traceable: an object's references are its named
// property values, its indexed values, its symbol-keyed property values,
// and its prototype.
func (o *Object) Trace(v gc.Visitor) {
	for _, val := range o.slots {
		traceValue(v, val)
	}
	if o.indexed != nil {
		if o.indexed.useSparse {
			for _, val := range o.indexed.sparse {
				traceValue(v, val)
			}
		} else {
			for _, val := range o.indexed.dense {
				traceValue(v, val)
			}
		}
	}
	for _, d := range o.symbolProp {
		traceValue(v, d.Value)
		if d.Get != nil {
			traceValue(v, *d.Get)
		}
		if d.Set != nil {
			traceValue(v, *d.Set)
		}
	}
	for _, p := range o.accessors {
		if p.get != nil {
			traceValue(v, *p.get)
		}
		if p.set != nil {
			traceValue(v, *p.set)
		}
	}
	if o.hasProto {
		v.Visit(o.proto.ID())
	}
}

func traceValue(v gc.Visitor, val values.Value) {
	if val.IsObject() {
		v.Visit(val.AsObject().ID())
	}
}

// Extensible reports [[IsExtensible]].
func (o *Object) Extensible() bool { return o.extensible }

// PreventExtensions implements [[PreventExtensions]]: always succeeds.
func (o *Object) PreventExtensions() bool {
	o.extensible = false
	return true
}

// Prototype implements [[GetPrototypeOf]].
func (o *Object) Prototype() (gc.StrongHandle[values.HeapObject], bool) {
	if !o.hasProto {
		var zero gc.StrongHandle[values.HeapObject]
		return zero, false
	}
	return o.proto.Upgrade()
}

// SetPrototype implements [[SetPrototypeOf]]. Fails (returns false)
// if the object is non-extensible and the new value differs.
func (o *Object) SetPrototype(proto *gc.StrongHandle[values.HeapObject]) bool {
	if !o.extensible {
		cur, ok := o.Prototype()
		if proto == nil {
			return !ok
		}
		return ok && cur.ID() == proto.ID()
	}
	if proto == nil {
		o.hasProto = false
		return true
	}
	o.proto = proto.Weak()
	o.hasProto = true
	return true
}
