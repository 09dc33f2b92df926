// Package object implements the engine's object model: shape-based
// property storage, property descriptors, and the internal-methods vtable
// (spec.md §3/§4.C).
package object

import (
	"weak"

	"github.com/nmxmxh/esengine/internal/values"
)

// Attributes are the attribute bits fixed on a named-property transition.
type Attributes struct {
	Writable     bool
	Enumerable   bool
	Configurable bool
	Accessor     bool
}

type transitionKey struct {
	key   values.PropertyKey
	attrs Attributes
}

// Shape is a node in the tree of property-layout transitions rooted at the
// empty shape (spec.md §3/§4.C). Two objects with the same shape pointer
// have identical named-property layout and prototype; the same transition
// sequence from any starting point always yields the same child shape,
// which is the invariant that lets shape identity serve as an inline-cache
// key.
//
// Shapes are ordinary Go-GC-managed values rather than cells in the
// engine's own tracing heap (see DESIGN.md): they never cross the embedder
// boundary as handles, and Go's runtime GC already reclaims unreferenced
// shape subtrees for free. Child transitions are still cached *weakly*, as
// spec.md requires, using the standard library's weak.Pointer (Go 1.24) so
// an unused branch can be collected by Go's GC even though its parent
// shape is still alive.
type Shape struct {
	parent   *Shape
	addedKey values.PropertyKey
	addedAtt Attributes
	slot     int
	dict     bool // true once this object has had a property deleted

	children map[transitionKey]weak.Pointer[Shape]
}

// EmptyShape is the root of every transition tree: no own properties, slot
// index -1 (the next property added takes slot 0).
func EmptyShape() *Shape {
	return &Shape{slot: -1, children: make(map[transitionKey]weak.Pointer[Shape])}
}

// SlotCount is the number of named own-property slots this shape
// describes.
func (s *Shape) SlotCount() int { return s.slot + 1 }

// IsDictionary reports whether this shape was produced by a delete and so
// is unique to one object (spec.md §4.C).
func (s *Shape) IsDictionary() bool { return s.dict }

// Lookup walks from this shape toward the root looking for key, returning
// the slot index and attributes if found.
func (s *Shape) Lookup(key values.PropertyKey) (slot int, attrs Attributes, ok bool) {
	for cur := s; cur != nil && cur.slot >= 0; cur = cur.parent {
		if cur.addedKey.Equal(key) {
			return cur.slot, cur.addedAtt, true
		}
	}
	return 0, Attributes{}, false
}

// Keys returns the own property keys described by this shape, in
// insertion (slot) order.
func (s *Shape) Keys() []values.PropertyKey {
	out := make([]values.PropertyKey, s.SlotCount())
	for cur := s; cur != nil && cur.slot >= 0; cur = cur.parent {
		out[cur.slot] = cur.addedKey
	}
	return out
}

// Transition returns the child shape for adding (key, attrs), creating and
// weakly caching it if this is the first time this exact transition has
// been requested from this shape.
func (s *Shape) Transition(key values.PropertyKey, attrs Attributes) *Shape {
	tk := transitionKey{key: key, attrs: attrs}
	if wp, ok := s.children[tk]; ok {
		if child := wp.Value(); child != nil {
			return child
		}
	}
	child := &Shape{
		parent:   s,
		addedKey: key,
		addedAtt: attrs,
		slot:     s.slot + 1,
		children: make(map[transitionKey]weak.Pointer[Shape]),
	}
	s.children[tk] = weak.Make(child)
	return child
}

// ToDictionary produces a fresh, object-unique shape carrying the same
// keys/attrs as s minus the removed key, with dict=true so it never
// shares cache entries with other objects again (spec.md §4.C "delete
// forces a transition to a de-optimized dictionary shape").
func (s *Shape) ToDictionary(remove values.PropertyKey) *Shape {
	kept := make([]struct {
		key   values.PropertyKey
		attrs Attributes
	}, 0, s.SlotCount())
	for cur := s; cur != nil && cur.slot >= 0; cur = cur.parent {
		if cur.addedKey.Equal(remove) {
			continue
		}
		kept = append(kept, struct {
			key   values.PropertyKey
			attrs Attributes
		}{cur.addedKey, cur.addedAtt})
	}
	// kept is in root-to-leaf reverse order (leaf-first); rebuild root-first.
	out := EmptyShape()
	out.dict = true
	for i := len(kept) - 1; i >= 0; i-- {
		out = &Shape{
			parent:   out,
			addedKey: kept[i].key,
			addedAtt: kept[i].attrs,
			slot:     out.slot + 1,
			dict:     true,
			children: make(map[transitionKey]weak.Pointer[Shape]),
		}
	}
	return out
}
