// Package ic implements the engine's monomorphic inline cache (spec.md
// §4.G): one cache entry per get_prop_name/set_prop_name call site,
// keyed on shape identity, living in the owning CodeBlock's own ic
// vector rather than a side hash map (SPEC_FULL.md "opcode-adjacent
// inline-cache placement", grounded on Boa's
// core/engine/src/vm/opcode/set/property.rs).
package ic

import "github.com/nmxmxh/esengine/internal/object"

// Entry caches the last shape seen at one call site and the resolved
// named-property slot and attributes for that shape. A shape mismatch on
// the next hit is a plain miss, not an error: the caller falls back to a
// full property lookup and then re-Updates the entry (monomorphic — a
// polymorphic site just thrashes the single slot rather than growing a
// chain, which is the deliberate "representative subset" tradeoff this
// engine makes over a production multi-shape PIC).
type Entry struct {
	shape   *object.Shape
	slot    int
	attrs   object.Attributes
	present bool
}

// Lookup returns the cached slot and attributes if shape matches the
// entry's last-seen shape.
func (e *Entry) Lookup(shape *object.Shape) (slot int, attrs object.Attributes, ok bool) {
	if e.present && e.shape == shape {
		return e.slot, e.attrs, true
	}
	return 0, object.Attributes{}, false
}

// Update records a new (shape, slot, attrs) triple, replacing whatever
// this entry previously cached.
func (e *Entry) Update(shape *object.Shape, slot int, attrs object.Attributes) {
	e.shape = shape
	e.slot = slot
	e.attrs = attrs
	e.present = true
}

// Vector is the per-CodeBlock table of cache entries, one per
// get_prop_name/set_prop_name instruction, indexed by the instruction's
// own ic operand.
type Vector []Entry

// NewVector allocates a Vector with n empty entries.
func NewVector(n int) Vector {
	return make(Vector, n)
}
