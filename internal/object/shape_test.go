package object_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

func key(s string) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(s)}
}

func dataAttrs() object.Attributes {
	return object.Attributes{Writable: true, Enumerable: true, Configurable: true}
}

func TestTransitionFromSameShapeWithSameKeyReturnsIdenticalChild(t *testing.T) {
	root := object.EmptyShape()
	a := root.Transition(key("x"), dataAttrs())
	b := root.Transition(key("x"), dataAttrs())
	assert.Same(t, a, b, "identical transitions from the same shape must share a child")
}

func TestTransitionWithDifferentKeysDiverges(t *testing.T) {
	root := object.EmptyShape()
	a := root.Transition(key("x"), dataAttrs())
	b := root.Transition(key("y"), dataAttrs())
	assert.NotSame(t, a, b)
}

func TestSlotCountGrowsWithEachTransition(t *testing.T) {
	root := object.EmptyShape()
	require.Equal(t, 0, root.SlotCount())
	s1 := root.Transition(key("a"), dataAttrs())
	assert.Equal(t, 1, s1.SlotCount())
	s2 := s1.Transition(key("b"), dataAttrs())
	assert.Equal(t, 2, s2.SlotCount())
}

func TestLookupWalksToParent(t *testing.T) {
	root := object.EmptyShape()
	s1 := root.Transition(key("a"), dataAttrs())
	s2 := s1.Transition(key("b"), dataAttrs())

	slot, _, ok := s2.Lookup(key("a"))
	require.True(t, ok)
	assert.Equal(t, 0, slot)

	slot, _, ok = s2.Lookup(key("b"))
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	_, _, ok = s2.Lookup(key("c"))
	assert.False(t, ok)
}

func TestToDictionaryProducesObjectUniqueShape(t *testing.T) {
	root := object.EmptyShape()
	s1 := root.Transition(key("a"), dataAttrs())
	s2 := s1.Transition(key("b"), dataAttrs())

	d1 := s2.ToDictionary(key("a"))
	d2 := s2.ToDictionary(key("a"))

	assert.True(t, d1.IsDictionary())
	assert.NotSame(t, d1, d2, "each delete produces its own dictionary shape, never shared")
	_, _, ok := d1.Lookup(key("a"))
	assert.False(t, ok)
	_, _, ok = d1.Lookup(key("b"))
	assert.True(t, ok)
}
