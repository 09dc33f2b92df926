package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	tag  string
	refs []CellID
}

func (n *node) Trace(v Visitor) {
	for _, id := range n.refs {
		v.Visit(id)
	}
}

func TestAllocAndCollectReclaimsUnreachable(t *testing.T) {
	h := NewHeap(Config{})
	root, err := Alloc(h, &node{tag: "root"})
	require.NoError(t, err)

	leaf, err := Alloc(h, &node{tag: "leaf"})
	require.NoError(t, err)
	leafID := leaf.ID()
	leaf.Release() // leaf is only reachable via root now

	root2, releaseRoot, _ := root.Borrow()
	_ = root2
	releaseRoot()
	{
		v, release, err := root.BorrowMut()
		require.NoError(t, err)
		v.refs = append(v.refs, leafID)
		release()
	}

	h.Collect()
	assert.True(t, h.isLive(leafID, h.slot(leafID).generation), "leaf reachable from rooted root must survive")

	// Drop the reference and collect again: leaf must be reclaimed.
	{
		v, release, err := root.BorrowMut()
		require.NoError(t, err)
		v.refs = nil
		release()
	}
	h.Collect()
	assert.False(t, h.arena.slots[leafID].alive, "unreachable leaf must be swept")
	root.Release()
}

func TestBorrowFlagRejectsConcurrentWrite(t *testing.T) {
	h := NewHeap(Config{})
	handle, err := Alloc(h, &node{tag: "x"})
	require.NoError(t, err)
	defer handle.Release()

	_, release1, err := handle.BorrowMut()
	require.NoError(t, err)

	_, _, err = handle.BorrowMut()
	assert.Error(t, err, "a second mutable borrow while one is active must fail")

	_, _, err = handle.Borrow()
	assert.Error(t, err, "a shared borrow while mutably borrowed must fail")

	release1()

	_, release2, err := handle.Borrow()
	require.NoError(t, err)
	release2()
}

func TestWeakHandleReportsDeadAfterSweep(t *testing.T) {
	h := NewHeap(Config{})
	handle, err := Alloc(h, &node{tag: "y"})
	require.NoError(t, err)
	weak := handle.Weak()
	handle.Release()

	h.Collect()
	_, ok := weak.Upgrade()
	assert.False(t, ok, "weak handle must not upgrade once its target has been swept")
}

func TestEphemeronValueDiesWithKey(t *testing.T) {
	h := NewHeap(Config{})
	key, err := Alloc(h, &node{tag: "key"})
	require.NoError(t, err)
	value, err := Alloc(h, &node{tag: "value"})
	require.NoError(t, err)
	valueID := value.ID()

	NewEphemeron[*node, *node](h, key, value)

	h.Collect()
	assert.True(t, h.arena.slots[valueID].alive, "value survives while key is rooted")

	key.Release()
	h.Collect()
	assert.False(t, h.arena.slots[valueID].alive, "value must die once its ephemeron key is unreachable")
}
