package gc

// CellID identifies a heap slot. It is stable for the lifetime of the cell
// it names; after a cell is freed the slot is recycled and its generation
// bumped, so a stale CellID+generation pair is distinguishable from a live
// one (this is what lets WeakHandle report "not live" instead of aliasing a
// newly allocated, unrelated value).
type CellID uint32

type cellSlot struct {
	flag       borrowFlag
	value      Traceable
	alive      bool
	generation uint32
}
