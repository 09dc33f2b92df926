package gc

// StrongHandle roots its target for as long as it is held: the cell it
// names cannot be reclaimed by a collection until Release is called. Go has
// no destructors, so unlike Boa's stack-scoped Gc<T>, rooting here is
// explicit — callers that keep a handle across a GC-triggering operation
// must Release it when done (or the VM must own and release it as part of
// frame teardown).
type StrongHandle[T Traceable] struct {
	heap *Heap
	id   CellID
	gen  uint32
}

// Alloc allocates a new cell holding v and returns a rooted handle to it.
func Alloc[T Traceable](h *Heap, v T) (StrongHandle[T], error) {
	id, err := h.alloc(v)
	if err != nil {
		var zero StrongHandle[T]
		return zero, err
	}
	h.root(id)
	return StrongHandle[T]{heap: h, id: id, gen: h.slot(id).generation}, nil
}

// ID returns the handle's cell id, for use as a GC root/reference target
// (e.g. from a Traceable's Trace method).
func (s StrongHandle[T]) ID() CellID { return s.id }

// Release unroots the cell. The handle must not be used afterward.
func (s StrongHandle[T]) Release() {
	if s.heap != nil {
		s.heap.unroot(s.id)
	}
}

// Weak downgrades the handle to a WeakHandle.
func (s StrongHandle[T]) Weak() WeakHandle[T] {
	return WeakHandle[T]{heap: s.heap, id: s.id, gen: s.gen}
}

// Borrow takes a dynamically-checked shared borrow of the cell's value.
// The returned release func must be called exactly once (typically via
// defer) to end the borrow.
func (s StrongHandle[T]) Borrow() (T, func(), error) {
	return borrowCell[T](s.heap, s.id)
}

// BorrowMut takes a dynamically-checked exclusive borrow. Per spec.md
// §4.A, a mutable borrow also roots the cell for its duration so a
// collection triggered mid-mutation cannot reclaim still-reachable data.
func (s StrongHandle[T]) BorrowMut() (T, func(), error) {
	return borrowCellMut[T](s.heap, s.id)
}

func borrowCell[T Traceable](h *Heap, id CellID) (T, func(), error) {
	var zero T
	slot := h.slot(id)
	if !slot.alive {
		return zero, func() {}, errNotLive
	}
	if err := slot.flag.tryRead(); err != nil {
		return zero, func() {}, err
	}
	v, ok := slot.value.(T)
	if !ok {
		slot.flag.releaseRead()
		return zero, func() {}, errWrongType
	}
	return v, func() { slot.flag.releaseRead() }, nil
}

func borrowCellMut[T Traceable](h *Heap, id CellID) (T, func(), error) {
	var zero T
	slot := h.slot(id)
	if !slot.alive {
		return zero, func() {}, errNotLive
	}
	if err := slot.flag.tryWrite(); err != nil {
		return zero, func() {}, err
	}
	if !slot.flag.rootedByMB {
		h.root(id)
		slot.flag.rootedByMB = true
	}
	v, ok := slot.value.(T)
	if !ok {
		slot.flag.releaseWrite()
		if slot.flag.rootedByMB {
			slot.flag.rootedByMB = false
			h.unroot(id)
		}
		return zero, func() {}, errWrongType
	}
	return v, func() {
		slot.flag.releaseWrite()
		if slot.flag.rootedByMB {
			slot.flag.rootedByMB = false
			h.unroot(id)
		}
	}, nil
}

// WeakHandle upgrades to a StrongHandle only while its target is still
// live; otherwise Upgrade reports ok=false.
type WeakHandle[T Traceable] struct {
	heap *Heap
	id   CellID
	gen  uint32
}

// Upgrade returns a rooted StrongHandle if the target is still live.
func (w WeakHandle[T]) Upgrade() (StrongHandle[T], bool) {
	if w.heap == nil || !w.heap.isLive(w.id, w.gen) {
		var zero StrongHandle[T]
		return zero, false
	}
	w.heap.root(w.id)
	return StrongHandle[T]{heap: w.heap, id: w.id, gen: w.gen}, true
}

// ID returns the weak handle's target cell id (may no longer be live).
func (w WeakHandle[T]) ID() CellID { return w.id }
