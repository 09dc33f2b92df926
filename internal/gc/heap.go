// Package gc implements the engine's tracing garbage collector: typed cell
// allocation, dynamically borrow-checked access, weak references, and
// ephemerons for weak maps (spec.md §4.A).
package gc

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/nmxmxh/esengine/internal/errs"
	"github.com/nmxmxh/esengine/internal/obslog"
)

// RootProvider supplies transient roots that are not held by a StrongHandle
// but are nonetheless live — a VM's active call frames (registers, operand
// stack, environment chain). The GC has no notion of frames itself; it asks
// every registered provider for root ids at the start of each mark phase.
type RootProvider func() []CellID

type ephemeronEntry struct {
	keyID      CellID
	keyGen     uint32
	valueID    CellID
	valueAlive bool
}

// Heap owns all cells for one realm (or a set of realms sharing a heap,
// spec.md §4.I).
type Heap struct {
	arena     *slabArena
	roots     map[CellID]int // strong-handle root count per cell
	providers []RootProvider
	ephemera  []ephemeronEntry
	marked    *bitset.BitSet
	softLimit int
	logger    *obslog.Log

	allocs     uint64
	collections uint64
}

// Config tunes a Heap.
type Config struct {
	// SoftLimit is the live-cell count above which Alloc triggers a
	// collection before growing further. Zero disables the soft limit.
	SoftLimit int
	PageSize  int
}

// NewHeap creates an empty heap.
func NewHeap(cfg Config) *Heap {
	return &Heap{
		arena:     newSlabArena(cfg.PageSize),
		roots:     make(map[CellID]int),
		marked:    bitset.New(0),
		softLimit: cfg.SoftLimit,
		logger:    obslog.Component("gc"),
	}
}

// AddRootProvider registers a transient root source (see RootProvider).
func (h *Heap) AddRootProvider(p RootProvider) {
	h.providers = append(h.providers, p)
}

// Stats reports cumulative allocation and collection counters.
type Stats struct {
	LiveCells   int
	TotalSlots  int
	Allocations uint64
	Collections uint64
}

func (h *Heap) Stats() Stats {
	live := 0
	for _, s := range h.arena.slots {
		if s.alive {
			live++
		}
	}
	return Stats{LiveCells: live, TotalSlots: h.arena.len(), Allocations: h.allocs, Collections: h.collections}
}

// alloc is the generic, un-exported allocation path shared by the typed
// Alloc[T] wrapper below (Go methods cannot be type-parameterized, so the
// ergonomic generic entry point lives as a free function in handle.go).
func (h *Heap) alloc(v Traceable) (CellID, error) {
	if h.softLimit > 0 {
		live := 0
		for _, s := range h.arena.slots {
			if s.alive {
				live++
			}
		}
		if live >= h.softLimit {
			h.Collect()
			live = 0
			for _, s := range h.arena.slots {
				if s.alive {
					live++
				}
			}
			if live >= h.softLimit*2 {
				return 0, errs.OutOfMemory
			}
		}
	}
	id := h.arena.acquire()
	h.arena.slots[id].alive = true
	h.arena.slots[id].value = v
	h.allocs++
	return id, nil
}

func (h *Heap) slot(id CellID) *cellSlot {
	return &h.arena.slots[id]
}

func (h *Heap) root(id CellID) {
	h.roots[id]++
}

func (h *Heap) unroot(id CellID) {
	if n, ok := h.roots[id]; ok {
		if n <= 1 {
			delete(h.roots, id)
		} else {
			h.roots[id] = n - 1
		}
	}
}

// isLive reports whether id still names a live cell at generation gen.
func (h *Heap) isLive(id CellID, gen uint32) bool {
	if int(id) >= len(h.arena.slots) {
		return false
	}
	s := &h.arena.slots[id]
	return s.alive && s.generation == gen
}

// Collect runs one mark-and-sweep pass: BFS from the root set (rooted
// handles plus every registered RootProvider), then resolves ephemerons to
// a fixed point, then sweeps and finalizes unmarked cells.
func (h *Heap) Collect() {
	h.collections++
	n := h.arena.len()
	h.marked = bitset.New(uint(n))

	var queue []CellID
	push := func(id CellID) {
		if int(id) < n && h.arena.slots[id].alive && !h.marked.Test(uint(id)) {
			h.marked.Set(uint(id))
			queue = append(queue, id)
		}
	}

	for id := range h.roots {
		push(id)
	}
	for _, p := range h.providers {
		for _, id := range p() {
			push(id)
		}
	}

	visitor := visitorFunc(push)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		s := &h.arena.slots[id]
		if s.alive && s.value != nil {
			s.value.Trace(visitor)
		}
	}

	// Ephemeron fixed point (SPEC_FULL.md supplement): a value is traced
	// only once its key has been marked; repeat until a full pass marks
	// nothing new, so chains of ephemerons converge.
	for {
		progress := false
		for i := range h.ephemera {
			e := &h.ephemera[i]
			if !h.isLive(e.keyID, e.keyGen) {
				continue
			}
			if !h.marked.Test(uint(e.keyID)) {
				continue
			}
			if h.marked.Test(uint(e.valueID)) {
				continue
			}
			push(e.valueID)
			progress = true
			for len(queue) > 0 {
				id := queue[0]
				queue = queue[1:]
				s := &h.arena.slots[id]
				if s.alive && s.value != nil {
					s.value.Trace(visitor)
				}
			}
		}
		if !progress {
			break
		}
	}

	for id := range h.arena.slots {
		s := &h.arena.slots[id]
		if s.alive && !h.marked.Test(uint(id)) {
			if fin, ok := s.value.(Finalizer); ok {
				fin.Finalize()
			}
			h.arena.release(CellID(id))
		}
	}
	h.logger.Debug("collection complete", obslog.Int("live", h.liveCount()))
}

func (h *Heap) liveCount() int {
	n := 0
	for _, s := range h.arena.slots {
		if s.alive {
			n++
		}
	}
	return n
}
