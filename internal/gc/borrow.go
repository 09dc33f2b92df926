package gc

import "github.com/nmxmxh/esengine/internal/errs"

// borrowState is the three-state borrow-flag state machine of spec.md
// §4.A / SPEC_FULL.md, mirroring boa_gc's GcCell: unused, shared-reading
// (with a count), or exclusively writing. Single-threaded-per-realm (§5),
// so no atomics are needed.
type borrowState uint8

const (
	stateUnused borrowState = iota
	stateReading
	stateWriting
)

// borrowFlag is the per-cell borrow tracker. The rooted bit suppresses
// redundant root-set churn while a mutable borrow is active: a borrow_mut
// roots its target for the duration of the borrow so a collection
// triggered mid-mutation cannot reclaim still-reachable data.
type borrowFlag struct {
	state      borrowState
	reads      uint32
	rootedByMB bool
}

func (f *borrowFlag) tryRead() error {
	if f.state == stateWriting {
		return errs.BorrowError
	}
	f.state = stateReading
	f.reads++
	return nil
}

func (f *borrowFlag) releaseRead() {
	if f.reads > 0 {
		f.reads--
	}
	if f.reads == 0 {
		f.state = stateUnused
	}
}

func (f *borrowFlag) tryWrite() error {
	if f.state != stateUnused {
		return errs.BorrowMutError
	}
	f.state = stateWriting
	return nil
}

func (f *borrowFlag) releaseWrite() {
	f.state = stateUnused
}
