// Package errs defines the engine-internal fatal conditions that bypass
// user-level exception handling (spec §7 "Engine-internal kinds").
package errs

import "errors"

// OutOfMemory is raised when the GC heap cannot satisfy an allocation even
// after a collection pass.
var OutOfMemory = errors.New("out of memory")

// BorrowError is raised by GcCell.Borrow when a cell is already mutably
// borrowed.
var BorrowError = errors.New("already mutably borrowed")

// BorrowMutError is raised by GcCell.BorrowMut when a cell is already
// borrowed (mutably or immutably).
var BorrowMutError = errors.New("already borrowed")

// RuntimeLimitError is raised when the embedder's configured loop-iteration
// or recursion-depth limit is exceeded. It unwinds past every handler and
// cannot be caught by user code.
var RuntimeLimitError = errors.New("runtime limit exceeded")

// CircuitOpenError is raised when a native callable's circuit breaker has
// tripped after repeated failures, so the call fails fast without
// re-entering broken host code.
var CircuitOpenError = errors.New("native call circuit open")
