// Package env implements environment records: the parent-chained scopes
// that hold variable/lexical bindings, addressed at runtime by a compiler-
// resolved (depth, slot) pair (spec.md §3/§4.D).
package env

import "errors"

// ErrUnresolved signals a name with no binding anywhere on the chain. The
// VM maps this to a ReferenceError value; env itself never constructs one
// since building an Error object requires the realm's intrinsics.
var ErrUnresolved = errors.New("env: unresolved reference")

// ErrTDZ signals a read or write of a binding that exists but has not yet
// been initialized (spec.md §4.D "uninitialized references (TDZ)").
var ErrTDZ = errors.New("env: binding accessed before initialization")

// ErrNotWritable signals a strict-mode write to an immutable binding.
var ErrNotWritable = errors.New("env: binding is not writable")

// ErrAlreadyDeclared signals create_mutable_binding/create_immutable_binding
// called twice for the same name in the same record.
var ErrAlreadyDeclared = errors.New("env: binding already declared")
