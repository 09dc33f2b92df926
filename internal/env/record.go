package env

import (
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

// Kind discriminates the five environment-record variants of spec.md §4.D.
type Kind uint8

const (
	KindDeclarative Kind = iota
	KindObject
	KindFunction
	KindModule
	KindGlobal
)

// ThisStatus tracks a function environment's [[ThisBindingStatus]]: a
// derived-class constructor's `this` starts Uninitialized until it calls
// super(), an arrow function is Lexical (defers to its parent), and every
// other function is Initialized immediately.
type ThisStatus uint8

const (
	ThisLexical ThisStatus = iota
	ThisInitialized
	ThisUninitialized
)

type binding struct {
	name        string
	mutable     bool
	initialized bool
	value       values.Value
}

type indirectBinding struct {
	target *Record
	name   string
}

// Record is one environment in the parent-chained scope structure. The
// compiler resolves every local reference to a (depth, slot) pair ahead of
// time; Record also exposes by-name lookup for `with` and direct `eval`,
// which the compiler cannot resolve statically (spec.md §4.D).
type Record struct {
	kind   Kind
	parent *Record

	names map[string]int
	slots []binding

	// KindObject/KindGlobal: bindings are properties of target rather than
	// slots. targetHandle is only populated for KindGlobal, where
	// GetThisBinding must return the global object as a Value.
	target         *object.Object
	targetHandle   gc.StrongHandle[values.HeapObject]
	withUnscopable bool

	// KindFunction extras.
	thisStatus ThisStatus
	thisValue  values.Value
	homeObject values.Value
	hasHome    bool
	newTarget  values.Value

	// KindModule: names re-exported from another module resolve indirectly.
	indirect map[string]indirectBinding
}

// NewDeclarative creates a block/catch/let-const scope.
func NewDeclarative(parent *Record) *Record {
	return &Record{kind: KindDeclarative, parent: parent, names: make(map[string]int)}
}

// NewObject creates a `with`-statement environment bound to target.
func NewObject(parent *Record, target *object.Object, withUnscopable bool) *Record {
	return &Record{kind: KindObject, parent: parent, target: target, withUnscopable: withUnscopable}
}

// NewGlobal creates the outermost environment, whose var/function
// declarations land as properties of globalObj alongside its declarative
// lexical bindings (spec.md's global environment record is a composite of
// an object record and a declarative record; modeled here as one record
// with both a target and a slot table).
func NewGlobal(globalObj *object.Object, globalHandle gc.StrongHandle[values.HeapObject]) *Record {
	return &Record{kind: KindGlobal, target: globalObj, targetHandle: globalHandle, names: make(map[string]int)}
}

// NewFunction creates a function call's top environment, with its
// this-binding and home object/new-target.
func NewFunction(parent *Record, status ThisStatus, this values.Value, newTarget values.Value) *Record {
	return &Record{
		kind:       KindFunction,
		parent:     parent,
		names:      make(map[string]int),
		thisStatus: status,
		thisValue:  this,
		newTarget:  newTarget,
	}
}

// NewModule creates a module's top-level environment.
func NewModule(parent *Record) *Record {
	return &Record{kind: KindModule, parent: parent, names: make(map[string]int), indirect: make(map[string]indirectBinding)}
}

// Parent returns the enclosing environment, or nil at the global record.
func (r *Record) Parent() *Record { return r.parent }

// CreateMutableBinding declares name as mutable and uninitialized (TDZ)
// until InitializeBinding runs. `var` declarations call InitializeBinding
// with Undefined immediately after; `let` leaves the gap open until
// control reaches the declaration.
func (r *Record) CreateMutableBinding(name string) error {
	// A global record's `var`/function declarations land on its object
	// part (visible as a global-object property); let/const/class use
	// CreateGlobalLexicalBinding instead, landing on the declarative part
	// below for TDZ semantics.
	if r.kind == KindObject || r.kind == KindGlobal {
		if r.target.HasProperty(strKey(name)) {
			return nil
		}
		r.target.DefineOwnProperty(strKey(name), object.DataDescriptor(values.Undefined, true, true, true))
		return nil
	}
	if _, ok := r.names[name]; ok {
		return ErrAlreadyDeclared
	}
	r.names[name] = len(r.slots)
	r.slots = append(r.slots, binding{name: name, mutable: true})
	return nil
}

// CreateGlobalLexicalBinding declares a global-scope let binding on the
// record's declarative part rather than the global object, so it gets TDZ
// semantics and is invisible to `delete` (unlike var).
func (r *Record) CreateGlobalLexicalBinding(name string) error {
	if _, ok := r.names[name]; ok {
		return ErrAlreadyDeclared
	}
	r.names[name] = len(r.slots)
	r.slots = append(r.slots, binding{name: name, mutable: true})
	return nil
}

// CreateImmutableBinding declares name as immutable (`const`), also
// starting uninitialized.
func (r *Record) CreateImmutableBinding(name string) error {
	if _, ok := r.names[name]; ok {
		return ErrAlreadyDeclared
	}
	r.names[name] = len(r.slots)
	r.slots = append(r.slots, binding{name: name, mutable: false})
	return nil
}

// InitializeBinding supplies a declared binding's first value, clearing
// its TDZ state.
func (r *Record) InitializeBinding(name string, v values.Value) error {
	if idx, ok := r.names[name]; ok {
		r.slots[idx].value = v
		r.slots[idx].initialized = true
		return nil
	}
	if r.kind == KindObject || r.kind == KindGlobal {
		_, err := r.target.Set(strKey(name), v, values.Undefined)
		return err
	}
	return ErrUnresolved
}

// GetBindingValue reads name's value, or ErrTDZ if declared-but-
// uninitialized, or ErrUnresolved if not declared in this record (callers
// walk Parent() themselves to implement full-chain resolution, since only
// the outermost miss is a ReferenceError).
func (r *Record) GetBindingValue(name string) (values.Value, error) {
	if idx, ok := r.names[name]; ok {
		b := r.slots[idx]
		if !b.initialized {
			return values.Undefined, ErrTDZ
		}
		return b.value, nil
	}
	if r.kind == KindObject || r.kind == KindGlobal {
		if !r.target.HasProperty(strKey(name)) {
			return values.Undefined, ErrUnresolved
		}
		return r.target.Get(strKey(name), values.Undefined)
	}
	return values.Undefined, ErrUnresolved
}

// SetMutableBinding writes name's value. Writing a not-yet-initialized
// binding always returns ErrTDZ; strict controls whether writing an
// initialized immutable (const) binding is an error or a silent no-op.
func (r *Record) SetMutableBinding(name string, v values.Value, strict bool) error {
	if idx, ok := r.names[name]; ok {
		b := &r.slots[idx]
		if !b.initialized {
			return ErrTDZ
		}
		if !b.mutable {
			if strict {
				return ErrNotWritable
			}
			return nil
		}
		b.value = v
		return nil
	}
	if r.kind == KindObject || r.kind == KindGlobal {
		ok, err := r.target.Set(strKey(name), v, values.Undefined)
		if err != nil {
			return err
		}
		if !ok && strict {
			return ErrNotWritable
		}
		return nil
	}
	return ErrUnresolved
}

// HasBinding reports whether name is declared in this record alone (no
// parent walk).
func (r *Record) HasBinding(name string) bool {
	if _, ok := r.names[name]; ok {
		return true
	}
	if r.kind == KindObject || r.kind == KindGlobal {
		return r.target.HasProperty(strKey(name))
	}
	return false
}

// DeleteBinding removes a deletable binding (only ever true for `var`/
// function declarations in sloppy-mode global/object environments;
// declarative-record bindings from let/const/class/catch are never
// deletable and this always reports false for them).
func (r *Record) DeleteBinding(name string) bool {
	if r.kind == KindObject || r.kind == KindGlobal {
		if r.target != nil && r.target.HasProperty(strKey(name)) {
			return r.target.Delete(strKey(name))
		}
	}
	return false
}

// HasThisBinding reports whether this record owns a this-binding (only
// function and global environments do).
func (r *Record) HasThisBinding() bool {
	return r.kind == KindFunction && r.thisStatus != ThisLexical || r.kind == KindGlobal
}

// GetThisBinding returns the bound `this`, or ErrTDZ if a derived-class
// constructor has not yet called super().
func (r *Record) GetThisBinding() (values.Value, error) {
	if r.kind == KindGlobal {
		return values.Object(r.targetHandle), nil
	}
	if r.kind != KindFunction || r.thisStatus == ThisLexical {
		return values.Undefined, ErrUnresolved
	}
	if r.thisStatus == ThisUninitialized {
		return values.Undefined, ErrTDZ
	}
	return r.thisValue, nil
}

// BindThisValue completes a derived constructor's super() call, moving
// ThisUninitialized to ThisInitialized.
func (r *Record) BindThisValue(v values.Value) {
	r.thisValue = v
	r.thisStatus = ThisInitialized
}

// NewTarget returns the function environment's [[NewTarget]] (Undefined
// outside a `new` invocation).
func (r *Record) NewTarget() values.Value { return r.newTarget }

// SetHomeObject records the [[HomeObject]] a method needs to resolve
// `super` property lookups.
func (r *Record) SetHomeObject(v values.Value) {
	r.homeObject = v
	r.hasHome = true
}

// HomeObject returns the function environment's [[HomeObject]], if any.
func (r *Record) HomeObject() (values.Value, bool) {
	return r.homeObject, r.hasHome
}

// SlotOf reports the local slot index for a compiler-resolved binding
// (declarative/function/global/module records only).
func (r *Record) SlotOf(name string) (int, bool) {
	idx, ok := r.names[name]
	return idx, ok
}

// GetBindingAtSlot is the fast runtime path once the compiler has resolved
// a reference to (depth, slot): walk `depth` parents, then read this slot
// directly, bypassing the name map.
func (r *Record) GetBindingAtSlot(slot int) (values.Value, error) {
	b := r.slots[slot]
	if !b.initialized {
		return values.Undefined, ErrTDZ
	}
	return b.value, nil
}

// SetBindingAtSlot is the fast-path counterpart to GetBindingAtSlot.
func (r *Record) SetBindingAtSlot(slot int, v values.Value, strict bool) error {
	b := &r.slots[slot]
	if !b.initialized {
		return ErrTDZ
	}
	if !b.mutable {
		if strict {
			return ErrNotWritable
		}
		return nil
	}
	b.value = v
	return nil
}

// InitializeBindingAtSlot is the fast-path counterpart to InitializeBinding.
func (r *Record) InitializeBindingAtSlot(slot int, v values.Value) {
	r.slots[slot].initialized = true
	r.slots[slot].value = v
}

// AddIndirectBinding records a module-environment re-export: name resolves
// by reading localName out of target instead of this record's own slots
// (spec.md §4.D "indirect bindings ... resolve by walking the exporting
// module").
func (r *Record) AddIndirectBinding(name string, target *Record, localName string) {
	r.indirect[name] = indirectBinding{target: target, name: localName}
}

func (r *Record) resolveIndirect(name string) (*Record, string, bool) {
	ib, ok := r.indirect[name]
	if !ok {
		return nil, "", false
	}
	return ib.target, ib.name, true
}

func strKey(name string) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(name)}
}

// Resolve walks up depth parents from r, as a compiled (depth, slot)
// reference specifies. depth 0 is r itself.
func Resolve(r *Record, depth int) *Record {
	for ; depth > 0 && r.parent != nil; depth-- {
		r = r.parent
	}
	return r
}

// ResolveByName walks the chain from r looking for name, following module
// indirect bindings, for `with`/eval's by-name lookups (spec.md §4.D).
// Returns the record owning the binding (and, for indirect bindings, the
// local name to use against it) plus whether one was found.
func ResolveByName(r *Record, name string) (*Record, string, bool) {
	for cur := r; cur != nil; cur = cur.parent {
		if cur.kind == KindModule {
			if target, local, ok := cur.resolveIndirect(name); ok {
				return target, local, true
			}
		}
		if cur.HasBinding(name) {
			return cur, name, true
		}
	}
	return nil, "", false
}
