// Package values implements the engine's tagged Value representation and
// immutable string type (spec.md §3/§4.B).
package values

import (
	"math"
	"math/big"

	"github.com/nmxmxh/esengine/internal/gc"
)

// Kind discriminates the Value union.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt32
	KindFloat64
	KindString
	KindSymbol
	KindBigInt
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindBigInt:
		return "bigint"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// HeapObject is the minimal interface a heap-resident object must satisfy
// to be stored in a Value's object variant. It is defined here (rather
// than importing the object package) so values and object can reference
// each other's concepts without a circular Go import: object.Object
// implements HeapObject, and a Value never needs the concrete type.
type HeapObject interface {
	gc.Traceable
	ClassName() string
	IsCallable() bool
}

// Symbol is a unique, optionally-described symbol value.
type Symbol struct {
	Description string
}

// Value is the tagged, cheaply-copyable discriminated union of spec.md §3.
// Object/string/symbol/bigint variants hold a shared reference into the
// heap (string/symbol/bigint here are plain Go pointers since they carry
// no further heap references worth tracing — see DESIGN.md).
type Value struct {
	kind Kind
	b    bool
	i32  int32
	f64  float64
	str  *HeapString
	sym  *Symbol
	big  *big.Int
	obj  gc.StrongHandle[HeapObject]
}

var Undefined = Value{kind: KindUndefined}
var Null = Value{kind: KindNull}

func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int32(i int32) Value     { return Value{kind: KindInt32, i32: i} }
func Float64(f float64) Value { return Value{kind: KindFloat64, f64: f} }
func String(s *HeapString) Value {
	return Value{kind: KindString, str: s}
}
func SymbolValue(s *Symbol) Value { return Value{kind: KindSymbol, sym: s} }
func BigInt(b *big.Int) Value     { return Value{kind: KindBigInt, big: b} }
func Object(h gc.StrongHandle[HeapObject]) Value {
	return Value{kind: KindObject, obj: h}
}

func (v Value) Kind() Kind           { return v.kind }
func (v Value) IsUndefined() bool    { return v.kind == KindUndefined }
func (v Value) IsNull() bool         { return v.kind == KindNull }
func (v Value) IsNullish() bool      { return v.kind == KindUndefined || v.kind == KindNull }
func (v Value) AsBool() bool         { return v.b }
func (v Value) AsInt32() int32       { return v.i32 }
func (v Value) AsFloat64() float64   { return v.f64 }
func (v Value) AsString() *HeapString { return v.str }
func (v Value) AsSymbol() *Symbol    { return v.sym }
func (v Value) AsBigInt() *big.Int   { return v.big }
func (v Value) AsObject() gc.StrongHandle[HeapObject] { return v.obj }
func (v Value) IsObject() bool       { return v.kind == KindObject }
func (v Value) IsNumber() bool       { return v.kind == KindInt32 || v.kind == KindFloat64 }
func (v Value) IsCallable() bool {
	if v.kind != KindObject {
		return false
	}
	o, release, err := v.obj.Borrow()
	if err != nil {
		return false
	}
	defer release()
	return o.IsCallable()
}

// NumberValue returns the numeric value as a float64 regardless of whether
// it is stored as int32 or float64 (the fast-path/general-path split is
// invisible past this accessor).
func (v Value) NumberValue() float64 {
	if v.kind == KindInt32 {
		return float64(v.i32)
	}
	return v.f64
}

// TypeOf implements the `typeof` operator.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBool:
		return "boolean"
	case KindInt32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindBigInt:
		return "bigint"
	case KindObject:
		if v.IsCallable() {
			return "function"
		}
		return "object"
	}
	return "undefined"
}

// ToBoolean implements ECMA-262 ToBoolean.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt32:
		return v.i32 != 0
	case KindFloat64:
		return v.f64 != 0 && !math.IsNaN(v.f64)
	case KindString:
		return v.str.Length() > 0
	case KindBigInt:
		return v.big.Sign() != 0
	case KindSymbol, KindObject:
		return true
	}
	return false
}
