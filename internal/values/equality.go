package values

import (
	"math"
	"math/big"
)

// SameValue implements the SameValue predicate: NaN is equal to itself,
// and +0 is distinct from -0 (spec.md §8).
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt32:
		return a.i32 == b.i32
	case KindFloat64:
		if math.IsNaN(a.f64) && math.IsNaN(b.f64) {
			return true
		}
		if a.f64 == 0 && b.f64 == 0 {
			return math.Signbit(a.f64) == math.Signbit(b.f64)
		}
		return a.f64 == b.f64
	case KindString:
		return a.str.Equal(b.str)
	case KindSymbol:
		return a.sym == b.sym
	case KindBigInt:
		return a.big.Cmp(b.big) == 0
	case KindObject:
		return a.obj.ID() == b.obj.ID()
	}
	return false
}

// SameValueZero is SameValue except +0 and -0 compare equal.
func SameValueZero(a, b Value) bool {
	if a.kind == KindFloat64 && b.kind == KindFloat64 && a.f64 == 0 && b.f64 == 0 {
		return true
	}
	if a.kind == KindInt32 && b.kind == KindFloat64 && b.f64 == float64(a.i32) {
		return true
	}
	if a.kind == KindFloat64 && b.kind == KindInt32 && a.f64 == float64(b.i32) {
		return true
	}
	return SameValue(a, b)
}

// StrictEquals implements the `===` operator.
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return a.NumberValue() == b.NumberValue()
		}
		return false
	}
	switch a.kind {
	case KindInt32:
		return a.i32 == b.i32
	case KindFloat64:
		return a.f64 == b.f64
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.str.Equal(b.str)
	case KindSymbol:
		return a.sym == b.sym
	case KindBigInt:
		return a.big.Cmp(b.big) == 0
	case KindObject:
		return a.obj.ID() == b.obj.ID()
	}
	return false
}

// AbstractEquals implements the `==` operator for primitive operands. When
// either side is an object the caller (VM) must first apply ToPrimitive
// before calling this, per ECMA-262's loose-equality algorithm.
func AbstractEquals(a, b Value) bool {
	if a.kind == b.kind {
		return StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	if a.IsNumber() && b.kind == KindString {
		return a.NumberValue() == b.ToNumber()
	}
	if a.kind == KindString && b.IsNumber() {
		return a.ToNumber() == b.NumberValue()
	}
	if a.kind == KindBool {
		return AbstractEquals(Float64(a.ToNumber()), b)
	}
	if b.kind == KindBool {
		return AbstractEquals(a, Float64(b.ToNumber()))
	}
	if a.kind == KindBigInt && (b.kind == KindString || b.IsNumber()) {
		bf := b.ToNumber()
		af, _ := new(big.Float).SetInt(a.big).Float64()
		return af == bf
	}
	if b.kind == KindBigInt && (a.kind == KindString || a.IsNumber()) {
		return AbstractEquals(b, a)
	}
	return false
}
