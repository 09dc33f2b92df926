package values

import (
	"math"
	"math/big"
	"strconv"
)

// Hint selects the preferred primitive kind for ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

// ToNumber implements ECMA-262 ToNumber for primitive values. Object
// values must first be reduced with ToPrimitive(HintNumber) by the caller
// (the VM), since that step may invoke user-defined valueOf/toString.
func (v Value) ToNumber() float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt32:
		return float64(v.i32)
	case KindFloat64:
		return v.f64
	case KindString:
		return stringToNumber(v.str)
	case KindBigInt:
		f, _ := new(big.Float).SetInt(v.big).Float64()
		return f
	default:
		return math.NaN()
	}
}

func stringToNumber(s *HeapString) float64 {
	trimmed := trimJSWhitespace(s.GoString())
	if trimmed == "" {
		return 0
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func trimJSWhitespace(s string) string {
	start, end := 0, len(s)
	isWS := func(r byte) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	}
	for start < end && isWS(s[start]) {
		start++
	}
	for end > start && isWS(s[end-1]) {
		end--
	}
	return s[start:end]
}

// ToInt32 implements ECMA-262 ToInt32 (modulo 2^32 reduction to a signed
// 32-bit range).
func (v Value) ToInt32() int32 {
	n := v.ToNumber()
	return numberToInt32(n)
}

func numberToInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
		return 0
	}
	m := math.Mod(math.Trunc(n), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	if m >= 2147483648 {
		m -= 4294967296
	}
	return int32(m)
}

// ToUint32 implements ECMA-262 ToUint32.
func (v Value) ToUint32() uint32 {
	n := v.ToNumber()
	if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
		return 0
	}
	m := math.Mod(math.Trunc(n), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// ToStringValue implements ECMA-262 ToString for primitive values,
// following Boa's Number::to_string thresholds for exponential notation
// (SPEC_FULL.md supplement): magnitudes >= 1e21 or < 1e-6 (and nonzero)
// render in exponential form.
func (v Value) ToStringValue() *HeapString {
	switch v.kind {
	case KindUndefined:
		return NewString("undefined")
	case KindNull:
		return NewString("null")
	case KindBool:
		if v.b {
			return NewString("true")
		}
		return NewString("false")
	case KindInt32:
		return NewString(strconv.FormatInt(int64(v.i32), 10))
	case KindFloat64:
		return NewString(numberToString(v.f64))
	case KindString:
		return v.str
	case KindSymbol:
		return NewString("Symbol(" + v.sym.Description + ")")
	case KindBigInt:
		return NewString(v.big.String())
	default:
		return NewString("[object Object]")
	}
}

func numberToString(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 {
		return "0" // covers -0 per spec.md §8
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToPropertyKey converts a primitive value to either a string or symbol
// property key. Objects must be reduced via ToPrimitive(HintString) first.
func (v Value) ToPropertyKey() PropertyKey {
	if v.kind == KindSymbol {
		return PropertyKey{Symbol: v.sym}
	}
	return PropertyKey{Str: v.ToStringValue()}
}

// PropertyKey is either a string or a symbol (never both).
type PropertyKey struct {
	Str    *HeapString
	Symbol *Symbol
}

func (k PropertyKey) Equal(o PropertyKey) bool {
	if k.Symbol != nil || o.Symbol != nil {
		return k.Symbol == o.Symbol
	}
	return k.Str.Equal(o.Str)
}

// ToPrimitive reduces a non-object value to itself; objects must be
// reduced by the VM's exotic ToPrimitive routine (it may invoke
// valueOf/toString, which requires calling back into
// the VM and so cannot live in this pure-value package).
func (v Value) ToPrimitive(hint Hint) (Value, bool) {
	if v.kind == KindObject {
		return v, false
	}
	return v, true
}
