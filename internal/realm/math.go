package realm

import (
	"math"

	"github.com/nmxmxh/esengine/internal/values"
)

// argAt returns args[i]'s ToNumber, or NaN if the argument is absent
// (ECMA-262 treats a missing argument as Undefined, whose ToNumber is NaN).
func argAt(args []values.Value, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	return args[i].ToNumber()
}

func mathAbs(this values.Value, args []values.Value) (values.Value, error) {
	return values.Float64(math.Abs(argAt(args, 0))), nil
}

func mathSign(this values.Value, args []values.Value) (values.Value, error) {
	n := argAt(args, 0)
	switch {
	case math.IsNaN(n):
		return values.Float64(math.NaN()), nil
	case n > 0:
		return values.Float64(1), nil
	case n < 0:
		return values.Float64(-1), nil
	default:
		return values.Float64(n), nil // preserves -0/+0
	}
}

func mathTrunc(this values.Value, args []values.Value) (values.Value, error) {
	return values.Float64(math.Trunc(argAt(args, 0))), nil
}

// mathMax/mathMin follow Boa's boundary-value tests kept verbatim in
// spec.md §8: an empty argument list yields -Infinity/+Infinity
// respectively, and any NaN operand poisons the result.
func mathMax(this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Float64(math.Inf(-1)), nil
	}
	best := math.Inf(-1)
	for _, a := range args {
		n := a.ToNumber()
		if math.IsNaN(n) {
			return values.Float64(math.NaN()), nil
		}
		if n > best || (n == 0 && best == 0 && !math.Signbit(n)) {
			best = n
		}
	}
	return values.Float64(best), nil
}

func mathMin(this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Float64(math.Inf(1)), nil
	}
	best := math.Inf(1)
	for _, a := range args {
		n := a.ToNumber()
		if math.IsNaN(n) {
			return values.Float64(math.NaN()), nil
		}
		if n < best || (n == 0 && best == 0 && math.Signbit(n)) {
			best = n
		}
	}
	return values.Float64(best), nil
}
