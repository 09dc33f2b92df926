package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameValueTreatsNaNAsEqualToItself(t *testing.T) {
	nan := Float64(math.NaN())
	assert.True(t, SameValue(nan, nan))
}

func TestSameValueDistinguishesZeroSigns(t *testing.T) {
	assert.False(t, SameValue(Float64(0), Float64(math.Copysign(0, -1))))
	assert.True(t, SameValueZero(Float64(0), Float64(math.Copysign(0, -1))))
}

func TestNumberToStringBoundaries(t *testing.T) {
	assert.Equal(t, "0", Float64(math.Copysign(0, -1)).ToStringValue().GoString())
	assert.Equal(t, "NaN", Float64(math.NaN()).ToStringValue().GoString())
	assert.Equal(t, "Infinity", Float64(math.Inf(1)).ToStringValue().GoString())
	assert.Equal(t, "-Infinity", Float64(math.Inf(-1)).ToStringValue().GoString())
}

func TestToInt32Wraps(t *testing.T) {
	v := Float64(4294967296 + 5)
	assert.Equal(t, int32(5), v.ToInt32())
}

func TestAbstractEqualsStringNumberCoercion(t *testing.T) {
	assert.True(t, AbstractEquals(String(NewString("1")), Int32(1)))
	assert.False(t, StrictEquals(String(NewString("1")), Int32(1)))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, "undefined", Undefined.TypeOf())
	assert.Equal(t, "object", Null.TypeOf())
	assert.Equal(t, "number", Int32(1).TypeOf())
	assert.Equal(t, "string", String(NewString("x")).TypeOf())
}
