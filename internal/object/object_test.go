package object_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

func newHeap() *gc.Heap {
	return gc.NewHeap(gc.Config{PageSize: 8})
}

func allocObj(t *testing.T, h *gc.Heap, o *object.Object) gc.StrongHandle[values.HeapObject] {
	t.Helper()
	handle, err := gc.Alloc[values.HeapObject](h, o)
	require.NoError(t, err)
	return handle
}

func TestDefineOwnPropertyThenGetRoundTrips(t *testing.T) {
	h := newHeap()
	o := object.New(nil)

	ok := o.DefineOwnProperty(key("x"), object.DataDescriptor(values.Int32(42), true, true, true))
	require.True(t, ok)

	v, err := o.Get(key("x"), values.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.AsInt32())
	_ = h
}

func TestSetOnNonWritablePropertyFails(t *testing.T) {
	o := object.New(nil)
	o.DefineOwnProperty(key("x"), object.DataDescriptor(values.Int32(1), false, true, true))

	ok, err := o.Set(key("x"), values.Int32(2), values.Undefined)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := o.Get(key("x"), values.Undefined)
	assert.Equal(t, int32(1), v.AsInt32(), "non-writable property must not change")
}

func TestDeleteOfConfigurablePropertyRemovesIt(t *testing.T) {
	o := object.New(nil)
	o.DefineOwnProperty(key("x"), object.DataDescriptor(values.Int32(1), true, true, true))
	require.True(t, o.Delete(key("x")))
	assert.False(t, o.HasProperty(key("x")))
}

func TestDeleteOfNonConfigurablePropertyFails(t *testing.T) {
	o := object.New(nil)
	o.DefineOwnProperty(key("x"), object.DataDescriptor(values.Int32(1), true, true, false))
	assert.False(t, o.Delete(key("x")))
	assert.True(t, o.HasProperty(key("x")))
}

func TestGetWalksPrototypeChain(t *testing.T) {
	h := newHeap()
	proto := object.New(nil)
	proto.DefineOwnProperty(key("greeting"), object.DataDescriptor(values.String(values.NewString("hi")), true, true, true))
	protoHandle := allocObj(t, h, proto)

	child := object.New(&protoHandle)
	v, err := child.Get(key("greeting"), values.Undefined)
	require.NoError(t, err)
	assert.Equal(t, "hi", v.AsString().GoString())

	assert.False(t, child.HasProperty(key("nonexistent")))
	assert.True(t, child.HasProperty(key("greeting")))
}

func TestAccessorGetReturnsErrIsAccessor(t *testing.T) {
	o := object.New(nil)
	getter := values.Int32(0) // stand-in function value; VM would install a real callable
	ok := o.DefineOwnProperty(key("x"), object.AccessorDescriptor(&getter, nil, true, true))
	require.True(t, ok)

	_, err := o.Get(key("x"), values.Undefined)
	assert.True(t, errors.Is(err, object.ErrIsAccessor))
}

func TestIndexedPropertiesSwitchToSparseStorageUnderSpread(t *testing.T) {
	o := object.New(nil)
	o.SetKind(object.KindArray)

	o.DefineOwnProperty(key("0"), object.DataDescriptor(values.Int32(1), true, true, true))
	o.DefineOwnProperty(key("9000"), object.DataDescriptor(values.Int32(2), true, true, true))

	v, err := o.Get(key("9000"), values.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.AsInt32())

	lengthVal, err := o.Get(key("length"), values.Undefined)
	require.NoError(t, err)
	assert.Equal(t, float64(9001), lengthVal.NumberValue())
}

func TestArrayLengthTruncatesHigherIndices(t *testing.T) {
	o := object.New(nil)
	o.SetKind(object.KindArray)
	o.DefineOwnProperty(key("0"), object.DataDescriptor(values.Int32(1), true, true, true))
	o.DefineOwnProperty(key("1"), object.DataDescriptor(values.Int32(2), true, true, true))
	o.DefineOwnProperty(key("2"), object.DataDescriptor(values.Int32(3), true, true, true))

	ok, err := o.Set(key("length"), values.Int32(1), values.Undefined)
	require.NoError(t, err)
	require.True(t, ok)

	assert.False(t, o.HasProperty(key("1")))
	assert.False(t, o.HasProperty(key("2")))
	lengthVal, _ := o.Get(key("length"), values.Undefined)
	assert.Equal(t, float64(1), lengthVal.NumberValue())
}

func TestOwnPropertyKeysOrdersIndicesThenNamedThenSymbols(t *testing.T) {
	o := object.New(nil)
	o.SetKind(object.KindArray)
	o.DefineOwnProperty(key("1"), object.DataDescriptor(values.Int32(1), true, true, true))
	o.DefineOwnProperty(key("a"), object.DataDescriptor(values.Int32(2), true, true, true))
	sym := &values.Symbol{Description: "s"}
	o.DefineOwnProperty(values.PropertyKey{Symbol: sym}, object.DataDescriptor(values.Int32(3), true, true, true))

	keys := o.OwnPropertyKeys()
	require.Len(t, keys, 3)
	assert.Equal(t, "1", keys[0].Str.GoString())
	assert.Equal(t, "a", keys[1].Str.GoString())
	assert.Same(t, sym, keys[2].Symbol)
}
