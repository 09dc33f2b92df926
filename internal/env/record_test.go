package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/esengine/internal/env"
	"github.com/nmxmxh/esengine/internal/gc"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/values"
)

func TestLetBindingIsInTDZUntilInitialized(t *testing.T) {
	rec := env.NewDeclarative(nil)
	require.NoError(t, rec.CreateMutableBinding("x"))

	_, err := rec.GetBindingValue("x")
	assert.ErrorIs(t, err, env.ErrTDZ)

	require.NoError(t, rec.InitializeBinding("x", values.Int32(1)))
	v, err := rec.GetBindingValue("x")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.AsInt32())
}

func TestConstBindingRejectsStrictWrite(t *testing.T) {
	rec := env.NewDeclarative(nil)
	require.NoError(t, rec.CreateImmutableBinding("c"))
	require.NoError(t, rec.InitializeBinding("c", values.Int32(1)))

	err := rec.SetMutableBinding("c", values.Int32(2), true)
	assert.ErrorIs(t, err, env.ErrNotWritable)

	err = rec.SetMutableBinding("c", values.Int32(2), false)
	assert.NoError(t, err)
	v, _ := rec.GetBindingValue("c")
	assert.Equal(t, int32(1), v.AsInt32(), "sloppy-mode write to const is a silent no-op, not a mutation")
}

func TestUnresolvedNameReturnsErrUnresolved(t *testing.T) {
	rec := env.NewDeclarative(nil)
	_, err := rec.GetBindingValue("missing")
	assert.ErrorIs(t, err, env.ErrUnresolved)
}

func TestResolveByNameWalksParentChain(t *testing.T) {
	outer := env.NewDeclarative(nil)
	require.NoError(t, outer.CreateMutableBinding("x"))
	require.NoError(t, outer.InitializeBinding("x", values.Int32(7)))

	inner := env.NewDeclarative(outer)
	owner, name, ok := env.ResolveByName(inner, "x")
	require.True(t, ok)
	assert.Same(t, outer, owner)
	assert.Equal(t, "x", name)

	_, _, ok = env.ResolveByName(inner, "nope")
	assert.False(t, ok)
}

func TestResolveWalksExactDepth(t *testing.T) {
	root := env.NewDeclarative(nil)
	mid := env.NewDeclarative(root)
	leaf := env.NewDeclarative(mid)

	assert.Same(t, leaf, env.Resolve(leaf, 0))
	assert.Same(t, mid, env.Resolve(leaf, 1))
	assert.Same(t, root, env.Resolve(leaf, 2))
}

func TestGlobalVarBindingIsAGlobalObjectProperty(t *testing.T) {
	h := gc.NewHeap(gc.Config{PageSize: 8})
	globalObj := object.New(nil)
	handle, err := gc.Alloc[values.HeapObject](h, globalObj)
	require.NoError(t, err)

	rec := env.NewGlobal(globalObj, handle)
	require.NoError(t, rec.CreateMutableBinding("g"))
	require.NoError(t, rec.InitializeBinding("g", values.Int32(9)))

	assert.True(t, globalObj.HasProperty(values.PropertyKey{Str: values.NewString("g")}))
	v, err := rec.GetBindingValue("g")
	require.NoError(t, err)
	assert.Equal(t, int32(9), v.AsInt32())
}

func TestGlobalLexicalBindingIsNotAGlobalObjectProperty(t *testing.T) {
	h := gc.NewHeap(gc.Config{PageSize: 8})
	globalObj := object.New(nil)
	handle, err := gc.Alloc[values.HeapObject](h, globalObj)
	require.NoError(t, err)

	rec := env.NewGlobal(globalObj, handle)
	require.NoError(t, rec.CreateGlobalLexicalBinding("l"))
	require.NoError(t, rec.InitializeBinding("l", values.Int32(3)))

	assert.False(t, globalObj.HasProperty(values.PropertyKey{Str: values.NewString("l")}))
	v, err := rec.GetBindingValue("l")
	require.NoError(t, err)
	assert.Equal(t, int32(3), v.AsInt32())
}

func TestWithEnvironmentDelegatesToTargetObject(t *testing.T) {
	target := object.New(nil)
	target.DefineOwnProperty(values.PropertyKey{Str: values.NewString("prop")}, object.DataDescriptor(values.Int32(5), true, true, true))

	rec := env.NewObject(nil, target, false)
	assert.True(t, rec.HasBinding("prop"))
	v, err := rec.GetBindingValue("prop")
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.AsInt32())
}

func TestDerivedConstructorThisStartsUninitialized(t *testing.T) {
	rec := env.NewFunction(nil, env.ThisUninitialized, values.Undefined, values.Undefined)
	_, err := rec.GetThisBinding()
	assert.ErrorIs(t, err, env.ErrTDZ)

	rec.BindThisValue(values.Int32(1))
	v, err := rec.GetThisBinding()
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.AsInt32())
}

func TestModuleIndirectBindingResolvesThroughExportingModule(t *testing.T) {
	exporting := env.NewModule(nil)
	require.NoError(t, exporting.CreateMutableBinding("localName"))
	require.NoError(t, exporting.InitializeBinding("localName", values.Int32(42)))

	importing := env.NewModule(nil)
	importing.AddIndirectBinding("importedName", exporting, "localName")

	owner, name, ok := env.ResolveByName(importing, "importedName")
	require.True(t, ok)
	assert.Same(t, exporting, owner)
	v, err := owner.GetBindingValue(name)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.AsInt32())
}
