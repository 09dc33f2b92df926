package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringEqualityIgnoresStorageKind(t *testing.T) {
	latin1 := NewString("abc")
	wide := &HeapString{wide: []uint16{'a', 'b', 'c'}, isWide: true}
	assert.True(t, latin1.Equal(wide))
}

func TestConcatUsesLatin1OnlyWhenBothOperandsAre(t *testing.T) {
	a := NewString("ab")
	b := NewString("cd")
	c := Concat(a, b)
	assert.False(t, c.isWide)
	assert.Equal(t, "abcd", c.GoString())

	wide := &HeapString{wide: []uint16{0xD83D, 0xDE00}, isWide: true}
	mixed := Concat(a, wide)
	assert.True(t, mixed.isWide)
}

func TestInternerReturnsCanonicalInstance(t *testing.T) {
	in := NewInterner(16)
	a := in.Intern("hello")
	b := in.Intern("hello")
	assert.Same(t, a, b)
}

func TestSurrogatesPreservedVerbatim(t *testing.T) {
	s := NewString("😀")
	assert.Equal(t, 2, s.Length())
}
