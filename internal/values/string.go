package values

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// HeapString is an immutable sequence of UTF-16 code units, stored
// internally as either a latin-1 byte slice (when every code unit fits in
// one byte) or a full utf-16 slice (spec.md §3/§4.B). Surrogates are kept
// verbatim; there is no implicit normalization.
type HeapString struct {
	latin1 []byte
	wide   []uint16
	isWide bool
	hash   uint32
	hashed bool
}

// NewString builds a HeapString from a Go string (interpreted as UTF-8
// source text), choosing latin-1 storage when every rune fits in a byte.
func NewString(s string) *HeapString {
	wide := utf16.Encode([]rune(s))
	return newFromUTF16(wide)
}

func newFromUTF16(units []uint16) *HeapString {
	allLatin1 := true
	for _, u := range units {
		if u > 0xFF {
			allLatin1 = false
			break
		}
	}
	if allLatin1 {
		b := make([]byte, len(units))
		for i, u := range units {
			b[i] = byte(u)
		}
		return &HeapString{latin1: b}
	}
	cp := make([]uint16, len(units))
	copy(cp, units)
	return &HeapString{wide: cp, isWide: true}
}

// Length returns the number of UTF-16 code units (JS .length semantics).
func (s *HeapString) Length() int {
	if s.isWide {
		return len(s.wide)
	}
	return len(s.latin1)
}

// CodeUnitAt returns the UTF-16 code unit at index i.
func (s *HeapString) CodeUnitAt(i int) uint16 {
	if s.isWide {
		return s.wide[i]
	}
	return uint16(s.latin1[i])
}

// Substring returns the code-unit range [start, end) as a new HeapString.
func (s *HeapString) Substring(start, end int) *HeapString {
	if s.isWide {
		return newFromUTF16(s.wide[start:end])
	}
	b := make([]byte, end-start)
	copy(b, s.latin1[start:end])
	return &HeapString{latin1: b}
}

// Concat produces a fresh string whose storage is latin-1 iff both operands
// are latin-1 (spec.md §4.B).
func Concat(a, b *HeapString) *HeapString {
	if !a.isWide && !b.isWide {
		out := make([]byte, len(a.latin1)+len(b.latin1))
		copy(out, a.latin1)
		copy(out[len(a.latin1):], b.latin1)
		return &HeapString{latin1: out}
	}
	out := make([]uint16, 0, a.Length()+b.Length())
	out = append(out, a.units()...)
	out = append(out, b.units()...)
	return &HeapString{wide: out, isWide: true}
}

func (s *HeapString) units() []uint16 {
	if s.isWide {
		return s.wide
	}
	u := make([]uint16, len(s.latin1))
	for i, b := range s.latin1 {
		u[i] = uint16(b)
	}
	return u
}

// Equal compares by codepoint sequence regardless of latin-1/utf-16
// storage (spec.md §8 invariant).
func (s *HeapString) Equal(o *HeapString) bool {
	if s == o {
		return true
	}
	if s.Length() != o.Length() {
		return false
	}
	if !s.isWide && !o.isWide {
		return string(s.latin1) == string(o.latin1)
	}
	su, ou := s.units(), o.units()
	for i := range su {
		if su[i] != ou[i] {
			return false
		}
	}
	return true
}

// Hash returns a stable hash of the code-unit sequence, memoized.
func (s *HeapString) Hash() uint32 {
	if s.hashed {
		return s.hash
	}
	var h uint32 = 2166136261
	for _, u := range s.units() {
		h ^= uint32(u)
		h *= 16777619
	}
	s.hash = h
	s.hashed = true
	return h
}

// GoString renders the code-unit sequence back to a Go UTF-8 string,
// replacing lone surrogates with U+FFFD the way a display/debug renderer
// would (not used for JS-observable semantics, only logging/tests).
func (s *HeapString) GoString() string {
	if !s.isWide {
		var b strings.Builder
		b.Grow(len(s.latin1))
		for _, c := range s.latin1 {
			b.WriteRune(rune(c))
		}
		return b.String()
	}
	var b strings.Builder
	units := s.wide
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if utf16.IsSurrogate(r) && i+1 < len(units) {
			r2 := utf16.DecodeRune(r, rune(units[i+1]))
			if r2 != utf8.RuneError {
				b.WriteRune(r2)
				i++
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
