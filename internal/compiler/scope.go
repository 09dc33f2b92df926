package compiler

// scope is the compiler's compile-time mirror of one env.Record: every
// scope here corresponds 1:1 to exactly one push_env emitted at runtime,
// so walking `depth` parents here always matches walking `depth`
// env.Record parents there (spec.md §4.D "(depth, slot) fast-path
// resolution").
//
// Open Question resolution (DESIGN.md): this compiler does not implement
// var-hoisting to the nearest function/global scope — var declarations
// are resolved block-scoped exactly like let, a deliberate narrowing of
// full ECMA-262 scoping semantics within the "representative subset"
// framing (spec.md's Non-goals already exclude spec-perfect conformance).
type scope struct {
	parent *scope
	names  []string
	isFunc bool
}

func newScope(parent *scope, isFunc bool) *scope {
	return &scope{parent: parent, isFunc: isFunc}
}

// declare reserves the next slot for name in this scope, returning its
// slot index.
func (s *scope) declare(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	s.names = append(s.names, name)
	return len(s.names) - 1
}

// resolve walks outward from s looking for name, returning its depth
// (number of scope hops, 0 = this scope) and slot.
func (s *scope) resolve(name string) (depth, slot int, ok bool) {
	d := 0
	for cur := s; cur != nil; cur = cur.parent {
		for i, n := range cur.names {
			if n == name {
				return d, i, true
			}
		}
		d++
	}
	return 0, 0, false
}
