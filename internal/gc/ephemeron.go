package gc

// NewEphemeron registers an ephemeron: value is kept alive across a
// collection only while key is still reachable through strong references
// from elsewhere in the graph (spec.md §3/§4.A, SPEC_FULL.md's fixed-point
// marking supplement). This backs WeakMap entries.
func NewEphemeron[K Traceable, V Traceable](h *Heap, key StrongHandle[K], value StrongHandle[V]) {
	// The value cell's only remaining strong reference becomes this
	// ephemeron entry; drop the caller's own rooting of it so it can be
	// collected once the key dies.
	value.Release()
	h.ephemera = append(h.ephemera, ephemeronEntry{
		keyID:   key.id,
		keyGen:  key.gen,
		valueID: value.id,
	})
}

// EphemeronValue reads the value half of an ephemeron registered for key,
// if the key is still live and the value has not been swept.
func EphemeronValue[V Traceable](h *Heap, keyID CellID, keyGen uint32) (V, bool) {
	var zero V
	for _, e := range h.ephemera {
		if e.keyID == keyID && e.keyGen == keyGen {
			if !h.isLive(keyID, keyGen) {
				continue
			}
			s := h.slot(e.valueID)
			if !s.alive {
				continue
			}
			v, ok := s.value.(V)
			if !ok {
				continue
			}
			return v, true
		}
	}
	return zero, false
}
