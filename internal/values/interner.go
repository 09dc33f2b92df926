package values

import (
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Interner holds the small, append-only table of identifier strings that
// appear in source text (spec.md §3 "a small static table holds interned
// identifiers"). It is process-wide, safe to share, and is the only
// global mutable state the engine carries outside a realm (spec.md §9).
//
// Before touching the backing map, a lookup first consults a Bloom filter
// of interned hashes — the same "probably-seen" fast-reject shape as the
// teacher's gossip dedup filter (kernel/core/mesh/gossip.go's seenFilter)
// — so a miss on a never-interned identifier costs one filter probe
// instead of a map lookup plus an equality walk on a hash bucket.
type Interner struct {
	mu      sync.Mutex
	filter  *bloom.BloomFilter
	entries map[uint32][]*HeapString
}

// NewInterner creates an interner sized for an expected identifier count.
func NewInterner(expectedIdentifiers uint) *Interner {
	return &Interner{
		filter:  bloom.NewWithEstimates(expectedIdentifiers, 0.01),
		entries: make(map[uint32][]*HeapString),
	}
}

// Intern returns the canonical *HeapString for s, allocating and recording
// one if this is the first time s has been seen.
func (in *Interner) Intern(s string) *HeapString {
	hs := NewString(s)
	h := hs.Hash()

	in.mu.Lock()
	defer in.mu.Unlock()

	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], h)
	if in.filter.Test(key[:]) {
		for _, existing := range in.entries[h] {
			if existing.Equal(hs) {
				return existing
			}
		}
		// Bloom false positive: hash seen but not this exact string.
	}
	in.filter.Add(key[:])
	in.entries[h] = append(in.entries[h], hs)
	return hs
}
