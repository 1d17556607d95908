// Package presence tracks which page indices currently have a blob stored
// for a file in the buffer store.
package presence

import "github.com/bits-and-blooms/bitset"

// Set is a growable dense bitmap keyed by page index. It answers "does a
// blob exist for this page" in O(1) without asking the buffer store, whose
// own containment check may be expensive.
type Set struct {
	bits *bitset.BitSet
}

// New returns an empty presence set with capacity for one machine word of
// page indices; it grows from there as pages are touched.
func New() *Set {
	return &Set{bits: bitset.New(64)}
}

// Contains reports whether page k currently has a blob in the buffer store.
// A page beyond the set's current capacity has never been touched and so
// is reported absent.
func (s *Set) Contains(k uint64) bool {
	return s.bits.Test(uint(k))
}

// Insert marks page k as present, growing the underlying bitmap if k falls
// outside its current capacity. Growth is amortized by the bitset package's
// own word-doubling allocation strategy.
func (s *Set) Insert(k uint64) {
	s.bits.Set(uint(k))
}

// Len returns the number of pages currently marked present.
func (s *Set) Len() uint64 {
	return uint64(s.bits.Count())
}
