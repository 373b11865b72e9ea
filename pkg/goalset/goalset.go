// Package goalset implements GoalSet, a bit-packed set over [0,degree),
// used throughout the broker to name the endpoints on one side of a
// bandwidth-function partition.
package goalset

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/dpbroker/dpb/pkg/util"
)

const wordBits = 64

func wordCount(degree int) int {
	if degree <= 0 {
		return 0
	}
	return (degree + wordBits - 1) / wordBits
}

// Set is an immutable bit set of fixed degree. The zero value is not valid;
// construct with New, FromBits, or via MutableSet.Freeze.
type Set struct {
	degree int
	words  []uint64
}

// New returns the empty Set of the given degree.
func New(degree int) *Set {
	if degree < 0 {
		degree = 0
	}
	return &Set{degree: degree, words: make([]uint64, wordCount(degree))}
}

// FromBits builds a Set of the given degree from the members listed.
// Members outside [0,degree) are rejected.
func FromBits(degree int, members ...int) (*Set, error) {
	m := NewMutable(degree)
	for _, i := range members {
		if err := m.SetBit(i); err != nil {
			return nil, err
		}
	}
	return m.Freeze(), nil
}

// FromBigInt builds a Set of the given degree from its big.Int bit pattern.
// Bits at or above degree must be zero.
func FromBigInt(degree int, bi *big.Int) (*Set, error) {
	if bi.Sign() < 0 {
		return nil, util.NewValidationError("goal set bit pattern must be non-negative")
	}
	s := New(degree)
	words := bi.Bits()
	for i := 0; i < len(words) && i < len(s.words); i++ {
		// big.Word is platform-sized; normalize to uint64.
		s.words[i] = uint64(words[i])
	}
	if len(words) > len(s.words) {
		// Any higher words must be zero, else bits >= degree are set.
		for i := len(s.words); i < len(words); i++ {
			if words[i] != 0 {
				return nil, util.NewValidationError("goal set bit pattern has bits beyond degree")
			}
		}
	}
	s.mask()
	if !bitsEqual(s, bi) {
		return nil, util.NewValidationError("goal set bit pattern has bits beyond degree")
	}
	return s, nil
}

func bitsEqual(s *Set, bi *big.Int) bool {
	return s.ToBigInt().Cmp(bi) == 0
}

// Degree returns the degree (universe size) of the set.
func (s *Set) Degree() int { return s.degree }

// mask clears any bits at or above degree in the final word.
func (s *Set) mask() {
	if s.degree == 0 {
		return
	}
	rem := s.degree % wordBits
	if rem == 0 {
		return
	}
	last := len(s.words) - 1
	s.words[last] &= (uint64(1) << uint(rem)) - 1
}

// Contains reports whether endpoint index i is a member.
func (s *Set) Contains(i int) bool {
	if i < 0 || i >= s.degree {
		return false
	}
	return s.words[i/wordBits]&(uint64(1)<<uint(i%wordBits)) != 0
}

// Len returns the number of members.
func (s *Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return s.Len() == 0 }

// IsUniverse reports whether the set contains every index in [0,degree).
func (s *Set) IsUniverse() bool { return s.Len() == s.degree }

// Members returns the member indices in ascending order.
func (s *Set) Members() []int {
	var out []int
	for wi, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*wordBits+b)
			w &= w - 1
		}
	}
	return out
}

// ToBigInt returns the set's bit pattern as a big.Int.
func (s *Set) ToBigInt() *big.Int {
	bi := new(big.Int)
	for i := len(s.words) - 1; i >= 0; i-- {
		bi.Lsh(bi, wordBits)
		bi.Or(bi, new(big.Int).SetUint64(s.words[i]))
	}
	return bi
}

func sameDegree(a, b *Set) error {
	if a.degree != b.degree {
		return util.NewValidationError(fmt.Sprintf("goal set degree mismatch: %d vs %d", a.degree, b.degree))
	}
	return nil
}

// Union returns a new set containing members of either operand.
func (s *Set) Union(other *Set) (*Set, error) {
	if err := sameDegree(s, other); err != nil {
		return nil, err
	}
	out := New(s.degree)
	for i := range out.words {
		out.words[i] = s.words[i] | other.words[i]
	}
	return out, nil
}

// Intersect returns a new set containing members of both operands.
func (s *Set) Intersect(other *Set) (*Set, error) {
	if err := sameDegree(s, other); err != nil {
		return nil, err
	}
	out := New(s.degree)
	for i := range out.words {
		out.words[i] = s.words[i] & other.words[i]
	}
	return out, nil
}

// Difference returns a new set containing members of s not in other.
func (s *Set) Difference(other *Set) (*Set, error) {
	if err := sameDegree(s, other); err != nil {
		return nil, err
	}
	out := New(s.degree)
	for i := range out.words {
		out.words[i] = s.words[i] &^ other.words[i]
	}
	return out, nil
}

// Complement returns the set of indices in [0,degree) not in s.
func (s *Set) Complement() *Set {
	out := New(s.degree)
	for i := range out.words {
		out.words[i] = ^s.words[i]
	}
	out.mask()
	return out
}

// Equal reports whether two sets have the same degree and bit pattern.
func (s *Set) Equal(other *Set) bool {
	if s.degree != other.degree {
		return false
	}
	for i := range s.words {
		if s.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Compare totally orders sets: first by degree, then by unsigned comparison
// of the highest-differing word.
func Compare(a, b *Set) int {
	if a.degree != b.degree {
		if a.degree < b.degree {
			return -1
		}
		return 1
	}
	for i := len(a.words) - 1; i >= 0; i-- {
		if a.words[i] != b.words[i] {
			if a.words[i] < b.words[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// String renders the set as a range-collapsed list, e.g. "{1,2,4,7-9}".
func (s *Set) String() string {
	members := s.Members()
	if len(members) == 0 {
		return "{}"
	}
	return "{" + util.CompactRange(members) + "}"
}

// Mutate returns a mutable copy of s, never aliasing s's storage.
func (s *Set) Mutate() *MutableSet {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &MutableSet{degree: s.degree, words: words}
}
