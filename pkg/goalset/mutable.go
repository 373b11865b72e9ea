package goalset

import (
	"fmt"

	"github.com/dpbroker/dpb/pkg/util"
)

// MutableSet is a bit set of fixed degree that can be modified in place.
// It never aliases a Set's storage: Freeze and Mutate always copy.
type MutableSet struct {
	degree int
	words  []uint64
}

// NewMutable returns an empty MutableSet of the given degree.
func NewMutable(degree int) *MutableSet {
	if degree < 0 {
		degree = 0
	}
	return &MutableSet{degree: degree, words: make([]uint64, wordCount(degree))}
}

// Degree returns the degree (universe size) of the set.
func (m *MutableSet) Degree() int { return m.degree }

func (m *MutableSet) checkBounds(i int) error {
	if i < 0 || i >= m.degree {
		return util.NewValidationError(fmt.Sprintf("index %d out of range [0,%d)", i, m.degree))
	}
	return nil
}

// SetBit adds i to the set.
func (m *MutableSet) SetBit(i int) error {
	if err := m.checkBounds(i); err != nil {
		return err
	}
	m.words[i/wordBits] |= uint64(1) << uint(i%wordBits)
	return nil
}

// ClearBit removes i from the set.
func (m *MutableSet) ClearBit(i int) error {
	if err := m.checkBounds(i); err != nil {
		return err
	}
	m.words[i/wordBits] &^= uint64(1) << uint(i%wordBits)
	return nil
}

// FlipBit toggles membership of i.
func (m *MutableSet) FlipBit(i int) error {
	if err := m.checkBounds(i); err != nil {
		return err
	}
	m.words[i/wordBits] ^= uint64(1) << uint(i%wordBits)
	return nil
}

// SetRange adds every index in [lo,hi] to the set.
func (m *MutableSet) SetRange(lo, hi int) error {
	if lo > hi {
		return util.NewValidationError("range lo must not exceed hi")
	}
	for i := lo; i <= hi; i++ {
		if err := m.SetBit(i); err != nil {
			return err
		}
	}
	return nil
}

// ClearRange removes every index in [lo,hi] from the set.
func (m *MutableSet) ClearRange(lo, hi int) error {
	if lo > hi {
		return util.NewValidationError("range lo must not exceed hi")
	}
	for i := lo; i <= hi; i++ {
		if err := m.ClearBit(i); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether endpoint index i is a member.
func (m *MutableSet) Contains(i int) bool {
	if i < 0 || i >= m.degree {
		return false
	}
	return m.words[i/wordBits]&(uint64(1)<<uint(i%wordBits)) != 0
}

// Freeze returns an immutable snapshot, copying storage so later mutation
// of m does not affect the returned Set.
func (m *MutableSet) Freeze() *Set {
	words := make([]uint64, len(m.words))
	copy(words, m.words)
	s := &Set{degree: m.degree, words: words}
	s.mask()
	return s
}
