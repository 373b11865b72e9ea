package trunk

import (
	"fmt"

	"github.com/dpbroker/dpb/pkg/util"
)

// Side names one end of a trunk.
type Side int

const (
	Start Side = iota
	End
)

func (s Side) String() string {
	if s == Start {
		return "start"
	}
	return "end"
}

// labelSet tracks which labels have been defined on one side of a trunk,
// as a set of disjoint [lo,hi] ranges.
type labelSet struct {
	ranges [][2]int
}

func newLabelSet() *labelSet {
	return &labelSet{}
}

func (l *labelSet) contains(label int) bool {
	for _, r := range l.ranges {
		if label >= r[0] && label <= r[1] {
			return true
		}
	}
	return false
}

func (l *labelSet) overlaps(lo, hi int) bool {
	for _, r := range l.ranges {
		if lo <= r[1] && r[0] <= hi {
			return true
		}
	}
	return false
}

func (l *labelSet) define(lo, hi int) error {
	if lo > hi {
		return util.NewValidationError("label range lo must not exceed hi")
	}
	if l.overlaps(lo, hi) {
		return util.NewConflictError("label range", fmt.Sprintf("[%d,%d] overlaps an already-defined range", lo, hi))
	}
	l.ranges = append(l.ranges, [2]int{lo, hi})
	return nil
}

// revoke removes [lo,hi] from the defined ranges, splitting any range that
// only partially overlaps it. inUse reports whether a label is currently
// bound by a mapping; any label in [lo,hi] that is in use blocks the
// entire revocation.
func (l *labelSet) revoke(lo, hi int, inUse func(int) bool) error {
	if lo > hi {
		return util.NewValidationError("label range lo must not exceed hi")
	}
	for label := lo; label <= hi; label++ {
		if inUse(label) {
			return util.NewStateError("revoke_label_range", "trunk", "label-in-use",
				fmt.Sprintf("label %d is in use", label))
		}
	}

	var kept [][2]int
	for _, r := range l.ranges {
		switch {
		case hi < r[0] || lo > r[1]:
			kept = append(kept, r)
		default:
			if r[0] < lo {
				kept = append(kept, [2]int{r[0], lo - 1})
			}
			if r[1] > hi {
				kept = append(kept, [2]int{hi + 1, r[1]})
			}
		}
	}
	l.ranges = kept
	return nil
}

// DefineLabelRange declares [lo,hi] as assignable labels on the named
// side, failing if any label in the range is already defined.
func (t *Trunk) DefineLabelRange(side Side, lo, hi int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if side == Start {
		return t.startLabels.define(lo, hi)
	}
	return t.endLabels.define(lo, hi)
}

// RevokeStartLabelRange withdraws [lo,hi] from the start side's defined
// labels. It fails if any label in the range is currently mapped.
func (t *Trunk) RevokeStartLabelRange(lo, hi int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startLabels.revoke(lo, hi, func(label int) bool { return t.inUseStart[label] })
}

// RevokeEndLabelRange withdraws [lo,hi] from the end side's defined
// labels. It fails if any label in the range is currently mapped.
func (t *Trunk) RevokeEndLabelRange(lo, hi int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endLabels.revoke(lo, hi, func(label int) bool { return t.inUseEnd[label] })
}

// MapLabel binds startLabel to endLabel, extending the trunk's label
// bijection. Both labels must already be defined on their respective
// sides and neither may already be mapped.
func (t *Trunk) MapLabel(startLabel, endLabel int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.startLabels.contains(startLabel) {
		return util.NewNotFoundError("start label", fmt.Sprintf("%d", startLabel))
	}
	if !t.endLabels.contains(endLabel) {
		return util.NewNotFoundError("end label", fmt.Sprintf("%d", endLabel))
	}
	if _, ok := t.mapping[startLabel]; ok {
		return util.NewConflictError("start label", fmt.Sprintf("%d is already mapped", startLabel))
	}
	if _, ok := t.reverseMap[endLabel]; ok {
		return util.NewConflictError("end label", fmt.Sprintf("%d is already mapped", endLabel))
	}

	t.mapping[startLabel] = endLabel
	t.reverseMap[endLabel] = startLabel
	t.mappingOrder = append(t.mappingOrder, startLabel)
	t.inUseStart[startLabel] = true
	t.inUseEnd[endLabel] = true
	return nil
}

// UnmapLabel removes the mapping entry for startLabel, freeing both ends
// for reuse.
func (t *Trunk) UnmapLabel(startLabel int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	endLabel, ok := t.mapping[startLabel]
	if !ok {
		return util.NewNotFoundError("label mapping", fmt.Sprintf("%d", startLabel))
	}
	delete(t.mapping, startLabel)
	delete(t.reverseMap, endLabel)
	delete(t.inUseStart, startLabel)
	delete(t.inUseEnd, endLabel)
	for i, l := range t.mappingOrder {
		if l == startLabel {
			t.mappingOrder = append(t.mappingOrder[:i], t.mappingOrder[i+1:]...)
			break
		}
	}
	return nil
}

// NextAvailableLabel returns the lowest defined label on the named side
// that is not currently mapped.
func (t *Trunk) NextAvailableLabel(side Side) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set := t.startLabels
	inUse := t.inUseStart
	if side == End {
		set = t.endLabels
		inUse = t.inUseEnd
	}

	best := 0
	found := false
	for _, r := range set.ranges {
		for label := r[0]; label <= r[1]; label++ {
			if inUse[label] {
				continue
			}
			if !found || label < best {
				best, found = label, true
			}
		}
	}
	return best, found
}

// EndLabelFor returns the end label bound to startLabel, in mapping order.
func (t *Trunk) EndLabelFor(startLabel int) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	end, ok := t.mapping[startLabel]
	return end, ok
}

// StartLabelFor returns the start label bound to endLabel.
func (t *Trunk) StartLabelFor(endLabel int) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	start, ok := t.reverseMap[endLabel]
	return start, ok
}

// MappingOrder returns the start labels in the order their mappings were
// created.
func (t *Trunk) MappingOrder() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.mappingOrder))
	copy(out, t.mappingOrder)
	return out
}
