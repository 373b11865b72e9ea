// Package trunk implements Trunk, a capacitated labelled edge joining two
// inferior-network terminals, together with label range management and a
// reversible View onto a trunk's two directions.
package trunk

import (
	"sync"
	"time"

	"github.com/dpbroker/dpb/pkg/util"
)

// Trunk is a bidirectional capacitated link between two terminals, each
// belonging to a (possibly different) inferior network. Capacity, labels,
// and commissioning state are guarded by an internal mutex; callers should
// treat a *Trunk as safe for concurrent use from planner and protocol
// goroutines alike.
type Trunk struct {
	mu sync.RWMutex

	name           string
	startTerminal  string
	endTerminal    string
	delay          time.Duration

	upCapacity   float64
	downCapacity float64

	startLabels *labelSet
	endLabels   *labelSet

	mapping      map[int]int // start label -> end label
	reverseMap   map[int]int // end label -> start label
	mappingOrder []int       // start labels, in definition order

	inUseStart map[int]bool
	inUseEnd   map[int]bool

	commissioned bool
}

// New builds an uncommissioned Trunk of zero capacity between two named
// terminals.
func New(name, startTerminal, endTerminal string) *Trunk {
	return &Trunk{
		name:          name,
		startTerminal: startTerminal,
		endTerminal:   endTerminal,
		startLabels:   newLabelSet(),
		endLabels:     newLabelSet(),
		mapping:       make(map[int]int),
		reverseMap:    make(map[int]int),
		inUseStart:    make(map[int]bool),
		inUseEnd:      make(map[int]bool),
	}
}

// Name returns the trunk's identifying name.
func (t *Trunk) Name() string { return t.name }

// StartTerminal and EndTerminal return the two terminals the trunk joins.
func (t *Trunk) StartTerminal() string { return t.startTerminal }
func (t *Trunk) EndTerminal() string   { return t.endTerminal }

// SetDelay records the trunk's propagation delay.
func (t *Trunk) SetDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// Delay returns the trunk's propagation delay.
func (t *Trunk) Delay() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.delay
}

// Provide adds to the trunk's upstream and downstream capacity. Negative
// amounts are rejected; use Withdraw to reduce capacity.
func (t *Trunk) Provide(up, down float64) error {
	if up < 0 || down < 0 {
		return util.NewValidationError("provide amounts must be non-negative")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.upCapacity += up
	t.downCapacity += down
	return nil
}

// Withdraw removes from the trunk's upstream and downstream capacity. It
// fails with a CapacityError if the withdrawal would drive capacity
// negative.
func (t *Trunk) Withdraw(up, down float64) error {
	if up < 0 || down < 0 {
		return util.NewValidationError("withdraw amounts must be non-negative")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if up > t.upCapacity || down > t.downCapacity {
		return util.NewCapacityError(
			"withdraw exceeds provided capacity on trunk "+t.name, "")
	}
	t.upCapacity -= up
	t.downCapacity -= down
	return nil
}

// Capacity returns the trunk's current (up, down) capacity.
func (t *Trunk) Capacity() (up, down float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.upCapacity, t.downCapacity
}

// Commission marks the trunk as eligible for use in planning. Topology
// construction skips trunks that are not commissioned.
func (t *Trunk) Commission() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commissioned = true
}

// Decommission marks the trunk as ineligible for planning. Existing label
// mappings and capacity are left untouched; a later Commission restores
// the same trunk to service.
func (t *Trunk) Decommission() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commissioned = false
}

// IsCommissioned reports whether the trunk currently participates in
// topology construction.
func (t *Trunk) IsCommissioned() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.commissioned
}
