package aggregator

import (
	"sort"
	"sync"

	"github.com/dpbroker/dpb/pkg/util"
)

// Broker owns one Aggregator per inferior network this broker process
// fronts. The management/control protocol and the REST API both select
// a network by name before operating on its terminals, trunks, or
// services; Broker is the lookup table behind that selection.
type Broker struct {
	mu          sync.RWMutex
	aggregators map[string]*Aggregator
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{aggregators: make(map[string]*Aggregator)}
}

// Add registers an aggregator under its own network name, replacing any
// aggregator previously registered under that name.
func (b *Broker) Add(a *Aggregator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aggregators[a.Name()] = a
}

// Network returns the aggregator for the named network.
func (b *Broker) Network(name string) (*Aggregator, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.aggregators[name]
	if !ok {
		return nil, util.NewNotFoundError("network", name)
	}
	return a, nil
}

// Networks returns every registered network name, sorted.
func (b *Broker) Networks() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.aggregators))
	for name := range b.aggregators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
