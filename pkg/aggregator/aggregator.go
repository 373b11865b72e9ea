// Package aggregator implements Aggregator, the top-level object owning
// one network's terminal table, trunk set, and service table, and
// coordinating the tree planner's access to trunks and labels.
package aggregator

import (
	"sync"

	"github.com/dpbroker/dpb/pkg/planner"
	"github.com/dpbroker/dpb/pkg/service"
	"github.com/dpbroker/dpb/pkg/trunk"
	"github.com/dpbroker/dpb/pkg/util"
)

// Terminal is one attachment point on an inferior network this
// aggregator can build circuits against.
type Terminal struct {
	Name    string
	Network string
	Busy    bool
}

// Aggregator owns one network's terminals, trunks, and services. A single
// mutex guards the terminal and trunk tables; each Service guards its own
// state independently, so planning and service lifecycle operations don't
// contend with each other except while the planner is actually touching
// trunks and labels (see pkg/planner).
type Aggregator struct {
	mu sync.RWMutex

	name      string
	terminals map[string]*Terminal
	trunks    map[string]*trunk.Trunk

	servicesMu    sync.RWMutex
	services      map[int64]*service.Service
	nextServiceID int64

	inferiors map[string]service.InferiorClient
}

// New creates an empty Aggregator for the named network.
func New(name string) *Aggregator {
	return &Aggregator{
		name:      name,
		terminals: make(map[string]*Terminal),
		trunks:    make(map[string]*trunk.Trunk),
		services:  make(map[int64]*service.Service),
		inferiors: make(map[string]service.InferiorClient),
	}
}

// Name returns the aggregator's network name.
func (a *Aggregator) Name() string { return a.name }

// RegisterInferior binds the client used to talk to the named inferior
// network.
func (a *Aggregator) RegisterInferior(network string, client service.InferiorClient) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inferiors[network] = client
}

// Inferior returns the client registered for the named inferior network.
func (a *Aggregator) Inferior(network string) (service.InferiorClient, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.inferiors[network]
	if !ok {
		return nil, util.NewNotFoundError("inferior network", network)
	}
	return c, nil
}

// AddTerminal registers a new terminal on the named inferior network.
func (a *Aggregator) AddTerminal(name, network string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.terminals[name]; exists {
		return util.NewConflictError("terminal", name+" already registered")
	}
	a.terminals[name] = &Terminal{Name: name, Network: network}
	return nil
}

// RemoveTerminal unregisters a terminal. It fails if the terminal is
// currently busy (bound into a trunk or service endpoint).
func (a *Aggregator) RemoveTerminal(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.terminals[name]
	if !ok {
		return util.NewNotFoundError("terminal", name)
	}
	if t.Busy {
		return util.NewStateError("remove_terminal", name, "busy", "terminal is in use")
	}
	for _, tr := range a.trunks {
		if tr.StartTerminal() == name || tr.EndTerminal() == name {
			return util.NewConflictError("terminal", name+" is bound by trunk "+tr.Name())
		}
	}
	delete(a.terminals, name)
	return nil
}

// GetTerminal returns the registered terminal by name.
func (a *Aggregator) GetTerminal(name string) (*Terminal, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.terminals[name]
	if !ok {
		return nil, util.NewNotFoundError("terminal", name)
	}
	return t, nil
}

// Terminals returns every registered terminal.
func (a *Aggregator) Terminals() []*Terminal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Terminal, 0, len(a.terminals))
	for _, t := range a.terminals {
		out = append(out, t)
	}
	return out
}

// AddTrunk registers a trunk, failing if both of its terminals aren't
// already known to this aggregator.
func (a *Aggregator) AddTrunk(t *trunk.Trunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.trunks[t.Name()]; exists {
		return util.NewConflictError("trunk", t.Name()+" already registered")
	}
	if _, ok := a.terminals[t.StartTerminal()]; !ok {
		return util.NewNotFoundError("terminal", t.StartTerminal())
	}
	if _, ok := a.terminals[t.EndTerminal()]; !ok {
		return util.NewNotFoundError("terminal", t.EndTerminal())
	}
	a.trunks[t.Name()] = t
	return nil
}

// RemoveTrunk unregisters a trunk by name.
func (a *Aggregator) RemoveTrunk(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.trunks[name]; !ok {
		return util.NewNotFoundError("trunk", name)
	}
	delete(a.trunks, name)
	return nil
}

// FindTrunk returns the named trunk.
func (a *Aggregator) FindTrunk(name string) (*trunk.Trunk, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.trunks[name]
	if !ok {
		return nil, util.NewNotFoundError("trunk", name)
	}
	return t, nil
}

// Trunks returns every registered trunk.
func (a *Aggregator) Trunks() []*trunk.Trunk {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*trunk.Trunk, 0, len(a.trunks))
	for _, t := range a.trunks {
		out = append(out, t)
	}
	return out
}

// PlanTree runs the tree planner against this aggregator's trunk table.
// Trunk membership (a.Trunks()) is read under a.mu, but label assignment
// against the chosen trunks is serialized by each Trunk's own mutex, so
// PlanTree does not hold a.mu for the full search.
func (a *Aggregator) PlanTree(req planner.Request) (*planner.Result, error) {
	return planner.Plan(a, req)
}

// NewService allocates a new Service bound to this aggregator, assigning
// it the next service id.
func (a *Aggregator) NewService(inferior service.InferiorClient, opts ...service.Option) *service.Service {
	a.servicesMu.Lock()
	defer a.servicesMu.Unlock()
	a.nextServiceID++
	id := a.nextServiceID
	svc := service.New(id, inferior, opts...)
	a.services[id] = svc
	return svc
}

// GetService returns the service by id.
func (a *Aggregator) GetService(id int64) (*service.Service, error) {
	a.servicesMu.RLock()
	defer a.servicesMu.RUnlock()
	svc, ok := a.services[id]
	if !ok {
		return nil, util.NewNotFoundError("service", util.CompactRange([]int{int(id)}))
	}
	return svc, nil
}

// GetServiceIDs returns every known service id.
func (a *Aggregator) GetServiceIDs() []int64 {
	a.servicesMu.RLock()
	defer a.servicesMu.RUnlock()
	out := make([]int64, 0, len(a.services))
	for id := range a.services {
		out = append(out, id)
	}
	return out
}

// RemoveService drops a released service from the table. It fails if the
// service has not yet been released.
func (a *Aggregator) RemoveService(id int64) error {
	a.servicesMu.Lock()
	defer a.servicesMu.Unlock()
	svc, ok := a.services[id]
	if !ok {
		return util.NewNotFoundError("service", util.CompactRange([]int{int(id)}))
	}
	if svc.State() != service.Released {
		return util.NewStateError("remove_service", "service", svc.State().String(), "service must be released first")
	}
	delete(a.services, id)
	return nil
}
