// Package service implements the Service state machine: definition,
// activation, deactivation, and release of a circuit tree, composed of
// child services and inferior-network segments that activate and
// deactivate in parallel.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/dpbroker/dpb/pkg/util"
)

// Event reports a Service state transition, published to Subscribe
// channels and to an optional external Publisher (e.g. a Redis-backed
// fan-out shared across aggregator processes).
type Event struct {
	ServiceID int64
	State     State
	Err       error
}

// Publisher forwards Service events to an external channel, such as a
// Redis pub/sub topic, so other processes watching the same service see
// its transitions.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Service is one node of a circuit tree: it owns zero or more inferior
// segments of its own, plus zero or more child services, and drives them
// all through the same lifecycle in parallel.
type Service struct {
	mu sync.Mutex
	cond *sync.Cond

	id       int64
	state    State
	segments []Segment
	children []*Service
	inferior InferiorClient

	listeners    []chan Event
	publisher    Publisher
	graceTimeout time.Duration
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithGraceTimeout bounds how long Release waits for a child or segment
// that stops responding before proceeding to Released anyway.
func WithGraceTimeout(d time.Duration) Option {
	return func(s *Service) { s.graceTimeout = d }
}

// WithPublisher attaches an external event fan-out.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New creates a Dormant Service bound to inferior for delegating its own
// segments.
func New(id int64, inferior InferiorClient, opts ...Option) *Service {
	s := &Service{
		id:           id,
		state:        Dormant,
		inferior:     inferior,
		graceTimeout: 5 * time.Second,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the service's identifier.
func (s *Service) ID() int64 { return s.id }

// State returns the service's current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddChild attaches a child service. Children must be added before
// Define is called on the parent; composition is static once defined.
func (s *Service) AddChild(child *Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Dormant {
		return util.NewStateError("add_child", "service", s.state.String(), "children may only be added before define")
	}
	s.children = append(s.children, child)
	return nil
}

// Subscribe returns a channel receiving every future state transition.
// The channel is buffered; slow subscribers may miss events, not block
// the service.
func (s *Service) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 16)
	s.listeners = append(s.listeners, ch)
	return ch
}

// setState must be called with s.mu held. It updates state, wakes any
// AwaitStatus callers, and fans the transition out to listeners.
func (s *Service) setState(state State, err error) {
	s.state = state
	s.cond.Broadcast()
	event := Event{ServiceID: s.id, State: state, Err: err}
	for _, ch := range s.listeners {
		select {
		case ch <- event:
		default:
		}
	}
	if s.publisher != nil {
		go s.publisher.Publish(context.Background(), event) //nolint:errcheck
	}
}

// Define transitions a Dormant service to Inactive, recording the
// segments this service (not its children) is directly responsible for.
func (s *Service) Define(ctx context.Context, segments []Segment) error {
	s.mu.Lock()
	if s.state != Dormant {
		s.mu.Unlock()
		return util.ErrAlreadyDefined
	}
	s.segments = segments
	s.mu.Unlock()

	for _, seg := range segments {
		if err := s.inferior.Define(ctx, seg); err != nil {
			return util.NewStateError("define", "service", "Dormant", err.Error())
		}
	}

	s.mu.Lock()
	s.setState(Inactive, nil)
	s.mu.Unlock()
	return nil
}

// Activate brings the service and every child to Active, running all
// segment and child activations in parallel. It is idempotent: calling
// Activate on an Active or Activating service returns nil immediately.
func (s *Service) Activate(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Active, Activating:
		s.mu.Unlock()
		return nil
	case Released:
		s.mu.Unlock()
		return util.ErrReleased
	case Inactive, Failed:
		s.setState(Activating, nil)
		children := append([]*Service(nil), s.children...)
		segments := append([]Segment(nil), s.segments...)
		s.mu.Unlock()

		err := s.runParallel(ctx, segments, children, func(ctx context.Context, seg Segment) error {
			return s.inferior.Activate(ctx, seg)
		}, func(ctx context.Context, child *Service) error {
			return child.Activate(ctx)
		})

		s.mu.Lock()
		if err != nil {
			s.setState(Failed, err)
		} else {
			s.setState(Active, nil)
		}
		s.mu.Unlock()
		return err
	default:
		s.mu.Unlock()
		return util.NewStateError("activate", "service", s.state.String(), "")
	}
}

// Deactivate brings the service and every child back to Inactive.
func (s *Service) Deactivate(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Inactive:
		s.mu.Unlock()
		return nil
	case Released:
		s.mu.Unlock()
		return util.ErrReleased
	case Active, Failed, Activating:
		s.setState(Deactivating, nil)
		children := append([]*Service(nil), s.children...)
		segments := append([]Segment(nil), s.segments...)
		s.mu.Unlock()

		err := s.runParallel(ctx, segments, children, func(ctx context.Context, seg Segment) error {
			return s.inferior.Deactivate(ctx, seg)
		}, func(ctx context.Context, child *Service) error {
			return child.Deactivate(ctx)
		})

		s.mu.Lock()
		if err != nil {
			s.setState(Failed, err)
		} else {
			s.setState(Inactive, nil)
		}
		s.mu.Unlock()
		return err
	default:
		s.mu.Unlock()
		return util.NewStateError("deactivate", "service", s.state.String(), "")
	}
}

// Release tears the service and every child down permanently. It is
// idempotent and never fails: a child or segment that stops responding
// is given graceTimeout to finish, then the release proceeds without it.
func (s *Service) Release(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Released {
		s.mu.Unlock()
		return nil
	}
	s.setState(Releasing, nil)
	children := append([]*Service(nil), s.children...)
	segments := append([]Segment(nil), s.segments...)
	s.mu.Unlock()

	graceCtx, cancel := context.WithTimeout(ctx, s.graceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, seg := range segments {
		wg.Add(1)
		go func(seg Segment) {
			defer wg.Done()
			_ = s.inferior.Release(graceCtx, seg)
		}(seg)
	}
	for _, child := range children {
		wg.Add(1)
		go func(child *Service) {
			defer wg.Done()
			_ = child.Release(graceCtx)
		}(child)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-graceCtx.Done():
		util.Warnf("service %d: release grace period elapsed with outstanding children", s.id)
	}

	s.mu.Lock()
	s.setState(Released, nil)
	s.mu.Unlock()
	return nil
}

// runParallel runs fn over every segment and childFn over every child
// concurrently, returning the first error encountered (if any), but
// always waiting for every goroutine to finish first.
func (s *Service) runParallel(ctx context.Context, segments []Segment, children []*Service,
	fn func(context.Context, Segment) error, childFn func(context.Context, *Service) error) error {

	var wg sync.WaitGroup
	errs := make(chan error, len(segments)+len(children))

	for _, seg := range segments {
		wg.Add(1)
		go func(seg Segment) {
			defer wg.Done()
			errs <- fn(ctx, seg)
		}(seg)
	}
	for _, child := range children {
		wg.Add(1)
		go func(child *Service) {
			defer wg.Done()
			errs <- childFn(ctx, child)
		}(child)
	}
	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AwaitStatus blocks until the service's state is one of accepted, is
// Released, or timeout elapses, returning the latest observed state
// either way. Released is terminal — a service that reaches it will never
// transition again, so there is no point waiting out the rest of the
// timeout for a state change that cannot happen. It never returns an
// error: a timeout simply means the caller learns whatever the state
// happens to be at that point.
func (s *Service) AwaitStatus(accepted []State, timeout time.Duration) State {
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for !containsState(accepted, s.state) && s.state != Released {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.state
		}
		waitDone := make(chan struct{})
		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		go func() {
			<-waitDone
			timer.Stop()
		}()
		s.cond.Wait()
		close(waitDone)
		if time.Now().After(deadline) {
			return s.state
		}
	}
	return s.state
}

func containsState(states []State, want State) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}
