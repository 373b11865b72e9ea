package service

import "context"

// Segment is one inferior-network delegation point a service holds: a
// circuit terminating at a given terminal under a given label, inside a
// named inferior network.
type Segment struct {
	ID       string
	Network  string
	Terminal string
	Label    int
}

// StatusEvent reports an asynchronous status change an InferiorClient
// observed for one segment.
type StatusEvent struct {
	Segment Segment
	State   State
	Err     error
}

// InferiorClient is the seam between a Service and the inferior network
// that actually carries one of its segments. Real inferior back-ends are
// out of scope; this interface lets the state machine be exercised
// against a fake in tests.
type InferiorClient interface {
	Define(ctx context.Context, seg Segment) error
	Activate(ctx context.Context, seg Segment) error
	Deactivate(ctx context.Context, seg Segment) error
	Release(ctx context.Context, seg Segment) error
	Status(ctx context.Context, seg Segment) (State, error)
	Watch(ctx context.Context, seg Segment) (<-chan StatusEvent, error)
}
