package aggregator

import (
	"context"
	"fmt"

	"github.com/dpbroker/dpb/pkg/planner"
	"github.com/dpbroker/dpb/pkg/service"
)

// noopInferior backs the parent Service InitiateService creates: that
// service owns no segments of its own, only children, so none of
// InferiorClient's methods are ever called against it with a real
// Segment.
type noopInferior struct{}

func (noopInferior) Define(ctx context.Context, seg service.Segment) error     { return nil }
func (noopInferior) Activate(ctx context.Context, seg service.Segment) error   { return nil }
func (noopInferior) Deactivate(ctx context.Context, seg service.Segment) error { return nil }
func (noopInferior) Release(ctx context.Context, seg service.Segment) error    { return nil }
func (noopInferior) Status(ctx context.Context, seg service.Segment) (service.State, error) {
	return service.Active, nil
}
func (noopInferior) Watch(ctx context.Context, seg service.Segment) (<-chan service.StatusEvent, error) {
	return make(chan service.StatusEvent), nil
}

// InitiateService plans a tree satisfying req against this aggregator's
// trunk table, then builds and defines the Service tree that realizes
// it: one child Service per inferior network touched by the plan, each
// carrying the segments that network must activate, all under a parent
// that owns no segments of its own. The per-network delegated bandwidth
// function planner.Result computes is not threaded into the segment
// today, since InferiorClient.Define takes a bare Segment; an inferior
// that wants the delegated function would need it passed out-of-band
// (e.g. over the same protocol this broker itself speaks) once such an
// inferior exists.
func (a *Aggregator) InitiateService(ctx context.Context, req planner.Request, opts ...service.Option) (*service.Service, *planner.Result, error) {
	result, err := a.PlanTree(req)
	if err != nil {
		return nil, nil, err
	}

	parent := a.NewService(noopInferior{}, opts...)

	for network, endpoints := range result.Groups {
		inferior, err := a.Inferior(network)
		if err != nil {
			return nil, nil, fmt.Errorf("initiating service: %w", err)
		}
		child := a.NewService(inferior)
		if err := parent.AddChild(child); err != nil {
			return nil, nil, fmt.Errorf("initiating service: %w", err)
		}

		segments := make([]service.Segment, len(endpoints))
		for i, ep := range endpoints {
			segments[i] = service.Segment{
				ID:       fmt.Sprintf("svc-%d-%s-%d", parent.ID(), network, ep.Index),
				Network:  network,
				Terminal: ep.Terminal,
				Label:    int(parent.ID()),
			}
		}
		if err := child.Define(ctx, segments); err != nil {
			return nil, nil, fmt.Errorf("initiating service: defining %s segments: %w", network, err)
		}
	}

	if err := parent.Define(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("initiating service: defining parent: %w", err)
	}

	return parent, result, nil
}
