package reconcilehandlers

import (
	"context"

	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
)

// FakeReconcileService provides a programmable stub for the
// reconcileservice.Service interface.
type FakeReconcileService struct {
	trace []string

	TrackMatchFunc  func(ctx context.Context, payload sharedevents.PickupMatchStartedPayloadV1) error
	SearchSweepFunc func(ctx context.Context) (*reconcileservice.SweepStats, error)
	QueueSweepFunc  func(ctx context.Context) (*reconcileservice.SweepStats, error)
}

func (f *FakeReconcileService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeReconcileService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeReconcileService) TrackMatch(ctx context.Context, payload sharedevents.PickupMatchStartedPayloadV1) error {
	f.record("TrackMatch")
	if f.TrackMatchFunc != nil {
		return f.TrackMatchFunc(ctx, payload)
	}
	return nil
}

func (f *FakeReconcileService) SearchSweep(ctx context.Context) (*reconcileservice.SweepStats, error) {
	f.record("SearchSweep")
	if f.SearchSweepFunc != nil {
		return f.SearchSweepFunc(ctx)
	}
	return &reconcileservice.SweepStats{}, nil
}

func (f *FakeReconcileService) QueueSweep(ctx context.Context) (*reconcileservice.SweepStats, error) {
	f.record("QueueSweep")
	if f.QueueSweepFunc != nil {
		return f.QueueSweepFunc(ctx)
	}
	return &reconcileservice.SweepStats{}, nil
}

var _ reconcileservice.Service = (*FakeReconcileService)(nil)
