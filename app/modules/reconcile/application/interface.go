package reconcileservice

import (
	"context"

	sharedevents "github.com/pugscord/pugbot/app/shared/events"
)

// Service is the reconciliation pipeline's operation surface. TrackMatch is
// driven by the event router; the sweeps by the job queue.
type Service interface {
	TrackMatch(ctx context.Context, payload sharedevents.PickupMatchStartedPayloadV1) error
	SearchSweep(ctx context.Context) (*SweepStats, error)
	QueueSweep(ctx context.Context) (*SweepStats, error)
}

// SweepStats summarizes one sweep for logging and tests.
type SweepStats struct {
	Processed int
	Queued    int
	Completed int
	Failed    int
	Skipped   int
}
