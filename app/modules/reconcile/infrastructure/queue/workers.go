package reconcilequeue

import (
	"context"
	"log/slog"

	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/riverqueue/river"
)

// SearchSweepWorker runs the search sweep when its periodic job fires.
type SearchSweepWorker struct {
	river.WorkerDefaults[SearchSweepJob]
	service reconcileservice.Service
	logger  *slog.Logger
}

// NewSearchSweepWorker creates a SearchSweepWorker.
func NewSearchSweepWorker(service reconcileservice.Service, logger *slog.Logger) *SearchSweepWorker {
	return &SearchSweepWorker{service: service, logger: logger}
}

func (w *SearchSweepWorker) Work(ctx context.Context, job *river.Job[SearchSweepJob]) error {
	stats, err := w.service.SearchSweep(ctx)
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "search sweep job finished",
		attr.Int64("job_id", job.ID),
		attr.Int("processed", stats.Processed),
	)
	return nil
}

// QueueSweepWorker runs the queue sweep when its periodic job fires.
type QueueSweepWorker struct {
	river.WorkerDefaults[QueueSweepJob]
	service reconcileservice.Service
	logger  *slog.Logger
}

// NewQueueSweepWorker creates a QueueSweepWorker.
func NewQueueSweepWorker(service reconcileservice.Service, logger *slog.Logger) *QueueSweepWorker {
	return &QueueSweepWorker{service: service, logger: logger}
}

func (w *QueueSweepWorker) Work(ctx context.Context, job *river.Job[QueueSweepJob]) error {
	stats, err := w.service.QueueSweep(ctx)
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "queue sweep job finished",
		attr.Int64("job_id", job.ID),
		attr.Int("processed", stats.Processed),
	)
	return nil
}
