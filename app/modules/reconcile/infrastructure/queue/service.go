// Package reconcilequeue schedules the reconciliation sweeps on River. The
// sweeps run as periodic jobs rather than in-process tickers so a crashed or
// redeployed process never skips a tick, and unique-by-kind insertion keeps
// two processes from sweeping concurrently.
package reconcilequeue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	"github.com/pugscord/pugbot/config"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Service owns the River client and the sweep schedule.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService builds the River client with both sweep workers registered and
// their periodic schedule installed. River requires pgx, so the service keeps
// its own pool next to the bun connection.
func NewService(
	ctx context.Context,
	dsn string,
	svc reconcileservice.Service,
	cfg config.ReconciliationConfig,
	logger *slog.Logger,
) (*Service, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSearchSweepWorker(svc, logger))
	river.AddWorker(workers, NewQueueSweepWorker(svc, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.SearchInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return SearchSweepJob{}, &river.InsertOpts{
						UniqueOpts: river.UniqueOpts{ByArgs: true},
					}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.QueueInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return QueueSweepJob{}, &river.InsertOpts{
						UniqueOpts: river.UniqueOpts{ByArgs: true},
					}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{client: client, pool: pool, logger: logger}, nil
}

// Start begins working jobs and ticking the periodic schedule.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.Info("reconcile sweep scheduler started")
	return nil
}

// Stop drains in-flight jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	return nil
}
