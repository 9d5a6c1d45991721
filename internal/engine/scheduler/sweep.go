// internal/engine/scheduler/sweep.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"vetcare-reminders/internal/common/logger"
	"vetcare-reminders/internal/common/metrics"
)

// ReminderSource supplies due reminder ids and the atomic claim that keeps
// delivery at-most-once under concurrent sweeps.
type ReminderSource interface {
	DueIDs(ctx context.Context, now time.Time, leaseTTL time.Duration, limit int) ([]string, error)
	Claim(ctx context.Context, id string, now time.Time, leaseTTL time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
}

// Dispatcher delivers one claimed reminder to completion (terminal status).
// An error means no terminal status was written; the row stays in_flight and
// a later sweep reclaims it after the lease expires.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

// Sweep periodically claims due reminders and fans them out to a bounded
// worker pool. Multiple Sweep instances may run against the same repository;
// the claim CAS arbitrates.
type Sweep struct {
	source     ReminderSource
	dispatcher Dispatcher
	logger     logger.Logger

	interval  time.Duration
	leaseTTL  time.Duration
	batchSize int
	workers   int

	now func() time.Time
}

type SweepConfig struct {
	Interval  time.Duration
	LeaseTTL  time.Duration
	BatchSize int
	Workers   int
}

func NewSweep(source ReminderSource, dispatcher Dispatcher, cfg SweepConfig, log logger.Logger) *Sweep {
	return &Sweep{
		source:     source,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"component": "sweep"}),
		interval:   cfg.Interval,
		leaseTTL:   cfg.LeaseTTL,
		batchSize:  cfg.BatchSize,
		workers:    cfg.Workers,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled, executing one pass per interval.
func (s *Sweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweep started", map[string]interface{}{
		"interval": s.interval.String(),
		"workers":  s.workers,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep stopped", nil)
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep pass: claim due reminders, dispatch each
// through the pool, wait for the batch to finish.
func (s *Sweep) RunOnce(ctx context.Context) {
	now := s.now().UTC()

	ids, err := s.source.DueIDs(ctx, now, s.leaseTTL, s.batchSize)
	if err != nil {
		s.logger.Error("due query failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(ids) == 0 {
		return
	}

	claimed := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := s.source.Claim(ctx, id, now, s.leaseTTL)
		if err != nil {
			s.logger.Error("claim failed", map[string]interface{}{"id": id, "error": err.Error()})
			continue
		}
		if !ok {
			// Another worker or an operator cancel got there first.
			metrics.ClaimConflicts.Inc()
			continue
		}
		claimed = append(claimed, id)
	}

	metrics.SweepBatchSize.Observe(float64(len(claimed)))
	if len(claimed) == 0 {
		return
	}

	s.logger.Info("dispatching batch", map[string]interface{}{"count": len(claimed)})

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, id := range claimed {
		acquired := false
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case sem <- struct{}{}:
				acquired = true
			}
		}
		if !acquired {
			// Shutting down: hand unstarted claims back.
			if err := s.source.Release(context.WithoutCancel(ctx), id); err != nil {
				s.logger.Warn("release failed", map[string]interface{}{"id": id, "error": err.Error()})
			}
			continue
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.dispatcher.Dispatch(ctx, id); err != nil {
				s.logger.Warn("dispatch incomplete, lease will reclaim", map[string]interface{}{
					"id":    id,
					"error": err.Error(),
				})
			}
		}(id)
	}
	wg.Wait()
}
