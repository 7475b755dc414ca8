package job

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"ragindexer/internal/middleware"
)

// Scheduler periodically re-queues failed indexing runs.
type Scheduler struct {
	cron       *cron.Cron
	svc        *Service
	maxRetries int
}

func NewScheduler(svc *Service, spec string, maxRetries int) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), svc: svc, maxRetries: maxRetries}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid retry schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running pass finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) RunOnce() {
	ctx := middleware.WithCorrelationID(context.Background(), uuid.NewString())
	n, err := s.svc.RetryAll(ctx, s.maxRetries)
	if err != nil {
		s.svc.logger.ErrorContext(ctx, "scheduled retry failed", "error", err)
		return
	}
	if n > 0 {
		s.svc.logger.InfoContext(ctx, "scheduled retry re-queued jobs", "count", n)
	}
}
