package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/pkg/jobs"
)

const jobTypeExtendSeries = "recurring.extend_series"

// ExtensionScheduler periodically sweeps recurring groups whose extension
// marker has passed and dispatches each to a worker pool. One job per group
// keeps a single broken series from blocking the rest of the sweep.
type ExtensionScheduler struct {
	recurring *RecurringService
	groups    recurringGroupStore
	logger    *zap.Logger

	interval time.Duration
	queue    *jobs.Queue

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewExtensionScheduler constructs an ExtensionScheduler. The sweep interval
// and worker count come from configuration.
func NewExtensionScheduler(recurring *RecurringService, groups recurringGroupStore, interval time.Duration, workers, retries int, logger *zap.Logger) *ExtensionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	s := &ExtensionScheduler{
		recurring: recurring,
		groups:    groups,
		logger:    logger,
		interval:  interval,
	}
	s.queue = jobs.NewQueue("recurring-extension", s.handle, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the sweep ticker. Safe to call once.
func (s *ExtensionScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)
	go s.loop(ctx)
	s.started = true
	s.logger.Info("extension scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the sweep and drains the worker pool.
func (s *ExtensionScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()
	<-done
	s.queue.Stop()
	s.logger.Info("extension scheduler stopped")
}

func (s *ExtensionScheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Catch up on anything that came due while the process was down.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExtensionScheduler) sweep(ctx context.Context) {
	due, err := s.groups.ListDueForExtension(ctx, time.Now())
	if err != nil {
		s.logger.Warn("extension sweep failed", zap.Error(err))
		return
	}
	for _, group := range due {
		job := jobs.Job{
			ID:      fmt.Sprintf("%s:%d", group.ID, time.Now().UnixNano()),
			Type:    jobTypeExtendSeries,
			Payload: group.ID,
		}
		// A full queue must not starve the remaining due groups; they
		// stay due and the next sweep retries them anyway.
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue extension job",
				zap.String("group_id", group.ID), zap.Error(err))
			continue
		}
	}
	if len(due) > 0 {
		s.logger.Info("extension sweep dispatched", zap.Int("groups", len(due)))
	}
}

func (s *ExtensionScheduler) handle(ctx context.Context, job jobs.Job) error {
	groupID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", job.Payload, job.Type)
	}
	created, err := s.recurring.ExtendSeries(ctx, groupID)
	if err != nil {
		return err
	}
	if len(created) > 0 {
		s.logger.Info("series extended",
			zap.String("group_id", groupID), zap.Int("lessons", len(created)))
	}
	return nil
}
