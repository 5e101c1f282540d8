// Package sweep runs the assignment-expiry batch job on a cron schedule.
package sweep

import (
	"context"
	"time"

	"github.com/peerloop/feedback-market/src/internal/metrics"
	"github.com/peerloop/feedback-market/src/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically flips overdue non-terminal assignments to EXPIRED.
// The underlying update is idempotent, so overlapping or repeated runs are
// harmless.
type Sweeper struct {
	cron    *cron.Cron
	repo    store.Repository
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewSweeper(repo store.Repository, logger *zap.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		repo:    repo,
		log:     logger,
		metrics: m,
	}
}

// Start schedules the sweep and runs one pass immediately so a restart
// catches up on assignments that expired while the service was down.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	go s.runOnce()
	s.cron.Start()
	s.log.Info("expiry sweeper started", zap.String("spec", spec))
	return nil
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.repo.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.metrics.AssignmentsExpired.Add(float64(n))
		s.log.Info("expiry sweep completed", zap.Int64("expired", n))
	}
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("expiry sweeper stopped")
}
