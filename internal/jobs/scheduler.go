// Package jobs runs background maintenance: sweeping expired blocks
// and pruning the duplicate-detection window.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/engine"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// Scheduler owns the cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	activity   repository.ActivityRepository
	duplicates *engine.DuplicateDetector
	logger     *zap.Logger
}

// NewScheduler creates the maintenance scheduler.
func NewScheduler(activity repository.ActivityRepository, duplicates *engine.DuplicateDetector, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		activity:   activity,
		duplicates: duplicates,
		logger:     logger,
	}
}

// Start registers and launches the jobs.
func (s *Scheduler) Start(ctx context.Context) {
	// Expired blocks are inert either way; sweeping them keeps the
	// table small.
	s.cron.AddFunc("*/10 * * * *", func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		removed, err := s.activity.DeleteExpiredBlocks(sweepCtx, time.Now())
		if err != nil {
			s.logger.Error("Block sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			s.logger.Info("Swept expired blocks", zap.Int("removed", removed))
		}
	})

	s.cron.AddFunc("*/5 * * * *", func() {
		if removed := s.duplicates.Prune(); removed > 0 {
			s.logger.Info("Pruned duplicate window", zap.Int("removed", removed))
		}
	})

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Maintenance scheduler stopped")
}
