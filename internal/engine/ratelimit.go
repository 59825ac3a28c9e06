// Package engine implements the trust verification pipeline: rate
// limiting, duplicate detection, reputation, cross-verification,
// scoring, and the orchestrator that sequences them.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// RateLimitConfig holds per-submitter quota settings.
type RateLimitConfig struct {
	MaxPerHour    int
	MaxPerDay     int
	BlockDuration time.Duration
}

// Penalty breakpoints over the 1h usage ratio.
var ratePenaltySteps = []struct {
	ratio   float64
	penalty float64
}{
	{0.95, 0.70},
	{0.85, 0.50},
	{0.70, 0.30},
	{0.50, 0.15},
}

// Burst heuristics for IsSuspicious.
const (
	burstGap        = 5 * time.Second
	burstGapCount   = 3
	burstWindow     = 5 * time.Minute
	burstWindowSize = 5
	recentSampleLen = 10
)

// RateLimiter enforces per-submitter quotas over trailing 1h/24h
// windows and temporary blocks.
type RateLimiter struct {
	store  repository.ActivityRepository
	config RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter over the given activity store.
func NewRateLimiter(store repository.ActivityRepository, config RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{store: store, config: config, logger: logger, now: time.Now}
}

// Check reports whether the submitter may submit now. A message is
// returned for both rejections and near-limit warnings.
//
// Store failures fail closed for block-status checks (reject) and fail
// open for window counts (allow): an unreadable block table must never
// turn into unlimited submission.
func (l *RateLimiter) Check(ctx context.Context, submitterID string) (bool, string) {
	now := l.now()

	block, err := l.store.ActiveBlock(ctx, submitterID, now)
	if err != nil {
		l.logger.Warn("Block lookup failed, rejecting submission",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return false, "rate limit status unavailable, submission rejected"
	}
	if block != nil {
		return false, fmt.Sprintf("submitter blocked until %s: %s",
			block.BlockedUntil.Format(time.RFC3339), block.Reason)
	}

	hourCount, err := l.store.CountActivity(ctx, submitterID, now.Add(-time.Hour))
	if err != nil {
		l.logger.Warn("Hourly activity count failed, allowing submission",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return true, ""
	}
	dayCount, err := l.store.CountActivity(ctx, submitterID, now.Add(-24*time.Hour))
	if err != nil {
		l.logger.Warn("Daily activity count failed, allowing submission",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return true, ""
	}

	if hourCount >= l.config.MaxPerHour {
		l.block(ctx, submitterID, now, fmt.Sprintf("hourly submission limit of %d exceeded", l.config.MaxPerHour))
		return false, fmt.Sprintf("hourly submission limit of %d exceeded, temporarily blocked", l.config.MaxPerHour)
	}
	if dayCount >= l.config.MaxPerDay {
		l.block(ctx, submitterID, now, fmt.Sprintf("daily submission limit of %d exceeded", l.config.MaxPerDay))
		return false, fmt.Sprintf("daily submission limit of %d exceeded, temporarily blocked", l.config.MaxPerDay)
	}

	hourRatio := float64(hourCount) / float64(l.config.MaxPerHour)
	dayRatio := float64(dayCount) / float64(l.config.MaxPerDay)
	usage := hourRatio
	if dayRatio > usage {
		usage = dayRatio
	}
	switch {
	case usage >= 0.90:
		return true, "warning: submission limit almost reached"
	case usage >= 0.75:
		return true, "warning: approaching submission limit"
	}
	return true, ""
}

func (l *RateLimiter) block(ctx context.Context, submitterID string, now time.Time, reason string) {
	err := l.store.CreateBlock(ctx, &models.BlockRecord{
		SubmitterID:  submitterID,
		BlockedUntil: now.Add(l.config.BlockDuration),
		Reason:       reason,
		CreatedAt:    now,
	})
	if err != nil {
		l.logger.Error("Failed to create block record",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return
	}
	l.logger.Info("Submitter blocked",
		zap.String("submitter_id", submitterID),
		zap.Duration("duration", l.config.BlockDuration),
		zap.String("reason", reason))
}

// Record logs one accepted submission.
func (l *RateLimiter) Record(ctx context.Context, submitterID string) error {
	return l.store.RecordActivity(ctx, submitterID, l.now())
}

// Penalty maps the trailing 1h usage ratio to a score penalty.
// Store failures fail open with zero penalty.
func (l *RateLimiter) Penalty(ctx context.Context, submitterID string) float64 {
	hourCount, err := l.store.CountActivity(ctx, submitterID, l.now().Add(-time.Hour))
	if err != nil {
		l.logger.Warn("Penalty count failed, applying no penalty",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return 0
	}
	ratio := float64(hourCount) / float64(l.config.MaxPerHour)
	for _, step := range ratePenaltySteps {
		if ratio >= step.ratio {
			return step.penalty
		}
	}
	return 0
}

// IsSuspicious flags bursty submission patterns: at least three of the
// most recent inter-submission gaps under 5s, or five or more
// submissions inside the trailing 5 minutes.
func (l *RateLimiter) IsSuspicious(ctx context.Context, submitterID string) bool {
	recent, err := l.store.RecentActivity(ctx, submitterID, recentSampleLen)
	if err != nil {
		l.logger.Warn("Recent activity lookup failed",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return false
	}
	if len(recent) == 0 {
		return false
	}

	shortGaps := 0
	for i := 0; i+1 < len(recent); i++ {
		// recent is newest-first
		if recent[i].Sub(recent[i+1]) < burstGap {
			shortGaps++
		}
	}
	if shortGaps >= burstGapCount {
		return true
	}

	cutoff := l.now().Add(-burstWindow)
	inWindow := 0
	for _, t := range recent {
		if t.After(cutoff) {
			inWindow++
		}
	}
	return inWindow >= burstWindowSize
}
