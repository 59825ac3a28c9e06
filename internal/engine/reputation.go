package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// ReputationConfig holds reliability scoring constants.
type ReputationConfig struct {
	Initial           float64
	Min               float64
	Max               float64
	AccurateGain      float64 // fraction of the remaining gap to max
	InaccurateDecay   float64 // multiplicative decay on false reports
	InaccuratePenalty float64 // fixed subtractive penalty after decay
	SourceDecay       float64
	SourceStep        float64
}

// ReputationManager maintains per-submitter and per-external-source
// reliability scores.
type ReputationManager struct {
	store  repository.ReputationRepository
	config ReputationConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewReputationManager creates a reputation manager over the given store.
func NewReputationManager(store repository.ReputationRepository, config ReputationConfig, logger *zap.Logger) *ReputationManager {
	return &ReputationManager{store: store, config: config, logger: logger, now: time.Now}
}

// GetScore returns the submitter's current score, lazily creating the
// record at the configured initial value.
func (m *ReputationManager) GetScore(ctx context.Context, submitterID string) (float64, error) {
	rep, err := m.getOrCreate(ctx, submitterID)
	if err != nil {
		return m.config.Initial, err
	}
	return rep.Score, nil
}

// Update applies one feedback event and returns the new score.
// Accurate feedback moves the score toward the ceiling by a fraction
// of the remaining gap; inaccurate feedback applies multiplicative
// decay then a fixed penalty, floored at the minimum.
func (m *ReputationManager) Update(ctx context.Context, submitterID string, wasAccurate bool) (float64, error) {
	rep, err := m.getOrCreate(ctx, submitterID)
	if err != nil {
		return 0, err
	}

	oldScore := rep.Score
	if wasAccurate {
		rep.Score = oldScore + m.config.AccurateGain*(m.config.Max-oldScore)
		rep.AccurateReports++
	} else {
		rep.Score = oldScore*m.config.InaccurateDecay - m.config.InaccuratePenalty
		rep.FalseReports++
	}
	rep.Score = clamp(rep.Score, m.config.Min, m.config.Max)
	rep.TotalReports++
	rep.LastUpdated = m.now()

	if err := m.store.UpdateSubmitter(ctx, rep); err != nil {
		return 0, fmt.Errorf("update reputation: %w", err)
	}

	event := &models.ReputationEvent{
		SubmitterID: submitterID,
		WasAccurate: wasAccurate,
		OldScore:    oldScore,
		NewScore:    rep.Score,
		CreatedAt:   rep.LastUpdated,
	}
	if err := m.store.AppendEvent(ctx, event); err != nil {
		m.logger.Error("Failed to append reputation event",
			zap.String("submitter_id", submitterID), zap.Error(err))
	}

	return rep.Score, nil
}

// Contribution maps the submitter's score to the [0,1] trust
// contribution. Store failures degrade to the neutral mapping of the
// initial score.
func (m *ReputationManager) Contribution(ctx context.Context, submitterID string) float64 {
	score, err := m.GetScore(ctx, submitterID)
	if err != nil {
		m.logger.Warn("Reputation lookup failed, using neutral contribution",
			zap.String("submitter_id", submitterID), zap.Error(err))
		score = m.config.Initial
	}
	return contributionCurve(score)
}

// contributionCurve is the non-linear reliability mapping: it
// saturates near 1.0 above a score of 0.8 and near 0.4 below 0.2, so
// extreme scores dominate less than a linear blend would.
func contributionCurve(score float64) float64 {
	switch {
	case score >= 0.8:
		return 0.9 + (score-0.8)*0.5
	case score <= 0.2:
		return 0.35 + score*0.25
	default:
		return 0.4 + (score-0.2)*(0.5/0.6)
	}
}

// UpdateSource applies one feedback event to an external source using
// the symmetric exponential rule: new = old*decay ± step. External
// sources lack the gap-to-max framing used for human submitters.
func (m *ReputationManager) UpdateSource(ctx context.Context, sourceID string, wasAccurate bool) (float64, error) {
	src, err := m.store.GetSource(ctx, sourceID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("get source reputation: %w", err)
		}
		src = &models.SourceReputation{SourceID: sourceID, Score: m.config.Initial}
	}

	step := m.config.SourceStep
	if !wasAccurate {
		step = -step
	}
	src.Score = clamp(src.Score*m.config.SourceDecay+step, m.config.Min, m.config.Max)
	src.LastUpdated = m.now()

	if err := m.store.UpsertSource(ctx, src); err != nil {
		return 0, fmt.Errorf("upsert source reputation: %w", err)
	}
	return src.Score, nil
}

// GetReputation returns the full reputation record for a submitter.
func (m *ReputationManager) GetReputation(ctx context.Context, submitterID string) (*models.SubmitterReputation, error) {
	return m.getOrCreate(ctx, submitterID)
}

func (m *ReputationManager) getOrCreate(ctx context.Context, submitterID string) (*models.SubmitterReputation, error) {
	rep, err := m.store.GetSubmitter(ctx, submitterID)
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	rep = &models.SubmitterReputation{
		SubmitterID: submitterID,
		Score:       m.config.Initial,
		LastUpdated: m.now(),
	}
	if err := m.store.CreateSubmitter(ctx, rep); err != nil {
		return nil, fmt.Errorf("create reputation: %w", err)
	}
	// Re-read in case a concurrent worker created it first.
	if existing, err := m.store.GetSubmitter(ctx, submitterID); err == nil {
		return existing, nil
	}
	return rep, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
