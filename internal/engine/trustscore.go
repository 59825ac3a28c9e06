package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// ScoringConfig holds trust-score weights and decision thresholds.
type ScoringConfig struct {
	WCross      float64
	WReputation float64
	WDuplicate  float64
	WRate       float64

	AutoVerify  float64
	NeedsReview float64
	Reject      float64

	// Per-category threshold deltas. Critical crises get more lenient
	// boundaries so genuine emergencies are not over-filtered.
	CriticalDelta float64
	HighDelta     float64
	OtherDelta    float64

	HistoryDecay      float64 // per day
	HistoryWindow     int
	HistoryMinEntries int
}

// Bonus signal values.
const (
	attachmentBonus      = 0.05
	preciseLocationBonus = 0.03
	urgentLanguageBonus  = 0.02
)

// Historical boost shape.
const (
	boostHighAccuracy = 0.7
	boostLowAccuracy  = 0.5
	boostHighFactor   = 0.33
	boostLowFactor    = 0.2
	boostMax          = 0.1
)

// Threshold safe band: category deltas never push a boundary outside it.
const (
	thresholdFloor = 0.05
	thresholdCeil  = 0.95
)

// Crisis categories for dynamic thresholds.
var (
	criticalCrisisTypes = map[string]struct{}{
		"earthquake": {}, "fire": {}, "explosion": {}, "tsunami": {}, "terror_attack": {},
	}
	highCrisisTypes = map[string]struct{}{
		"flood": {}, "landslide": {}, "hurricane": {},
	}
	mediumCrisisTypes = map[string]struct{}{
		"storm": {}, "accident": {}, "power_outage": {}, "medical": {},
	}
)

var urgentKeywords = []string{
	"urgent", "emergency", "help", "trapped", "immediately", "sos", "dying", "critical",
}

// BonusSignals are the optional positive markers on an alert.
type BonusSignals struct {
	HasAttachment      bool
	HasPreciseLocation bool
	UrgentLanguage     bool
}

// ScoreInput carries every component feeding one trust score.
type ScoreInput struct {
	CrossScore             float64
	ReputationContribution float64
	DuplicatePenalty       float64
	RatePenalty            float64
	Signals                BonusSignals
	SubmitterID            string
	CrisisType             string
}

// Thresholds are the effective decision boundaries after the category
// shift.
type Thresholds struct {
	AutoVerify  float64 `json:"auto_verify"`
	NeedsReview float64 `json:"needs_review"`
	Reject      float64 `json:"reject"`
}

// ScoreResult is one fully-explained scoring outcome.
type ScoreResult struct {
	Decision    string
	Final       float64
	Components  models.ScoreComponents
	Thresholds  Thresholds
	Explanation string
}

// TrustScorer combines verification, reputation, penalties, bonus
// signals and the historical boost into a final score and decision.
type TrustScorer struct {
	store  repository.ReputationRepository
	config ScoringConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewTrustScorer creates a scorer; the store feeds the historical boost.
func NewTrustScorer(store repository.ReputationRepository, config ScoringConfig, logger *zap.Logger) *TrustScorer {
	return &TrustScorer{store: store, config: config, logger: logger, now: time.Now}
}

// Score computes the final trust score and decision. The result always
// carries a per-component breakdown sufficient to recompute the score.
func (s *TrustScorer) Score(ctx context.Context, in ScoreInput) *ScoreResult {
	comp := models.ScoreComponents{
		CrossScore:             in.CrossScore,
		CrossWeighted:          in.CrossScore * s.config.WCross,
		ReputationContribution: in.ReputationContribution,
		ReputationWeighted:     in.ReputationContribution * s.config.WReputation,
		DuplicatePenalty:       in.DuplicatePenalty,
		DuplicateWeighted:      in.DuplicatePenalty * s.config.WDuplicate,
		RatePenalty:            in.RatePenalty,
		RateWeighted:           in.RatePenalty * s.config.WRate,
	}
	comp.Base = comp.CrossWeighted + comp.ReputationWeighted - comp.DuplicateWeighted - comp.RateWeighted

	if in.Signals.HasAttachment {
		comp.BonusSignals += attachmentBonus
	}
	if in.Signals.HasPreciseLocation {
		comp.BonusSignals += preciseLocationBonus
	}
	if in.Signals.UrgentLanguage {
		comp.BonusSignals += urgentLanguageBonus
	}

	comp.HistoricalBoost = s.historicalBoost(ctx, in.SubmitterID)
	comp.Final = clamp(comp.Base+comp.BonusSignals+comp.HistoricalBoost, 0, 1)

	thresholds := s.thresholdsFor(in.CrisisType)
	decision := decideAt(comp.Final, thresholds)

	return &ScoreResult{
		Decision:    decision,
		Final:       comp.Final,
		Components:  comp,
		Thresholds:  thresholds,
		Explanation: explain(comp, thresholds, decision, in.CrisisType),
	}
}

// historicalBoost computes the time-decayed accuracy adjustment from
// the submitter's recent reputation events. Store failures and thin
// histories contribute nothing.
func (s *TrustScorer) historicalBoost(ctx context.Context, submitterID string) float64 {
	events, err := s.store.RecentEvents(ctx, submitterID, s.config.HistoryWindow)
	if err != nil {
		s.logger.Warn("History lookup failed, skipping historical boost",
			zap.String("submitter_id", submitterID), zap.Error(err))
		return 0
	}
	if len(events) < s.config.HistoryMinEntries {
		return 0
	}

	now := s.now()
	weightSum := 0.0
	accurateSum := 0.0
	for _, event := range events {
		daysAgo := now.Sub(event.CreatedAt).Hours() / 24
		if daysAgo < 0 {
			daysAgo = 0
		}
		weight := math.Pow(s.config.HistoryDecay, daysAgo)
		weightSum += weight
		if event.WasAccurate {
			accurateSum += weight
		}
	}
	if weightSum == 0 {
		return 0
	}

	accuracy := accurateSum / weightSum
	switch {
	case accuracy >= boostHighAccuracy:
		boost := (accuracy - boostHighAccuracy) * boostHighFactor
		if boost > boostMax {
			boost = boostMax
		}
		return boost
	case accuracy < boostLowAccuracy:
		boost := (accuracy - boostLowAccuracy) * boostLowFactor
		if boost < -boostMax {
			boost = -boostMax
		}
		return boost
	default:
		return 0
	}
}

// thresholdsFor shifts the configured boundaries by the crisis
// category delta, clamped to the safe band.
func (s *TrustScorer) thresholdsFor(crisisType string) Thresholds {
	delta := s.categoryDelta(crisisType)
	return Thresholds{
		AutoVerify:  clamp(s.config.AutoVerify+delta, thresholdFloor, thresholdCeil),
		NeedsReview: clamp(s.config.NeedsReview+delta, thresholdFloor, thresholdCeil),
		Reject:      clamp(s.config.Reject+delta, thresholdFloor, thresholdCeil),
	}
}

func (s *TrustScorer) categoryDelta(crisisType string) float64 {
	key := strings.ToLower(crisisType)
	if _, ok := criticalCrisisTypes[key]; ok {
		return s.config.CriticalDelta
	}
	if _, ok := highCrisisTypes[key]; ok {
		return s.config.HighDelta
	}
	if _, ok := mediumCrisisTypes[key]; ok {
		return 0
	}
	return s.config.OtherDelta
}

func decideAt(final float64, t Thresholds) string {
	switch {
	case final >= t.AutoVerify:
		return models.DecisionVerified
	case final >= t.NeedsReview:
		return models.DecisionReview
	case final >= t.Reject:
		return models.DecisionUncertain
	default:
		return models.DecisionRejected
	}
}

func explain(comp models.ScoreComponents, t Thresholds, decision, crisisType string) string {
	return fmt.Sprintf(
		"cross %.3f×w=%.3f, reputation %.3f×w=%.3f, duplicate -%.3f, rate -%.3f, bonuses +%.3f, history %+.3f => final %.3f; thresholds %s=%.2f/%.2f/%.2f => %s",
		comp.CrossScore, comp.CrossWeighted,
		comp.ReputationContribution, comp.ReputationWeighted,
		comp.DuplicateWeighted, comp.RateWeighted,
		comp.BonusSignals, comp.HistoricalBoost, comp.Final,
		crisisType, t.AutoVerify, t.NeedsReview, t.Reject, decision)
}

// DetectUrgentLanguage reports whether the message uses urgency markers.
func DetectUrgentLanguage(message string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range urgentKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
