package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

func testScoringConfig() ScoringConfig {
	return ScoringConfig{
		WCross:      0.5,
		WReputation: 0.3,
		WDuplicate:  0.2,
		WRate:       0.2,

		AutoVerify:  0.75,
		NeedsReview: 0.50,
		Reject:      0.25,

		CriticalDelta: -0.15,
		HighDelta:     -0.10,
		OtherDelta:    0.10,

		HistoryDecay:      0.95,
		HistoryWindow:     50,
		HistoryMinEntries: 5,
	}
}

func newTestScorer(t *testing.T, store repository.ReputationRepository, at time.Time) *TrustScorer {
	t.Helper()
	s := NewTrustScorer(store, testScoringConfig(), zap.NewNop())
	s.now = func() time.Time { return at }
	return s
}

func TestScoreStaysInRange(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	inputs := []ScoreInput{
		{CrossScore: 0, ReputationContribution: 0, DuplicatePenalty: 1, RatePenalty: 1},
		{CrossScore: 1, ReputationContribution: 1, DuplicatePenalty: 0, RatePenalty: 0,
			Signals: BonusSignals{HasAttachment: true, HasPreciseLocation: true, UrgentLanguage: true}},
		{CrossScore: 0.95, ReputationContribution: 1, DuplicatePenalty: -0.2, RatePenalty: 0},
		{CrossScore: 0.5, ReputationContribution: 0.65, DuplicatePenalty: 0.8, RatePenalty: 0.7},
	}
	for i, in := range inputs {
		in.SubmitterID = "user-1"
		in.CrisisType = "storm"
		result := scorer.Score(context.Background(), in)
		if result.Final < 0 || result.Final > 1 {
			t.Errorf("input %d: final score %v outside [0,1]", i, result.Final)
		}
	}
}

func TestScoreComponentsReconstruct(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	result := scorer.Score(context.Background(), ScoreInput{
		CrossScore:             0.7,
		ReputationContribution: 0.65,
		DuplicatePenalty:       0.1,
		RatePenalty:            0.15,
		Signals:                BonusSignals{HasAttachment: true, UrgentLanguage: true},
		SubmitterID:            "user-1",
		CrisisType:             "storm",
	})

	comp := result.Components
	base := comp.CrossWeighted + comp.ReputationWeighted - comp.DuplicateWeighted - comp.RateWeighted
	if !almostEqual(base, comp.Base) {
		t.Errorf("recomputed base %v != recorded %v", base, comp.Base)
	}
	recomputed := clamp(comp.Base+comp.BonusSignals+comp.HistoricalBoost, 0, 1)
	if !almostEqual(recomputed, comp.Final) {
		t.Errorf("recomputed final %v != recorded %v", recomputed, comp.Final)
	}
	if !almostEqual(comp.BonusSignals, 0.07) {
		t.Errorf("bonus signals = %v, want 0.07 (attachment + urgent language)", comp.BonusSignals)
	}
	if result.Explanation == "" {
		t.Error("expected a populated explanation")
	}
}

func TestCategoryThresholds(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	tests := []struct {
		crisisType string
		autoVerify float64
	}{
		{"earthquake", 0.60},
		{"fire", 0.60},
		{"flood", 0.65},
		{"storm", 0.75},
		{"accident", 0.75},
		{"meteor_shower", 0.85},
	}
	for _, tt := range tests {
		got := scorer.thresholdsFor(tt.crisisType)
		if !almostEqual(got.AutoVerify, tt.autoVerify) {
			t.Errorf("%s auto-verify threshold = %v, want %v", tt.crisisType, got.AutoVerify, tt.autoVerify)
		}
	}
}

func TestCategoryCaseInsensitive(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	if got := scorer.thresholdsFor("EARTHQUAKE"); !almostEqual(got.AutoVerify, 0.60) {
		t.Errorf("uppercase crisis type not normalized: auto-verify = %v", got.AutoVerify)
	}
}

func TestSameScoreDifferentCategory(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	// Identical evidence, final around 0.70: verified for a critical
	// crisis, review-only for a medium one.
	in := ScoreInput{
		CrossScore:             0.8,
		ReputationContribution: 1.0,
		SubmitterID:            "user-1",
	}

	in.CrisisType = "earthquake"
	if result := scorer.Score(context.Background(), in); result.Decision != models.DecisionVerified {
		t.Errorf("earthquake at %v => %s, want VERIFIED", result.Final, result.Decision)
	}

	in.CrisisType = "storm"
	if result := scorer.Score(context.Background(), in); result.Decision != models.DecisionReview {
		t.Errorf("storm at %v => %s, want REVIEW", result.Final, result.Decision)
	}
}

func TestDecisionLadder(t *testing.T) {
	thresholds := Thresholds{AutoVerify: 0.75, NeedsReview: 0.50, Reject: 0.25}
	tests := []struct {
		final    float64
		decision string
	}{
		{0.90, models.DecisionVerified},
		{0.75, models.DecisionVerified},
		{0.60, models.DecisionReview},
		{0.50, models.DecisionReview},
		{0.30, models.DecisionUncertain},
		{0.25, models.DecisionUncertain},
		{0.10, models.DecisionRejected},
	}
	for _, tt := range tests {
		if got := decideAt(tt.final, thresholds); got != tt.decision {
			t.Errorf("decideAt(%v) = %s, want %s", tt.final, got, tt.decision)
		}
	}
}

func seedHistory(t *testing.T, store repository.ReputationRepository, submitterID string, now time.Time, accurate, inaccurate int) {
	t.Helper()
	ctx := context.Background()
	total := accurate + inaccurate
	for i := 0; i < total; i++ {
		err := store.AppendEvent(ctx, &models.ReputationEvent{
			SubmitterID: submitterID,
			WasAccurate: i < accurate,
			CreatedAt:   now.Add(-time.Duration(i%10) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestHistoricalBoostPositive(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	// 45 accurate of 50 over the last ten days.
	seedHistory(t, store, "veteran", now, 45, 5)

	boost := scorer.historicalBoost(context.Background(), "veteran")
	if boost <= 0 || boost > 0.1 {
		t.Errorf("boost = %v, want in (0, 0.1]", boost)
	}
}

func TestHistoricalBoostNegative(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	seedHistory(t, store, "unreliable", now, 5, 45)

	boost := scorer.historicalBoost(context.Background(), "unreliable")
	if boost >= 0 || boost < -0.1 {
		t.Errorf("boost = %v, want in [-0.1, 0)", boost)
	}
}

func TestHistoricalBoostThinHistory(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	seedHistory(t, store, "newcomer", now, 3, 1)

	if boost := scorer.historicalBoost(context.Background(), "newcomer"); boost != 0 {
		t.Errorf("boost = %v, want 0 below the minimum history size", boost)
	}
}

func TestHistoricalBoostMiddlingAccuracy(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, store, now)

	// Accuracy around 0.6 sits in the dead zone between the boost bands.
	seedHistory(t, store, "average", now, 30, 20)

	if boost := scorer.historicalBoost(context.Background(), "average"); boost != 0 {
		t.Errorf("boost = %v, want 0 for middling accuracy", boost)
	}
}

func TestDetectUrgentLanguage(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"URGENT: people trapped in the basement", true},
		{"please send help immediately", true},
		{"water level slowly rising", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := DetectUrgentLanguage(tt.message); got != tt.want {
			t.Errorf("DetectUrgentLanguage(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}
