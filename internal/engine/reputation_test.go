package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

func testReputationConfig() ReputationConfig {
	return ReputationConfig{
		Initial:           0.5,
		Min:               0.0,
		Max:               1.0,
		AccurateGain:      0.15,
		InaccurateDecay:   0.9,
		InaccuratePenalty: 0.05,
		SourceDecay:       0.95,
		SourceStep:        0.05,
	}
}

func newTestReputation(t *testing.T, store repository.ReputationRepository) *ReputationManager {
	t.Helper()
	m := NewReputationManager(store, testReputationConfig(), zap.NewNop())
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReputationLazyCreation(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	score, err := manager.GetScore(ctx, "newcomer")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0.5 {
		t.Errorf("initial score = %v, want 0.5", score)
	}

	rep, err := store.GetSubmitter(ctx, "newcomer")
	if err != nil {
		t.Fatalf("expected record created on first lookup: %v", err)
	}
	if rep.TotalReports != 0 {
		t.Errorf("fresh record total_reports = %d, want 0", rep.TotalReports)
	}
}

func TestReputationAccurateGain(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	score, err := manager.Update(ctx, "user-1", true)
	if err != nil {
		t.Fatal(err)
	}
	// 0.5 + 0.15*(1.0-0.5)
	if !almostEqual(score, 0.575) {
		t.Errorf("score after accurate feedback = %v, want 0.575", score)
	}

	rep, err := manager.GetReputation(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.AccurateReports != 1 || rep.TotalReports != 1 {
		t.Errorf("counters = %d/%d, want 1/1", rep.AccurateReports, rep.TotalReports)
	}
}

func TestReputationInaccuratePenalty(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	score, err := manager.Update(ctx, "user-1", false)
	if err != nil {
		t.Fatal(err)
	}
	// 0.5*0.9 - 0.05
	if !almostEqual(score, 0.4) {
		t.Errorf("score after inaccurate feedback = %v, want 0.4", score)
	}

	rep, err := manager.GetReputation(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.FalseReports != 1 || rep.TotalReports != 1 {
		t.Errorf("counters = %d/%d, want 1/1", rep.FalseReports, rep.TotalReports)
	}
}

func TestReputationStaysInBounds(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	// Long alternating and one-sided runs must never escape [0,1].
	patterns := []bool{true, true, false, true, false, false, true}
	for round := 0; round < 30; round++ {
		for _, accurate := range patterns {
			score, err := manager.Update(ctx, "user-1", accurate)
			if err != nil {
				t.Fatal(err)
			}
			if score < 0 || score > 1 {
				t.Fatalf("score %v escaped [0,1]", score)
			}
		}
	}

	for i := 0; i < 100; i++ {
		score, err := manager.Update(ctx, "user-1", false)
		if err != nil {
			t.Fatal(err)
		}
		if score < 0 {
			t.Fatalf("score %v fell below the floor", score)
		}
	}
	for i := 0; i < 100; i++ {
		score, err := manager.Update(ctx, "user-1", true)
		if err != nil {
			t.Fatal(err)
		}
		if score > 1 {
			t.Fatalf("score %v exceeded the ceiling", score)
		}
	}
}

func TestReputationGainShrinksNearCeiling(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	prev := 0.5
	prevGain := math.Inf(1)
	for i := 0; i < 20; i++ {
		score, err := manager.Update(ctx, "user-1", true)
		if err != nil {
			t.Fatal(err)
		}
		gain := score - prev
		if gain > prevGain+1e-12 {
			t.Fatalf("gain grew from %v to %v as score approached the ceiling", prevGain, gain)
		}
		prev, prevGain = score, gain
	}
}

func TestReputationEventsAppended(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	if _, err := manager.Update(ctx, "user-1", true); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Update(ctx, "user-1", false); err != nil {
		t.Fatal(err)
	}

	events, err := store.RecentEvents(ctx, "user-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].WasAccurate {
		t.Error("newest event should be the inaccurate one")
	}
	if !almostEqual(events[1].OldScore, 0.5) || !almostEqual(events[1].NewScore, 0.575) {
		t.Errorf("first event scores = %v -> %v, want 0.5 -> 0.575", events[1].OldScore, events[1].NewScore)
	}
}

func TestContributionCurve(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0.0, 0.35},
		{0.1, 0.375},
		{0.2, 0.4},
		{0.5, 0.65},
		{0.8, 0.9},
		{1.0, 1.0},
	}
	for _, tt := range tests {
		if got := contributionCurve(tt.score); !almostEqual(got, tt.want) {
			t.Errorf("contributionCurve(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}

	// Monotone over the whole range.
	prev := -1.0
	for s := 0.0; s <= 1.0; s += 0.01 {
		cur := contributionCurve(s)
		if cur < prev {
			t.Fatalf("curve not monotone at %v: %v < %v", s, cur, prev)
		}
		prev = cur
	}
}

func TestSourceReputationUpdate(t *testing.T) {
	store := repository.NewMemoryStore()
	manager := newTestReputation(t, store)
	ctx := context.Background()

	score, err := manager.UpdateSource(ctx, "weather-feed", true)
	if err != nil {
		t.Fatal(err)
	}
	// 0.5*0.95 + 0.05
	if !almostEqual(score, 0.525) {
		t.Errorf("source score after accurate = %v, want 0.525", score)
	}

	score, err = manager.UpdateSource(ctx, "weather-feed", false)
	if err != nil {
		t.Fatal(err)
	}
	// 0.525*0.95 - 0.05
	if !almostEqual(score, 0.44875) {
		t.Errorf("source score after inaccurate = %v, want 0.44875", score)
	}
}
