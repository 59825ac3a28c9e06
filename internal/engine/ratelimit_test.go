package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

func testRateConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerHour:    10,
		MaxPerDay:     50,
		BlockDuration: time.Hour,
	}
}

func newTestLimiter(t *testing.T, store repository.ActivityRepository, at time.Time) *RateLimiter {
	t.Helper()
	l := NewRateLimiter(store, testRateConfig(), zap.NewNop())
	l.now = func() time.Time { return at }
	return l
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.RecordActivity(ctx, "user-1", now.Add(-time.Duration(i+1)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	allowed, msg := limiter.Check(ctx, "user-1")
	if !allowed {
		t.Fatalf("expected submission allowed at 5/10, got rejection: %s", msg)
	}
	if msg != "" {
		t.Errorf("expected no warning at 50%% usage, got %q", msg)
	}
}

func TestRateLimiterWarnsNearLimit(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if err := store.RecordActivity(ctx, "user-1", now.Add(-time.Duration(i+1)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	allowed, msg := limiter.Check(ctx, "user-1")
	if !allowed {
		t.Fatalf("expected 9/10 to be allowed, got rejection: %s", msg)
	}
	if msg == "" {
		t.Error("expected a near-limit warning at 90% usage")
	}
}

func TestRateLimiterBlocksAtHourlyLimit(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.RecordActivity(ctx, "user-1", now.Add(-time.Duration(i+1)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	allowed, msg := limiter.Check(ctx, "user-1")
	if allowed {
		t.Fatal("expected the 11th submission to be rejected")
	}
	if msg == "" {
		t.Error("expected a rejection message")
	}

	block, err := store.ActiveBlock(ctx, "user-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if block == nil {
		t.Fatal("expected a block record after exceeding the hourly limit")
	}
	if got, want := block.BlockedUntil, now.Add(time.Hour); !got.Equal(want) {
		t.Errorf("blocked_until = %v, want %v", got, want)
	}

	// A blocked submitter stays rejected even with an empty window.
	allowed, _ = limiter.Check(ctx, "user-1")
	if allowed {
		t.Error("expected rejection while block is active")
	}
}

func TestRateLimiterBlockExpires(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	err := store.CreateBlock(ctx, &models.BlockRecord{
		SubmitterID:  "user-1",
		BlockedUntil: now.Add(-time.Minute),
		Reason:       "hourly submission limit of 10 exceeded",
		CreatedAt:    now.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	allowed, msg := limiter.Check(ctx, "user-1")
	if !allowed {
		t.Fatalf("expected expired block to be ignored, got rejection: %s", msg)
	}
}

func TestRateLimiterPenaltySteps(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		penalty float64
	}{
		{"empty window", 0, 0},
		{"below half", 4, 0},
		{"half", 5, 0.15},
		{"seventy percent", 7, 0.30},
		{"near limit", 9, 0.50},
		{"at limit", 10, 0.70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			limiter := newTestLimiter(t, store, now)
			ctx := context.Background()

			for i := 0; i < tt.count; i++ {
				if err := store.RecordActivity(ctx, "user-1", now.Add(-time.Duration(i+1)*time.Minute)); err != nil {
					t.Fatal(err)
				}
			}

			if got := limiter.Penalty(ctx, "user-1"); got != tt.penalty {
				t.Errorf("Penalty() with %d submissions = %v, want %v", tt.count, got, tt.penalty)
			}
		})
	}
}

func TestRateLimiterSuspiciousShortGaps(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	// Four submissions two seconds apart: three sub-5s gaps.
	for i := 0; i < 4; i++ {
		if err := store.RecordActivity(ctx, "burster", now.Add(-time.Duration(i)*2*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	if !limiter.IsSuspicious(ctx, "burster") {
		t.Error("expected rapid-fire gaps to be flagged as suspicious")
	}
}

func TestRateLimiterSuspiciousDenseWindow(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	// Five submissions inside the trailing five minutes, but with gaps
	// too wide to trip the short-gap rule.
	for i := 0; i < 5; i++ {
		if err := store.RecordActivity(ctx, "dense", now.Add(-time.Duration(i)*50*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	if !limiter.IsSuspicious(ctx, "dense") {
		t.Error("expected five submissions in five minutes to be flagged")
	}
}

func TestRateLimiterNotSuspiciousWhenSpaced(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, store, now)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := store.RecordActivity(ctx, "steady", now.Add(-time.Duration(i)*10*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	if limiter.IsSuspicious(ctx, "steady") {
		t.Error("expected well-spaced submissions to pass")
	}
}

// failingActivityStore errors on every call; used to pin down the
// fail-open/fail-closed split.
type failingActivityStore struct{}

var errStoreDown = errors.New("store down")

func (failingActivityStore) RecordActivity(context.Context, string, time.Time) error {
	return errStoreDown
}
func (failingActivityStore) CountActivity(context.Context, string, time.Time) (int, error) {
	return 0, errStoreDown
}
func (failingActivityStore) RecentActivity(context.Context, string, int) ([]time.Time, error) {
	return nil, errStoreDown
}
func (failingActivityStore) ActiveBlock(context.Context, string, time.Time) (*models.BlockRecord, error) {
	return nil, errStoreDown
}
func (failingActivityStore) CreateBlock(context.Context, *models.BlockRecord) error {
	return errStoreDown
}
func (failingActivityStore) DeleteExpiredBlocks(context.Context, time.Time) (int, error) {
	return 0, errStoreDown
}

func TestRateLimiterFailsClosedOnBlockLookup(t *testing.T) {
	limiter := NewRateLimiter(failingActivityStore{}, testRateConfig(), zap.NewNop())

	allowed, msg := limiter.Check(context.Background(), "user-1")
	if allowed {
		t.Error("expected rejection when block status is unreadable")
	}
	if msg == "" {
		t.Error("expected an explanatory message")
	}
}

func TestRateLimiterPenaltyFailsOpen(t *testing.T) {
	limiter := NewRateLimiter(failingActivityStore{}, testRateConfig(), zap.NewNop())

	if got := limiter.Penalty(context.Background(), "user-1"); got != 0 {
		t.Errorf("Penalty() on store failure = %v, want 0", got)
	}
	if limiter.IsSuspicious(context.Background(), "user-1") {
		t.Error("IsSuspicious() on store failure should report false")
	}
}
