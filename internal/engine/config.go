package engine

import (
	"time"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/config"
)

// Adapters from the application config to per-component settings.

// RateLimitConfigFrom extracts rate limiter settings.
func RateLimitConfigFrom(cfg *config.Config) RateLimitConfig {
	return RateLimitConfig{
		MaxPerHour:    cfg.RateLimit.MaxPerHour,
		MaxPerDay:     cfg.RateLimit.MaxPerDay,
		BlockDuration: time.Duration(cfg.RateLimit.BlockMinutes) * time.Minute,
	}
}

// DuplicateConfigFrom extracts duplicate detector settings.
func DuplicateConfigFrom(cfg *config.Config) DuplicateConfig {
	return DuplicateConfig{
		Window:                  time.Duration(cfg.Duplicate.WindowMinutes) * time.Minute,
		MaxEntries:              cfg.Duplicate.MaxEntries,
		OverlapThreshold:        cfg.Duplicate.OverlapThreshold,
		ExactPenalty:            cfg.Duplicate.ExactPenalty,
		NearPenalty:             cfg.Duplicate.NearPenalty,
		CorroborationWindow:     time.Duration(cfg.Duplicate.CorroborationMinutes) * time.Minute,
		CorroborationMinReports: cfg.Duplicate.CorroborationMinReports,
		CorroborationBonus:      cfg.Duplicate.CorroborationBonus,
	}
}

// ReputationConfigFrom extracts reputation settings.
func ReputationConfigFrom(cfg *config.Config) ReputationConfig {
	return ReputationConfig{
		Initial:           cfg.Reputation.Initial,
		Min:               cfg.Reputation.Min,
		Max:               cfg.Reputation.Max,
		AccurateGain:      cfg.Reputation.AccurateGain,
		InaccurateDecay:   cfg.Reputation.InaccurateDecay,
		InaccuratePenalty: cfg.Reputation.InaccuratePenalty,
		SourceDecay:       cfg.Reputation.SourceDecay,
		SourceStep:        cfg.Reputation.SourceStep,
	}
}

// VerifyConfigFrom extracts cross-verification settings.
func VerifyConfigFrom(cfg *config.Config) VerifyConfig {
	return VerifyConfig{
		Window:           time.Duration(cfg.Verification.WindowMinutes) * time.Minute,
		RadiusKM:         cfg.Verification.RadiusKM,
		MinSourcesHigh:   cfg.Verification.MinSourcesHigh,
		MinSourcesMedium: cfg.Verification.MinSourcesMedium,
	}
}

// ScoringConfigFrom extracts trust scorer settings.
func ScoringConfigFrom(cfg *config.Config) ScoringConfig {
	return ScoringConfig{
		WCross:            cfg.Scoring.WCross,
		WReputation:       cfg.Scoring.WReputation,
		WDuplicate:        cfg.Scoring.WDuplicate,
		WRate:             cfg.Scoring.WRate,
		AutoVerify:        cfg.Scoring.AutoVerify,
		NeedsReview:       cfg.Scoring.NeedsReview,
		Reject:            cfg.Scoring.Reject,
		CriticalDelta:     cfg.Scoring.CriticalDelta,
		HighDelta:         cfg.Scoring.HighDelta,
		OtherDelta:        cfg.Scoring.OtherDelta,
		HistoryDecay:      cfg.Scoring.HistoryDecay,
		HistoryWindow:     cfg.Scoring.HistoryWindow,
		HistoryMinEntries: cfg.Scoring.HistoryMinEntries,
	}
}
