package models

import (
	"time"

	"github.com/google/uuid"
)

// Decisions the engine can reach for an alert.
const (
	DecisionVerified  = "VERIFIED"
	DecisionReview    = "REVIEW"
	DecisionUncertain = "UNCERTAIN"
	DecisionRejected  = "REJECTED"
)

// Consensus levels summarizing corroboration strength.
const (
	ConsensusHigh   = "HIGH"
	ConsensusMedium = "MEDIUM"
	ConsensusLow    = "LOW"
)

// VerificationLogEntry records one cross-verification pass, stored
// append-only in 'verification_logs'.
type VerificationLogEntry struct {
	ID                 int64     `db:"id" json:"id"`
	AlertID            uuid.UUID `db:"alert_id" json:"alert_id"`
	PrimarySource      string    `db:"primary_source" json:"primary_source"`
	VerifiedSources    []string  `db:"-" json:"verified_sources"`
	ConflictingSources []string  `db:"-" json:"conflicting_sources"`
	VerificationScore  float64   `db:"verification_score" json:"verification_score"`
	ConsensusLevel     string    `db:"consensus_level" json:"consensus_level"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// ScoreComponents breaks a trust score into its audited parts. A
// reviewer must be able to recompute the final score from these alone.
type ScoreComponents struct {
	CrossScore             float64 `json:"cross_score"`
	CrossWeighted          float64 `json:"cross_weighted"`
	ReputationContribution float64 `json:"reputation_contribution"`
	ReputationWeighted     float64 `json:"reputation_weighted"`
	DuplicatePenalty       float64 `json:"duplicate_penalty"`
	DuplicateWeighted      float64 `json:"duplicate_weighted"`
	RatePenalty            float64 `json:"rate_penalty"`
	RateWeighted           float64 `json:"rate_weighted"`
	BonusSignals           float64 `json:"bonus_signals"`
	HistoricalBoost        float64 `json:"historical_boost"`
	Base                   float64 `json:"base"`
	Final                  float64 `json:"final"`
}

// DecisionAuditEntry is the append-only record of one decision, stored
// in 'decision_audits'. It is the sole source of truth for "why".
type DecisionAuditEntry struct {
	ID          int64           `db:"id" json:"id"`
	AlertID     uuid.UUID       `db:"alert_id" json:"alert_id"`
	SubmitterID string          `db:"submitter_id" json:"submitter_id"`
	Decision    string          `db:"decision" json:"decision"`
	TrustScore  float64         `db:"trust_score" json:"trust_score"`
	Components  ScoreComponents `db:"-" json:"components"`
	Reasoning   string          `db:"reasoning" json:"reasoning"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ReviewedBy  *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNote  *string         `db:"review_note" json:"review_note,omitempty"`
}
