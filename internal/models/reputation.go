package models

import "time"

// SubmitterReputation tracks per-submitter reliability, stored in the
// 'submitter_reputations' table. One row per submitter, lazily created
// at the configured initial score, never deleted.
type SubmitterReputation struct {
	SubmitterID     string    `db:"submitter_id" json:"submitter_id"`
	Score           float64   `db:"score" json:"score"`
	TotalReports    int       `db:"total_reports" json:"total_reports"`
	AccurateReports int       `db:"accurate_reports" json:"accurate_reports"`
	FalseReports    int       `db:"false_reports" json:"false_reports"`
	LastUpdated     time.Time `db:"last_updated" json:"last_updated"`
}

// ReputationEvent is an append-only record of one reputation change,
// stored in 'reputation_events'. Feeds the time-decayed historical
// boost. Retention is unbounded (unlike the pruned duplicate window);
// the asymmetry is inherited from the original behavior.
type ReputationEvent struct {
	ID          int64     `db:"id" json:"id"`
	SubmitterID string    `db:"submitter_id" json:"submitter_id"`
	WasAccurate bool      `db:"was_accurate" json:"was_accurate"`
	OldScore    float64   `db:"old_score" json:"old_score"`
	NewScore    float64   `db:"new_score" json:"new_score"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SourceReputation tracks reliability of non-human sources (feeds,
// agencies). Updated by a symmetric exponential rule rather than the
// gap-to-max rule used for submitters.
type SourceReputation struct {
	SourceID    string    `db:"source_id" json:"source_id"`
	Score       float64   `db:"score" json:"score"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}
