package models

// VerificationDetails is the full cross-verification result attached
// to a decision record.
type VerificationDetails struct {
	Score              float64  `json:"score"`
	Sources            int      `json:"sources"`
	UniqueSubmitters   int      `json:"unique_submitters"`
	TotalReports       int      `json:"total_reports"`
	MeanDistanceKM     float64  `json:"mean_distance_km"`
	TemporalSpreadMin  float64  `json:"temporal_spread_min"`
	Diversity          float64  `json:"diversity"`
	TypeConflicts      []string `json:"type_conflicts,omitempty"`
	SeverityConflicts  []string `json:"severity_conflicts,omitempty"`
	VerifiedSources    []string `json:"verified_sources,omitempty"`
	ConflictingSources []string `json:"conflicting_sources,omitempty"`
	Consensus          string   `json:"consensus"`
	Explanation        string   `json:"explanation"`
}

// DecisionMetadata carries auxiliary per-decision facts.
type DecisionMetadata struct {
	RatePenalty       float64  `json:"rate_penalty"`
	DuplicatePenalty  float64  `json:"duplicate_penalty"`
	AdditionalSignals []string `json:"additional_signals,omitempty"`
	CrisisType        string   `json:"crisis_type"`
	ResponseTimeMS    int64    `json:"response_time_ms"`
}

// DecisionRecord is the outbound result returned for every processed
// alert, including early rejects.
type DecisionRecord struct {
	Verified          bool                 `json:"verified"`
	TrustScore        float64              `json:"trust_score"`
	Decision          string               `json:"decision"`
	Status            string               `json:"status"`
	SubmitterID       string               `json:"submitter_id"`
	AlertID           string               `json:"alert_id"`
	Reputation        float64              `json:"reputation"`
	CrossVerification *VerificationDetails `json:"cross_verification,omitempty"`
	Components        ScoreComponents      `json:"components"`
	Explanation       string               `json:"explanation"`
	Metadata          DecisionMetadata     `json:"metadata"`
}

// Status values carried alongside the decision.
const (
	StatusAutoVerified = "auto_verified"
	StatusNeedsReview  = "needs_review"
	StatusUncertain    = "uncertain"
	StatusRejected     = "rejected"
	StatusRateLimited  = "rate_limited"
	StatusDuplicate    = "duplicate"
)

// AllocationRequest is the payload sent to the downstream resource
// allocation service when an alert is verified.
type AllocationRequest struct {
	AlertID        string   `json:"alert_id"`
	CrisisType     string   `json:"crisis_type"`
	Location       string   `json:"location"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Severity       string   `json:"severity"`
	RequiredSkills []string `json:"required_skills"`
}
