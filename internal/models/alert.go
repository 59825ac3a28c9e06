package models

import (
	"time"

	"github.com/google/uuid"
)

// Crisis severity levels, ordered from least to most severe.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityLevel maps a severity label to its ordinal level.
// Returns 0 for unknown labels so callers can skip comparisons.
func SeverityLevel(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Alert represents a crisis report stored in the 'alerts' table.
// It arrives already parsed and classified; trust_score, verified and
// decision are written once after the engine decides.
type Alert struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	SubmitterID        string    `db:"submitter_id" json:"submitter_id"`
	CrisisType         string    `db:"crisis_type" json:"crisis_type"`
	Severity           string    `db:"severity" json:"severity"`
	Location           string    `db:"location" json:"location"`
	Latitude           *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64  `db:"longitude" json:"longitude,omitempty"`
	Message            string    `db:"message" json:"message"`
	HasAttachment      bool      `db:"has_attachment" json:"has_attachment"`
	HasPreciseLocation bool      `db:"has_precise_location" json:"has_precise_location"`
	TrustScore         *float64  `db:"trust_score" json:"trust_score,omitempty"`
	Verified           bool      `db:"verified" json:"verified"`
	Decision           string    `db:"decision" json:"decision"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// HasCoordinates reports whether the alert carries a usable lat/lon pair.
func (a *Alert) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}
