package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// AlertRepository persists alerts and answers similarity queries.
type AlertRepository interface {
	SaveAlert(ctx context.Context, alert *models.Alert) error
	GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	UpdateAlertDecision(ctx context.Context, id uuid.UUID, trustScore float64, verified bool, decision string) error
	// FindMatching returns alerts of the same crisis type submitted
	// since the given time, excluding the given submitter.
	FindMatching(ctx context.Context, crisisType string, since time.Time, excludeSubmitter string) ([]*models.Alert, error)
	// FindNearby returns alerts at the same location regardless of
	// crisis type, used for conflict detection.
	FindNearby(ctx context.Context, location string, since time.Time, excludeSubmitter string) ([]*models.Alert, error)
}

// ReputationRepository stores submitter and external-source reliability.
type ReputationRepository interface {
	GetSubmitter(ctx context.Context, submitterID string) (*models.SubmitterReputation, error)
	CreateSubmitter(ctx context.Context, rep *models.SubmitterReputation) error
	UpdateSubmitter(ctx context.Context, rep *models.SubmitterReputation) error
	AppendEvent(ctx context.Context, event *models.ReputationEvent) error
	// RecentEvents returns the newest events first, at most limit.
	RecentEvents(ctx context.Context, submitterID string, limit int) ([]*models.ReputationEvent, error)
	GetSource(ctx context.Context, sourceID string) (*models.SourceReputation, error)
	UpsertSource(ctx context.Context, src *models.SourceReputation) error
}

// ActivityRepository backs sliding-window rate counting and blocks.
type ActivityRepository interface {
	RecordActivity(ctx context.Context, submitterID string, at time.Time) error
	CountActivity(ctx context.Context, submitterID string, since time.Time) (int, error)
	// RecentActivity returns the newest timestamps first, at most limit.
	RecentActivity(ctx context.Context, submitterID string, limit int) ([]time.Time, error)
	// ActiveBlock returns nil, nil when no block is in force.
	ActiveBlock(ctx context.Context, submitterID string, now time.Time) (*models.BlockRecord, error)
	CreateBlock(ctx context.Context, block *models.BlockRecord) error
	DeleteExpiredBlocks(ctx context.Context, now time.Time) (int, error)
}

// AuditRepository appends verification and decision records.
type AuditRepository interface {
	SaveVerificationLog(ctx context.Context, entry *models.VerificationLogEntry) error
	SaveDecisionAudit(ctx context.Context, entry *models.DecisionAuditEntry) error
	GetDecisionAudit(ctx context.Context, alertID uuid.UUID) (*models.DecisionAuditEntry, error)
}

// Store bundles every repository behind one contract so callers can
// swap the durable and in-memory backends.
type Store interface {
	AlertRepository
	ReputationRepository
	ActivityRepository
	AuditRepository
}
