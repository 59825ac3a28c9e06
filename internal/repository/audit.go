package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

type auditRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAuditRepository creates the PostgreSQL-backed append-only audit
// repository.
func NewAuditRepository(db *sqlx.DB, logger *zap.Logger) AuditRepository {
	return &auditRepository{db: db, logger: logger}
}

func (r *auditRepository) SaveVerificationLog(ctx context.Context, entry *models.VerificationLogEntry) error {
	query := `
		INSERT INTO verification_logs (alert_id, primary_source, verified_sources, conflicting_sources,
		                               verification_score, consensus_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, entry.AlertID, entry.PrimarySource,
		pq.Array(entry.VerifiedSources), pq.Array(entry.ConflictingSources),
		entry.VerificationScore, entry.ConsensusLevel, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("save verification log: %w", err)
	}
	return nil
}

func (r *auditRepository) SaveDecisionAudit(ctx context.Context, entry *models.DecisionAuditEntry) error {
	components, err := json.Marshal(entry.Components)
	if err != nil {
		return fmt.Errorf("marshal score components: %w", err)
	}
	query := `
		INSERT INTO decision_audits (alert_id, submitter_id, decision, trust_score, components, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`
	err = r.db.QueryRowxContext(ctx, query, entry.AlertID, entry.SubmitterID,
		entry.Decision, entry.TrustScore, components, entry.Reasoning, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("save decision audit: %w", err)
	}
	return nil
}

func (r *auditRepository) GetDecisionAudit(ctx context.Context, alertID uuid.UUID) (*models.DecisionAuditEntry, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, alert_id, submitter_id, decision, trust_score, components, reasoning, created_at, reviewed_by, review_note
		FROM decision_audits
		WHERE alert_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, alertID)

	var entry models.DecisionAuditEntry
	var components []byte
	err := row.Scan(&entry.ID, &entry.AlertID, &entry.SubmitterID, &entry.Decision,
		&entry.TrustScore, &components, &entry.Reasoning, &entry.CreatedAt,
		&entry.ReviewedBy, &entry.ReviewNote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get decision audit: %w", err)
	}
	if err := json.Unmarshal(components, &entry.Components); err != nil {
		r.logger.Error("Failed to unmarshal audit components",
			zap.String("alert_id", alertID.String()), zap.Error(err))
	}
	return &entry, nil
}
