package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

// matchQueryLimit caps similarity query results so a report flood
// cannot blow up cross-verification.
const matchQueryLimit = 200

type alertRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAlertRepository creates the PostgreSQL-backed alert repository.
func NewAlertRepository(db *sqlx.DB, logger *zap.Logger) AlertRepository {
	return &alertRepository{db: db, logger: logger}
}

func (r *alertRepository) SaveAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, submitter_id, crisis_type, severity, location, latitude, longitude,
		                    message, has_attachment, has_precise_location, trust_score, verified, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.SubmitterID, alert.CrisisType, alert.Severity, alert.Location,
		alert.Latitude, alert.Longitude, alert.Message, alert.HasAttachment,
		alert.HasPreciseLocation, alert.TrustScore, alert.Verified, alert.Decision, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

func (r *alertRepository) GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	query := `
		SELECT id, submitter_id, crisis_type, severity, location, latitude, longitude,
		       message, has_attachment, has_precise_location, trust_score, verified, decision, created_at
		FROM alerts WHERE id = $1
	`
	err := r.db.GetContext(ctx, &alert, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &alert, nil
}

func (r *alertRepository) UpdateAlertDecision(ctx context.Context, id uuid.UUID, trustScore float64, verified bool, decision string) error {
	query := `UPDATE alerts SET trust_score = $1, verified = $2, decision = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, trustScore, verified, decision, id)
	if err != nil {
		return fmt.Errorf("update alert decision: %w", err)
	}
	return nil
}

func (r *alertRepository) FindMatching(ctx context.Context, crisisType string, since time.Time, excludeSubmitter string) ([]*models.Alert, error) {
	var alerts []*models.Alert
	query := `
		SELECT id, submitter_id, crisis_type, severity, location, latitude, longitude,
		       message, has_attachment, has_precise_location, trust_score, verified, decision, created_at
		FROM alerts
		WHERE crisis_type = $1 AND created_at >= $2 AND submitter_id <> $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	err := r.db.SelectContext(ctx, &alerts, query, crisisType, since, excludeSubmitter, matchQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("find matching alerts: %w", err)
	}
	return alerts, nil
}

func (r *alertRepository) FindNearby(ctx context.Context, location string, since time.Time, excludeSubmitter string) ([]*models.Alert, error) {
	var alerts []*models.Alert
	query := `
		SELECT id, submitter_id, crisis_type, severity, location, latitude, longitude,
		       message, has_attachment, has_precise_location, trust_score, verified, decision, created_at
		FROM alerts
		WHERE location = $1 AND created_at >= $2 AND submitter_id <> $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	err := r.db.SelectContext(ctx, &alerts, query, location, since, excludeSubmitter, matchQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("find nearby alerts: %w", err)
	}
	return alerts, nil
}
