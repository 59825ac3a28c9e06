package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

type reputationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReputationRepository creates the PostgreSQL-backed reputation
// repository. Reputation events are append-only and unbounded; callers
// read them through RecentEvents.
func NewReputationRepository(db *sqlx.DB, logger *zap.Logger) ReputationRepository {
	return &reputationRepository{db: db, logger: logger}
}

func (r *reputationRepository) GetSubmitter(ctx context.Context, submitterID string) (*models.SubmitterReputation, error) {
	var rep models.SubmitterReputation
	query := `
		SELECT submitter_id, score, total_reports, accurate_reports, false_reports, last_updated
		FROM submitter_reputations WHERE submitter_id = $1
	`
	err := r.db.GetContext(ctx, &rep, query, submitterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get submitter reputation: %w", err)
	}
	return &rep, nil
}

func (r *reputationRepository) CreateSubmitter(ctx context.Context, rep *models.SubmitterReputation) error {
	query := `
		INSERT INTO submitter_reputations (submitter_id, score, total_reports, accurate_reports, false_reports, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (submitter_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, rep.SubmitterID, rep.Score,
		rep.TotalReports, rep.AccurateReports, rep.FalseReports, rep.LastUpdated)
	if err != nil {
		return fmt.Errorf("create submitter reputation: %w", err)
	}
	return nil
}

func (r *reputationRepository) UpdateSubmitter(ctx context.Context, rep *models.SubmitterReputation) error {
	query := `
		UPDATE submitter_reputations
		SET score = $1, total_reports = $2, accurate_reports = $3, false_reports = $4, last_updated = $5
		WHERE submitter_id = $6
	`
	_, err := r.db.ExecContext(ctx, query, rep.Score, rep.TotalReports,
		rep.AccurateReports, rep.FalseReports, rep.LastUpdated, rep.SubmitterID)
	if err != nil {
		return fmt.Errorf("update submitter reputation: %w", err)
	}
	return nil
}

func (r *reputationRepository) AppendEvent(ctx context.Context, event *models.ReputationEvent) error {
	query := `
		INSERT INTO reputation_events (submitter_id, was_accurate, old_score, new_score, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, event.SubmitterID, event.WasAccurate,
		event.OldScore, event.NewScore, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("append reputation event: %w", err)
	}
	return nil
}

func (r *reputationRepository) RecentEvents(ctx context.Context, submitterID string, limit int) ([]*models.ReputationEvent, error) {
	var events []*models.ReputationEvent
	query := `
		SELECT id, submitter_id, was_accurate, old_score, new_score, created_at
		FROM reputation_events
		WHERE submitter_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &events, query, submitterID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent reputation events: %w", err)
	}
	return events, nil
}

func (r *reputationRepository) GetSource(ctx context.Context, sourceID string) (*models.SourceReputation, error) {
	var src models.SourceReputation
	query := `SELECT source_id, score, last_updated FROM source_reputations WHERE source_id = $1`
	err := r.db.GetContext(ctx, &src, query, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source reputation: %w", err)
	}
	return &src, nil
}

func (r *reputationRepository) UpsertSource(ctx context.Context, src *models.SourceReputation) error {
	query := `
		INSERT INTO source_reputations (source_id, score, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id) DO UPDATE SET score = EXCLUDED.score, last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.ExecContext(ctx, query, src.SourceID, src.Score, src.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert source reputation: %w", err)
	}
	return nil
}
