package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

type activityRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewActivityRepository creates the PostgreSQL-backed activity and
// block repository.
func NewActivityRepository(db *sqlx.DB, logger *zap.Logger) ActivityRepository {
	return &activityRepository{db: db, logger: logger}
}

func (r *activityRepository) RecordActivity(ctx context.Context, submitterID string, at time.Time) error {
	query := `INSERT INTO activity_records (submitter_id, created_at) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, submitterID, at)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *activityRepository) CountActivity(ctx context.Context, submitterID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activity_records WHERE submitter_id = $1 AND created_at >= $2`
	err := r.db.GetContext(ctx, &count, query, submitterID, since)
	if err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return count, nil
}

func (r *activityRepository) RecentActivity(ctx context.Context, submitterID string, limit int) ([]time.Time, error) {
	var times []time.Time
	query := `
		SELECT created_at FROM activity_records
		WHERE submitter_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &times, query, submitterID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return times, nil
}

func (r *activityRepository) ActiveBlock(ctx context.Context, submitterID string, now time.Time) (*models.BlockRecord, error) {
	var block models.BlockRecord
	query := `
		SELECT id, submitter_id, blocked_until, reason, created_at
		FROM blocks
		WHERE submitter_id = $1 AND blocked_until > $2
		ORDER BY blocked_until DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &block, query, submitterID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active block: %w", err)
	}
	return &block, nil
}

func (r *activityRepository) CreateBlock(ctx context.Context, block *models.BlockRecord) error {
	query := `
		INSERT INTO blocks (submitter_id, blocked_until, reason, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, block.SubmitterID, block.BlockedUntil,
		block.Reason, block.CreatedAt).Scan(&block.ID)
	if err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

func (r *activityRepository) DeleteExpiredBlocks(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE blocked_until <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired blocks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
