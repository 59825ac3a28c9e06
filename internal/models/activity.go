package models

import "time"

// ActivityRecord marks one accepted submission, stored in
// 'activity_records'. Backs the sliding-window rate counters.
type ActivityRecord struct {
	ID          int64     `db:"id" json:"id"`
	SubmitterID string    `db:"submitter_id" json:"submitter_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// BlockRecord is a temporary submission block, stored in 'blocks'.
// Expired rows are inert and swept by the maintenance job.
type BlockRecord struct {
	ID           int64     `db:"id" json:"id"`
	SubmitterID  string    `db:"submitter_id" json:"submitter_id"`
	BlockedUntil time.Time `db:"blocked_until" json:"blocked_until"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Active reports whether the block is still in force at the given time.
func (b *BlockRecord) Active(now time.Time) bool {
	return b != nil && now.Before(b.BlockedUntil)
}
