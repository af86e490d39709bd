package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// TimeOffRepository reads tutor time-off windows. Requests themselves are
// managed by the tutor self-service surface; scheduling only consumes the
// approved ones.
type TimeOffRepository struct {
	db *sqlx.DB
}

// NewTimeOffRepository constructs a TimeOffRepository.
func NewTimeOffRepository(db *sqlx.DB) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

// ListApprovedInRange returns approved time-off windows overlapping [from, to).
func (r *TimeOffRepository) ListApprovedInRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.TimeOff, error) {
	const query = `SELECT id, tutor_id, start_at, end_at, status, reason, created_at, updated_at
		FROM time_off
		WHERE tutor_id = $1 AND status = $2 AND start_at < $4 AND end_at > $3
		ORDER BY start_at`
	var windows []models.TimeOff
	if err := r.db.SelectContext(ctx, &windows, query, tutorID, models.TimeOffApproved, from, to); err != nil {
		return nil, fmt.Errorf("list time off for tutor %s: %w", tutorID, err)
	}
	return windows, nil
}
