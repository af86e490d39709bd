package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// AvailabilityRuleRepository manages persistence for weekly availability rules.
type AvailabilityRuleRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRuleRepository constructs an AvailabilityRuleRepository.
func NewAvailabilityRuleRepository(db *sqlx.DB) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{db: db}
}

// ListByTutor returns every rule for the tutor ordered by day and start time.
func (r *AvailabilityRuleRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityRule, error) {
	const query = `SELECT id, tutor_id, day_of_week, start_time, end_time, created_at, updated_at
		FROM availability_rules WHERE tutor_id = $1 ORDER BY day_of_week, start_time`
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, tutorID); err != nil {
		return nil, fmt.Errorf("list rules for tutor %s: %w", tutorID, err)
	}
	return rules, nil
}

// ListByTutorAndDay narrows to rules for a single weekday.
func (r *AvailabilityRuleRepository) ListByTutorAndDay(ctx context.Context, tutorID string, day models.Weekday) ([]models.AvailabilityRule, error) {
	const query = `SELECT id, tutor_id, day_of_week, start_time, end_time, created_at, updated_at
		FROM availability_rules WHERE tutor_id = $1 AND day_of_week = $2 ORDER BY start_time`
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, tutorID, day); err != nil {
		return nil, fmt.Errorf("list rules for tutor %s on %s: %w", tutorID, day, err)
	}
	return rules, nil
}

// Create inserts a new availability rule.
func (r *AvailabilityRuleRepository) Create(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `INSERT INTO availability_rules (id, tutor_id, day_of_week, start_time, end_time, created_at, updated_at)
		VALUES (:id, :tutor_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

// Delete removes a rule owned by the tutor.
func (r *AvailabilityRuleRepository) Delete(ctx context.Context, tutorID, ruleID string) error {
	const query = `DELETE FROM availability_rules WHERE id = $1 AND tutor_id = $2`
	if _, err := r.db.ExecContext(ctx, query, ruleID, tutorID); err != nil {
		return fmt.Errorf("delete availability rule %s: %w", ruleID, err)
	}
	return nil
}
