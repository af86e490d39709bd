package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// RecurringGroupRepository manages persistence for recurring lesson groups.
type RecurringGroupRepository struct {
	db *sqlx.DB
}

// NewRecurringGroupRepository constructs a RecurringGroupRepository.
func NewRecurringGroupRepository(db *sqlx.DB) *RecurringGroupRepository {
	return &RecurringGroupRepository{db: db}
}

// Create inserts a new recurring group.
func (r *RecurringGroupRepository) Create(ctx context.Context, group *models.RecurringGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO recurring_groups (id, origin_lesson_id, interval, next_extension_date, created_at, updated_at)
		VALUES (:id, :origin_lesson_id, :interval, :next_extension_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create recurring group: %w", err)
	}
	return nil
}

// FindByID fetches a recurring group by ID.
func (r *RecurringGroupRepository) FindByID(ctx context.Context, id string) (*models.RecurringGroup, error) {
	const query = `SELECT id, origin_lesson_id, interval, next_extension_date, created_at, updated_at
		FROM recurring_groups WHERE id = $1`
	var group models.RecurringGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateNextExtension advances the group's extension marker. Only called after
// a fully successful extension so a failed run retries the same window.
func (r *RecurringGroupRepository) UpdateNextExtension(ctx context.Context, id string, next time.Time) error {
	const query = `UPDATE recurring_groups SET next_extension_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, next, time.Now().UTC()); err != nil {
		return fmt.Errorf("update recurring group %s: %w", id, err)
	}
	return nil
}

// ListDueForExtension returns groups whose extension marker has passed.
func (r *RecurringGroupRepository) ListDueForExtension(ctx context.Context, now time.Time) ([]models.RecurringGroup, error) {
	const query = `SELECT id, origin_lesson_id, interval, next_extension_date, created_at, updated_at
		FROM recurring_groups WHERE next_extension_date <= $1 ORDER BY next_extension_date`
	var groups []models.RecurringGroup
	if err := r.db.SelectContext(ctx, &groups, query, now); err != nil {
		return nil, fmt.Errorf("list due recurring groups: %w", err)
	}
	return groups, nil
}
