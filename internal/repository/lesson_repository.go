package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// ErrLessonOverlap is returned when a write-time re-check finds the target
// interval already occupied for the tutor.
var ErrLessonOverlap = errors.New("lesson overlaps an existing booking or time off")

const lessonColumns = "id, tutor_id, subject_id, student_ids, start_at, end_at, status, recurring_group_id, is_recurring_instance, created_at, updated_at"

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE id = $1", lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListActiveInRange returns scheduled and in-progress lessons for the tutor
// overlapping [from, to).
func (r *LessonRepository) ListActiveInRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
		WHERE tutor_id = $1 AND status IN ($2, $3) AND start_at < $5 AND end_at > $4
		ORDER BY start_at`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, tutorID, models.LessonScheduled, models.LessonInProgress, from, to); err != nil {
		return nil, fmt.Errorf("list active lessons for tutor %s: %w", tutorID, err)
	}
	return lessons, nil
}

// ListUpcomingByTutor returns scheduled lessons starting at or after from.
func (r *LessonRepository) ListUpcomingByTutor(ctx context.Context, tutorID string, from time.Time) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
		WHERE tutor_id = $1 AND status = $2 AND start_at >= $3
		ORDER BY start_at`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, tutorID, models.LessonScheduled, from); err != nil {
		return nil, fmt.Errorf("list upcoming lessons for tutor %s: %w", tutorID, err)
	}
	return lessons, nil
}

// ExistsAt reports whether an active lesson for the tutor starts exactly at
// startAt. Used by the materializer's idempotence pre-check.
func (r *LessonRepository) ExistsAt(ctx context.Context, tutorID string, startAt time.Time) (bool, error) {
	const query = `SELECT 1 FROM lessons WHERE tutor_id = $1 AND start_at = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tutorID, startAt, models.LessonScheduled, models.LessonInProgress); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check lesson existence: %w", err)
	}
	return true, nil
}

// Insert stores a single lesson without any conflict validation. Callers on
// the booking path must use InsertWithConflictCheck instead.
func (r *LessonRepository) Insert(ctx context.Context, lesson *models.Lesson) error {
	prepareLesson(lesson)
	const query = `INSERT INTO lessons (id, tutor_id, subject_id, student_ids, start_at, end_at, status, recurring_group_id, is_recurring_instance, created_at, updated_at)
		VALUES (:id, :tutor_id, :subject_id, :student_ids, :start_at, :end_at, :status, :recurring_group_id, :is_recurring_instance, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// InsertBatch stores generated series instances one statement at a time inside
// a transaction. The transaction keeps a crashed batch from leaving holes in
// the middle of a window; the materializer's existence pre-check makes a retry
// of a failed batch safe.
func (r *LessonRepository) InsertBatch(ctx context.Context, lessons []*models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lesson batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO lessons (id, tutor_id, subject_id, student_ids, start_at, end_at, status, recurring_group_id, is_recurring_instance, created_at, updated_at)
		VALUES (:id, :tutor_id, :subject_id, :student_ids, :start_at, :end_at, :status, :recurring_group_id, :is_recurring_instance, :created_at, :updated_at)`
	for _, lesson := range lessons {
		prepareLesson(lesson)
		if _, err := tx.NamedExecContext(ctx, query, lesson); err != nil {
			return fmt.Errorf("insert lesson batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson batch: %w", err)
	}
	return nil
}

// InsertWithConflictCheck re-runs the authoritative overlap check inside a
// transaction and inserts only if the interval is still free. A per-tutor
// advisory lock, held until commit, serializes concurrent bookings for one
// tutor: row locks cannot cover rows that do not exist yet, so two requests
// racing for the same free slot would otherwise both pass the check and both
// insert. The loser gets ErrLessonOverlap.
func (r *LessonRepository) InsertWithConflictCheck(ctx context.Context, lesson *models.Lesson) error {
	prepareLesson(lesson)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := tx.ExecContext(ctx, lockQuery, lesson.TutorID); err != nil {
		return fmt.Errorf("booking tutor lock: %w", err)
	}

	const overlapQuery = `SELECT id FROM lessons
		WHERE tutor_id = $1 AND status IN ($2, $3) AND start_at < $5 AND end_at > $4`
	var taken []string
	if err := tx.SelectContext(ctx, &taken, overlapQuery, lesson.TutorID, models.LessonScheduled, models.LessonInProgress, lesson.StartAt, lesson.EndAt); err != nil {
		return fmt.Errorf("booking overlap check: %w", err)
	}
	if len(taken) > 0 {
		return ErrLessonOverlap
	}

	const timeOffQuery = `SELECT id FROM time_off
		WHERE tutor_id = $1 AND status = $2 AND start_at < $4 AND end_at > $3`
	var blocked []string
	if err := tx.SelectContext(ctx, &blocked, timeOffQuery, lesson.TutorID, models.TimeOffApproved, lesson.StartAt, lesson.EndAt); err != nil {
		return fmt.Errorf("booking time-off check: %w", err)
	}
	if len(blocked) > 0 {
		return ErrLessonOverlap
	}

	const insertQuery = `INSERT INTO lessons (id, tutor_id, subject_id, student_ids, start_at, end_at, status, recurring_group_id, is_recurring_instance, created_at, updated_at)
		VALUES (:id, :tutor_id, :subject_id, :student_ids, :start_at, :end_at, :status, :recurring_group_id, :is_recurring_instance, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, lesson); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// UpdateStatus transitions a lesson's lifecycle state.
func (r *LessonRepository) UpdateStatus(ctx context.Context, id string, status models.LessonStatus) error {
	const query = `UPDATE lessons SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareLesson(lesson *models.Lesson) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
}
