package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonStatus enumerates lesson lifecycle states.
type LessonStatus string

const (
	LessonScheduled  LessonStatus = "scheduled"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
	LessonCancelled  LessonStatus = "cancelled"
)

// ActiveLessonStatuses are the states that occupy a tutor's time. Cancelled
// lessons free their slot immediately; completed ones are in the past.
var ActiveLessonStatuses = []LessonStatus{LessonScheduled, LessonInProgress}

// Lesson is a concrete booked session with a tutor.
type Lesson struct {
	ID                  string         `db:"id" json:"id"`
	TutorID             string         `db:"tutor_id" json:"tutor_id"`
	SubjectID           string         `db:"subject_id" json:"subject_id"`
	StudentIDs          pq.StringArray `db:"student_ids" json:"student_ids"`
	StartAt             time.Time      `db:"start_at" json:"start_at"`
	EndAt               time.Time      `db:"end_at" json:"end_at"`
	Status              LessonStatus   `db:"status" json:"status"`
	RecurringGroupID    *string        `db:"recurring_group_id" json:"recurring_group_id,omitempty"`
	IsRecurringInstance bool           `db:"is_recurring_instance" json:"is_recurring_instance"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// Duration is the lesson's booked length.
func (l Lesson) Duration() time.Duration {
	return l.EndAt.Sub(l.StartAt)
}
