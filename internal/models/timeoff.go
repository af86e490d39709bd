package models

import "time"

// TimeOffStatus enumerates approval states for a time-off request.
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffRejected TimeOffStatus = "rejected"
)

// TimeOff is a tutor's blocked window. Only approved records block scheduling.
type TimeOff struct {
	ID        string        `db:"id" json:"id"`
	TutorID   string        `db:"tutor_id" json:"tutor_id"`
	StartAt   time.Time     `db:"start_at" json:"start_at"`
	EndAt     time.Time     `db:"end_at" json:"end_at"`
	Status    TimeOffStatus `db:"status" json:"status"`
	Reason    *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
