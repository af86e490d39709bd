package models

import (
	"fmt"
	"strings"
	"time"
)

// RecurrenceInterval is the cadence of a recurring lesson series.
type RecurrenceInterval string

const (
	RecurDaily    RecurrenceInterval = "daily"
	RecurWeekly   RecurrenceInterval = "weekly"
	RecurBiweekly RecurrenceInterval = "biweekly"
	RecurMonthly  RecurrenceInterval = "monthly"
)

// ParseRecurrenceInterval normalizes and validates a raw interval string.
func ParseRecurrenceInterval(raw string) (RecurrenceInterval, error) {
	switch RecurrenceInterval(strings.ToLower(strings.TrimSpace(raw))) {
	case RecurDaily:
		return RecurDaily, nil
	case RecurWeekly:
		return RecurWeekly, nil
	case RecurBiweekly:
		return RecurBiweekly, nil
	case RecurMonthly:
		return RecurMonthly, nil
	default:
		return "", fmt.Errorf("unknown recurrence interval %q", raw)
	}
}

// Step returns the fixed duration between consecutive instances. Monthly is
// a fixed 30-day step, not calendar-month arithmetic; monthly instances may
// drift across weekdays over a long series.
func (i RecurrenceInterval) Step() time.Duration {
	switch i {
	case RecurDaily:
		return 24 * time.Hour
	case RecurWeekly:
		return 7 * 24 * time.Hour
	case RecurBiweekly:
		return 14 * 24 * time.Hour
	case RecurMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// RecurringGroup ties an origin lesson to its generated series and tracks how
// far the series has been materialized. Mutated only by the materializer.
type RecurringGroup struct {
	ID                string             `db:"id" json:"id"`
	OriginLessonID    string             `db:"origin_lesson_id" json:"origin_lesson_id"`
	Interval          RecurrenceInterval `db:"interval" json:"interval"`
	NextExtensionDate time.Time          `db:"next_extension_date" json:"next_extension_date"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}
