package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the closed set of weekday values used by availability rules.
// Raw day-of-week strings are parsed once at the ingress boundary; everything
// past that point compares Weekday values directly.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayNames = map[string]Weekday{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

// ParseWeekday is the canonical weekday parser. Case-insensitive, full names only.
func ParseWeekday(raw string) (Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown weekday %q", raw)
	}
	return day, nil
}

// WeekdayOf maps a time.Weekday onto the domain enum.
func WeekdayOf(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// AvailabilityRule is a standing weekly teaching commitment. Start and end
// are local wall-clock "HH:MM" strings; the rule never crosses midnight.
type AvailabilityRule struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	DayOfWeek Weekday   `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
