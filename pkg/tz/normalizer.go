package tz

import (
	"fmt"
	"time"
)

// Normalizer converts the organization's local wall-clock times to instants
// and back. The platform runs on a single fixed timezone, so every boundary
// conversion goes through one shared Normalizer.
//
// DST handling: conversions delegate to time.Date in the configured location.
// Nonexistent local times (the spring-forward gap) normalize forward onto the
// new offset, and ambiguous times (the fall-back hour) resolve to a single
// deterministic offset, so repeated calls with the same input always yield
// the same instant.
type Normalizer struct {
	loc *time.Location
}

// New loads the IANA timezone and returns a Normalizer bound to it.
func New(name string) (*Normalizer, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", name, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Location exposes the underlying location for callers that format output.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ToInstant converts a local calendar date plus time of day into an instant.
func (n *Normalizer) ToInstant(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, n.loc)
}

// DateToInstant anchors a plain date at local midnight.
func (n *Normalizer) DateToInstant(year int, month time.Month, day int) time.Time {
	return n.ToInstant(year, month, day, 0, 0)
}

// ToLocal converts an instant back into local date and time-of-day parts.
func (n *Normalizer) ToLocal(instant time.Time) (year int, month time.Month, day, hour, minute int) {
	local := instant.In(n.loc)
	return local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute()
}

// AtTimeOfDay places a wall-clock "HH:MM" onto the given date in the
// organization's timezone.
func (n *Normalizer) AtTimeOfDay(date time.Time, timeOfDay string) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	local := date.In(n.loc)
	return n.ToInstant(local.Year(), local.Month(), local.Day(), hour, minute), nil
}

// ParseDate parses a local "YYYY-MM-DD" string into an instant at local midnight.
func (n *Normalizer) ParseDate(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation("2006-01-02", raw, n.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return parsed, nil
}

// ParseTimeOfDay parses a wall-clock "HH:MM" string.
func ParseTimeOfDay(raw string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// FormatTimeOfDay renders an instant's local wall-clock as "HH:MM".
func (n *Normalizer) FormatTimeOfDay(instant time.Time) string {
	return instant.In(n.loc).Format("15:04")
}
