package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type lessonReader interface {
	ListActiveInRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error)
}

type timeOffReader interface {
	ListApprovedInRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.TimeOff, error)
}

// ConflictChecker decides whether a candidate interval collides with a
// tutor's existing lessons or approved time off. Lookup failures surface as
// conflicts so a degraded dependency can never over-report availability.
type ConflictChecker struct {
	lessons lessonReader
	timeOff timeOffReader
}

// NewConflictChecker constructs a ConflictChecker.
func NewConflictChecker(lessons lessonReader, timeOff timeOffReader) *ConflictChecker {
	return &ConflictChecker{lessons: lessons, timeOff: timeOff}
}

// TutorBusy is a point-in-time snapshot of everything blocking a tutor within
// a range. One snapshot serves many per-slot checks for the same tutor/day.
type TutorBusy struct {
	Lessons []models.Lesson
	TimeOff []models.TimeOff
}

// Snapshot loads the tutor's active lessons and approved time off for [from, to).
func (c *ConflictChecker) Snapshot(ctx context.Context, tutorID string, from, to time.Time) (*TutorBusy, error) {
	lessons, err := c.lessons.ListActiveInRange(ctx, tutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load lessons for tutor %s: %w", tutorID, err)
	}
	timeOff, err := c.timeOff.ListApprovedInRange(ctx, tutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load time off for tutor %s: %w", tutorID, err)
	}
	return &TutorBusy{Lessons: lessons, TimeOff: timeOff}, nil
}

// ConflictsWithLesson reports whether the interval hits an active lesson.
func (b *TutorBusy) ConflictsWithLesson(start, end time.Time) bool {
	for _, lesson := range b.Lessons {
		if Overlaps(start, end, lesson.StartAt, lesson.EndAt) {
			return true
		}
	}
	return false
}

// ConflictsWithTimeOff reports whether the interval hits approved time off.
func (b *TutorBusy) ConflictsWithTimeOff(start, end time.Time) bool {
	for _, window := range b.TimeOff {
		if Overlaps(start, end, window.StartAt, window.EndAt) {
			return true
		}
	}
	return false
}

// Conflicts reports whether the interval hits anything blocking.
func (b *TutorBusy) Conflicts(start, end time.Time) bool {
	return b.ConflictsWithLesson(start, end) || b.ConflictsWithTimeOff(start, end)
}

// HasConflict runs a one-shot check for a single interval. A failed lookup
// returns true alongside the error: busy is the fail-safe answer.
func (c *ConflictChecker) HasConflict(ctx context.Context, tutorID string, start, end time.Time) (bool, error) {
	busy, err := c.Snapshot(ctx, tutorID, start, end)
	if err != nil {
		return true, err
	}
	return busy.Conflicts(start, end), nil
}
