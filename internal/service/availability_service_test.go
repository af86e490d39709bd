package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

type stubTutorDirectory struct {
	tutors []models.Tutor
	err    error
}

func (s *stubTutorDirectory) ListActiveBySubject(_ context.Context, _ string) ([]models.Tutor, error) {
	return s.tutors, s.err
}

type stubRuleStore struct {
	byTutor map[string][]models.AvailabilityRule
	errFor  map[string]error
}

func (s *stubRuleStore) ListByTutor(_ context.Context, tutorID string) ([]models.AvailabilityRule, error) {
	if err := s.errFor[tutorID]; err != nil {
		return nil, err
	}
	return s.byTutor[tutorID], nil
}

func (s *stubRuleStore) ListByTutorAndDay(_ context.Context, tutorID string, day models.Weekday) ([]models.AvailabilityRule, error) {
	if err := s.errFor[tutorID]; err != nil {
		return nil, err
	}
	var rules []models.AvailabilityRule
	for _, rule := range s.byTutor[tutorID] {
		if rule.DayOfWeek == day {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

type perTutorLessonReader struct {
	byTutor map[string][]models.Lesson
	errFor  map[string]error
}

func (s *perTutorLessonReader) ListActiveInRange(_ context.Context, tutorID string, _, _ time.Time) ([]models.Lesson, error) {
	if err := s.errFor[tutorID]; err != nil {
		return nil, err
	}
	return s.byTutor[tutorID], nil
}

type perTutorTimeOffReader struct {
	byTutor map[string][]models.TimeOff
}

func (s *perTutorTimeOffReader) ListApprovedInRange(_ context.Context, tutorID string, _, _ time.Time) ([]models.TimeOff, error) {
	return s.byTutor[tutorID], nil
}

type availabilityFixture struct {
	tutors  *stubTutorDirectory
	rules   *stubRuleStore
	lessons *perTutorLessonReader
	timeOff *perTutorTimeOffReader
	norm    *tz.Normalizer
}

func newAvailabilityFixture(t *testing.T) *availabilityFixture {
	t.Helper()
	norm, err := tz.New("America/New_York")
	require.NoError(t, err)
	return &availabilityFixture{
		tutors:  &stubTutorDirectory{},
		rules:   &stubRuleStore{byTutor: map[string][]models.AvailabilityRule{}, errFor: map[string]error{}},
		lessons: &perTutorLessonReader{byTutor: map[string][]models.Lesson{}, errFor: map[string]error{}},
		timeOff: &perTutorTimeOffReader{byTutor: map[string][]models.TimeOff{}},
		norm:    norm,
	}
}

func (f *availabilityFixture) service() *AvailabilityService {
	checker := NewConflictChecker(f.lessons, f.timeOff)
	expander := NewSlotExpander(f.norm, 30*time.Minute, zap.NewNop())
	return NewAvailabilityService(f.tutors, f.rules, checker, expander, f.norm, nil, nil,
		zap.NewNop(), 15*time.Minute, 4, time.Second)
}

func mondayRule(tutorID string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID: "rule-" + tutorID, TutorID: tutorID,
		DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00",
	}
}

func TestGetAvailableSlotsAggregatesTutors(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.tutors = []models.Tutor{{ID: "tutor-a"}, {ID: "tutor-b"}}
	f.rules.byTutor["tutor-a"] = []models.AvailabilityRule{mondayRule("tutor-a")}
	f.rules.byTutor["tutor-b"] = []models.AvailabilityRule{mondayRule("tutor-b")}

	slots, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, slots, 6)

	for _, slot := range slots {
		assert.True(t, slot.Available)
		assert.Equal(t, 2, slot.TutorCount)
		assert.Equal(t, []string{"tutor-a", "tutor-b"}, slot.TutorIDs)
		assert.True(t, slot.DisplayStart.Equal(slot.LessonStart.Add(-15*time.Minute)))
		assert.True(t, slot.DisplayEnd.Equal(slot.LessonEnd.Add(-15*time.Minute)))
	}
	// Ordered by display start.
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].DisplayStart.Before(slots[i].DisplayStart))
	}
}

func TestGetAvailableSlotsExcludesBookedInterval(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.tutors = []models.Tutor{{ID: "tutor-a"}}
	f.rules.byTutor["tutor-a"] = []models.AvailabilityRule{mondayRule("tutor-a")}

	booked, err := f.norm.AtTimeOfDay(f.norm.DateToInstant(2025, time.June, 2), "10:00")
	require.NoError(t, err)
	f.lessons.byTutor["tutor-a"] = []models.Lesson{{
		StartAt: booked, EndAt: booked.Add(30 * time.Minute), Status: models.LessonScheduled,
	}}

	slots, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err)
	// The booked time still appears, marked unavailable with no tutors.
	require.Len(t, slots, 6)
	for _, slot := range slots {
		if slot.LessonStart.Equal(booked) {
			assert.False(t, slot.Available)
			assert.Zero(t, slot.TutorCount)
			assert.Empty(t, slot.TutorIDs)
			continue
		}
		assert.True(t, slot.Available)
		assert.Equal(t, 1, slot.TutorCount)
	}
}

func TestGetAvailableSlotsTutorCountDropsWhenBooked(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.tutors = []models.Tutor{{ID: "tutor-a"}, {ID: "tutor-b"}}
	f.rules.byTutor["tutor-a"] = []models.AvailabilityRule{mondayRule("tutor-a")}
	f.rules.byTutor["tutor-b"] = []models.AvailabilityRule{mondayRule("tutor-b")}

	before, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, before, 6)

	booked, err := f.norm.AtTimeOfDay(f.norm.DateToInstant(2025, time.June, 2), "10:00")
	require.NoError(t, err)
	f.lessons.byTutor["tutor-b"] = []models.Lesson{{
		StartAt: booked, EndAt: booked.Add(30 * time.Minute), Status: models.LessonScheduled,
	}}

	after, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, after, 6)

	// Adding a lesson can only shrink per-slot counts, and shrinks exactly
	// the slot it occupies.
	for i := range after {
		require.True(t, after[i].LessonStart.Equal(before[i].LessonStart))
		assert.LessOrEqual(t, after[i].TutorCount, before[i].TutorCount)
		if after[i].LessonStart.Equal(booked) {
			assert.Equal(t, 1, after[i].TutorCount)
			assert.Equal(t, []string{"tutor-a"}, after[i].TutorIDs)
		} else {
			assert.Equal(t, 2, after[i].TutorCount)
		}
	}
}

func TestGetAvailableSlotsDegradesFailedTutor(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.tutors = []models.Tutor{{ID: "tutor-a"}, {ID: "tutor-b"}}
	f.rules.byTutor["tutor-a"] = []models.AvailabilityRule{mondayRule("tutor-a")}
	f.rules.byTutor["tutor-b"] = []models.AvailabilityRule{mondayRule("tutor-b")}
	f.lessons.errFor["tutor-b"] = errors.New("db down")

	slots, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err, "one failing tutor must not fail the request")
	require.Len(t, slots, 6)
	for _, slot := range slots {
		assert.Equal(t, []string{"tutor-a"}, slot.TutorIDs, "a failed check must never count as available")
	}
}

func TestGetAvailableSlotsTimeOffBlocks(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.tutors = []models.Tutor{{ID: "tutor-a"}}
	f.rules.byTutor["tutor-a"] = []models.AvailabilityRule{mondayRule("tutor-a")}

	day := f.norm.DateToInstant(2025, time.June, 2)
	offStart, err := f.norm.AtTimeOfDay(day, "09:00")
	require.NoError(t, err)
	f.timeOff.byTutor["tutor-a"] = []models.TimeOff{{
		StartAt: offStart, EndAt: offStart.Add(90 * time.Minute), Status: models.TimeOffApproved,
	}}

	slots, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.NoError(t, err)
	// 09:00, 09:30, 10:00 blocked; 10:30, 11:00, 11:30 remain bookable.
	require.Len(t, slots, 6)
	firstFree, err := f.norm.AtTimeOfDay(day, "10:30")
	require.NoError(t, err)
	for _, slot := range slots {
		if slot.LessonStart.Before(firstFree) {
			assert.False(t, slot.Available)
			assert.Zero(t, slot.TutorCount)
		} else {
			assert.True(t, slot.Available)
			assert.Equal(t, 1, slot.TutorCount)
		}
	}
}

func TestGetAvailableSlotsValidation(t *testing.T) {
	f := newAvailabilityFixture(t)
	svc := f.service()

	_, err := svc.GetAvailableSlots(context.Background(), "", "2025-06-02")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.GetAvailableSlots(context.Background(), "algebra", "06/02/2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetAvailableSlotsLookupFailure(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.tutors.err = errors.New("db down")

	_, err := f.service().GetAvailableSlots(context.Background(), "algebra", "2025-06-02")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLookupFailed.Code, appErrors.FromError(err).Code)
}
