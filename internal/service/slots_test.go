package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

func newExpanderForTest(t *testing.T) (*SlotExpander, *tz.Normalizer) {
	t.Helper()
	norm, err := tz.New("America/New_York")
	require.NoError(t, err)
	return NewSlotExpander(norm, 30*time.Minute, zap.NewNop()), norm
}

func TestExpandEmitsHalfHourSlots(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	monday := norm.DateToInstant(2025, time.June, 2) // a Monday

	rules := []models.AvailabilityRule{
		{ID: "rule-1", TutorID: "tutor-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
	}

	candidates := expander.Expand(rules, monday)
	require.Len(t, candidates, 6)

	first := candidates[0]
	wantStart, err := norm.AtTimeOfDay(monday, "09:00")
	require.NoError(t, err)
	assert.True(t, first.LessonStart.Equal(wantStart))
	assert.True(t, first.LessonEnd.Equal(wantStart.Add(30*time.Minute)))

	last := candidates[len(candidates)-1]
	wantLast, err := norm.AtTimeOfDay(monday, "11:30")
	require.NoError(t, err)
	assert.True(t, last.LessonStart.Equal(wantLast), "last slot must end exactly at the rule end")
}

func TestExpandIgnoresOtherWeekdays(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	monday := norm.DateToInstant(2025, time.June, 2)

	rules := []models.AvailabilityRule{
		{ID: "rule-1", DayOfWeek: models.Tuesday, StartTime: "09:00", EndTime: "12:00"},
	}
	assert.Empty(t, expander.Expand(rules, monday))
}

func TestExpandDropsSliverAtRuleEnd(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	monday := norm.DateToInstant(2025, time.June, 2)

	// 09:00-09:45 fits one full slot; the trailing 15 minutes are dropped.
	rules := []models.AvailabilityRule{
		{ID: "rule-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "09:45"},
	}
	candidates := expander.Expand(rules, monday)
	require.Len(t, candidates, 1)
	wantStart, err := norm.AtTimeOfDay(monday, "09:00")
	require.NoError(t, err)
	assert.True(t, candidates[0].LessonStart.Equal(wantStart))
}

func TestExpandSkipsMalformedRules(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	monday := norm.DateToInstant(2025, time.June, 2)

	rules := []models.AvailabilityRule{
		{ID: "bad-start", DayOfWeek: models.Monday, StartTime: "9am", EndTime: "12:00"},
		{ID: "bad-end", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "noon"},
		{ID: "inverted", DayOfWeek: models.Monday, StartTime: "12:00", EndTime: "09:00"},
		{ID: "zero", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "10:00"},
		{ID: "ok", DayOfWeek: models.Monday, StartTime: "14:00", EndTime: "15:00"},
	}
	candidates := expander.Expand(rules, monday)
	require.Len(t, candidates, 2)
	wantStart, err := norm.AtTimeOfDay(monday, "14:00")
	require.NoError(t, err)
	assert.True(t, candidates[0].LessonStart.Equal(wantStart))
}

func TestExpandMultipleRulesSameDay(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	monday := norm.DateToInstant(2025, time.June, 2)

	rules := []models.AvailabilityRule{
		{ID: "morning", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00"},
		{ID: "evening", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "19:00"},
	}
	candidates := expander.Expand(rules, monday)
	assert.Len(t, candidates, 4)
}

func TestExpandAcrossSpringForward(t *testing.T) {
	expander, norm := newExpanderForTest(t)
	// 2025-03-09: clocks jump from 02:00 to 03:00 in New York.
	transition := norm.DateToInstant(2025, time.March, 9)

	rules := []models.AvailabilityRule{
		{ID: "rule-1", DayOfWeek: models.Sunday, StartTime: "09:00", EndTime: "10:00"},
	}
	candidates := expander.Expand(rules, transition)
	require.Len(t, candidates, 2)
	// Wall-clock 09:00 on the transition day is 13:00 UTC, one hour earlier
	// in UTC than a standard-time Sunday.
	assert.Equal(t, 13, candidates[0].LessonStart.UTC().Hour())
}
