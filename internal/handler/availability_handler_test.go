package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	"github.com/tutorlane/scheduling-api/internal/service"
	"github.com/tutorlane/scheduling-api/pkg/response"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

type directoryMock struct {
	tutors []models.Tutor
}

func (m *directoryMock) ListActiveBySubject(_ context.Context, _ string) ([]models.Tutor, error) {
	return m.tutors, nil
}

type ruleReaderMock struct {
	rules []models.AvailabilityRule
}

func (m *ruleReaderMock) ListByTutor(_ context.Context, _ string) ([]models.AvailabilityRule, error) {
	return m.rules, nil
}

func (m *ruleReaderMock) ListByTutorAndDay(_ context.Context, _ string, day models.Weekday) ([]models.AvailabilityRule, error) {
	var rules []models.AvailabilityRule
	for _, rule := range m.rules {
		if rule.DayOfWeek == day {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

type emptyLessonsMock struct{}

func (emptyLessonsMock) ListActiveInRange(_ context.Context, _ string, _, _ time.Time) ([]models.Lesson, error) {
	return nil, nil
}

type emptyTimeOffMock struct{}

func (emptyTimeOffMock) ListApprovedInRange(_ context.Context, _ string, _, _ time.Time) ([]models.TimeOff, error) {
	return nil, nil
}

func newAvailabilityHandlerForTest(t *testing.T) *AvailabilityHandler {
	t.Helper()
	norm, err := tz.New("America/New_York")
	require.NoError(t, err)

	directory := &directoryMock{tutors: []models.Tutor{{ID: "tutor-1", FullName: "Dana Reyes"}}}
	rules := &ruleReaderMock{rules: []models.AvailabilityRule{{
		ID: "rule-1", TutorID: "tutor-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00",
	}}}
	checker := service.NewConflictChecker(emptyLessonsMock{}, emptyTimeOffMock{})
	expander := service.NewSlotExpander(norm, 30*time.Minute, zap.NewNop())

	availability := service.NewAvailabilityService(directory, rules, checker, expander, norm,
		nil, nil, zap.NewNop(), 15*time.Minute, 4, time.Second)
	ranker := service.NewTutorRankerService(directory, rules, checker, norm,
		nil, zap.NewNop(), 30*time.Minute, 15*time.Minute, 4, time.Second)
	return NewAvailabilityHandler(availability, ranker)
}

func getRequest(t *testing.T, handler gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	handler(c)
	return w
}

func TestAvailabilityHandlerSlots(t *testing.T) {
	handler := newAvailabilityHandlerForTest(t)

	w := getRequest(t, handler.Slots, "/availability/slots?subjectId=algebra&date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.CandidateSlot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, 1, envelope.Data[0].TutorCount)
}

func TestAvailabilityHandlerSlotsMissingSubject(t *testing.T) {
	handler := newAvailabilityHandlerForTest(t)

	w := getRequest(t, handler.Slots, "/availability/slots?date=2025-06-02")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestAvailabilityHandlerTutors(t *testing.T) {
	handler := newAvailabilityHandlerForTest(t)

	w := getRequest(t, handler.Tutors, "/availability/tutors?subjectId=algebra&date=2025-06-02&time=09:00")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.RankedTutor `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, models.TutorAvailable, envelope.Data[0].Status)
}

func TestAvailabilityHandlerTutorsBadTime(t *testing.T) {
	handler := newAvailabilityHandlerForTest(t)

	w := getRequest(t, handler.Tutors, "/availability/tutors?subjectId=algebra&date=2025-06-02&time=9am")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
