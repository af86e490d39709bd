package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
)

type stubTutorRepo struct {
	tutors map[string]*models.Tutor
}

func (s *stubTutorRepo) List(_ context.Context, _ models.TutorFilter) ([]models.Tutor, int, error) {
	out := make([]models.Tutor, 0, len(s.tutors))
	for _, tutor := range s.tutors {
		out = append(out, *tutor)
	}
	return out, len(out), nil
}

func (s *stubTutorRepo) FindByID(_ context.Context, id string) (*models.Tutor, error) {
	tutor, ok := s.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tutor, nil
}

type stubRuleRepo struct {
	rules   []models.AvailabilityRule
	deleted []string
}

func (s *stubRuleRepo) ListByTutor(_ context.Context, _ string) ([]models.AvailabilityRule, error) {
	return s.rules, nil
}

func (s *stubRuleRepo) Create(_ context.Context, rule *models.AvailabilityRule) error {
	rule.ID = "rule-new"
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *stubRuleRepo) Delete(_ context.Context, _, ruleID string) error {
	s.deleted = append(s.deleted, ruleID)
	return nil
}

func newTutorServiceForTest() (*TutorService, *stubRuleRepo) {
	tutors := &stubTutorRepo{tutors: map[string]*models.Tutor{
		"tutor-1": {ID: "tutor-1", FullName: "Dana Reyes", Active: true},
	}}
	rules := &stubRuleRepo{}
	return NewTutorService(tutors, rules, nil, zap.NewNop()), rules
}

func TestCreateRule(t *testing.T) {
	svc, rules := newTutorServiceForTest()

	rule, err := svc.CreateRule(context.Background(), "tutor-1", CreateRuleRequest{
		DayOfWeek: "Monday", StartTime: "09:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Monday, rule.DayOfWeek)
	assert.Len(t, rules.rules, 1)
}

func TestCreateRuleRejectsMalformed(t *testing.T) {
	svc, _ := newTutorServiceForTest()

	tests := []struct {
		name string
		req  CreateRuleRequest
		code string
	}{
		{"unknown day", CreateRuleRequest{DayOfWeek: "Funday", StartTime: "09:00", EndTime: "12:00"}, appErrors.ErrInvalidRule.Code},
		{"bad start", CreateRuleRequest{DayOfWeek: "monday", StartTime: "9am", EndTime: "12:00"}, appErrors.ErrInvalidRule.Code},
		{"inverted window", CreateRuleRequest{DayOfWeek: "monday", StartTime: "12:00", EndTime: "09:00"}, appErrors.ErrInvalidRule.Code},
		{"zero window", CreateRuleRequest{DayOfWeek: "monday", StartTime: "09:00", EndTime: "09:00"}, appErrors.ErrInvalidRule.Code},
		{"missing fields", CreateRuleRequest{}, appErrors.ErrValidation.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRule(context.Background(), "tutor-1", tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, appErrors.FromError(err).Code)
		})
	}
}

func TestCreateRuleUnknownTutor(t *testing.T) {
	svc, _ := newTutorServiceForTest()

	_, err := svc.CreateRule(context.Background(), "missing", CreateRuleRequest{
		DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteRule(t *testing.T) {
	svc, rules := newTutorServiceForTest()

	require.NoError(t, svc.DeleteRule(context.Background(), "tutor-1", "rule-1"))
	assert.Equal(t, []string{"rule-1"}, rules.deleted)
}
