package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

type tutorRepository interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type availabilityRuleRepository interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityRule, error)
	Create(ctx context.Context, rule *models.AvailabilityRule) error
	Delete(ctx context.Context, tutorID, ruleID string) error
}

// CreateRuleRequest captures fields for a new weekly availability rule.
type CreateRuleRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// TutorService handles tutor directory and availability rule workflows.
type TutorService struct {
	tutors    tutorRepository
	rules     availabilityRuleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorService creates a new tutor service.
func NewTutorService(tutors tutorRepository, rules availabilityRuleRepository, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorService{tutors: tutors, rules: rules, validator: validate, logger: logger}
}

// List returns paginated tutors.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	tutors, total, err := s.tutors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return tutors, pagination, nil
}

// Get returns tutor by identifier.
func (s *TutorService) Get(ctx context.Context, id string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	return tutor, nil
}

// ListRules returns the tutor's standing weekly availability rules.
func (s *TutorService) ListRules(ctx context.Context, tutorID string) ([]models.AvailabilityRule, error) {
	if _, err := s.Get(ctx, tutorID); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// CreateRule validates and stores a new weekly rule for the tutor.
func (s *TutorService) CreateRule(ctx context.Context, tutorID string, req CreateRuleRequest) (*models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	if _, err := s.Get(ctx, tutorID); err != nil {
		return nil, err
	}

	day, err := models.ParseWeekday(req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRule.Code, appErrors.ErrInvalidRule.Status, "invalid day of week")
	}
	startHour, startMinute, err := tz.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRule.Code, appErrors.ErrInvalidRule.Status, "invalid start time, expected HH:MM")
	}
	endHour, endMinute, err := tz.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRule.Code, appErrors.ErrInvalidRule.Status, "invalid end time, expected HH:MM")
	}
	if endHour*60+endMinute <= startHour*60+startMinute {
		return nil, appErrors.Clone(appErrors.ErrInvalidRule, "end time must be after start time")
	}

	rule := &models.AvailabilityRule{
		TutorID:   tutorID,
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability rule")
	}

	s.logger.Info("availability rule created",
		zap.String("tutor_id", tutorID),
		zap.String("day", string(day)),
		zap.String("window", req.StartTime+"-"+req.EndTime))

	return rule, nil
}

// DeleteRule removes one of the tutor's rules.
func (s *TutorService) DeleteRule(ctx context.Context, tutorID, ruleID string) error {
	if _, err := s.Get(ctx, tutorID); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, tutorID, ruleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability rule")
	}
	return nil
}
