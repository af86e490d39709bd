package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	"github.com/tutorlane/scheduling-api/internal/repository"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

type bookingLessonStore interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	InsertWithConflictCheck(ctx context.Context, lesson *models.Lesson) error
	UpdateStatus(ctx context.Context, id string, status models.LessonStatus) error
}

// BookLessonRequest describes a single-lesson booking payload. Date and time
// are the display values the student picked; the tutor-attended interval is
// derived by applying the platform's introductory-segment offset.
type BookLessonRequest struct {
	TutorID    string   `json:"tutor_id" validate:"required"`
	SubjectID  string   `json:"subject_id" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Date       string   `json:"date" validate:"required"`
	Time       string   `json:"time" validate:"required"`
}

// BookingService owns the lesson write path. The availability read path is
// advisory; this service re-runs the authoritative conflict check atomically
// at write time.
type BookingService struct {
	lessons   bookingLessonStore
	norm      *tz.Normalizer
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	slotLen       time.Duration
	displayOffset time.Duration
}

// NewBookingService constructs a BookingService.
func NewBookingService(
	lessons bookingLessonStore,
	norm *tz.Normalizer,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	slotLen time.Duration,
	displayOffset time.Duration,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slotLen <= 0 {
		slotLen = 30 * time.Minute
	}
	return &BookingService{
		lessons:       lessons,
		norm:          norm,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		slotLen:       slotLen,
		displayOffset: displayOffset,
	}
}

// BookLesson books one lesson. Losing a race for the slot returns
// ErrSlotUnavailable, which callers treat as retryable with a fresh slot
// query, not as a server fault.
func (s *BookingService) BookLesson(ctx context.Context, req BookLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	date, err := s.norm.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	displayStart, err := s.norm.AtTimeOfDay(date, req.Time)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time, expected HH:MM")
	}

	lessonStart := displayStart.Add(s.displayOffset)
	lesson := &models.Lesson{
		TutorID:    req.TutorID,
		SubjectID:  req.SubjectID,
		StudentIDs: pq.StringArray(req.StudentIDs),
		StartAt:    lessonStart,
		EndAt:      lessonStart.Add(s.slotLen),
		Status:     models.LessonScheduled,
	}

	if err := s.lessons.InsertWithConflictCheck(ctx, lesson); err != nil {
		if errors.Is(err, repository.ErrLessonOverlap) {
			s.metrics.RecordBookingConflict()
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book lesson")
	}

	s.invalidateDay(ctx, req.Date)

	s.logger.Info("lesson booked",
		zap.String("lesson_id", lesson.ID),
		zap.String("tutor_id", lesson.TutorID),
		zap.Time("start_at", lesson.StartAt))

	return lesson, nil
}

// CancelLesson transitions a lesson to cancelled, freeing its slot.
func (s *BookingService) CancelLesson(ctx context.Context, lessonID string) error {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if lesson.Status == models.LessonCancelled {
		return nil
	}
	if lesson.Status == models.LessonCompleted {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "completed lessons cannot be cancelled")
	}

	if err := s.lessons.UpdateStatus(ctx, lessonID, models.LessonCancelled); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel lesson")
	}

	year, month, day, _, _ := s.norm.ToLocal(lesson.StartAt)
	s.invalidateDay(ctx, fmt.Sprintf("%04d-%02d-%02d", year, month, day))
	return nil
}

func (s *BookingService) invalidateDay(ctx context.Context, dateRaw string) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("availability:slots:*:%s", dateRaw))
}
