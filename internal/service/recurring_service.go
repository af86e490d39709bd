package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
)

type seriesLessonStore interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	InsertBatch(ctx context.Context, lessons []*models.Lesson) error
	ExistsAt(ctx context.Context, tutorID string, startAt time.Time) (bool, error)
}

type recurringGroupStore interface {
	Create(ctx context.Context, group *models.RecurringGroup) error
	FindByID(ctx context.Context, id string) (*models.RecurringGroup, error)
	UpdateNextExtension(ctx context.Context, id string, next time.Time) error
	ListDueForExtension(ctx context.Context, now time.Time) ([]models.RecurringGroup, error)
}

// RecurringService materializes recurring lesson series into concrete lesson
// rows over a rolling forward window, and extends that window over time.
type RecurringService struct {
	lessons seriesLessonStore
	groups  recurringGroupStore
	metrics *MetricsService
	logger  *zap.Logger

	window time.Duration
	now    func() time.Time
}

// NewRecurringService constructs a RecurringService. The window length and
// clock are injected so tests can pin both.
func NewRecurringService(
	lessons seriesLessonStore,
	groups recurringGroupStore,
	metrics *MetricsService,
	logger *zap.Logger,
	window time.Duration,
) *RecurringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	return &RecurringService{
		lessons: lessons,
		groups:  groups,
		metrics: metrics,
		logger:  logger,
		window:  window,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *RecurringService) WithClock(now func() time.Time) *RecurringService {
	s.now = now
	return s
}

// CreateSeries turns the origin lesson into a recurring series: a group row
// plus one concrete lesson per step until the window's horizon.
func (s *RecurringService) CreateSeries(ctx context.Context, originLessonID, intervalRaw string) ([]*models.Lesson, error) {
	interval, err := models.ParseRecurrenceInterval(intervalRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence interval")
	}

	origin, err := s.lessons.FindByID(ctx, originLessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "origin lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load origin lesson")
	}

	now := s.now()
	group := &models.RecurringGroup{
		OriginLessonID:    origin.ID,
		Interval:          interval,
		NextExtensionDate: now.Add(s.window),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recurring group")
	}

	created, err := s.materialize(ctx, origin, group, origin.StartAt, now.Add(s.window))
	if err != nil {
		// The group's extension marker stays put, so the next run retries
		// this window rather than skipping past the failure.
		s.metrics.RecordExtensionRun("failed")
		return nil, err
	}

	s.metrics.RecordLessonsMaterialized(len(created))
	s.logger.Info("recurring series created",
		zap.String("group_id", group.ID),
		zap.String("origin_lesson_id", origin.ID),
		zap.String("interval", string(interval)),
		zap.Int("instances", len(created)))

	return created, nil
}

// ExtendSeries materializes the group's next window. Idempotent: instants
// that already carry an active lesson are skipped, so double invocation for
// the same window inserts nothing twice.
func (s *RecurringService) ExtendSeries(ctx context.Context, groupID string) ([]*models.Lesson, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recurring group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring group")
	}

	origin, err := s.lessons.FindByID(ctx, group.OriginLessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "origin lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load origin lesson")
	}

	now := s.now()
	created, err := s.materialize(ctx, origin, group, now, now.Add(s.window))
	if err != nil {
		s.metrics.RecordExtensionRun("failed")
		return nil, err
	}

	// Advance the marker only after the whole window persisted; a partial
	// failure above leaves the group due and the retry resumes safely.
	if err := s.groups.UpdateNextExtension(ctx, group.ID, now.Add(s.window)); err != nil {
		s.metrics.RecordExtensionRun("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance extension marker")
	}

	s.metrics.RecordExtensionRun("success")
	s.metrics.RecordLessonsMaterialized(len(created))

	return created, nil
}

// RunScheduledExtension extends every group whose marker has passed. Failures
// are isolated per group; the failed group stays due for the next sweep.
func (s *RecurringService) RunScheduledExtension(ctx context.Context) (int, error) {
	groups, err := s.groups.ListDueForExtension(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due recurring groups")
	}

	extended := 0
	for _, group := range groups {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.ExtendSeries(ctx, group.ID); err != nil {
			s.logger.Warn("recurring extension failed",
				zap.String("group_id", group.ID), zap.Error(err))
			continue
		}
		extended++
	}
	return extended, nil
}

// materialize generates instances stepping from the origin's start, keeping
// only those in (notBefore, horizon], skipping instants already occupied.
// Stepping always originates at origin.StartAt so the series phase never
// drifts between windows.
func (s *RecurringService) materialize(ctx context.Context, origin *models.Lesson, group *models.RecurringGroup, notBefore, horizon time.Time) ([]*models.Lesson, error) {
	step := group.Interval.Step()
	if step <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurring group has an unknown interval")
	}

	duration := origin.Duration()
	var batch []*models.Lesson
	for t := origin.StartAt.Add(step); !t.After(horizon); t = t.Add(step) {
		if t.Before(notBefore) {
			continue
		}
		exists, err := s.lessons.ExistsAt(ctx, origin.TutorID, t)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed idempotence pre-check")
		}
		if exists {
			continue
		}

		groupID := group.ID
		batch = append(batch, &models.Lesson{
			TutorID:             origin.TutorID,
			SubjectID:           origin.SubjectID,
			StudentIDs:          origin.StudentIDs,
			StartAt:             t,
			EndAt:               t.Add(duration),
			Status:              models.LessonScheduled,
			RecurringGroupID:    &groupID,
			IsRecurringInstance: true,
		})
	}

	if err := s.lessons.InsertBatch(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist series instances")
	}
	return batch, nil
}
