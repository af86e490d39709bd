package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

// TutorRankerService evaluates every qualifying tutor against one fixed
// requested time and classifies each individually, so the booking surface can
// show why a given tutor cannot take the slot.
type dayRuleReader interface {
	ListByTutorAndDay(ctx context.Context, tutorID string, day models.Weekday) ([]models.AvailabilityRule, error)
}

type TutorRankerService struct {
	tutors  tutorDirectory
	rules   dayRuleReader
	checker *ConflictChecker
	norm    *tz.Normalizer
	metrics *MetricsService
	logger  *zap.Logger

	slotLen       time.Duration
	displayOffset time.Duration
	concurrency   int
	checkTimeout  time.Duration
}

// NewTutorRankerService constructs a TutorRankerService.
func NewTutorRankerService(
	tutors tutorDirectory,
	rules dayRuleReader,
	checker *ConflictChecker,
	norm *tz.Normalizer,
	metrics *MetricsService,
	logger *zap.Logger,
	slotLen time.Duration,
	displayOffset time.Duration,
	concurrency int,
	checkTimeout time.Duration,
) *TutorRankerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slotLen <= 0 {
		slotLen = 30 * time.Minute
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &TutorRankerService{
		tutors:        tutors,
		rules:         rules,
		checker:       checker,
		norm:          norm,
		metrics:       metrics,
		logger:        logger,
		slotLen:       slotLen,
		displayOffset: displayOffset,
		concurrency:   concurrency,
		checkTimeout:  checkTimeout,
	}
}

var statusOrder = map[models.TutorSlotStatus]int{
	models.TutorAvailable:      0,
	models.TutorTimeOff:        1,
	models.TutorNoAvailability: 2,
	models.TutorBusy:           3,
	models.TutorChecking:       4,
}

// RankTutors classifies every tutor qualified for the subject against the
// requested display time. The actual lesson interval starts displayOffset
// after the requested time. Results sort available-first with failed or
// timed-out checks last; order within a status follows the directory order.
func (s *TutorRankerService) RankTutors(ctx context.Context, subjectID, dateRaw, timeRaw string) ([]models.RankedTutor, error) {
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectId is required")
	}
	date, err := s.norm.ParseDate(dateRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	requested, err := s.norm.AtTimeOfDay(date, timeRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time, expected HH:MM")
	}

	started := time.Now()
	defer func() {
		s.metrics.ObserveAvailabilityRequest("rank", time.Since(started))
	}()

	lessonStart := requested.Add(s.displayOffset)
	lessonEnd := lessonStart.Add(s.slotLen)

	tutors, err := s.tutors.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailed.Code, appErrors.ErrLookupFailed.Status, "failed to resolve tutors for subject")
	}

	ranked := make([]models.RankedTutor, len(tutors))
	var mu sync.Mutex

	// Slot in directory order so the final sort stays stable per status.
	index := make(map[string]int, len(tutors))
	for i, tutor := range tutors {
		index[tutor.ID] = i
	}

	runPerTutor(ctx, tutors, s.concurrency, s.checkTimeout, func(checkCtx context.Context, tutor models.Tutor) {
		entry := s.classifyTutor(checkCtx, tutor, date, lessonStart, lessonEnd)
		s.metrics.RecordTutorCheck(string(entry.Status))

		mu.Lock()
		ranked[index[tutor.ID]] = entry
		mu.Unlock()
	})

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "ranking request cancelled")
	}

	// Tutors skipped because the request wound down keep the zero status;
	// mark them explicitly as unresolved.
	for i := range ranked {
		if ranked[i].TutorID == "" {
			ranked[i] = models.RankedTutor{
				TutorID:  tutors[i].ID,
				FullName: tutors[i].FullName,
				Status:   models.TutorChecking,
				Reason:   "check not completed",
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return statusOrder[ranked[i].Status] < statusOrder[ranked[j].Status]
	})

	return ranked, nil
}

// classifyTutor applies the precedence rules: no rule coverage beats time off
// beats a lesson clash. Errors and timeouts degrade to the fail-safe side
// with a diagnostic reason, never to available.
func (s *TutorRankerService) classifyTutor(ctx context.Context, tutor models.Tutor, date time.Time, lessonStart, lessonEnd time.Time) models.RankedTutor {
	entry := models.RankedTutor{TutorID: tutor.ID, FullName: tutor.FullName}

	weekday := models.WeekdayOf(date.In(s.norm.Location()).Weekday())
	rules, err := s.rules.ListByTutorAndDay(ctx, tutor.ID, weekday)
	if err != nil {
		return s.degrade(entry, tutor.ID, "availability rules lookup failed", err)
	}

	if !s.ruleCovers(rules, date, lessonStart, lessonEnd) {
		entry.Status = models.TutorNoAvailability
		return entry
	}

	busy, err := s.checker.Snapshot(ctx, tutor.ID, lessonStart, lessonEnd)
	if err != nil {
		return s.degrade(entry, tutor.ID, "conflict lookup failed", err)
	}

	switch {
	case busy.ConflictsWithTimeOff(lessonStart, lessonEnd):
		entry.Status = models.TutorTimeOff
	case busy.ConflictsWithLesson(lessonStart, lessonEnd):
		entry.Status = models.TutorBusy
	default:
		entry.Status = models.TutorAvailable
	}
	return entry
}

// degrade maps a failed check to busy, never available. Timeouts keep a
// distinct reason; the checking status is reserved for entries the request
// wound down before resolving.
func (s *TutorRankerService) degrade(entry models.RankedTutor, tutorID, reason string, err error) models.RankedTutor {
	s.logger.Warn("tutor check degraded to busy",
		zap.String("tutor_id", tutorID), zap.String("reason", reason), zap.Error(err))
	entry.Status = models.TutorBusy
	if errors.Is(err, context.DeadlineExceeded) {
		entry.Reason = "check timed out"
		return entry
	}
	entry.Reason = reason
	return entry
}

// ruleCovers reports whether any of the day's rules fully contains the
// lesson interval.
func (s *TutorRankerService) ruleCovers(rules []models.AvailabilityRule, date time.Time, lessonStart, lessonEnd time.Time) bool {
	for _, rule := range rules {
		ruleStart, err := s.norm.AtTimeOfDay(date, rule.StartTime)
		if err != nil {
			continue
		}
		ruleEnd, err := s.norm.AtTimeOfDay(date, rule.EndTime)
		if err != nil {
			continue
		}
		if !lessonStart.Before(ruleStart) && !lessonEnd.After(ruleEnd) {
			return true
		}
	}
	return false
}
