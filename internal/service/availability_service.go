package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

type tutorDirectory interface {
	ListActiveBySubject(ctx context.Context, subjectID string) ([]models.Tutor, error)
}

type ruleReader interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityRule, error)
}

// AvailabilityService aggregates per-tutor availability into subject-level
// slot counts: "is anyone free at 10:00" without committing to a tutor.
type AvailabilityService struct {
	tutors   tutorDirectory
	rules    ruleReader
	checker  *ConflictChecker
	expander *SlotExpander
	norm     *tz.Normalizer
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger

	displayOffset time.Duration
	concurrency   int
	checkTimeout  time.Duration
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(
	tutors tutorDirectory,
	rules ruleReader,
	checker *ConflictChecker,
	expander *SlotExpander,
	norm *tz.Normalizer,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	displayOffset time.Duration,
	concurrency int,
	checkTimeout time.Duration,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &AvailabilityService{
		tutors:        tutors,
		rules:         rules,
		checker:       checker,
		expander:      expander,
		norm:          norm,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
		displayOffset: displayOffset,
		concurrency:   concurrency,
		checkTimeout:  checkTimeout,
	}
}

type slotBucket struct {
	lessonStart time.Time
	lessonEnd   time.Time
	tutorIDs    []string
}

// GetAvailableSlots returns every candidate slot for the subject on the given
// local date, with the list and count of tutors free to take it. Per-tutor
// failures degrade that tutor to unavailable; they never fail the request.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, subjectID, dateRaw string) ([]models.CandidateSlot, error) {
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectId is required")
	}
	date, err := s.norm.ParseDate(dateRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	started := time.Now()
	defer func() {
		s.metrics.ObserveAvailabilityRequest("slots", time.Since(started))
	}()

	cacheKey := fmt.Sprintf("availability:slots:%s:%s", subjectID, dateRaw)
	var cached []models.CandidateSlot
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	tutors, err := s.tutors.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailed.Code, appErrors.ErrLookupFailed.Status, "failed to resolve tutors for subject")
	}

	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)

	buckets := make(map[string]*slotBucket)
	var mu sync.Mutex

	runPerTutor(ctx, tutors, s.concurrency, s.checkTimeout, func(checkCtx context.Context, tutor models.Tutor) {
		candidates, free, outcome := s.freeSlotsForTutor(checkCtx, tutor.ID, date, dayStart, dayEnd)
		s.metrics.RecordTutorCheck(outcome)

		mu.Lock()
		defer mu.Unlock()
		// Every offered slot gets a bucket, so a fully booked time still
		// shows up with an empty tutor list instead of disappearing.
		for _, candidate := range candidates {
			key := s.norm.FormatTimeOfDay(candidate.LessonStart)
			if _, ok := buckets[key]; !ok {
				buckets[key] = &slotBucket{lessonStart: candidate.LessonStart, lessonEnd: candidate.LessonEnd}
			}
		}
		for _, candidate := range free {
			key := s.norm.FormatTimeOfDay(candidate.LessonStart)
			bucket := buckets[key]
			bucket.tutorIDs = append(bucket.tutorIDs, tutor.ID)
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "availability request cancelled")
	}

	slots := make([]models.CandidateSlot, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.tutorIDs == nil {
			bucket.tutorIDs = []string{}
		}
		sort.Strings(bucket.tutorIDs)
		slots = append(slots, models.CandidateSlot{
			DisplayStart: bucket.lessonStart.Add(-s.displayOffset),
			DisplayEnd:   bucket.lessonEnd.Add(-s.displayOffset),
			LessonStart:  bucket.lessonStart,
			LessonEnd:    bucket.lessonEnd,
			Available:    len(bucket.tutorIDs) > 0,
			TutorIDs:     bucket.tutorIDs,
			TutorCount:   len(bucket.tutorIDs),
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].DisplayStart.Before(slots[j].DisplayStart)
	})

	_ = s.cache.Set(ctx, cacheKey, slots, 0)

	return slots, nil
}

// freeSlotsForTutor expands the tutor's rules for the date into deduplicated
// candidates and the subset the tutor is actually free for. Any lookup failure
// keeps the free set empty: the fail-safe answer is "busy", never "available".
func (s *AvailabilityService) freeSlotsForTutor(ctx context.Context, tutorID string, date, dayStart, dayEnd time.Time) (candidates, free []SlotCandidate, outcome string) {
	rules, err := s.rules.ListByTutor(ctx, tutorID)
	if err != nil {
		s.logger.Warn("rule lookup failed, treating tutor as unavailable",
			zap.String("tutor_id", tutorID), zap.Error(err))
		return nil, nil, "rule_lookup_failed"
	}

	expanded := s.expander.Expand(rules, date)
	if len(expanded) == 0 {
		return nil, nil, "no_rules"
	}

	seen := make(map[string]struct{}, len(expanded))
	for _, candidate := range expanded {
		key := s.norm.FormatTimeOfDay(candidate.LessonStart)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate)
	}

	busy, err := s.checker.Snapshot(ctx, tutorID, dayStart, dayEnd)
	if err != nil {
		s.logger.Warn("conflict lookup failed, treating tutor as unavailable",
			zap.String("tutor_id", tutorID), zap.Error(err))
		return candidates, nil, "conflict_lookup_failed"
	}

	for _, candidate := range candidates {
		if !busy.Conflicts(candidate.LessonStart, candidate.LessonEnd) {
			free = append(free, candidate)
		}
	}
	if len(free) == 0 {
		return candidates, nil, "fully_booked"
	}
	return candidates, free, "ok"
}
