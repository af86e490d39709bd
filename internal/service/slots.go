package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

// SlotCandidate is one concrete lesson interval produced from a weekly rule,
// before conflict filtering.
type SlotCandidate struct {
	LessonStart time.Time
	LessonEnd   time.Time
}

// SlotExpander turns a tutor's standing weekly availability rules into
// concrete candidate slots for a single calendar date.
type SlotExpander struct {
	norm    *tz.Normalizer
	slotLen time.Duration
	logger  *zap.Logger
}

// NewSlotExpander constructs a SlotExpander.
func NewSlotExpander(norm *tz.Normalizer, slotLen time.Duration, logger *zap.Logger) *SlotExpander {
	if slotLen <= 0 {
		slotLen = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotExpander{norm: norm, slotLen: slotLen, logger: logger}
}

// Expand emits fixed-length candidates for every rule matching the date's
// weekday. Slots step through [rule.start, rule.end) and never partially
// exceed rule.end. Malformed rules (unparseable times, end not after start)
// are skipped with a warning rather than aborting the expansion; rules for
// the same day may produce overlapping candidates, which callers deduplicate
// by slot key.
func (e *SlotExpander) Expand(rules []models.AvailabilityRule, date time.Time) []SlotCandidate {
	weekday := models.WeekdayOf(date.In(e.norm.Location()).Weekday())

	var candidates []SlotCandidate
	for _, rule := range rules {
		if rule.DayOfWeek != weekday {
			continue
		}

		start, err := e.norm.AtTimeOfDay(date, rule.StartTime)
		if err != nil {
			e.logger.Warn("skipping rule with invalid start time",
				zap.String("rule_id", rule.ID), zap.String("start", rule.StartTime), zap.Error(err))
			continue
		}
		end, err := e.norm.AtTimeOfDay(date, rule.EndTime)
		if err != nil {
			e.logger.Warn("skipping rule with invalid end time",
				zap.String("rule_id", rule.ID), zap.String("end", rule.EndTime), zap.Error(err))
			continue
		}
		if !end.After(start) {
			e.logger.Warn("skipping zero-length or inverted rule",
				zap.String("rule_id", rule.ID), zap.String("start", rule.StartTime), zap.String("end", rule.EndTime))
			continue
		}

		for t := start; !t.Add(e.slotLen).After(end); t = t.Add(e.slotLen) {
			candidates = append(candidates, SlotCandidate{
				LessonStart: t,
				LessonEnd:   t.Add(e.slotLen),
			})
		}
	}
	return candidates
}

// SlotLength exposes the configured slot length.
func (e *SlotExpander) SlotLength() time.Duration {
	return e.slotLen
}
