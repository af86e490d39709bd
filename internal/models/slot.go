package models

import "time"

// CandidateSlot is a derived, non-persisted view of one bookable window.
// DisplayStart is what the booking party sees; LessonStart is when the tutor
// actually joins (offset by the platform's introductory segment).
type CandidateSlot struct {
	DisplayStart time.Time `json:"display_start"`
	DisplayEnd   time.Time `json:"display_end"`
	LessonStart  time.Time `json:"lesson_start"`
	LessonEnd    time.Time `json:"lesson_end"`
	Available    bool      `json:"available"`
	TutorIDs     []string  `json:"tutor_ids"`
	TutorCount   int       `json:"tutor_count"`
}

// TutorSlotStatus classifies one tutor's fit for a requested time.
type TutorSlotStatus string

const (
	TutorAvailable      TutorSlotStatus = "available"
	TutorBusy           TutorSlotStatus = "busy"
	TutorTimeOff        TutorSlotStatus = "time_off"
	TutorNoAvailability TutorSlotStatus = "no_availability"
	TutorChecking       TutorSlotStatus = "checking"
)

// RankedTutor is one tutor's availability verdict for a fixed requested time.
type RankedTutor struct {
	TutorID  string          `json:"tutor_id"`
	FullName string          `json:"full_name"`
	Status   TutorSlotStatus `json:"status"`
	Reason   string          `json:"reason,omitempty"`
}
