package model

import (
	"time"
)

// BookingRequest is the wire shape for booking a single session. ParentID
// is overwritten by the handler from the gateway identity header, never
// trusted from the body.
type BookingRequest struct {
	TutorID        string    `json:"tutor_id" validate:"required,mongodb"`
	ParentID       string    `json:"parent_id" validate:"required,mongodb"`
	SubscriptionID string    `json:"subscription_id" validate:"required,mongodb"`
	ScheduledAt    time.Time `json:"scheduled_at" validate:"required"`
	DurationMin    int       `json:"duration_min" validate:"omitempty,min=15,max=480"`
	Notes          string    `json:"notes" validate:"omitempty,max=500"`
}

// SeriesBookingRequest books several sessions in one call. Every start in
// StartTimes is attempted independently; one slot being taken must not sink
// the rest.
type SeriesBookingRequest struct {
	TutorID        string      `json:"tutor_id" validate:"required,mongodb"`
	ParentID       string      `json:"parent_id" validate:"required,mongodb"`
	SubscriptionID string      `json:"subscription_id" validate:"required,mongodb"`
	StartTimes     []time.Time `json:"start_times" validate:"required,min=1,dive,required"`
	DurationMin    int         `json:"duration_min" validate:"omitempty,min=15,max=480"`
	Notes          string      `json:"notes" validate:"omitempty,max=500"`
}

// SeriesBookingResult aggregates the outcome of a SeriesBookingRequest.
// FailedIndices holds 1-based positions in the request order, matching how
// the confirmation copy refers to "lesson 2 of 4".
type SeriesBookingResult struct {
	SessionIDs    []string `json:"session_ids"`
	TotalBooked   int      `json:"total_booked"`
	TotalFailed   int      `json:"total_failed"`
	FailedIndices []int    `json:"failed_indices"`
}

type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
)

// Days returns the day step between consecutive sessions, 0 for an unknown
// cadence.
func (c Cadence) Days() int {
	switch c {
	case CadenceWeekly:
		return 7
	case CadenceBiweekly:
		return 14
	}
	return 0
}

type SeriesRescheduleRequest struct {
	NewStartTime time.Time `json:"new_start_time" validate:"required"`
	Cadence      Cadence   `json:"cadence" validate:"required,oneof=weekly biweekly"`
}

type RescheduleRequest struct {
	NewScheduledAt time.Time `json:"new_scheduled_at" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type StatusUpdateRequest struct {
	Status SessionStatus `json:"status" validate:"required,oneof=completed cancelled no_show"`
}

// SeriesCancelResult reports how many sessions a series cancel touched.
// Zero is a valid outcome: cancelling an already-cancelled series matches
// nothing and stays a 200.
type SeriesCancelResult struct {
	CancelledCount int `json:"cancelled_count"`
}

type SeriesRescheduleResult struct {
	RescheduledCount int `json:"rescheduled_count"`
}

// EligibilityResult answers "could this tutor in principle take a session
// in this range": inside a declared window and not blocked. Existing
// sessions are not consulted; conflict detection belongs to booking.
type EligibilityResult struct {
	TutorID   string    `json:"tutor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}
