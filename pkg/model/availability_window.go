package model

import (
	"time"
)

// AvailabilityWindow is one weekly recurring stretch a tutor accepts
// bookings in. day_of_week follows time.Weekday numbering (0 = Sunday) and
// the clock strings are zero-padded "HH:MM" wall times on that day. A tutor
// may declare several windows per day; overlapping windows are allowed and
// the slot resolver deduplicates.
type AvailabilityWindow struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TutorID   string    `json:"tutor_id" bson:"tutor_id" validate:"required,mongodb"`
	DayOfWeek int       `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	StartTime string    `json:"start_time" bson:"start_time" validate:"required,clock_time"`
	EndTime   string    `json:"end_time" bson:"end_time" validate:"required,clock_time"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type AvailabilityWindowUpdate struct {
	DayOfWeek *int   `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,clock_time"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,clock_time"`
	Active    *bool  `json:"active,omitempty"`
}
