package model

import (
	"time"

	"lessonbook/pkg/interval"
)

// TimeBlock carves an absolute range out of a tutor's bookable time, on top
// of whatever the weekly windows say. Vacations, exams, one-off errands.
type TimeBlock struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TutorID   string    `json:"tutor_id" bson:"tutor_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=200"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (b *TimeBlock) Range() interval.Range {
	return interval.Range{Start: b.StartTime, End: b.EndTime}
}
