package testutil

import (
	"time"

	"lessonbook/pkg/model"
)

const (
	TestTutorID        = "64f1b2a3c4d5e6f7a8b9c001"
	TestParentID       = "64f1b2a3c4d5e6f7a8b9c002"
	TestSubscriptionID = "64f1b2a3c4d5e6f7a8b9c003"
)

// NextWeekday returns the first occurrence of the weekday at the given UTC
// wall clock that is at least a week away. Fixtures built from it are
// always in the future and always land on a predictable window day.
func NextWeekday(day time.Weekday, hour, min int) time.Time {
	t := time.Now().UTC().AddDate(0, 0, 7)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, min, 0, 0, time.UTC)
}

type WindowBuilder struct {
	w model.AvailabilityWindow
}

func NewWindowBuilder() *WindowBuilder {
	return &WindowBuilder{
		w: model.AvailabilityWindow{
			TutorID:   TestTutorID,
			DayOfWeek: int(time.Monday),
			StartTime: "09:00",
			EndTime:   "17:00",
			Active:    true,
		},
	}
}

func (b *WindowBuilder) WithTutorID(id string) *WindowBuilder {
	b.w.TutorID = id
	return b
}

func (b *WindowBuilder) WithDayOfWeek(day time.Weekday) *WindowBuilder {
	b.w.DayOfWeek = int(day)
	return b
}

func (b *WindowBuilder) WithTimes(start, end string) *WindowBuilder {
	b.w.StartTime = start
	b.w.EndTime = end
	return b
}

func (b *WindowBuilder) Build() model.AvailabilityWindow {
	return b.w
}

type BookingBuilder struct {
	req model.BookingRequest
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		req: model.BookingRequest{
			TutorID:        TestTutorID,
			ParentID:       TestParentID,
			SubscriptionID: TestSubscriptionID,
			ScheduledAt:    NextWeekday(time.Monday, 10, 0),
			DurationMin:    60,
		},
	}
}

func (b *BookingBuilder) WithTutorID(id string) *BookingBuilder {
	b.req.TutorID = id
	return b
}

func (b *BookingBuilder) WithSubscriptionID(id string) *BookingBuilder {
	b.req.SubscriptionID = id
	return b
}

func (b *BookingBuilder) WithStart(at time.Time) *BookingBuilder {
	b.req.ScheduledAt = at
	return b
}

func (b *BookingBuilder) WithDuration(minutes int) *BookingBuilder {
	b.req.DurationMin = minutes
	return b
}

func (b *BookingBuilder) WithNotes(notes string) *BookingBuilder {
	b.req.Notes = notes
	return b
}

func (b *BookingBuilder) Build() model.BookingRequest {
	return b.req
}

type BlockBuilder struct {
	block model.TimeBlock
}

func NewBlockBuilder() *BlockBuilder {
	start := NextWeekday(time.Monday, 14, 0)
	return &BlockBuilder{
		block: model.TimeBlock{
			TutorID:   TestTutorID,
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			Reason:    "exam week",
		},
	}
}

func (b *BlockBuilder) WithTutorID(id string) *BlockBuilder {
	b.block.TutorID = id
	return b
}

func (b *BlockBuilder) WithRange(start, end time.Time) *BlockBuilder {
	b.block.StartTime = start
	b.block.EndTime = end
	return b
}

func (b *BlockBuilder) WithReason(reason string) *BlockBuilder {
	b.block.Reason = reason
	return b
}

func (b *BlockBuilder) Build() model.TimeBlock {
	return b.block
}

type SeriesBuilder struct {
	req model.SeriesBookingRequest
}

// NewSeriesBuilder defaults to three weekly sessions on consecutive
// Mondays at 10:00 UTC.
func NewSeriesBuilder() *SeriesBuilder {
	first := NextWeekday(time.Monday, 10, 0)
	return &SeriesBuilder{
		req: model.SeriesBookingRequest{
			TutorID:        TestTutorID,
			ParentID:       TestParentID,
			SubscriptionID: TestSubscriptionID,
			StartTimes: []time.Time{
				first,
				first.AddDate(0, 0, 7),
				first.AddDate(0, 0, 14),
			},
			DurationMin: 60,
		},
	}
}

func (b *SeriesBuilder) WithTutorID(id string) *SeriesBuilder {
	b.req.TutorID = id
	return b
}

func (b *SeriesBuilder) WithSubscriptionID(id string) *SeriesBuilder {
	b.req.SubscriptionID = id
	return b
}

func (b *SeriesBuilder) WithStartTimes(starts ...time.Time) *SeriesBuilder {
	b.req.StartTimes = starts
	return b
}

func (b *SeriesBuilder) WithDuration(minutes int) *SeriesBuilder {
	b.req.DurationMin = minutes
	return b
}

func (b *SeriesBuilder) Build() model.SeriesBookingRequest {
	return b.req
}

// ParentHeaders returns the identity header a parent-facing call carries.
func ParentHeaders() map[string]string {
	return map[string]string{"X-Parent-ID": TestParentID}
}

// TutorHeaders returns the identity header a tutor-facing call carries.
func TutorHeaders() map[string]string {
	return map[string]string{"X-Tutor-ID": TestTutorID}
}
