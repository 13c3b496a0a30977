package validator

import (
	"testing"
	"time"

	"lessonbook/pkg/model"
)

func TestValidateWindow(t *testing.T) {
	v := NewAvailabilityValidator(testLogger())

	tests := []struct {
		name      string
		dayOfWeek int
		startTime string
		endTime   string
		wantError bool
	}{
		{
			name:      "standard afternoon window",
			dayOfWeek: 1,
			startTime: "14:00",
			endTime:   "18:00",
			wantError: false,
		},
		{
			name:      "full day window",
			dayOfWeek: 0,
			startTime: "00:00",
			endTime:   "23:59",
			wantError: false,
		},
		{
			name:      "end before start",
			dayOfWeek: 2,
			startTime: "18:00",
			endTime:   "14:00",
			wantError: true,
		},
		{
			name:      "zero length window",
			dayOfWeek: 2,
			startTime: "14:00",
			endTime:   "14:00",
			wantError: true,
		},
		{
			name:      "day of week out of range",
			dayOfWeek: 7,
			startTime: "14:00",
			endTime:   "18:00",
			wantError: true,
		},
		{
			name:      "missing leading zero",
			dayOfWeek: 3,
			startTime: "9:00",
			endTime:   "12:00",
			wantError: true,
		},
		{
			name:      "hour out of range",
			dayOfWeek: 3,
			startTime: "24:00",
			endTime:   "25:00",
			wantError: true,
		},
		{
			name:      "minute out of range",
			dayOfWeek: 3,
			startTime: "09:60",
			endTime:   "12:00",
			wantError: true,
		},
		{
			name:      "dash instead of colon",
			dayOfWeek: 3,
			startTime: "09-00",
			endTime:   "12:00",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := &model.AvailabilityWindow{
				TutorID:   "507f1f77bcf86cd799439011",
				DayOfWeek: tt.dayOfWeek,
				StartTime: tt.startTime,
				EndTime:   tt.endTime,
				Active:    true,
			}
			err := v.Validate(window)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateWindowUpdate(t *testing.T) {
	v := NewAvailabilityValidator(testLogger())

	day := 3
	active := false

	tests := []struct {
		name      string
		update    *model.AvailabilityWindowUpdate
		wantError bool
	}{
		{
			name:      "empty update",
			update:    &model.AvailabilityWindowUpdate{},
			wantError: false,
		},
		{
			name:      "day only",
			update:    &model.AvailabilityWindowUpdate{DayOfWeek: &day},
			wantError: false,
		},
		{
			name:      "deactivate only",
			update:    &model.AvailabilityWindowUpdate{Active: &active},
			wantError: false,
		},
		{
			name: "both clocks in order",
			update: &model.AvailabilityWindowUpdate{
				StartTime: "10:00",
				EndTime:   "11:30",
			},
			wantError: false,
		},
		{
			name: "both clocks inverted",
			update: &model.AvailabilityWindowUpdate{
				StartTime: "11:30",
				EndTime:   "10:00",
			},
			wantError: true,
		},
		{
			name: "malformed clock",
			update: &model.AvailabilityWindowUpdate{
				StartTime: "10am",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(tt.update)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateUpdate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateBlock(t *testing.T) {
	v := NewAvailabilityValidator(testLogger())
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		block     *model.TimeBlock
		wantError bool
	}{
		{
			name: "valid block",
			block: &model.TimeBlock{
				TutorID:   "507f1f77bcf86cd799439011",
				StartTime: start,
				EndTime:   start.Add(2 * time.Hour),
				Reason:    "dentist",
			},
			wantError: false,
		},
		{
			name: "end before start",
			block: &model.TimeBlock{
				TutorID:   "507f1f77bcf86cd799439011",
				StartTime: start,
				EndTime:   start.Add(-time.Hour),
			},
			wantError: true,
		},
		{
			name: "missing tutor",
			block: &model.TimeBlock{
				StartTime: start,
				EndTime:   start.Add(time.Hour),
			},
			wantError: true,
		},
		{
			name: "reason too long",
			block: &model.TimeBlock{
				TutorID:   "507f1f77bcf86cd799439011",
				StartTime: start,
				EndTime:   start.Add(time.Hour),
				Reason:    string(make([]byte, 201)),
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBlock(tt.block)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateBlock() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
