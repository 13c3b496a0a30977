package service

import (
	"context"
	"testing"
	"time"

	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/model"
)

// slotMonday is the resolution day used across resolver tests, one week
// after testNow so nothing is filtered as past.
var slotMonday = time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return slotMonday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func assertSlotStarts(t *testing.T, slots []model.Slot, want []time.Time) {
	t.Helper()
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].StartTime.Equal(w) {
			t.Errorf("slot %d starts at %v, want %v", i, slots[i].StartTime, w)
		}
	}
}

func TestResolveSlots(t *testing.T) {
	window := func(start, end string) *model.AvailabilityWindow {
		return mondayWindow(start, end)
	}

	tests := []struct {
		name        string
		windows     []*model.AvailabilityWindow
		blocks      []*model.TimeBlock
		sessions    []*model.Session
		durationMin int
		want        []time.Time
	}{
		{
			name:        "hour slots fill the window",
			windows:     []*model.AvailabilityWindow{window("09:00", "12:00")},
			durationMin: 60,
			want:        []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0)},
		},
		{
			name:        "half hour slots",
			windows:     []*model.AvailabilityWindow{window("09:00", "12:00")},
			durationMin: 30,
			want:        []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0), at(11, 30)},
		},
		{
			name:    "booked session removes overlapping starts",
			windows: []*model.AvailabilityWindow{window("09:00", "12:00")},
			sessions: []*model.Session{
				scheduledSession(testSessionID, at(10, 0), 60),
			},
			durationMin: 60,
			want:        []time.Time{at(9, 0), at(11, 0)},
		},
		{
			name:    "cancelled session does not block",
			windows: []*model.AvailabilityWindow{window("09:00", "12:00")},
			sessions: []*model.Session{
				func() *model.Session {
					s := scheduledSession(testSessionID, at(10, 0), 60)
					s.Status = model.SessionStatusCancelled
					return s
				}(),
			},
			durationMin: 60,
			want:        []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0)},
		},
		{
			name:    "time block removes starts",
			windows: []*model.AvailabilityWindow{window("09:00", "12:00")},
			blocks: []*model.TimeBlock{
				{TutorID: testTutorID, StartTime: at(9, 0), EndTime: at(10, 0)},
			},
			durationMin: 60,
			want:        []time.Time{at(10, 0), at(10, 30), at(11, 0)},
		},
		{
			name: "inactive window yields nothing",
			windows: []*model.AvailabilityWindow{
				func() *model.AvailabilityWindow {
					w := window("09:00", "12:00")
					w.Active = false
					return w
				}(),
			},
			durationMin: 60,
			want:        []time.Time{},
		},
		{
			name: "window on another weekday yields nothing",
			windows: []*model.AvailabilityWindow{
				func() *model.AvailabilityWindow {
					w := window("09:00", "12:00")
					w.DayOfWeek = 2
					return w
				}(),
			},
			durationMin: 60,
			want:        []time.Time{},
		},
		{
			name: "overlapping windows propose each start once",
			windows: []*model.AvailabilityWindow{
				window("09:00", "12:00"),
				window("10:00", "13:00"),
			},
			durationMin: 60,
			want: []time.Time{
				at(9, 0), at(9, 30), at(10, 0), at(10, 30),
				at(11, 0), at(11, 30), at(12, 0),
			},
		},
		{
			name:        "duration longer than the window yields nothing",
			windows:     []*model.AvailabilityWindow{window("09:00", "10:00")},
			durationMin: 90,
			want:        []time.Time{},
		},
		{
			name: "malformed clock string is skipped",
			windows: []*model.AvailabilityWindow{
				window("9am", "12:00"),
			},
			durationMin: 60,
			want:        []time.Time{},
		},
		{
			name:        "no windows yields nothing",
			windows:     []*model.AvailabilityWindow{},
			durationMin: 60,
			want:        []time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSlots(tt.windows, tt.blocks, tt.sessions, slotMonday, tt.durationMin, testNow)
			assertSlotStarts(t, got, tt.want)
		})
	}
}

func TestResolveSlots_FiltersPastStarts(t *testing.T) {
	// Resolving the current day at 10:15 must only offer starts strictly
	// after that instant.
	now := slotMonday.Add(10*time.Hour + 15*time.Minute)
	windows := []*model.AvailabilityWindow{mondayWindow("09:00", "12:00")}

	got := ResolveSlots(windows, nil, nil, slotMonday, 60, now)
	assertSlotStarts(t, got, []time.Time{at(10, 30), at(11, 0)})
}

func TestResolveSlots_StartExactlyNowIsExcluded(t *testing.T) {
	now := at(10, 0)
	windows := []*model.AvailabilityWindow{mondayWindow("09:00", "12:00")}

	got := ResolveSlots(windows, nil, nil, slotMonday, 60, now)
	assertSlotStarts(t, got, []time.Time{at(10, 30), at(11, 0)})
}

func TestResolveSlots_BackToBackSessionsDoNotBlockBoundaries(t *testing.T) {
	windows := []*model.AvailabilityWindow{mondayWindow("09:00", "12:00")}
	sessions := []*model.Session{
		scheduledSession(testSessionID, at(10, 0), 60),
	}

	got := ResolveSlots(windows, nil, sessions, slotMonday, 60, testNow)

	// 09:00 ends exactly when the busy hour starts; 11:00 starts exactly
	// when it ends. Half-open ranges make both bookable.
	assertSlotStarts(t, got, []time.Time{at(9, 0), at(11, 0)})
}

// ────────────────────────────────────────────────
// SlotService
// ────────────────────────────────────────────────

func newTestSlotService(sessions *mockSessionRepository, windows *mockAvailabilityRepository, blocks *mockTimeBlockRepository) *slotService {
	cfg := testConfig()
	return &slotService{
		sessionRepo: sessions,
		availRepo:   windows,
		blockRepo:   blocks,
		slotCache:   NewSlotCache(nil, cfg.SlotCacheTTL),
		cfg:         cfg,
		now:         func() time.Time { return testNow },
	}
}

func TestGetAvailableSlots_CombinesSources(t *testing.T) {
	windows := &mockAvailabilityRepository{
		findActiveForDayFunc: func(ctx context.Context, tutorID string, dayOfWeek int) ([]*model.AvailabilityWindow, error) {
			if dayOfWeek != 1 {
				t.Errorf("expected weekday 1, got %d", dayOfWeek)
			}
			return []*model.AvailabilityWindow{mondayWindow("09:00", "12:00")}, nil
		},
	}
	blocks := &mockTimeBlockRepository{
		findInRangeFunc: func(ctx context.Context, tutorID string, start, end time.Time) ([]*model.TimeBlock, error) {
			return []*model.TimeBlock{
				{TutorID: testTutorID, StartTime: at(9, 0), EndTime: at(10, 0)},
			}, nil
		},
	}
	sessions := &mockSessionRepository{
		findScheduledInRangeFunc: func(ctx context.Context, tutorID string, start, end time.Time, excludeIDs []string) ([]*model.Session, error) {
			return []*model.Session{scheduledSession(testSessionID, at(11, 0), 60)}, nil
		},
	}
	svc := newTestSlotService(sessions, windows, blocks)

	got, err := svc.GetAvailableSlots(context.Background(), testTutorID, slotMonday, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The block eats 09:00-10:00 and the session eats 11:00-12:00,
	// leaving exactly the 10:00 start.
	assertSlotStarts(t, got, []time.Time{at(10, 0)})
	if !got[0].EndTime.Equal(at(11, 0)) {
		t.Errorf("slot end %v, want %v", got[0].EndTime, at(11, 0))
	}
}

func TestGetAvailableSlots_DefaultsDuration(t *testing.T) {
	windows := &mockAvailabilityRepository{
		findActiveForDayFunc: func(ctx context.Context, tutorID string, dayOfWeek int) ([]*model.AvailabilityWindow, error) {
			return []*model.AvailabilityWindow{mondayWindow("09:00", "10:30")}, nil
		},
	}
	svc := newTestSlotService(&mockSessionRepository{}, windows, &mockTimeBlockRepository{})

	// Default duration is 60, so a 90 minute window offers two starts.
	got, err := svc.GetAvailableSlots(context.Background(), testTutorID, slotMonday, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSlotStarts(t, got, []time.Time{at(9, 0), at(9, 30)})
}

func TestGetAvailableSlots_RejectsBadInput(t *testing.T) {
	svc := newTestSlotService(&mockSessionRepository{}, &mockAvailabilityRepository{}, &mockTimeBlockRepository{})

	tests := []struct {
		name        string
		tutorID     string
		durationMin int
	}{
		{name: "empty tutor id", tutorID: "", durationMin: 60},
		{name: "duration too short", tutorID: testTutorID, durationMin: 10},
		{name: "duration too long", tutorID: testTutorID, durationMin: 481},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetAvailableSlots(context.Background(), tt.tutorID, slotMonday, tt.durationMin)
			if code := appErrCode(t, err); code != apperrors.CodeInvalidInput {
				t.Errorf("expected %s, got %s", apperrors.CodeInvalidInput, code)
			}
		})
	}
}
