package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/model"
)

func newTestSeriesService(repo *mockSessionRepository, locks *mockTutorLockRepository, notifier *mockNotifier) *seriesService {
	return &seriesService{
		sessionService: newTestSessionService(repo, locks, notifier, testConfig()),
	}
}

func seriesRequest(starts ...time.Time) *model.SeriesBookingRequest {
	return &model.SeriesBookingRequest{
		TutorID:        testTutorID,
		ParentID:       testParentID,
		SubscriptionID: testSubscriptionID,
		StartTimes:     starts,
		DurationMin:    60,
	}
}

func TestBookSeries_AllSucceed(t *testing.T) {
	createdIDs := []string{}
	repo := &mockSessionRepository{
		createFunc: func(ctx context.Context, session *model.Session) error {
			session.ID = fmt.Sprintf("created-%d", len(createdIDs)+1)
			createdIDs = append(createdIDs, session.ID)
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, notifier)

	starts := []time.Time{
		testNow.Add(24 * time.Hour),
		testNow.Add(7 * 24 * time.Hour),
		testNow.Add(14 * 24 * time.Hour),
	}
	result, err := svc.BookSeries(context.Background(), seriesRequest(starts...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalBooked != 3 {
		t.Errorf("expected 3 booked, got %d", result.TotalBooked)
	}
	if result.TotalFailed != 0 {
		t.Errorf("expected 0 failed, got %d", result.TotalFailed)
	}
	if len(result.SessionIDs) != 3 {
		t.Errorf("expected 3 session IDs, got %d", len(result.SessionIDs))
	}
	if notifier.seriesBooked != 1 {
		t.Errorf("expected 1 series event, got %d", notifier.seriesBooked)
	}
	if notifier.lastSeriesCount != 3 {
		t.Errorf("series event count %d, want 3", notifier.lastSeriesCount)
	}
	if notifier.bookedCount != 0 {
		t.Errorf("series booking must not emit per-session events, got %d", notifier.bookedCount)
	}
}

func TestBookSeries_TakenSlotFailsOnlyItsPosition(t *testing.T) {
	starts := []time.Time{
		testNow.Add(24 * time.Hour),
		testNow.Add(7 * 24 * time.Hour),
		testNow.Add(14 * 24 * time.Hour),
	}

	created := 0
	repo := &mockSessionRepository{
		findScheduledInRangeFunc: func(ctx context.Context, tutorID string, s, e time.Time, excludeIDs []string) ([]*model.Session, error) {
			if s.Equal(starts[1]) {
				return []*model.Session{scheduledSession(testSessionID, starts[1], 60)}, nil
			}
			return []*model.Session{}, nil
		},
		createFunc: func(ctx context.Context, session *model.Session) error {
			created++
			session.ID = fmt.Sprintf("created-%d", created)
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, notifier)

	result, err := svc.BookSeries(context.Background(), seriesRequest(starts...))
	if err != nil {
		t.Fatalf("partial failure must not fail the call: %v", err)
	}

	if result.TotalBooked != 2 {
		t.Errorf("expected 2 booked, got %d", result.TotalBooked)
	}
	if result.TotalFailed != 1 {
		t.Errorf("expected 1 failed, got %d", result.TotalFailed)
	}
	if len(result.FailedIndices) != 1 || result.FailedIndices[0] != 2 {
		t.Errorf("expected failed index [2], got %v", result.FailedIndices)
	}
	if notifier.lastSeriesFirst == nil || !notifier.lastSeriesFirst.ScheduledAt.Equal(starts[0]) {
		t.Error("series event must reference the first successful session")
	}
	if notifier.lastSeriesCount != 2 {
		t.Errorf("series event count %d, want 2", notifier.lastSeriesCount)
	}
}

func TestBookSeries_PastStartFailsOwnPosition(t *testing.T) {
	starts := []time.Time{
		testNow.Add(-24 * time.Hour),
		testNow.Add(24 * time.Hour),
	}
	created := 0
	repo := &mockSessionRepository{
		createFunc: func(ctx context.Context, session *model.Session) error {
			created++
			session.ID = fmt.Sprintf("created-%d", created)
			return nil
		},
	}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, &mockNotifier{})

	result, err := svc.BookSeries(context.Background(), seriesRequest(starts...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalBooked != 1 {
		t.Errorf("expected 1 booked, got %d", result.TotalBooked)
	}
	if len(result.FailedIndices) != 1 || result.FailedIndices[0] != 1 {
		t.Errorf("expected failed index [1], got %v", result.FailedIndices)
	}
}

func TestBookSeries_AllFailEmitsNoEvent(t *testing.T) {
	start := testNow.Add(24 * time.Hour)
	repo := &mockSessionRepository{
		findScheduledInRangeFunc: func(ctx context.Context, tutorID string, s, e time.Time, excludeIDs []string) ([]*model.Session, error) {
			return []*model.Session{scheduledSession(testSessionID, s, 60)}, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, notifier)

	result, err := svc.BookSeries(context.Background(), seriesRequest(start))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalBooked != 0 {
		t.Errorf("expected 0 booked, got %d", result.TotalBooked)
	}
	if notifier.seriesBooked != 0 {
		t.Errorf("an empty series must not emit an event, got %d", notifier.seriesBooked)
	}
}

func TestBookSeries_OverCapRejected(t *testing.T) {
	starts := make([]time.Time, 53)
	for i := range starts {
		starts[i] = testNow.Add(time.Duration(i+1) * 24 * time.Hour)
	}
	svc := newTestSeriesService(&mockSessionRepository{}, &mockTutorLockRepository{}, &mockNotifier{})

	_, err := svc.BookSeries(context.Background(), seriesRequest(starts...))
	if code := appErrCode(t, err); code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %s", apperrors.CodeValidation, code)
	}
}

// ────────────────────────────────────────────────
// RescheduleSeries
// ────────────────────────────────────────────────

func TestRescheduleSeries_ShiftsEveryPosition(t *testing.T) {
	first := scheduledSession("64f1b2a3c4d5e6f7a8b9c001", testNow.Add(24*time.Hour), 60)
	second := scheduledSession("64f1b2a3c4d5e6f7a8b9c002", testNow.Add(8*24*time.Hour), 90)

	movedTo := map[string]time.Time{}
	movedDuration := map[string]int{}
	var capturedExclude []string
	repo := &mockSessionRepository{
		findScheduledBySubscriptionFunc: func(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
			return []*model.Session{first, second}, nil
		},
		findScheduledInRangeFunc: func(ctx context.Context, tutorID string, s, e time.Time, excludeIDs []string) ([]*model.Session, error) {
			capturedExclude = excludeIDs
			return []*model.Session{}, nil
		},
		updateTimesFunc: func(ctx context.Context, id string, scheduledAt time.Time, durationMin int) error {
			movedTo[id] = scheduledAt
			movedDuration[id] = durationMin
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, notifier)

	anchor := time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC)
	result, err := svc.RescheduleSeries(context.Background(), testSubscriptionID, testParentID, &model.SeriesRescheduleRequest{
		NewStartTime: anchor,
		Cadence:      model.CadenceWeekly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RescheduledCount != 2 {
		t.Errorf("expected 2 rescheduled, got %d", result.RescheduledCount)
	}
	if !movedTo[first.ID].Equal(anchor) {
		t.Errorf("first session moved to %v, want %v", movedTo[first.ID], anchor)
	}
	if want := anchor.AddDate(0, 0, 7); !movedTo[second.ID].Equal(want) {
		t.Errorf("second session moved to %v, want %v", movedTo[second.ID], want)
	}
	if movedDuration[second.ID] != 90 {
		t.Errorf("second session duration %d, want its own 90", movedDuration[second.ID])
	}
	if len(capturedExclude) != 2 {
		t.Errorf("overlap checks must exclude the whole series, got %v", capturedExclude)
	}
	if notifier.seriesRescheduled != 1 {
		t.Errorf("expected 1 series rescheduled event, got %d", notifier.seriesRescheduled)
	}
}

func TestRescheduleSeries_BiweeklyStep(t *testing.T) {
	first := scheduledSession("64f1b2a3c4d5e6f7a8b9c001", testNow.Add(24*time.Hour), 60)
	second := scheduledSession("64f1b2a3c4d5e6f7a8b9c002", testNow.Add(8*24*time.Hour), 60)

	movedTo := map[string]time.Time{}
	repo := &mockSessionRepository{
		findScheduledBySubscriptionFunc: func(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
			return []*model.Session{first, second}, nil
		},
		updateTimesFunc: func(ctx context.Context, id string, scheduledAt time.Time, durationMin int) error {
			movedTo[id] = scheduledAt
			return nil
		},
	}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, &mockNotifier{})

	anchor := time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC)
	_, err := svc.RescheduleSeries(context.Background(), testSubscriptionID, testParentID, &model.SeriesRescheduleRequest{
		NewStartTime: anchor,
		Cadence:      model.CadenceBiweekly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := anchor.AddDate(0, 0, 14); !movedTo[second.ID].Equal(want) {
		t.Errorf("second session moved to %v, want %v", movedTo[second.ID], want)
	}
}

func TestRescheduleSeries_ConflictAbortsWholeShift(t *testing.T) {
	first := scheduledSession("64f1b2a3c4d5e6f7a8b9c001", testNow.Add(24*time.Hour), 60)
	second := scheduledSession("64f1b2a3c4d5e6f7a8b9c002", testNow.Add(8*24*time.Hour), 60)
	anchor := time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC)
	secondNewStart := anchor.AddDate(0, 0, 7)

	updates := 0
	repo := &mockSessionRepository{
		findScheduledBySubscriptionFunc: func(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
			return []*model.Session{first, second}, nil
		},
		findScheduledInRangeFunc: func(ctx context.Context, tutorID string, s, e time.Time, excludeIDs []string) ([]*model.Session, error) {
			if s.Equal(secondNewStart) {
				return []*model.Session{scheduledSession(testSessionID, secondNewStart, 60)}, nil
			}
			return []*model.Session{}, nil
		},
		updateTimesFunc: func(ctx context.Context, id string, scheduledAt time.Time, durationMin int) error {
			updates++
			return nil
		},
	}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, &mockNotifier{})

	_, err := svc.RescheduleSeries(context.Background(), testSubscriptionID, testParentID, &model.SeriesRescheduleRequest{
		NewStartTime: anchor,
		Cadence:      model.CadenceWeekly,
	})
	if code := appErrCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, code)
	}
	if updates != 0 {
		t.Errorf("no session may move when one position conflicts, got %d updates", updates)
	}
}

func TestRescheduleSeries_NothingScheduledIsNotFound(t *testing.T) {
	svc := newTestSeriesService(&mockSessionRepository{}, &mockTutorLockRepository{}, &mockNotifier{})

	_, err := svc.RescheduleSeries(context.Background(), testSubscriptionID, testParentID, &model.SeriesRescheduleRequest{
		NewStartTime: testNow.Add(24 * time.Hour),
		Cadence:      model.CadenceWeekly,
	})
	if code := appErrCode(t, err); code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %s", apperrors.CodeNotFound, code)
	}
}

func TestRescheduleSeries_WrongParentForbidden(t *testing.T) {
	first := scheduledSession("64f1b2a3c4d5e6f7a8b9c001", testNow.Add(24*time.Hour), 60)
	repo := &mockSessionRepository{
		findScheduledBySubscriptionFunc: func(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
			return []*model.Session{first}, nil
		},
	}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, &mockNotifier{})

	_, err := svc.RescheduleSeries(context.Background(), testSubscriptionID, "64f1b2a3c4d5e6f7a8b9c0ff", &model.SeriesRescheduleRequest{
		NewStartTime: testNow.Add(24 * time.Hour),
		Cadence:      model.CadenceWeekly,
	})
	if code := appErrCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("expected %s, got %s", apperrors.CodeForbidden, code)
	}
}

// ────────────────────────────────────────────────
// CancelSeries
// ────────────────────────────────────────────────

func TestCancelSeries_CancelsRemaining(t *testing.T) {
	first := scheduledSession("64f1b2a3c4d5e6f7a8b9c001", testNow.Add(24*time.Hour), 60)
	second := scheduledSession("64f1b2a3c4d5e6f7a8b9c002", testNow.Add(8*24*time.Hour), 60)

	var capturedReason string
	repo := &mockSessionRepository{
		findScheduledBySubscriptionFunc: func(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
			return []*model.Session{first, second}, nil
		},
		cancelBySubscriptionFunc: func(ctx context.Context, subscriptionID string, reason string) (int64, error) {
			capturedReason = reason
			return 2, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestSeriesService(repo, &mockTutorLockRepository{}, notifier)

	result, err := svc.CancelSeries(context.Background(), testSubscriptionID, testParentID, &model.CancelRequest{
		Reason: "  schedule   change ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CancelledCount != 2 {
		t.Errorf("expected 2 cancelled, got %d", result.CancelledCount)
	}
	if capturedReason != "schedule change" {
		t.Errorf("expected sanitized reason, got %q", capturedReason)
	}
	if notifier.seriesCancelled != 1 {
		t.Errorf("expected 1 series cancelled event, got %d", notifier.seriesCancelled)
	}
}

func TestCancelSeries_NothingLeftIsIdempotent(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestSeriesService(&mockSessionRepository{}, &mockTutorLockRepository{}, notifier)

	result, err := svc.CancelSeries(context.Background(), testSubscriptionID, testParentID, &model.CancelRequest{})
	if err != nil {
		t.Fatalf("cancelling an already cancelled series must succeed: %v", err)
	}
	if result.CancelledCount != 0 {
		t.Errorf("expected 0 cancelled, got %d", result.CancelledCount)
	}
	if notifier.seriesCancelled != 0 {
		t.Errorf("expected no event for an empty cancel, got %d", notifier.seriesCancelled)
	}
}
