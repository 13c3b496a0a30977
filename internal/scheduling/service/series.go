package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"lessonbook/internal/scheduling/events"
	"lessonbook/internal/scheduling/repository"
	"lessonbook/internal/scheduling/validator"
	"lessonbook/pkg/config"
	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/model"
	"lessonbook/pkg/sanitizer"
	"lessonbook/pkg/token"
)

type SeriesService interface {
	BookSeries(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error)
	RescheduleSeries(ctx context.Context, subscriptionID, parentID string, req *model.SeriesRescheduleRequest) (*model.SeriesRescheduleResult, error)
	CancelSeries(ctx context.Context, subscriptionID, parentID string, req *model.CancelRequest) (*model.SeriesCancelResult, error)
}

// seriesService shares the single-session core: each series position goes
// through the same lock-and-verify path as an individual booking.
type seriesService struct {
	*sessionService
}

func NewSeriesService(
	repo repository.SessionRepository,
	lockRepo repository.TutorLockRepository,
	validator *validator.SessionValidator,
	notifier events.Notifier,
	slotCache *SlotCache,
	cfg *config.Config,
) SeriesService {
	return &seriesService{
		sessionService: newSessionService(repo, lockRepo, validator, notifier, slotCache, cfg),
	}
}

// BookSeries attempts every requested start independently. A taken slot
// fails its own position and the rest of the series still books; the caller
// learns which positions failed from the result.
func (s *seriesService) BookSeries(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error) {
	if req.DurationMin == 0 {
		req.DurationMin = s.cfg.DefaultSessionDurationMin
	}

	if err := s.validator.ValidateSeriesBooking(req, s.cfg.MaxSessionsPerSeries); err != nil {
		s.cfg.Log.Warn("Series booking validation failed", "error", err)
		return nil, apperrors.Validation("Series booking validation failed", map[string]any{"error": err.Error()})
	}

	notes := sanitizer.SanitizeFreeText(req.Notes)
	result := &model.SeriesBookingResult{
		SessionIDs:    []string{},
		FailedIndices: []int{},
	}
	var first *model.Session

	for i, start := range req.StartTimes {
		session, err := s.bookSeriesSession(ctx, req, start, notes)
		if err != nil {
			s.cfg.Log.Warn("Series session booking failed",
				"subscription_id", req.SubscriptionID,
				"position", i+1,
				"scheduled_at", start,
				"error", err,
			)
			result.TotalFailed++
			result.FailedIndices = append(result.FailedIndices, i+1)
			continue
		}

		result.TotalBooked++
		result.SessionIDs = append(result.SessionIDs, session.ID)
		if first == nil {
			first = session
		}
	}

	if first != nil {
		s.notifier.SeriesBooked(ctx, first, result.TotalBooked)
	}

	s.cfg.Log.Info("Series booking completed",
		"subscription_id", req.SubscriptionID,
		"booked", result.TotalBooked,
		"failed", result.TotalFailed,
	)
	return result, nil
}

// RescheduleSeries shifts every remaining scheduled session of a
// subscription onto a new cadence anchored at the new first start. The move
// is all-or-nothing: one conflicting position aborts the whole shift.
func (s *seriesService) RescheduleSeries(ctx context.Context, subscriptionID, parentID string, req *model.SeriesRescheduleRequest) (*model.SeriesRescheduleResult, error) {
	if subscriptionID == "" {
		return nil, apperrors.InvalidInput("Subscription ID cannot be empty")
	}
	if err := s.validator.ValidateSeriesReschedule(req, s.now()); err != nil {
		s.cfg.Log.Warn("Series reschedule validation failed", "subscription_id", subscriptionID, "error", err)
		return nil, apperrors.Validation("Invalid series reschedule input", map[string]any{"error": err.Error()})
	}

	sessions, err := s.repo.FindScheduledBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve series sessions", err)
	}
	if len(sessions) == 0 {
		return nil, apperrors.NotFoundWithID("Series", subscriptionID)
	}
	if sessions[0].ParentID != parentID {
		return nil, apperrors.Forbidden("Only the booking parent can reschedule this series")
	}

	tutorID := sessions[0].TutorID
	step := req.Cadence.Days()
	anchor := req.NewStartTime.UTC()

	// Sessions arrive ordered by scheduled_at; position i lands on
	// anchor + i*step days, keeping each session's own duration.
	type move struct {
		session  *model.Session
		newStart time.Time
		newEnd   time.Time
	}
	moves := make([]move, 0, len(sessions))
	excludeIDs := make([]string, 0, len(sessions))
	for i, session := range sessions {
		start := anchor.AddDate(0, 0, i*step)
		moves = append(moves, move{
			session:  session,
			newStart: start,
			newEnd:   start.Add(time.Duration(session.DurationMin) * time.Minute),
		})
		excludeIDs = append(excludeIDs, session.ID)
	}

	if err := s.acquireTutorLock(ctx, tutorID); err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, tutorID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release tutor lock", "tutor_id", tutorID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for i, m := range moves {
			existing, err := s.repo.FindScheduledInRange(sessCtx, tutorID, m.newStart, m.newEnd, excludeIDs)
			if err != nil {
				return apperrors.Internal("Failed to check existing sessions", err)
			}
			if len(existing) > 0 {
				return apperrors.Conflict(fmt.Sprintf(
					"Session %d of %d overlaps with an existing session at its new time (%s)",
					i+1, len(moves), m.newStart.Format(time.RFC3339),
				))
			}
		}

		for _, m := range moves {
			if err := s.repo.UpdateTimes(sessCtx, m.session.ID, m.newStart, m.session.DurationMin); err != nil {
				return apperrors.Internal("Failed to reschedule series session", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reschedule series", "subscription_id", subscriptionID, "error", err)
		return nil, err
	}

	for _, m := range moves {
		m.session.ScheduledAt = m.newStart
		m.session.EndsAt = m.newEnd
	}

	s.slotCache.Invalidate(ctx, tutorID)
	s.notifier.SeriesRescheduled(ctx, moves[0].session, len(moves))

	s.cfg.Log.Info("Series rescheduled successfully",
		"subscription_id", subscriptionID,
		"count", len(moves),
		"anchor", anchor,
	)
	return &model.SeriesRescheduleResult{RescheduledCount: len(moves)}, nil
}

// CancelSeries cancels every remaining scheduled session of a subscription.
// A series with nothing left to cancel reports zero; cancelling twice is
// not an error.
func (s *seriesService) CancelSeries(ctx context.Context, subscriptionID, parentID string, req *model.CancelRequest) (*model.SeriesCancelResult, error) {
	if subscriptionID == "" {
		return nil, apperrors.InvalidInput("Subscription ID cannot be empty")
	}
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, apperrors.Validation("Invalid cancel input", map[string]any{"error": err.Error()})
	}

	sessions, err := s.repo.FindScheduledBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve series sessions", err)
	}
	if len(sessions) == 0 {
		return &model.SeriesCancelResult{CancelledCount: 0}, nil
	}
	if sessions[0].ParentID != parentID {
		return nil, apperrors.Forbidden("Only the booking parent can cancel this series")
	}

	reason := sanitizer.SanitizeFreeText(req.Reason)
	count, err := s.repo.CancelBySubscription(ctx, subscriptionID, reason)
	if err != nil {
		return nil, apperrors.Internal("Failed to cancel series", err)
	}

	sample := sessions[0]
	s.slotCache.Invalidate(ctx, sample.TutorID)
	if count > 0 {
		s.notifier.SeriesCancelled(ctx, sample, int(count), reason)
	}

	s.cfg.Log.Info("Series cancelled",
		"subscription_id", subscriptionID,
		"count", count,
	)
	return &model.SeriesCancelResult{CancelledCount: int(count)}, nil
}

func (s *seriesService) bookSeriesSession(ctx context.Context, req *model.SeriesBookingRequest, start time.Time, notes string) (*model.Session, error) {
	tok, err := token.New()
	if err != nil {
		return nil, apperrors.Internal("Failed to mint management token", err)
	}

	session := &model.Session{
		TutorID:         req.TutorID,
		ParentID:        req.ParentID,
		SubscriptionID:  req.SubscriptionID,
		ScheduledAt:     start.UTC(),
		DurationMin:     req.DurationMin,
		Status:          model.SessionStatusScheduled,
		ManagementToken: tok,
		Notes:           notes,
	}

	if err := s.validate(session); err != nil {
		return nil, err
	}
	if err := s.bookOne(ctx, session, false); err != nil {
		return nil, err
	}
	return session, nil
}
