package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	schedulingerrors "lessonbook/internal/scheduling/errors"
	"lessonbook/internal/scheduling/events"
	"lessonbook/internal/scheduling/repository"
	"lessonbook/internal/scheduling/validator"
	"lessonbook/pkg/config"
	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/model"
	"lessonbook/pkg/sanitizer"
	"lessonbook/pkg/token"
)

type SessionService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Session, error)
	GetByID(ctx context.Context, id, requesterID string) (*model.Session, error)
	ListByTutor(ctx context.Context, tutorID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, int64, error)
	ListByParent(ctx context.Context, parentID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, int64, error)
	Reschedule(ctx context.Context, id, parentID string, req *model.RescheduleRequest) (*model.Session, error)
	Cancel(ctx context.Context, id, parentID string, req *model.CancelRequest) error
	UpdateStatus(ctx context.Context, id, tutorID string, req *model.StatusUpdateRequest) error
	GetByToken(ctx context.Context, tok string) (*model.Session, error)
	CancelByToken(ctx context.Context, tok string, req *model.CancelRequest) error
	RescheduleByToken(ctx context.Context, tok string, req *model.RescheduleRequest) (*model.Session, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	lockRepo  repository.TutorLockRepository
	validator *validator.SessionValidator
	notifier  events.Notifier
	slotCache *SlotCache
	cfg       *config.Config
	now       func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	lockRepo repository.TutorLockRepository,
	validator *validator.SessionValidator,
	notifier events.Notifier,
	slotCache *SlotCache,
	cfg *config.Config,
) SessionService {
	return newSessionService(repo, lockRepo, validator, notifier, slotCache, cfg)
}

func newSessionService(
	repo repository.SessionRepository,
	lockRepo repository.TutorLockRepository,
	validator *validator.SessionValidator,
	notifier events.Notifier,
	slotCache *SlotCache,
	cfg *config.Config,
) *sessionService {
	return &sessionService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		notifier:  notifier,
		slotCache: slotCache,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *sessionService) Book(ctx context.Context, req *model.BookingRequest) (*model.Session, error) {
	if req.DurationMin == 0 {
		req.DurationMin = s.cfg.DefaultSessionDurationMin
	}

	tok, err := token.New()
	if err != nil {
		return nil, apperrors.Internal("Failed to mint management token", err)
	}

	session := &model.Session{
		TutorID:         req.TutorID,
		ParentID:        req.ParentID,
		SubscriptionID:  req.SubscriptionID,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMin:     req.DurationMin,
		Status:          model.SessionStatusScheduled,
		ManagementToken: tok,
		Notes:           sanitizer.SanitizeFreeText(req.Notes),
	}

	if err := s.validate(session); err != nil {
		return nil, err
	}

	if err := s.bookOne(ctx, session, true); err != nil {
		s.cfg.Log.Error("Failed to book session",
			"tutor_id", session.TutorID,
			"scheduled_at", session.ScheduledAt,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Session booked successfully",
		"id", session.ID,
		"tutor_id", session.TutorID,
		"parent_id", session.ParentID,
		"scheduled_at", session.ScheduledAt,
	)
	return session, nil
}

func (s *sessionService) GetByID(ctx context.Context, id, requesterID string) (*model.Session, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if requesterID != session.ParentID && requesterID != session.TutorID {
		return nil, apperrors.Forbidden("You do not have access to this session")
	}

	return session, nil
}

func (s *sessionService) ListByTutor(ctx context.Context, tutorID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, int64, error) {
	if tutorID == "" {
		return nil, 0, apperrors.InvalidInput("Tutor ID cannot be empty")
	}
	return s.list(ctx,
		func(ctx context.Context) ([]*model.Session, error) {
			return s.repo.FindByTutor(ctx, tutorID, from, to, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByTutor(ctx, tutorID, from, to)
		},
	)
}

func (s *sessionService) ListByParent(ctx context.Context, parentID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, int64, error) {
	if parentID == "" {
		return nil, 0, apperrors.InvalidInput("Parent ID cannot be empty")
	}
	return s.list(ctx,
		func(ctx context.Context) ([]*model.Session, error) {
			return s.repo.FindByParent(ctx, parentID, from, to, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByParent(ctx, parentID, from, to)
		},
	)
}

func (s *sessionService) Reschedule(ctx context.Context, id, parentID string, req *model.RescheduleRequest) (*model.Session, error) {
	if err := s.validator.ValidateReschedule(req, s.now()); err != nil {
		s.cfg.Log.Warn("Reschedule validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid reschedule input", map[string]any{"error": err.Error()})
	}

	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ParentID != parentID {
		return nil, apperrors.Forbidden("Only the booking parent can reschedule this session")
	}

	if err := s.rescheduleSession(ctx, session, req.NewScheduledAt.UTC()); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Cancel(ctx context.Context, id, parentID string, req *model.CancelRequest) error {
	if err := s.validator.ValidateCancel(req); err != nil {
		s.cfg.Log.Warn("Cancel validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid cancel input", map[string]any{"error": err.Error()})
	}

	session, err := s.findSession(ctx, id)
	if err != nil {
		return err
	}
	if session.ParentID != parentID {
		return apperrors.Forbidden("Only the booking parent can cancel this session")
	}

	return s.cancelSession(ctx, session, sanitizer.SanitizeFreeText(req.Reason))
}

func (s *sessionService) UpdateStatus(ctx context.Context, id, tutorID string, req *model.StatusUpdateRequest) error {
	if err := s.validator.ValidateStatusUpdate(req); err != nil {
		s.cfg.Log.Warn("Status update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid status update input", map[string]any{"error": err.Error()})
	}

	session, err := s.findSession(ctx, id)
	if err != nil {
		return err
	}
	if session.TutorID != tutorID {
		return apperrors.Forbidden("Only the session's tutor can update its status")
	}
	if session.IsTerminal() {
		return apperrors.Validation("Session is already in a terminal status", map[string]any{"status": string(session.Status)})
	}

	if req.Status == model.SessionStatusCancelled {
		return s.cancelSession(ctx, session, "")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, ""); err != nil {
		if errors.Is(err, schedulingerrors.ErrSessionNotFound) {
			return apperrors.NotFoundWithID("Session", id)
		}
		return apperrors.Internal("Failed to update session status", err)
	}

	s.slotCache.Invalidate(ctx, session.TutorID)

	s.cfg.Log.Info("Session status updated",
		"id", id,
		"tutor_id", tutorID,
		"status", req.Status,
	)
	return nil
}

func (s *sessionService) GetByToken(ctx context.Context, tok string) (*model.Session, error) {
	return s.findByToken(ctx, tok)
}

func (s *sessionService) CancelByToken(ctx context.Context, tok string, req *model.CancelRequest) error {
	if err := s.validator.ValidateCancel(req); err != nil {
		return apperrors.Validation("Invalid cancel input", map[string]any{"error": err.Error()})
	}

	session, err := s.findByToken(ctx, tok)
	if err != nil {
		return err
	}

	return s.cancelSession(ctx, session, sanitizer.SanitizeFreeText(req.Reason))
}

func (s *sessionService) RescheduleByToken(ctx context.Context, tok string, req *model.RescheduleRequest) (*model.Session, error) {
	if err := s.validator.ValidateReschedule(req, s.now()); err != nil {
		return nil, apperrors.Validation("Invalid reschedule input", map[string]any{"error": err.Error()})
	}

	session, err := s.findByToken(ctx, tok)
	if err != nil {
		return nil, err
	}

	if err := s.rescheduleSession(ctx, session, req.NewScheduledAt.UTC()); err != nil {
		return nil, err
	}
	return session, nil
}

// --- Helpers ---

// bookOne runs the conflict-safe core for an already validated session:
// tutor lock, transactional overlap re-check, insert. notify controls the
// per-session event; series booking suppresses it in favor of one
// aggregate event.
func (s *sessionService) bookOne(ctx context.Context, session *model.Session, notify bool) error {
	if err := s.acquireTutorLock(ctx, session.TutorID); err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, session.TutorID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release tutor lock", "tutor_id", session.TutorID, "error", releaseErr)
		}
	}()

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, session.TutorID, session.ScheduledAt, session.End(), nil); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, session); err != nil {
			return apperrors.Internal("Failed to create session", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.slotCache.Invalidate(ctx, session.TutorID)
	if notify {
		s.notifier.SessionBooked(ctx, session)
	}
	return nil
}

// rescheduleSession moves one session under the tutor lock, re-checking
// conflicts against everything except the session itself.
func (s *sessionService) rescheduleSession(ctx context.Context, session *model.Session, newStart time.Time) error {
	if session.IsTerminal() {
		return apperrors.Validation("Only scheduled sessions can be rescheduled", map[string]any{"status": string(session.Status)})
	}

	previousStart := session.ScheduledAt
	newEnd := newStart.Add(time.Duration(session.DurationMin) * time.Minute)

	if err := s.acquireTutorLock(ctx, session.TutorID); err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, session.TutorID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release tutor lock", "tutor_id", session.TutorID, "error", releaseErr)
		}
	}()

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, session.TutorID, newStart, newEnd, []string{session.ID}); err != nil {
			return err
		}
		if err := s.repo.UpdateTimes(sessCtx, session.ID, newStart, session.DurationMin); err != nil {
			if errors.Is(err, schedulingerrors.ErrSessionNotFound) {
				return apperrors.NotFoundWithID("Session", session.ID)
			}
			return apperrors.Internal("Failed to reschedule session", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reschedule session", "id", session.ID, "error", err)
		return err
	}

	session.ScheduledAt = newStart
	session.EndsAt = newEnd

	s.slotCache.Invalidate(ctx, session.TutorID)
	s.notifier.SessionRescheduled(ctx, session, previousStart)

	s.cfg.Log.Info("Session rescheduled successfully",
		"id", session.ID,
		"previous_start", previousStart,
		"new_start", newStart,
	)
	return nil
}

func (s *sessionService) cancelSession(ctx context.Context, session *model.Session, reason string) error {
	if session.IsTerminal() {
		return apperrors.Validation("Only scheduled sessions can be cancelled", map[string]any{"status": string(session.Status)})
	}

	if err := s.repo.UpdateStatus(ctx, session.ID, model.SessionStatusCancelled, reason); err != nil {
		if errors.Is(err, schedulingerrors.ErrSessionNotFound) {
			return apperrors.NotFoundWithID("Session", session.ID)
		}
		return apperrors.Internal("Failed to cancel session", err)
	}

	session.Status = model.SessionStatusCancelled
	session.CancelReason = reason

	s.slotCache.Invalidate(ctx, session.TutorID)
	s.notifier.SessionCancelled(ctx, session, reason)

	s.cfg.Log.Info("Session cancelled successfully",
		"id", session.ID,
		"tutor_id", session.TutorID,
	)
	return nil
}

// acquireTutorLock waits for the tutor's advisory lock up to the configured
// deadline. Exhausting the wait is not a schedule conflict; it surfaces as
// an internal failure.
func (s *sessionService) acquireTutorLock(ctx context.Context, tutorID string) error {
	deadline := time.Now().Add(s.cfg.TutorLockWaitTimeout)
	for {
		err := s.lockRepo.Acquire(ctx, tutorID, s.cfg.TutorLockTTL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, schedulingerrors.ErrLockHeld) {
			return apperrors.Internal("Failed to acquire tutor lock", err)
		}
		if time.Now().After(deadline) {
			return apperrors.Internal("Timed out waiting for tutor lock", err)
		}

		select {
		case <-ctx.Done():
			return apperrors.Internal("Cancelled while waiting for tutor lock", ctx.Err())
		case <-time.After(s.cfg.TutorLockRetryInterval):
		}
	}
}

// verifyNoOverlap asserts the tutor has no scheduled session intersecting
// [start, end). The repository filter is the half-open overlap predicate,
// so any returned document is a conflict.
func (s *sessionService) verifyNoOverlap(ctx context.Context, tutorID string, start, end time.Time, excludeIDs []string) error {
	existing, err := s.repo.FindScheduledInRange(ctx, tutorID, start, end, excludeIDs)
	if err != nil {
		return apperrors.Internal("Failed to check existing sessions", err)
	}
	if len(existing) > 0 {
		first := existing[0]
		return apperrors.Conflict(fmt.Sprintf(
			"Session time overlaps with an existing session (%s - %s)",
			first.ScheduledAt.Format(time.RFC3339),
			first.End().Format(time.RFC3339),
		))
	}
	return nil
}

func (s *sessionService) findSession(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Session", id)
		}
		if errors.Is(err, schedulingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid session ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}
	return session, nil
}

// findByToken gates on token shape before touching the datastore, so a
// malformed token is INVALID_INPUT and never a NOT_FOUND.
func (s *sessionService) findByToken(ctx context.Context, tok string) (*model.Session, error) {
	if !token.IsValid(tok) {
		return nil, apperrors.InvalidInput("Malformed management token")
	}

	session, err := s.repo.FindByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrSessionNotFound) {
			return nil, apperrors.NotFound("Session")
		}
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}
	return session, nil
}

func (s *sessionService) validate(session *model.Session) error {
	if err := s.validator.Validate(session, s.now()); err != nil {
		s.cfg.Log.Warn("Session validation failed", "error", err)
		return apperrors.Validation("Session validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *sessionService) list(
	ctx context.Context,
	find func(context.Context) ([]*model.Session, error),
	count func(context.Context) (int64, error),
) ([]*model.Session, int64, error) {
	var total int64
	var sessions []*model.Session
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count sessions", "error", errCount)
			errCount = apperrors.Internal("Failed to count sessions", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		sessions, errFind = find(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list sessions", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve sessions", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return sessions, total, nil
}
