package service

import (
	"context"
	"errors"
	"time"

	schedulingerrors "lessonbook/internal/scheduling/errors"
	"lessonbook/internal/scheduling/repository"
	"lessonbook/internal/scheduling/validator"
	"lessonbook/pkg/config"
	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/interval"
	"lessonbook/pkg/model"
	"lessonbook/pkg/sanitizer"
)

type AvailabilityService interface {
	CreateWindow(ctx context.Context, window *model.AvailabilityWindow) (*model.AvailabilityWindow, error)
	ListWindows(ctx context.Context, tutorID string) ([]*model.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, id, tutorID string, update *model.AvailabilityWindowUpdate) (*model.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id, tutorID string) error
	CreateBlock(ctx context.Context, block *model.TimeBlock) (*model.TimeBlock, error)
	ListBlocks(ctx context.Context, tutorID string) ([]*model.TimeBlock, error)
	DeleteBlock(ctx context.Context, id, tutorID string) error
	IsTutorAvailable(ctx context.Context, tutorID string, start, end time.Time) (*model.EligibilityResult, error)
}

type availabilityService struct {
	windows   repository.AvailabilityRepository
	blocks    repository.TimeBlockRepository
	validator *validator.AvailabilityValidator
	slotCache *SlotCache
	cfg       *config.Config
}

func NewAvailabilityService(
	windows repository.AvailabilityRepository,
	blocks repository.TimeBlockRepository,
	validator *validator.AvailabilityValidator,
	slotCache *SlotCache,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		windows:   windows,
		blocks:    blocks,
		validator: validator,
		slotCache: slotCache,
		cfg:       cfg,
	}
}

// CreateWindow stores a new weekly window. Windows start active; turning
// one off is an update.
func (s *availabilityService) CreateWindow(ctx context.Context, window *model.AvailabilityWindow) (*model.AvailabilityWindow, error) {
	window.Active = true

	if err := s.validator.Validate(window); err != nil {
		s.cfg.Log.Warn("Window validation failed", "tutor_id", window.TutorID, "error", err)
		return nil, apperrors.Validation("Availability window validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.windows.Create(ctx, window); err != nil {
		s.cfg.Log.Error("Failed to create availability window", "tutor_id", window.TutorID, "error", err)
		return nil, apperrors.Internal("Failed to create availability window", err)
	}

	s.slotCache.Invalidate(ctx, window.TutorID)

	s.cfg.Log.Info("Availability window created",
		"id", window.ID,
		"tutor_id", window.TutorID,
		"day_of_week", window.DayOfWeek,
		"start_time", window.StartTime,
		"end_time", window.EndTime,
	)
	return window, nil
}

func (s *availabilityService) ListWindows(ctx context.Context, tutorID string) ([]*model.AvailabilityWindow, error) {
	if tutorID == "" {
		return nil, apperrors.InvalidInput("Tutor ID cannot be empty")
	}

	windows, err := s.windows.FindByTutor(ctx, tutorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability windows", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability windows", err)
	}
	return windows, nil
}

// UpdateWindow merges the patch into the stored window and validates the
// merged result, so a new start time is checked against the existing end.
func (s *availabilityService) UpdateWindow(ctx context.Context, id, tutorID string, update *model.AvailabilityWindowUpdate) (*model.AvailabilityWindow, error) {
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Window update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid availability window update", map[string]any{"error": err.Error()})
	}

	window, err := s.findWindow(ctx, id)
	if err != nil {
		return nil, err
	}
	if window.TutorID != tutorID {
		return nil, apperrors.Forbidden("Only the owning tutor can update this window")
	}

	if update.DayOfWeek != nil {
		window.DayOfWeek = *update.DayOfWeek
	}
	if update.StartTime != "" {
		window.StartTime = update.StartTime
	}
	if update.EndTime != "" {
		window.EndTime = update.EndTime
	}
	if update.Active != nil {
		window.Active = *update.Active
	}

	if err := s.validator.Validate(window); err != nil {
		s.cfg.Log.Warn("Merged window validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Availability window validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.windows.Update(ctx, id, window); err != nil {
		if errors.Is(err, schedulingerrors.ErrWindowNotFound) {
			return nil, apperrors.NotFoundWithID("Availability window", id)
		}
		s.cfg.Log.Error("Failed to update availability window", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update availability window", err)
	}

	s.slotCache.Invalidate(ctx, window.TutorID)

	s.cfg.Log.Info("Availability window updated", "id", id, "tutor_id", window.TutorID)
	return window, nil
}

func (s *availabilityService) DeleteWindow(ctx context.Context, id, tutorID string) error {
	window, err := s.findWindow(ctx, id)
	if err != nil {
		return err
	}
	if window.TutorID != tutorID {
		return apperrors.Forbidden("Only the owning tutor can delete this window")
	}

	if err := s.windows.Delete(ctx, id); err != nil {
		if errors.Is(err, schedulingerrors.ErrWindowNotFound) {
			return apperrors.NotFoundWithID("Availability window", id)
		}
		s.cfg.Log.Error("Failed to delete availability window", "id", id, "error", err)
		return apperrors.Internal("Failed to delete availability window", err)
	}

	s.slotCache.Invalidate(ctx, window.TutorID)

	s.cfg.Log.Info("Availability window deleted", "id", id, "tutor_id", window.TutorID)
	return nil
}

func (s *availabilityService) CreateBlock(ctx context.Context, block *model.TimeBlock) (*model.TimeBlock, error) {
	block.StartTime = block.StartTime.UTC()
	block.EndTime = block.EndTime.UTC()
	block.Reason = sanitizer.SanitizeFreeText(block.Reason)

	if err := s.validator.ValidateBlock(block); err != nil {
		s.cfg.Log.Warn("Time block validation failed", "tutor_id", block.TutorID, "error", err)
		return nil, apperrors.Validation("Time block validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.blocks.Create(ctx, block); err != nil {
		s.cfg.Log.Error("Failed to create time block", "tutor_id", block.TutorID, "error", err)
		return nil, apperrors.Internal("Failed to create time block", err)
	}

	s.slotCache.Invalidate(ctx, block.TutorID)

	s.cfg.Log.Info("Time block created",
		"id", block.ID,
		"tutor_id", block.TutorID,
		"start_time", block.StartTime,
		"end_time", block.EndTime,
	)
	return block, nil
}

func (s *availabilityService) ListBlocks(ctx context.Context, tutorID string) ([]*model.TimeBlock, error) {
	if tutorID == "" {
		return nil, apperrors.InvalidInput("Tutor ID cannot be empty")
	}

	blocks, err := s.blocks.FindByTutor(ctx, tutorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list time blocks", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve time blocks", err)
	}
	return blocks, nil
}

func (s *availabilityService) DeleteBlock(ctx context.Context, id, tutorID string) error {
	block, err := s.findBlock(ctx, id)
	if err != nil {
		return err
	}
	if block.TutorID != tutorID {
		return apperrors.Forbidden("Only the owning tutor can delete this block")
	}

	if err := s.blocks.Delete(ctx, id); err != nil {
		if errors.Is(err, schedulingerrors.ErrBlockNotFound) {
			return apperrors.NotFoundWithID("Time block", id)
		}
		s.cfg.Log.Error("Failed to delete time block", "id", id, "error", err)
		return apperrors.Internal("Failed to delete time block", err)
	}

	s.slotCache.Invalidate(ctx, block.TutorID)

	s.cfg.Log.Info("Time block deleted", "id", id, "tutor_id", block.TutorID)
	return nil
}

// IsTutorAvailable answers whether [start, end) sits inside the tutor's
// declared availability: no overlapping block, and some active window of
// start's weekday containing the whole clock span. Existing sessions are
// not consulted. A tutor with no windows is unavailable.
func (s *availabilityService) IsTutorAvailable(ctx context.Context, tutorID string, start, end time.Time) (*model.EligibilityResult, error) {
	if tutorID == "" {
		return nil, apperrors.InvalidInput("Tutor ID cannot be empty")
	}
	rng, err := interval.New(start, end)
	if err != nil {
		return nil, apperrors.InvalidInput("End time must be after start time")
	}

	result := &model.EligibilityResult{
		TutorID:   tutorID,
		StartTime: rng.Start,
		EndTime:   rng.End,
	}

	// Windows are wall-clock spans within one day; a range that crosses
	// midnight cannot sit inside any of them.
	if !interval.SameDay(rng.Start, rng.End) {
		return result, nil
	}

	blocked, err := s.blocks.FindInRange(ctx, tutorID, rng.Start, rng.End)
	if err != nil {
		s.cfg.Log.Error("Failed to check time blocks", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	if len(blocked) > 0 {
		return result, nil
	}

	windows, err := s.windows.FindActiveForDay(ctx, tutorID, int(rng.Start.Weekday()))
	if err != nil {
		s.cfg.Log.Error("Failed to load availability windows", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to check availability", err)
	}

	fromMin := interval.MinutesOfDay(rng.Start)
	toMin := interval.MinutesOfDay(rng.End)
	for _, w := range windows {
		winStart, err := interval.ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		winEnd, err := interval.ParseClock(w.EndTime)
		if err != nil {
			continue
		}
		if winStart <= fromMin && winEnd >= toMin {
			result.Available = true
			break
		}
	}

	s.cfg.Log.Debug("Availability check completed",
		"tutor_id", tutorID,
		"start", rng.Start,
		"end", rng.End,
		"available", result.Available,
	)
	return result, nil
}

func (s *availabilityService) findWindow(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrWindowNotFound) {
			return nil, apperrors.NotFoundWithID("Availability window", id)
		}
		if errors.Is(err, schedulingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid window ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve availability window", err)
	}
	return window, nil
}

func (s *availabilityService) findBlock(ctx context.Context, id string) (*model.TimeBlock, error) {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrBlockNotFound) {
			return nil, apperrors.NotFoundWithID("Time block", id)
		}
		if errors.Is(err, schedulingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid block ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve time block", err)
	}
	return block, nil
}
