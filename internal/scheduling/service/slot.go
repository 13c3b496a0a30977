package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lessonbook/internal/scheduling/repository"
	"lessonbook/pkg/cache"
	"lessonbook/pkg/config"
	apperrors "lessonbook/pkg/errors"
	"lessonbook/pkg/interval"
	"lessonbook/pkg/model"
)

// SlotGranularityMin is the fixed step between offered slot starts.
// Windows are walked on half-hour marks regardless of session duration.
const SlotGranularityMin = 30

// ResolveSlots computes the bookable starts on one UTC day. It is a pure
// function over its inputs: no clocks, no I/O. Windows not active on the
// day's weekday are skipped, as are windows whose clock strings fail to
// parse (fail closed). A candidate survives only when it starts strictly
// after now, fits inside its window, and overlaps neither a time block nor
// a scheduled session. Overlapping windows can propose the same start, so
// results are deduplicated before sorting.
func ResolveSlots(
	windows []*model.AvailabilityWindow,
	blocks []*model.TimeBlock,
	sessions []*model.Session,
	date time.Time,
	durationMin int,
	now time.Time,
) []model.Slot {
	day := interval.DayStart(date)
	weekday := int(day.Weekday())
	duration := time.Duration(durationMin) * time.Minute

	busy := make([]interval.Range, 0, len(blocks)+len(sessions))
	for _, b := range blocks {
		busy = append(busy, b.Range())
	}
	for _, s := range sessions {
		if s.Status != model.SessionStatusScheduled {
			continue
		}
		busy = append(busy, interval.Range{Start: s.ScheduledAt, End: s.End()})
	}

	seen := make(map[int64]bool)
	slots := make([]model.Slot, 0)

	for _, w := range windows {
		if !w.Active || w.DayOfWeek != weekday {
			continue
		}

		startMin, err := interval.ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		endMin, err := interval.ParseClock(w.EndTime)
		if err != nil {
			continue
		}

		for cursor := startMin; cursor+durationMin <= endMin; cursor += SlotGranularityMin {
			slotStart := interval.OnDay(day, cursor)
			if !slotStart.After(now) {
				continue
			}
			if seen[slotStart.Unix()] {
				continue
			}

			candidate := interval.FromDuration(slotStart, duration)
			conflicted := false
			for _, r := range busy {
				if candidate.Overlaps(r) {
					conflicted = true
					break
				}
			}
			if conflicted {
				continue
			}

			seen[slotStart.Unix()] = true
			slots = append(slots, model.Slot{
				StartTime: slotStart,
				EndTime:   candidate.End,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	return slots
}

// SlotCache wraps the shared Redis cache with the slot key scheme. Booking
// paths and availability mutations invalidate per tutor; lookups are keyed
// per tutor, day and duration.
type SlotCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSlotCache(c *cache.Cache, ttl time.Duration) *SlotCache {
	return &SlotCache{cache: c, ttl: ttl}
}

func slotKey(tutorID string, day time.Time, durationMin int) string {
	return fmt.Sprintf("slots:%s:%s:%d", tutorID, day.Format("2006-01-02"), durationMin)
}

func (sc *SlotCache) Get(ctx context.Context, tutorID string, day time.Time, durationMin int) ([]model.Slot, bool) {
	if sc == nil || !sc.cache.Enabled() {
		return nil, false
	}
	var slots []model.Slot
	if !sc.cache.GetJSON(ctx, slotKey(tutorID, day, durationMin), &slots) {
		return nil, false
	}
	return slots, true
}

func (sc *SlotCache) Set(ctx context.Context, tutorID string, day time.Time, durationMin int, slots []model.Slot) {
	if sc == nil {
		return
	}
	sc.cache.SetJSON(ctx, slotKey(tutorID, day, durationMin), slots, sc.ttl)
}

// Invalidate drops every cached day for the tutor. Called after any
// mutation that changes what is bookable: new sessions, reschedules,
// cancellations, window or block edits.
func (sc *SlotCache) Invalidate(ctx context.Context, tutorID string) {
	if sc == nil {
		return
	}
	sc.cache.DeleteByPattern(ctx, "slots:"+tutorID+":*")
}

type SlotService interface {
	GetAvailableSlots(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error)
}

type slotService struct {
	sessionRepo repository.SessionRepository
	availRepo   repository.AvailabilityRepository
	blockRepo   repository.TimeBlockRepository
	slotCache   *SlotCache
	cfg         *config.Config
	now         func() time.Time
}

func NewSlotService(
	sessionRepo repository.SessionRepository,
	availRepo repository.AvailabilityRepository,
	blockRepo repository.TimeBlockRepository,
	slotCache *SlotCache,
	cfg *config.Config,
) SlotService {
	return &slotService{
		sessionRepo: sessionRepo,
		availRepo:   availRepo,
		blockRepo:   blockRepo,
		slotCache:   slotCache,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *slotService) GetAvailableSlots(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error) {
	if tutorID == "" {
		return nil, apperrors.InvalidInput("Tutor ID cannot be empty")
	}
	if durationMin == 0 {
		durationMin = s.cfg.DefaultSessionDurationMin
	}
	if durationMin < 15 || durationMin > 480 {
		return nil, apperrors.InvalidInput("Duration must be between 15 and 480 minutes")
	}

	day := interval.DayStart(date)

	if cached, ok := s.slotCache.Get(ctx, tutorID, day, durationMin); ok {
		return cached, nil
	}

	dayEnd := day.Add(24 * time.Hour)

	windows, err := s.availRepo.FindActiveForDay(ctx, tutorID, int(day.Weekday()))
	if err != nil {
		s.cfg.Log.Error("Failed to load availability windows for slot resolution", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to resolve available slots", err)
	}

	blocks, err := s.blockRepo.FindInRange(ctx, tutorID, day, dayEnd)
	if err != nil {
		s.cfg.Log.Error("Failed to load time blocks for slot resolution", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to resolve available slots", err)
	}

	sessions, err := s.sessionRepo.FindScheduledInRange(ctx, tutorID, day, dayEnd, nil)
	if err != nil {
		s.cfg.Log.Error("Failed to load sessions for slot resolution", "tutor_id", tutorID, "error", err)
		return nil, apperrors.Internal("Failed to resolve available slots", err)
	}

	slots := ResolveSlots(windows, blocks, sessions, day, durationMin, s.now())

	s.slotCache.Set(ctx, tutorID, day, durationMin, slots)

	s.cfg.Log.Debug("Resolved available slots",
		"tutor_id", tutorID,
		"date", day.Format("2006-01-02"),
		"duration_min", durationMin,
		"slot_count", len(slots),
	)

	return slots, nil
}
