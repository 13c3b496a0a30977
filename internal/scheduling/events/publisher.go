package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lessonbook/pkg/kafka"
	"lessonbook/pkg/logger"
	"lessonbook/pkg/middleware"
	"lessonbook/pkg/model"
)

// Event types consumed by the notification service.
const (
	TypeSessionBooked      = "session.booked"
	TypeSessionCancelled   = "session.cancelled"
	TypeSessionRescheduled = "session.rescheduled"
	TypeSeriesBooked       = "series.booked"
	TypeSeriesCancelled    = "series.cancelled"
	TypeSeriesRescheduled  = "series.rescheduled"
)

const (
	schemaVersion  = "1"
	source         = "scheduler"
	publishTimeout = 5 * time.Second
)

// SessionEvent is the payload for single-session lifecycle events. The
// management token rides along on booking so the notification service can
// build manage links without a second lookup.
type SessionEvent struct {
	SessionID       string     `json:"session_id"`
	TutorID         string     `json:"tutor_id"`
	ParentID        string     `json:"parent_id"`
	SubscriptionID  string     `json:"subscription_id"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMin     int        `json:"duration_min"`
	ManagementToken string     `json:"management_token,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	PreviousStart   *time.Time `json:"previous_start,omitempty"`
}

// SeriesEvent is the payload for series-level events. One event per series
// operation regardless of how many sessions it touched.
type SeriesEvent struct {
	SubscriptionID  string    `json:"subscription_id"`
	TutorID         string    `json:"tutor_id"`
	ParentID        string    `json:"parent_id"`
	SessionCount    int       `json:"session_count"`
	FirstSessionID  string    `json:"first_session_id,omitempty"`
	FirstStart      time.Time `json:"first_start,omitempty"`
	ManagementToken string    `json:"management_token,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// Notifier is the event surface the services publish through.
type Notifier interface {
	SessionBooked(ctx context.Context, session *model.Session)
	SessionCancelled(ctx context.Context, session *model.Session, reason string)
	SessionRescheduled(ctx context.Context, session *model.Session, previousStart time.Time)
	SeriesBooked(ctx context.Context, first *model.Session, sessionCount int)
	SeriesCancelled(ctx context.Context, sample *model.Session, cancelledCount int, reason string)
	SeriesRescheduled(ctx context.Context, first *model.Session, sessionCount int)
}

// Producer is the slice of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher emits scheduling events to Kafka. Publishing is fire-and-forget:
// it happens on a detached goroutine with its own timeout, failures are
// logged and swallowed, and a nil producer turns every publish into a no-op.
// Booking responses never wait on, or fail because of, the event bus.
type Publisher struct {
	producer Producer
	log      *logger.Logger
}

// NewPublisher wires the publisher. Pass a nil producer to disable
// publishing (local development without Kafka).
func NewPublisher(producer Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		log:      log.Component("events"),
	}
}

func (p *Publisher) SessionBooked(ctx context.Context, session *model.Session) {
	p.publish(ctx, TypeSessionBooked, session.TutorID, SessionEvent{
		SessionID:       session.ID,
		TutorID:         session.TutorID,
		ParentID:        session.ParentID,
		SubscriptionID:  session.SubscriptionID,
		ScheduledAt:     session.ScheduledAt,
		DurationMin:     session.DurationMin,
		ManagementToken: session.ManagementToken,
	})
}

func (p *Publisher) SessionCancelled(ctx context.Context, session *model.Session, reason string) {
	p.publish(ctx, TypeSessionCancelled, session.TutorID, SessionEvent{
		SessionID:      session.ID,
		TutorID:        session.TutorID,
		ParentID:       session.ParentID,
		SubscriptionID: session.SubscriptionID,
		ScheduledAt:    session.ScheduledAt,
		DurationMin:    session.DurationMin,
		Reason:         reason,
	})
}

func (p *Publisher) SessionRescheduled(ctx context.Context, session *model.Session, previousStart time.Time) {
	p.publish(ctx, TypeSessionRescheduled, session.TutorID, SessionEvent{
		SessionID:      session.ID,
		TutorID:        session.TutorID,
		ParentID:       session.ParentID,
		SubscriptionID: session.SubscriptionID,
		ScheduledAt:    session.ScheduledAt,
		DurationMin:    session.DurationMin,
		PreviousStart:  &previousStart,
	})
}

// SeriesBooked emits one confirmation referencing the first successfully
// booked session, however many sessions the request carried.
func (p *Publisher) SeriesBooked(ctx context.Context, first *model.Session, sessionCount int) {
	p.publish(ctx, TypeSeriesBooked, first.TutorID, SeriesEvent{
		SubscriptionID:  first.SubscriptionID,
		TutorID:         first.TutorID,
		ParentID:        first.ParentID,
		SessionCount:    sessionCount,
		FirstSessionID:  first.ID,
		FirstStart:      first.ScheduledAt,
		ManagementToken: first.ManagementToken,
	})
}

func (p *Publisher) SeriesCancelled(ctx context.Context, sample *model.Session, cancelledCount int, reason string) {
	p.publish(ctx, TypeSeriesCancelled, sample.TutorID, SeriesEvent{
		SubscriptionID: sample.SubscriptionID,
		TutorID:        sample.TutorID,
		ParentID:       sample.ParentID,
		SessionCount:   cancelledCount,
		Reason:         reason,
	})
}

func (p *Publisher) SeriesRescheduled(ctx context.Context, first *model.Session, sessionCount int) {
	p.publish(ctx, TypeSeriesRescheduled, first.TutorID, SeriesEvent{
		SubscriptionID: first.SubscriptionID,
		TutorID:        first.TutorID,
		ParentID:       first.ParentID,
		SessionCount:   sessionCount,
		FirstSessionID: first.ID,
		FirstStart:     first.ScheduledAt,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) {
	if p.producer == nil {
		return
	}

	// Read the correlation id before detaching from the request context.
	correlationID := middleware.RequestIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithCorrelationID(correlationID).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		Build()

	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.producer.Publish(publishCtx, msg); err != nil {
			p.log.Error("failed to publish event",
				"event_type", eventType,
				"key", key,
				"correlation_id", correlationID,
				"error", err,
			)
		}
	}()
}
