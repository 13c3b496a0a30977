package model

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusNoShow    SessionStatus = "no_show"
)

// Session is a single tutoring appointment booked under a subscription.
// Sessions are never physically deleted; every lifecycle change is a status
// transition out of scheduled. Only scheduled sessions occupy tutor time.
type Session struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TutorID        string    `json:"tutor_id" bson:"tutor_id" validate:"required,mongodb"`
	ParentID       string    `json:"parent_id" bson:"parent_id" validate:"required,mongodb"`
	SubscriptionID string    `json:"subscription_id" bson:"subscription_id" validate:"required,mongodb"`
	ScheduledAt    time.Time `json:"scheduled_at" bson:"scheduled_at" validate:"required"`
	DurationMin    int       `json:"duration_min" bson:"duration_min" validate:"required,min=15,max=480"`
	// EndsAt is denormalized from ScheduledAt+DurationMin by the repository
	// so overlap queries are index-served. DurationMin stays authoritative.
	EndsAt          time.Time     `json:"ends_at" bson:"ends_at" validate:"omitempty"`
	Status          SessionStatus `json:"status" bson:"status" validate:"required,oneof=scheduled completed cancelled no_show"`
	ManagementToken string        `json:"-" bson:"management_token,omitempty" validate:"omitempty,len=64,hexadecimal,lowercase"`
	Notes           string        `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	CancelReason    string        `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty" validate:"omitempty,max=200"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// End derives the end instant from the scheduled start and duration.
func (s *Session) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMin) * time.Minute)
}

// IsTerminal reports whether the session left the scheduled state. Terminal
// sessions never transition again and never block tutor time.
func (s *Session) IsTerminal() bool {
	return s.Status != SessionStatusScheduled
}

func (st SessionStatus) Valid() bool {
	switch st {
	case SessionStatusScheduled, SessionStatusCompleted, SessionStatusCancelled, SessionStatusNoShow:
		return true
	}
	return false
}
