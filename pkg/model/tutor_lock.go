package model

import "time"

// TutorLock is the advisory lock serializing booking-path writes for one
// tutor. The _id is the tutor id itself: concurrent bookings for the same
// tutor collide on the unique index while different tutors never contend.
// expires_at carries a TTL index so locks abandoned by a crashed process
// get reaped.
type TutorLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
