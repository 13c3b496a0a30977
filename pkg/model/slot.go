package model

import "time"

// Slot is one bookable start offered to parents. End is derived from the
// requested duration so clients can render the span without recomputing it.
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
