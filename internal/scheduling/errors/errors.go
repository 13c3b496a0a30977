package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")

	ErrWindowNotFound = errors.New("availability window not found")

	ErrBlockNotFound = errors.New("time block not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrLockHeld = errors.New("tutor lock held by another request")
)
