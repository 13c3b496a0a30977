// Package token mints and gates session management tokens. A token is the
// bearer capability embedded in confirmation emails, letting a parent view,
// cancel, or reschedule a single session without logging in.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Length is the canonical token length: 32 random bytes, hex encoded.
const Length = 64

var formatRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

func New() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValid reports whether s has the exact shape of a minted token. The gate
// runs before any datastore lookup, so malformed input is rejected up front
// and never surfaces as a NOT_FOUND.
func IsValid(s string) bool {
	return formatRegex.MatchString(s)
}
