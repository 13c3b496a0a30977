package handler

import (
	"net/http"

	apperrors "lessonbook/pkg/errors"
)

// Identity arrives from the gateway, which authenticates callers and stamps
// these headers. The scheduler trusts them and never reads identity from
// request bodies.
const (
	HeaderParentID = "X-Parent-ID"
	HeaderTutorID  = "X-Tutor-ID"
)

func parentIDFromHeader(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderParentID)
	if id == "" {
		return "", apperrors.Unauthorized("Missing " + HeaderParentID + " header")
	}
	return id, nil
}

func tutorIDFromHeader(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderTutorID)
	if id == "" {
		return "", apperrors.Unauthorized("Missing " + HeaderTutorID + " header")
	}
	return id, nil
}

// requesterFromHeader accepts either identity for read paths where both
// parties of a session may look.
func requesterFromHeader(r *http.Request) (string, error) {
	if id := r.Header.Get(HeaderParentID); id != "" {
		return id, nil
	}
	if id := r.Header.Get(HeaderTutorID); id != "" {
		return id, nil
	}
	return "", apperrors.Unauthorized("Missing identity header")
}
