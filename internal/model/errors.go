package model

import "errors"

// Engine error taxonomy. These represent expected policy and input
// conditions, never defects; callers branch with errors.Is and surface a
// human-readable reason.
var (
	// ErrPermissionDenied means the actor lacks the capability or grade
	// assignment for the attempted action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCheckInBlocked means an administrator has blocked check-in for
	// the student; it overrides any actor permission.
	ErrCheckInBlocked = errors.New("check-in blocked for student")

	// ErrInvalidTransition means the attempted transition is not legal
	// from the entity's current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation means a required input was missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidSchedule means a batch deadline was not strictly in the
	// future.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNotFound means the referenced student, staff member or report
	// does not exist.
	ErrNotFound = errors.New("not found")
)
