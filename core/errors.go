package core

import "errors"

// Business-rule errors surfaced synchronously to callers
var (
	// ErrNotFound is returned for missing and soft-deleted entities alike
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks ownership or role
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateVote is returned when a voter re-submits their current vote
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrSelfVoteForbidden is returned when a user votes on their own content
	ErrSelfVoteForbidden = errors.New("cannot vote on your own content")

	// ErrValidation is returned for malformed payload fields
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when a write is attempted anonymously
	ErrUnauthenticated = errors.New("authentication required")
)
