package storage

import (
	"errors"
	"fmt"

	"agora/core"
)

// Storage error constants. The not-found sentinels wrap core.ErrNotFound so
// callers can match either the specific or the generic error.
var (
	// ErrQuestionNotFound is returned when a question is missing or soft-deleted
	ErrQuestionNotFound = fmt.Errorf("question %w", core.ErrNotFound)

	// ErrAnswerNotFound is returned when an answer is missing or soft-deleted
	ErrAnswerNotFound = fmt.Errorf("answer %w", core.ErrNotFound)

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = fmt.Errorf("user %w", core.ErrNotFound)

	// ErrNotificationNotFound is returned when a notification is not found
	ErrNotificationNotFound = fmt.Errorf("notification %w", core.ErrNotFound)

	// ErrConflict is returned when a conditional update matched nothing
	// because the document changed since it was read
	ErrConflict = errors.New("conditional update conflict")

	// ErrDuplicateKey is returned when an insert collides with an existing id or unique field
	ErrDuplicateKey = errors.New("duplicate key")
)
