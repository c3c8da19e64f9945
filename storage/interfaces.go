package storage

import (
	"context"
	"time"

	"agora/core"
)

// QuestionStorer is the persistence contract for questions. Reads exclude
// soft-deleted questions unless stated otherwise.
type QuestionStorer interface {
	CreateQuestion(ctx context.Context, q *core.Question) error
	GetQuestion(ctx context.Context, id string) (*core.Question, error)
	ListQuestions(ctx context.Context, filter core.QuestionFilter) ([]core.Question, int64, error)
	UpdateQuestionContent(ctx context.Context, id, title, description string, tags []string) error
	IncrementQuestionViews(ctx context.Context, id string) error
	ApplyQuestionVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error

	// AddQuestionAnswer appends an answer reference to a visible question
	AddQuestionAnswer(ctx context.Context, questionID, answerID string) error
	// RemoveQuestionAnswer pulls an answer reference; a missing reference is a no-op
	RemoveQuestionAnswer(ctx context.Context, questionID, answerID string) error
	// CompareAndSetAcceptedAnswer moves acceptedAnswer from prev to next on a
	// visible question listing next among its answers. ErrConflict when the
	// question no longer matches.
	CompareAndSetAcceptedAnswer(ctx context.Context, questionID, prev, next string) error
	// ClearAcceptedAnswerIf unsets acceptedAnswer only if it equals answerID
	ClearAcceptedAnswerIf(ctx context.Context, questionID, answerID string) error

	// SoftDeleteQuestion flips isDeleted false->true
	SoftDeleteQuestion(ctx context.Context, id string) error
	// DetachQuestionAnswers empties the answer list and acceptance of a question
	DetachQuestionAnswers(ctx context.Context, id string) error
	// ScanQuestions visits every question, deleted ones included
	ScanQuestions(ctx context.Context, fn func(*core.Question) error) error
}

// AnswerStorer is the persistence contract for answers
type AnswerStorer interface {
	CreateAnswer(ctx context.Context, a *core.Answer) error
	GetAnswer(ctx context.Context, id string) (*core.Answer, error)
	ListAnswers(ctx context.Context, filter core.AnswerFilter) ([]core.Answer, int64, error)
	UpdateAnswerContent(ctx context.Context, id, content string) error
	ApplyAnswerVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error

	// MarkAnswerAccepted sets isAccepted on a visible answer
	MarkAnswerAccepted(ctx context.Context, id string) error
	// UnmarkAnswerAccepted clears isAccepted; idempotent
	UnmarkAnswerAccepted(ctx context.Context, id string) error
	// UnmarkAnswersAcceptedExcept clears isAccepted on every answer of a
	// question other than keepID
	UnmarkAnswersAcceptedExcept(ctx context.Context, questionID, keepID string) (int64, error)

	// SoftDeleteAnswer flips isDeleted false->true and clears isAccepted
	SoftDeleteAnswer(ctx context.Context, id string) error
	// SoftDeleteAnswersByQuestion marks every answer of a question deleted, unconditionally
	SoftDeleteAnswersByQuestion(ctx context.Context, questionID string) (int64, error)
	// ScanDeletedAnswers visits every soft-deleted answer
	ScanDeletedAnswers(ctx context.Context, fn func(*core.Answer) error) error
}

// UserStorer is the persistence contract for users
type UserStorer interface {
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]core.User, error)
	// IncrementReputation applies delta as one atomic increment
	IncrementReputation(ctx context.Context, id string, delta int) error
	AddBadge(ctx context.Context, id, badge string) error
	SetBanned(ctx context.Context, id string, banned bool) error
	// ListUsers returns a page of users, banned ones included
	ListUsers(ctx context.Context, filter core.UserFilter) ([]core.User, int64, error)
}

// NotificationStorer is the persistence contract for notifications
type NotificationStorer interface {
	CreateNotification(ctx context.Context, n *core.Notification) error
	GetNotification(ctx context.Context, id string) (*core.Notification, error)
	ListNotifications(ctx context.Context, userID string, page core.Page) ([]core.Notification, int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	// CountNotifications counts every notification of every user
	CountNotifications(ctx context.Context) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
}

// Store bundles every entity store behind one backend
type Store interface {
	QuestionStorer
	AnswerStorer
	UserStorer
	NotificationStorer
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}
