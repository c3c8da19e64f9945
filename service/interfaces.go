package service

import (
	"context"
	"time"

	"agora/core"
)

// Storage contracts needed by the services, defined on the consumer side so
// each service depends only on the primitives it uses. storage.MongoStore and
// storage.MemoryStore satisfy all of them.

// ReputationStorage applies ledger increments
type ReputationStorage interface {
	IncrementReputation(ctx context.Context, userID string, delta int) error
	AddBadge(ctx context.Context, userID, badge string) error
}

// NotificationWriter persists notification records
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *core.Notification) error
}

// MentionResolver resolves @username tokens to users
type MentionResolver interface {
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]core.User, error)
}

// QuestionStorage defines question operations used by the services
type QuestionStorage interface {
	CreateQuestion(ctx context.Context, q *core.Question) error
	GetQuestion(ctx context.Context, id string) (*core.Question, error)
	ListQuestions(ctx context.Context, filter core.QuestionFilter) ([]core.Question, int64, error)
	UpdateQuestionContent(ctx context.Context, id, title, description string, tags []string) error
	IncrementQuestionViews(ctx context.Context, id string) error
	ApplyQuestionVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error
	AddQuestionAnswer(ctx context.Context, questionID, answerID string) error
	RemoveQuestionAnswer(ctx context.Context, questionID, answerID string) error
	CompareAndSetAcceptedAnswer(ctx context.Context, questionID, prev, next string) error
	ClearAcceptedAnswerIf(ctx context.Context, questionID, answerID string) error
	SoftDeleteQuestion(ctx context.Context, id string) error
	DetachQuestionAnswers(ctx context.Context, id string) error
	ScanQuestions(ctx context.Context, fn func(*core.Question) error) error
}

// AnswerStorage defines answer operations used by the services
type AnswerStorage interface {
	CreateAnswer(ctx context.Context, a *core.Answer) error
	GetAnswer(ctx context.Context, id string) (*core.Answer, error)
	ListAnswers(ctx context.Context, filter core.AnswerFilter) ([]core.Answer, int64, error)
	UpdateAnswerContent(ctx context.Context, id, content string) error
	ApplyAnswerVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error
	MarkAnswerAccepted(ctx context.Context, id string) error
	UnmarkAnswerAccepted(ctx context.Context, id string) error
	UnmarkAnswersAcceptedExcept(ctx context.Context, questionID, keepID string) (int64, error)
	SoftDeleteAnswer(ctx context.Context, id string) error
	SoftDeleteAnswersByQuestion(ctx context.Context, questionID string) (int64, error)
	ScanDeletedAnswers(ctx context.Context, fn func(*core.Answer) error) error
}

// UserStorage defines user operations used by the services
type UserStorage interface {
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	SetBanned(ctx context.Context, id string, banned bool) error
}

// NotificationStorage defines notification operations used by the services
type NotificationStorage interface {
	NotificationWriter
	GetNotification(ctx context.Context, id string) (*core.Notification, error)
	ListNotifications(ctx context.Context, userID string, page core.Page) ([]core.Notification, int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
}

// UnreadCache caches per-user unread notification counts. Implementations
// must treat every failure as a miss.
type UnreadCache interface {
	GetUnread(ctx context.Context, userID string) (int64, bool)
	SetUnread(ctx context.Context, userID string, count int64)
	InvalidateUnread(ctx context.Context, userID string)
}

// Publisher pushes a freshly created notification to connected clients
type Publisher interface {
	Publish(userID string, n *core.Notification)
}

// UserLister lists users for the admin dashboard
type UserLister interface {
	ListUsers(ctx context.Context, filter core.UserFilter) ([]core.User, int64, error)
}

// NotificationCounter counts notifications across all users
type NotificationCounter interface {
	CountNotifications(ctx context.Context) (int64, error)
}
