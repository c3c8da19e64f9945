package service

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"agora/core"
	"agora/effects"
	"agora/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mentionPattern matches @username tokens not preceded by a word character
var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([A-Za-z0-9_]{3,30})\b`)

// mentionExcerptLength is how much of the mentioning text is quoted
const mentionExcerptLength = 100

// ExtractMentions returns the distinct usernames mentioned in text, in order
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// NotificationEvent is what the fan-out needs to build a notification
type NotificationEvent struct {
	Type       core.NotificationType
	Recipient  string
	Originator string
	Content    string
	QuestionID string
	AnswerID   string
}

// Notifier emits notification records. Records are created through the
// dispatcher, so creation failures are logged and swallowed; a user is never
// notified of their own action.
type Notifier struct {
	store      NotificationWriter
	users      MentionResolver
	dispatcher effects.Dispatcher
	publisher  Publisher
	unread     UnreadCache
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewNotifier creates a notifier. users, publisher and unread may be nil.
func NewNotifier(store NotificationWriter, users MentionResolver, dispatcher effects.Dispatcher, logger *zap.SugaredLogger) *Notifier {
	if store == nil {
		panic("notification storage is required")
	}
	if dispatcher == nil {
		panic("dispatcher is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Notifier{
		store:      store,
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithPublisher pushes created notifications to live clients
func (n *Notifier) WithPublisher(p Publisher) *Notifier {
	n.publisher = p
	return n
}

// WithUnreadCache invalidates cached unread counts on creation
func (n *Notifier) WithUnreadCache(c UnreadCache) *Notifier {
	n.unread = c
	return n
}

// Notify emits one notification. Self-notification and empty recipients are
// dropped.
func (n *Notifier) Notify(ev NotificationEvent) {
	if ev.Recipient == "" || ev.Recipient == ev.Originator {
		return
	}
	if !ev.Type.IsValid() {
		n.logger.Warnw("Dropping notification with unknown type", "type", ev.Type)
		return
	}

	record := &core.Notification{
		ID:      uuid.New().String(),
		Type:    ev.Type,
		Content: truncateRunes(ev.Content, core.MaxNotificationContentLength),
		User:    ev.Recipient,
		From:    ev.Originator,
		LinkTo: core.NotificationLink{
			Question: ev.QuestionID,
			Answer:   ev.AnswerID,
		},
		CreatedAt: n.now(),
	}

	n.dispatcher.Dispatch("notification", func(ctx context.Context) error {
		if err := n.store.CreateNotification(ctx, record); err != nil {
			return fmt.Errorf("failed to create %s notification for user %s: %w", record.Type, record.User, err)
		}
		metrics.NotificationsCreated.WithLabelValues(string(record.Type)).Inc()
		if n.unread != nil {
			n.unread.InvalidateUnread(ctx, record.User)
		}
		if n.publisher != nil {
			n.publisher.Publish(record.User, record)
		}
		return nil
	})
}

// NotifyAnswerReceived tells a question author about a new answer
func (n *Notifier) NotifyAnswerReceived(question *core.Question, answer *core.Answer) {
	n.Notify(NotificationEvent{
		Type:       core.NotificationAnswer,
		Recipient:  question.Author,
		Originator: answer.Author,
		Content:    "Your question received a new answer",
		QuestionID: question.ID,
		AnswerID:   answer.ID,
	})
}

// NotifyAnswerAccepted tells an answer author their answer was accepted
func (n *Notifier) NotifyAnswerAccepted(question *core.Question, answer *core.Answer, actorID string) {
	n.Notify(NotificationEvent{
		Type:       core.NotificationAcceptedAnswer,
		Recipient:  answer.Author,
		Originator: actorID,
		Content:    "Your answer was accepted",
		QuestionID: question.ID,
		AnswerID:   answer.ID,
	})
}

// NotifyMentions resolves @username tokens in text and notifies each
// mentioned user. Resolution failures are logged and swallowed.
func (n *Notifier) NotifyMentions(ctx context.Context, text, authorID, questionID, answerID string) {
	if n.users == nil {
		return
	}
	names := ExtractMentions(text)
	if len(names) == 0 {
		return
	}

	users, err := n.users.GetUsersByUsernames(ctx, names)
	if err != nil {
		n.logger.Warnw("Failed to resolve mentions",
			"usernames", names,
			"error", err)
		return
	}

	content := fmt.Sprintf("You were mentioned: \"%s...\"", truncateRunes(text, mentionExcerptLength))
	for _, u := range users {
		n.Notify(NotificationEvent{
			Type:       core.NotificationMention,
			Recipient:  u.ID,
			Originator: authorID,
			Content:    content,
			QuestionID: questionID,
			AnswerID:   answerID,
		})
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
