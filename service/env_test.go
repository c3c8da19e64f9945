package service

import (
	"context"
	"testing"
	"time"

	"agora/core"
	"agora/effects"
	"agora/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testEnv wires every service over one memory store with effects applied
// inline, so side effects are visible as soon as a call returns.
type testEnv struct {
	store     *storage.MemoryStore
	failures  *effects.MemoryFailureLog
	ledger    *Ledger
	notifier  *Notifier
	votes     *VoteService
	accept    *AcceptanceService
	deletion  *DeletionService
	questions *QuestionService
	answers   *AnswerService
	users     *UserService
	inbox     *NotificationService
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 50, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func newTestEnv(t *testing.T, policy core.SelfAcceptPolicy) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	store := storage.NewMemoryStore()
	failures := effects.NewMemoryFailureLog(100)
	dispatcher := effects.NewInline(failures, logger)

	ledger := NewLedger(store, nil, dispatcher, logger)
	notifier := NewNotifier(store, store, dispatcher, logger)

	return &testEnv{
		store:     store,
		failures:  failures,
		ledger:    ledger,
		notifier:  notifier,
		votes:     NewVoteService(store, store, ledger, fastRetry(), logger),
		accept:    NewAcceptanceService(store, store, ledger, notifier, policy, fastRetry(), logger),
		deletion:  NewDeletionService(store, store, logger),
		questions: NewQuestionService(store, store, notifier, logger),
		answers:   NewAnswerService(store, store, notifier, logger),
		users:     NewUserService(store, store, store, ledger, nil, logger),
		inbox:     NewNotificationService(store, nil, logger),
	}
}

// user creates a regular member and returns its actor
func (e *testEnv) user(t *testing.T, username string) *core.Actor {
	t.Helper()
	u, err := e.users.Create(context.Background(), username, core.RoleUser)
	require.NoError(t, err)
	return &core.Actor{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) admin(t *testing.T, username string) *core.Actor {
	t.Helper()
	u, err := e.users.Create(context.Background(), username, core.RoleAdmin)
	require.NoError(t, err)
	return &core.Actor{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) question(t *testing.T, author *core.Actor) *core.Question {
	t.Helper()
	q, err := e.questions.Create(context.Background(), author, QuestionInput{
		Title:       "How do I cancel a context?",
		Description: "I start a goroutine with a context and want it to stop.",
		Tags:        []string{"Go", "context"},
	})
	require.NoError(t, err)
	return q
}

func (e *testEnv) answer(t *testing.T, author *core.Actor, questionID string) *core.Answer {
	t.Helper()
	a, err := e.answers.Create(context.Background(), author, questionID, "Call the cancel function returned by WithCancel.")
	require.NoError(t, err)
	return a
}

func (e *testEnv) reputation(t *testing.T, actor *core.Actor) int {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), actor.UserID)
	require.NoError(t, err)
	return u.Reputation
}

func (e *testEnv) rawAnswer(t *testing.T, id string) *core.Answer {
	t.Helper()
	var found *core.Answer
	require.NoError(t, e.store.ScanDeletedAnswers(context.Background(), func(a *core.Answer) error {
		if a.ID == id {
			found = a
		}
		return nil
	}))
	if found != nil {
		return found
	}
	a, err := e.store.GetAnswer(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (e *testEnv) rawQuestion(t *testing.T, id string) *core.Question {
	t.Helper()
	var found *core.Question
	require.NoError(t, e.store.ScanQuestions(context.Background(), func(q *core.Question) error {
		if q.ID == id {
			found = q
		}
		return nil
	}))
	require.NotNil(t, found, "question %s missing", id)
	return found
}

func (e *testEnv) notifications(t *testing.T, actor *core.Actor, typ core.NotificationType) []core.Notification {
	t.Helper()
	list, _, err := e.store.ListNotifications(context.Background(), actor.UserID, core.Page{Page: 1, Limit: 100})
	require.NoError(t, err)
	out := make([]core.Notification, 0, len(list))
	for _, n := range list {
		if typ == "" || n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
