package storage

import (
	"context"
	"testing"
	"time"

	"agora/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory returns an empty store for one subtest
type storeFactory func(t *testing.T) Store

// runStoreSuite exercises the conditional-update contract every backend must honor
func runStoreSuite(t *testing.T, newStore storeFactory) {
	t.Run("vote transitions are conditional on current state", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := seedAnswer(t, s, "q1", "a1", "author")
		now := time.Now().UTC()

		require.NoError(t, s.ApplyAnswerVote(ctx, a.ID, "voter", core.VoteStateNone, core.VoteStateUpvoted, now))
		assert.ErrorIs(t, s.ApplyAnswerVote(ctx, a.ID, "voter", core.VoteStateNone, core.VoteStateUpvoted, now), ErrConflict,
			"a stale from-state must not match")

		require.NoError(t, s.ApplyAnswerVote(ctx, a.ID, "voter", core.VoteStateUpvoted, core.VoteStateDownvoted, now))
		got, err := s.GetAnswer(ctx, a.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Votes.Upvotes)
		require.Len(t, got.Votes.Downvotes, 1)
		assert.Equal(t, "voter", got.Votes.Downvotes[0].User)
		assert.Equal(t, -1, got.VoteScore)
		assert.Equal(t, core.VoteStateDownvoted, got.Votes.StateOf("voter"))
	})

	t.Run("question votes track score", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		q := seedQuestion(t, s, "q1", "author")
		now := time.Now().UTC()

		require.NoError(t, s.ApplyQuestionVote(ctx, q.ID, "v1", core.VoteStateNone, core.VoteStateUpvoted, now))
		require.NoError(t, s.ApplyQuestionVote(ctx, q.ID, "v2", core.VoteStateNone, core.VoteStateUpvoted, now))
		require.NoError(t, s.ApplyQuestionVote(ctx, q.ID, "v3", core.VoteStateNone, core.VoteStateDownvoted, now))

		got, err := s.GetQuestion(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.VoteScore)
		assert.Len(t, got.Votes.Upvotes, 2)
	})

	t.Run("votes on deleted answers miss", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := seedAnswer(t, s, "q1", "a1", "author")
		require.NoError(t, s.SoftDeleteAnswer(ctx, a.ID))

		err := s.ApplyAnswerVote(ctx, a.ID, "voter", core.VoteStateNone, core.VoteStateUpvoted, time.Now())
		assert.ErrorIs(t, err, ErrConflict)
		_, err = s.GetAnswer(ctx, a.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("accepted answer compare and set", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedAnswer(t, s, "q1", "a1", "u1")
		seedAnswer(t, s, "q1", "a2", "u2")

		require.NoError(t, s.CompareAndSetAcceptedAnswer(ctx, "q1", "", "a1"))
		assert.ErrorIs(t, s.CompareAndSetAcceptedAnswer(ctx, "q1", "", "a2"), ErrConflict)
		require.NoError(t, s.CompareAndSetAcceptedAnswer(ctx, "q1", "a1", "a2"))
		assert.ErrorIs(t, s.CompareAndSetAcceptedAnswer(ctx, "q1", "a2", "unknown"), ErrConflict,
			"target must be listed on the question")

		q, err := s.GetQuestion(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, "a2", q.AcceptedAnswer)

		require.NoError(t, s.ClearAcceptedAnswerIf(ctx, "q1", "a1"))
		q, _ = s.GetQuestion(ctx, "q1")
		assert.Equal(t, "a2", q.AcceptedAnswer, "clearing a different answer is a no-op")

		require.NoError(t, s.ClearAcceptedAnswerIf(ctx, "q1", "a2"))
		q, _ = s.GetQuestion(ctx, "q1")
		assert.False(t, q.HasAcceptedAnswer())
	})

	t.Run("soft delete flips forward only", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedQuestion(t, s, "q1", "u1")

		require.NoError(t, s.SoftDeleteQuestion(ctx, "q1"))
		assert.ErrorIs(t, s.SoftDeleteQuestion(ctx, "q1"), ErrQuestionNotFound)
		_, err := s.GetQuestion(ctx, "q1")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("cascade deletes every answer of a question", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedAnswer(t, s, "q1", "a1", "u1")
		seedAnswer(t, s, "q1", "a2", "u2")
		seedAnswer(t, s, "q2", "other", "u2")
		require.NoError(t, s.MarkAnswerAccepted(ctx, "a2"))

		n, err := s.SoftDeleteAnswersByQuestion(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		for _, id := range []string{"a1", "a2"} {
			_, err := s.GetAnswer(ctx, id)
			assert.ErrorIs(t, err, ErrAnswerNotFound)
		}
		_, err = s.GetAnswer(ctx, "other")
		assert.NoError(t, err)

		var deleted []string
		require.NoError(t, s.ScanDeletedAnswers(ctx, func(a *core.Answer) error {
			assert.False(t, a.IsAccepted)
			deleted = append(deleted, a.ID)
			return nil
		}))
		assert.ElementsMatch(t, []string{"a1", "a2"}, deleted)
	})

	t.Run("remove question answer is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedAnswer(t, s, "q1", "a1", "u1")

		require.NoError(t, s.RemoveQuestionAnswer(ctx, "q1", "a1"))
		require.NoError(t, s.RemoveQuestionAnswer(ctx, "q1", "a1"))

		q, err := s.GetQuestion(ctx, "q1")
		require.NoError(t, err)
		assert.Empty(t, q.Answers)
		assert.Equal(t, 0, q.AnswerCount)
	})

	t.Run("list questions filters and sorts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "mid", "new"} {
			q := &core.Question{ID: id, Title: id, Author: "u1", Tags: []string{"go"}, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
			if id == "mid" {
				q.Tags = []string{"rust"}
			}
			require.NoError(t, s.CreateQuestion(ctx, q))
		}
		require.NoError(t, s.ApplyQuestionVote(ctx, "old", "v", core.VoteStateNone, core.VoteStateUpvoted, base))
		require.NoError(t, s.SoftDeleteQuestion(ctx, "mid"))

		list, total, err := s.ListQuestions(ctx, core.QuestionFilter{Sort: core.SortNewest, Page: core.Page{Page: 1, Limit: 10}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total, "deleted questions are excluded")
		assert.Equal(t, "new", list[0].ID)

		list, _, err = s.ListQuestions(ctx, core.QuestionFilter{Sort: core.SortVotes, Page: core.Page{Page: 1, Limit: 10}})
		require.NoError(t, err)
		assert.Equal(t, "old", list[0].ID)

		list, total, err = s.ListQuestions(ctx, core.QuestionFilter{Tag: "go", Sort: core.SortOldest, Page: core.Page{Page: 2, Limit: 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 1)
		assert.Equal(t, "new", list[0].ID)
	})

	t.Run("reputation increments and badges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u1", Username: "alice", Role: core.RoleUser}))

		require.NoError(t, s.IncrementReputation(ctx, "u1", 10))
		require.NoError(t, s.IncrementReputation(ctx, "u1", -12))
		require.NoError(t, s.AddBadge(ctx, "u1", "helper"))
		require.NoError(t, s.AddBadge(ctx, "u1", "helper"))

		u, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, -2, u.Reputation)
		assert.Equal(t, []string{"helper"}, u.Badges)

		assert.ErrorIs(t, s.IncrementReputation(ctx, "ghost", 5), ErrUserNotFound)
		assert.ErrorIs(t, s.CreateUser(ctx, &core.User{ID: "u2", Username: "alice"}), ErrDuplicateKey)

		users, err := s.GetUsersByUsernames(ctx, []string{"alice", "nobody"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "u1", users[0].ID)
	})

	t.Run("notifications read flags", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, id := range []string{"n1", "n2", "n3"} {
			require.NoError(t, s.CreateNotification(ctx, &core.Notification{
				ID: id, Type: core.NotificationAnswer, User: "u1", From: "u2", CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		unread, err := s.CountUnreadNotifications(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), unread)

		require.NoError(t, s.MarkNotificationRead(ctx, "n1"))
		n, err := s.MarkAllNotificationsRead(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		list, total, err := s.ListNotifications(ctx, "u1", core.Page{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, "n3", list[0].ID)

		require.NoError(t, s.DeleteNotification(ctx, "n1"))
		assert.ErrorIs(t, s.DeleteNotification(ctx, "n1"), ErrNotificationNotFound)

		all, err := s.CountNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), all)
	})

	t.Run("admin listings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, u := range []core.User{
			{ID: "u1", Username: "first", Reputation: 5},
			{ID: "u2", Username: "second", Reputation: 40},
			{ID: "u3", Username: "third", Reputation: 12},
		} {
			u.Role = core.RoleUser
			u.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, s.CreateUser(ctx, &u))
		}

		newest, total, err := s.ListUsers(ctx, core.UserFilter{Sort: core.UserSortNewest, Page: core.Page{Page: 1, Limit: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, newest, 2)
		assert.Equal(t, "u3", newest[0].ID)

		top, _, err := s.ListUsers(ctx, core.UserFilter{Sort: core.UserSortReputation})
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, []string{"u2", "u3", "u1"}, []string{top[0].ID, top[1].ID, top[2].ID})

		seedQuestion(t, s, "q1", "u1")
		seedQuestion(t, s, "q2", "u1")
		require.NoError(t, s.SoftDeleteQuestion(ctx, "q2"))

		_, visible, err := s.ListQuestions(ctx, core.QuestionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), visible)
		withDeleted, all, err := s.ListQuestions(ctx, core.QuestionFilter{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), all)
		assert.Len(t, withDeleted, 2)
	})

	t.Run("answers newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedQuestion(t, s, "q1", "asker")
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, id := range []string{"a1", "a2", "a3"} {
			require.NoError(t, s.CreateAnswer(ctx, &core.Answer{
				ID: id, Content: "answer " + id, Author: "u1", Question: "q1", CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		oldest, _, err := s.ListAnswers(ctx, core.AnswerFilter{Question: "q1"})
		require.NoError(t, err)
		require.Len(t, oldest, 3)
		assert.Equal(t, "a1", oldest[0].ID)

		newest, _, err := s.ListAnswers(ctx, core.AnswerFilter{Question: "q1", NewestFirst: true, Page: core.Page{Page: 1, Limit: 1}})
		require.NoError(t, err)
		require.Len(t, newest, 1)
		assert.Equal(t, "a3", newest[0].ID)
	})
}

func seedQuestion(t *testing.T, s Store, id, author string) *core.Question {
	t.Helper()
	q := &core.Question{ID: id, Title: "title " + id, Author: author, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateQuestion(context.Background(), q))
	return q
}

func seedAnswer(t *testing.T, s Store, questionID, id, author string) *core.Answer {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetQuestion(ctx, questionID); err != nil {
		seedQuestion(t, s, questionID, "asker")
	}
	a := &core.Answer{ID: id, Content: "answer " + id, Author: author, Question: questionID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateAnswer(ctx, a))
	require.NoError(t, s.AddQuestionAnswer(ctx, questionID, id))
	return a
}
