package service

import (
	"context"
	"testing"
	"time"

	"agora/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteQuestion_CascadesToAnswers(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	asker := env.user(t, "asker")
	responder := env.user(t, "responder")
	q := env.question(t, asker)
	a1 := env.answer(t, responder, q.ID)
	a2 := env.answer(t, responder, q.ID)
	_, err := env.accept.Accept(ctx, asker, q.ID, a1.ID)
	require.NoError(t, err)

	require.NoError(t, env.deletion.DeleteQuestion(ctx, asker, q.ID))

	stored := env.rawQuestion(t, q.ID)
	assert.True(t, stored.IsDeleted)
	assert.Empty(t, stored.Answers)
	assert.Empty(t, stored.AcceptedAnswer)
	for _, id := range []string{a1.ID, a2.ID} {
		a := env.rawAnswer(t, id)
		assert.True(t, a.IsDeleted)
		assert.False(t, a.IsAccepted)
	}

	page, err := env.questions.List(ctx, core.QuestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Questions)
	assert.Zero(t, page.Total)

	_, err = env.questions.Get(ctx, q.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = env.answers.Create(ctx, responder, q.ID, "Too late to answer this one.")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// deleted content keeps the reputation it earned
	assert.Equal(t, 15, env.reputation(t, responder))

	err = env.deletion.DeleteQuestion(ctx, asker, q.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteAnswer_AcceptedAnswerIsNotReplaced(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	asker := env.user(t, "asker")
	responder := env.user(t, "responder")
	q := env.question(t, asker)
	a1 := env.answer(t, responder, q.ID)
	a2 := env.answer(t, responder, q.ID)
	_, err := env.accept.Accept(ctx, asker, q.ID, a1.ID)
	require.NoError(t, err)

	require.NoError(t, env.deletion.DeleteAnswer(ctx, responder, a1.ID))

	stored := env.rawQuestion(t, q.ID)
	assert.Empty(t, stored.AcceptedAnswer)
	assert.Equal(t, []string{a2.ID}, stored.Answers)
	assert.Equal(t, 1, stored.AnswerCount)
	assert.False(t, env.rawAnswer(t, a2.ID).IsAccepted)
	assert.False(t, env.rawAnswer(t, a1.ID).IsAccepted)
	assert.True(t, env.rawAnswer(t, a1.ID).IsDeleted)

	err = env.deletion.DeleteAnswer(ctx, responder, a1.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete_Permissions(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	asker := env.user(t, "asker")
	stranger := env.user(t, "stranger")
	admin := env.admin(t, "moderator")
	q := env.question(t, asker)
	a := env.answer(t, asker, q.ID)

	assert.ErrorIs(t, env.deletion.DeleteAnswer(ctx, stranger, a.ID), core.ErrForbidden)
	assert.ErrorIs(t, env.deletion.DeleteQuestion(ctx, stranger, q.ID), core.ErrForbidden)
	assert.ErrorIs(t, env.deletion.DeleteQuestion(ctx, nil, q.ID), core.ErrUnauthenticated)
	assert.False(t, env.rawQuestion(t, q.ID).IsDeleted)

	require.NoError(t, env.deletion.DeleteQuestion(ctx, admin, q.ID))
	assert.True(t, env.rawAnswer(t, a.ID).IsDeleted)
}

func TestRepair_FinishesInterruptedCascades(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	asker := env.user(t, "asker")
	responder := env.user(t, "responder")

	// question flipped but cascade never ran
	q1 := env.question(t, asker)
	orphan := env.answer(t, responder, q1.ID)
	require.NoError(t, env.store.SoftDeleteQuestion(ctx, q1.ID))

	// answer flipped but never detached while still accepted
	q2 := env.question(t, asker)
	gone := env.answer(t, responder, q2.ID)
	kept := env.answer(t, responder, q2.ID)
	_, err := env.accept.Accept(ctx, asker, q2.ID, gone.ID)
	require.NoError(t, err)
	require.NoError(t, env.store.SoftDeleteAnswer(ctx, gone.ID))

	// stale flag left by an accept interrupted between its steps
	q3 := env.question(t, asker)
	old := env.answer(t, responder, q3.ID)
	current := env.answer(t, responder, q3.ID)
	_, err = env.accept.Accept(ctx, asker, q3.ID, old.ID)
	require.NoError(t, err)
	require.NoError(t, env.store.CompareAndSetAcceptedAnswer(ctx, q3.ID, old.ID, current.ID))

	report, err := env.deletion.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.QuestionsScanned)
	assert.Equal(t, 1, report.DeletedQuestions)
	assert.EqualValues(t, 1, report.AnswersCascaded)
	assert.Equal(t, 1, report.AcceptanceCleared)
	assert.Equal(t, 1, report.AcceptanceRestored)
	assert.EqualValues(t, 1, report.StaleFlagsCleared)

	assert.True(t, env.rawAnswer(t, orphan.ID).IsDeleted)
	assert.Empty(t, env.rawQuestion(t, q1.ID).Answers)

	s2 := env.rawQuestion(t, q2.ID)
	assert.Empty(t, s2.AcceptedAnswer)
	assert.Equal(t, []string{kept.ID}, s2.Answers)

	assert.False(t, env.rawAnswer(t, old.ID).IsAccepted)
	assert.True(t, env.rawAnswer(t, current.ID).IsAccepted)

	second, err := env.deletion.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.AnswersCascaded)
	assert.Zero(t, second.AcceptanceCleared)
	assert.Zero(t, second.AcceptanceRestored)
	assert.Zero(t, second.StaleFlagsCleared)
}

func TestRepair_ReattachesUnlistedAnswer(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	asker := env.user(t, "asker")
	responder := env.user(t, "responder")
	q := env.question(t, asker)
	listed := env.answer(t, responder, q.ID)

	// answer stored but the append to the question's list never landed
	unlisted := &core.Answer{
		ID:        "unlisted-answer",
		Content:   "Pass the context down and select on ctx.Done().",
		Author:    responder.UserID,
		Question:  q.ID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, env.store.CreateAnswer(ctx, unlisted))

	_, err := env.accept.Accept(ctx, asker, q.ID, unlisted.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	report, err := env.deletion.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AnswersReattached)

	stored := env.rawQuestion(t, q.ID)
	assert.ElementsMatch(t, []string{listed.ID, unlisted.ID}, stored.Answers)
	assert.Equal(t, 2, stored.AnswerCount)

	result, err := env.accept.Accept(ctx, asker, q.ID, unlisted.ID)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, env.rawAnswer(t, unlisted.ID).IsAccepted)

	second, err := env.deletion.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.AnswersReattached)
}
