package service

import (
	"context"
	"testing"

	"agora/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAdminService_Dashboard(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	admin := NewAdminService(env.store, env.store, env.store, env.store, zaptest.NewLogger(t).Sugar())

	moderator := env.admin(t, "moderator")
	asker := env.user(t, "asker")
	responder := env.user(t, "responder")
	q := env.question(t, asker)
	a := env.answer(t, responder, q.ID)
	_, err := env.accept.Accept(ctx, asker, q.ID, a.ID)
	require.NoError(t, err)
	gone := env.question(t, asker)
	env.answer(t, responder, gone.ID)
	require.NoError(t, env.deletion.DeleteQuestion(ctx, asker, gone.ID))

	_, err = admin.Dashboard(ctx, asker)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = admin.Dashboard(ctx, nil)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	dashboard, err := admin.Dashboard(ctx, moderator)
	require.NoError(t, err)
	assert.EqualValues(t, 3, dashboard.Stats.Users)
	assert.EqualValues(t, 1, dashboard.Stats.Questions)
	assert.EqualValues(t, 1, dashboard.Stats.Answers)
	// two answer notifications and one acceptance
	assert.EqualValues(t, 3, dashboard.Stats.Notifications)
	require.Len(t, dashboard.RecentActivity.Answers, 1)
	assert.Equal(t, a.ID, dashboard.RecentActivity.Answers[0].ID)
	require.NotEmpty(t, dashboard.TopUsers)
	assert.Equal(t, responder.UserID, dashboard.TopUsers[0].ID)
	assert.Equal(t, 15, dashboard.TopUsers[0].Reputation)
}

func TestAdminService_Listings(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	admin := NewAdminService(env.store, env.store, env.store, env.store, zaptest.NewLogger(t).Sugar())

	moderator := env.admin(t, "moderator")
	asker := env.user(t, "asker")
	env.question(t, asker)
	gone := env.question(t, asker)
	require.NoError(t, env.deletion.DeleteQuestion(ctx, asker, gone.ID))

	_, err := admin.Users(ctx, asker, core.Page{})
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = admin.Questions(ctx, asker, true, core.Page{})
	assert.ErrorIs(t, err, core.ErrForbidden)

	users, err := admin.Users(ctx, moderator, core.Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, users.Total)
	assert.Len(t, users.Users, 1)
	assert.True(t, users.HasNext)
	assert.False(t, users.HasPrev)

	defaults, err := admin.Users(ctx, moderator, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.Limit)

	visible, err := admin.Questions(ctx, moderator, false, core.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, visible.Total)

	all, err := admin.Questions(ctx, moderator, true, core.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
}
