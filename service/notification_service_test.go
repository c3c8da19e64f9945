package service

import (
	"context"
	"testing"
	"time"

	"agora/core"
	"agora/effects"
	"agora/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestReadCache(t *testing.T) (*RedisReadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zaptest.NewLogger(t).Sugar()
	cache := core.NewRedisCache(mr.Addr(), "", 0, 5, logger)
	t.Cleanup(func() { cache.Close() })
	return NewRedisReadCache(cache, time.Minute, time.Minute, logger), mr
}

func seedNotifications(t *testing.T, store *storage.MemoryStore, user string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		rec := &core.Notification{
			ID:        uuid.New().String(),
			Type:      core.NotificationAnswer,
			Content:   "Your question received a new answer",
			User:      user,
			From:      "someone",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CreateNotification(context.Background(), rec))
		ids[i] = rec.ID
	}
	return ids
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store, nil, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	alice := &core.Actor{UserID: "alice", Role: core.RoleUser}
	bob := &core.Actor{UserID: "bob", Role: core.RoleUser}
	ids := seedNotifications(t, store, "alice", 3)
	seedNotifications(t, store, "bob", 1)

	page, err := svc.List(ctx, alice, core.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.EqualValues(t, 3, page.Unread)
	require.Len(t, page.Notifications, 3)
	assert.Equal(t, ids[2], page.Notifications[0].ID, "newest first")

	assert.ErrorIs(t, svc.MarkRead(ctx, bob, ids[0]), core.ErrForbidden)
	require.NoError(t, svc.MarkRead(ctx, alice, ids[0]))

	unread, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	n, err := svc.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestNotificationService_Delete(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store, nil, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	alice := &core.Actor{UserID: "alice", Role: core.RoleUser}
	ids := seedNotifications(t, store, "alice", 2)

	assert.ErrorIs(t, svc.Delete(ctx, &core.Actor{UserID: "mallory"}, ids[0]), core.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, alice, ids[0]))
	assert.ErrorIs(t, svc.Delete(ctx, alice, ids[0]), core.ErrNotFound)

	_, err := svc.List(ctx, nil, core.Page{})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestNotificationService_UnreadCountIsCached(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, mr := newTestReadCache(t)
	svc := NewNotificationService(store, cache, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	alice := &core.Actor{UserID: "alice", Role: core.RoleUser}
	ids := seedNotifications(t, store, "alice", 2)

	unread, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)
	assert.True(t, mr.Exists(core.GetUnreadCacheKey("alice")))

	// a write that bypasses the service is not seen until invalidation
	seedNotifications(t, store, "alice", 3)
	unread, err = svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, svc.MarkRead(ctx, alice, ids[0]))
	assert.False(t, mr.Exists(core.GetUnreadCacheKey("alice")))
}

func TestNotificationService_CacheOutageFallsBackToStore(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, mr := newTestReadCache(t)
	svc := NewNotificationService(store, cache, zaptest.NewLogger(t).Sugar())
	seedNotifications(t, store, "alice", 2)
	mr.Close()

	unread, err := svc.UnreadCount(context.Background(), &core.Actor{UserID: "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)
}

func TestNotifier_InvalidatesUnreadCache(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, mr := newTestReadCache(t)
	logger := zaptest.NewLogger(t).Sugar()
	notifier := NewNotifier(store, store, effects.NewInline(nil, logger), logger).WithUnreadCache(cache)
	ctx := context.Background()

	cache.SetUnread(ctx, "asker", 0)
	require.True(t, mr.Exists(core.GetUnreadCacheKey("asker")))

	notifier.NotifyAnswerReceived(&core.Question{ID: "q1", Author: "asker"}, &core.Answer{ID: "a1", Author: "responder"})

	assert.False(t, mr.Exists(core.GetUnreadCacheKey("asker")))
	n, err := store.CountUnreadNotifications(ctx, "asker")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRedisReadCache_ProfileStats(t *testing.T) {
	cache, _ := newTestReadCache(t)
	ctx := context.Background()

	_, ok := cache.GetProfileStats(ctx, "u1")
	assert.False(t, ok)

	cache.SetProfileStats(ctx, "u1", &ProfileStats{QuestionCount: 2, AnswerCount: 5, AcceptedAnswerCount: 1})
	stats, ok := cache.GetProfileStats(ctx, "u1")
	require.True(t, ok)
	assert.EqualValues(t, 5, stats.AnswerCount)
}
