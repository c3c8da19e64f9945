package service

import (
	"context"
	"fmt"

	"agora/core"
	"go.uber.org/zap"
)

// NotificationPage is one page of a user's notifications
type NotificationPage struct {
	Notifications []core.Notification `json:"notifications"`
	Total         int64               `json:"total"`
	Unread        int64               `json:"unread"`
	Page          int                 `json:"page"`
	Limit         int                 `json:"limit"`
	HasNext       bool                `json:"hasNext"`
}

// NotificationService is the recipient-facing side of notifications. Records
// are only ever mutated through the read flag.
type NotificationService struct {
	store  NotificationStorage
	cache  UnreadCache
	logger *zap.SugaredLogger
}

// NewNotificationService creates a notification service. cache may be nil.
func NewNotificationService(store NotificationStorage, cache UnreadCache, logger *zap.SugaredLogger) *NotificationService {
	if store == nil {
		panic("notification storage is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &NotificationService{store: store, cache: cache, logger: logger}
}

func requireUser(actor *core.Actor) error {
	if actor == nil || actor.UserID == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(ctx context.Context, actor *core.Actor, page core.Page) (*NotificationPage, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	page = page.Normalize(DefaultPageLimit*2, MaxPageLimit)

	list, total, err := s.store.ListNotifications(ctx, actor.UserID, page)
	if err != nil {
		return nil, err
	}
	unread, err := s.UnreadCount(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: list,
		Total:         total,
		Unread:        unread,
		Page:          page.Page,
		Limit:         page.Limit,
		HasNext:       int64(page.Offset()+page.Limit) < total,
	}, nil
}

// UnreadCount returns the actor's unread count, served from cache when possible
func (s *NotificationService) UnreadCount(ctx context.Context, actor *core.Actor) (int64, error) {
	if err := requireUser(actor); err != nil {
		return 0, err
	}
	if s.cache != nil {
		if n, ok := s.cache.GetUnread(ctx, actor.UserID); ok {
			return n, nil
		}
	}

	n, err := s.store.CountUnreadNotifications(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetUnread(ctx, actor.UserID, n)
	}
	return n, nil
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, actor *core.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, actor.UserID)
	return nil
}

// MarkAllRead marks every unread notification of the actor read
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *core.Actor) (int64, error) {
	if err := requireUser(actor); err != nil {
		return 0, err
	}
	n, err := s.store.MarkAllNotificationsRead(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, actor.UserID)
	return n, nil
}

// Delete removes one of the actor's notifications
func (s *NotificationService) Delete(ctx context.Context, actor *core.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.DeleteNotification(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, actor.UserID)
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor *core.Actor, id string) (*core.Notification, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.User != actor.UserID {
		return nil, fmt.Errorf("notification %s belongs to another user: %w", id, core.ErrForbidden)
	}
	return n, nil
}

func (s *NotificationService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateUnread(ctx, userID)
	}
}
