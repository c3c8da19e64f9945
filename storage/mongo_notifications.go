package storage

import (
	"context"
	"fmt"

	"agora/core"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateNotification inserts an immutable notification record
func (s *MongoStore) CreateNotification(ctx context.Context, n *core.Notification) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.notifications.InsertOne(ctx, n); err != nil {
		return insertErr("notification", err)
	}
	return nil
}

// GetNotification retrieves a notification by ID
func (s *MongoStore) GetNotification(ctx context.Context, id string) (*core.Notification, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n core.Notification
	if err := findOne(ctx, s.notifications, bson.M{"_id": id}, &n, ErrNotificationNotFound); err != nil {
		if err == ErrNotificationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns a user's notifications, newest first
func (s *MongoStore) ListNotifications(ctx context.Context, userID string, page core.Page) ([]core.Notification, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	notifications := make([]core.Notification, 0)
	sort := bson.D{{Key: "createdAt", Value: -1}}
	total, err := findPage(ctx, s.notifications, bson.M{"user": userID}, sort, page.Offset(), page.Limit, &notifications)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnreadNotifications counts a user's unread notifications
func (s *MongoStore) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.notifications.CountDocuments(ctx, bson.M{"user": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// CountNotifications counts all notifications
func (s *MongoStore) CountNotifications(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.notifications.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead sets the read flag, the only mutable field
func (s *MongoStore) MarkNotificationRead(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isRead": true}}
	if err := updateOne(ctx, s.notifications, bson.M{"_id": id}, update, ErrNotificationNotFound); err != nil {
		return wrapUnlessSentinel("failed to mark notification read", err, ErrNotificationNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a user read
func (s *MongoStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.notifications.UpdateMany(ctx,
		bson.M{"user": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

// DeleteNotification removes a notification
func (s *MongoStore) DeleteNotification(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
