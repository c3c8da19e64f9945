package storage

import (
	"context"
	"fmt"

	"agora/core"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateUser inserts a new user
func (s *MongoStore) CreateUser(ctx context.Context, u *core.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if u.Badges == nil {
		u.Badges = []string{}
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return insertErr("user", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *MongoStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

// GetUserByUsername retrieves a user by username
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*core.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var u core.User
	if err := findOne(ctx, s.users, filter, &u, ErrUserNotFound); err != nil {
		if err == ErrUserNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// GetUsersByUsernames resolves a batch of usernames; unknown names are skipped
func (s *MongoStore) GetUsersByUsernames(ctx context.Context, usernames []string) ([]core.User, error) {
	users := make([]core.User, 0, len(usernames))
	if len(usernames) == 0 {
		return users, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.users.Find(ctx, bson.M{"username": bson.M{"$in": usernames}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// IncrementReputation applies a signed delta with a single $inc
func (s *MongoStore) IncrementReputation(ctx context.Context, id string, delta int) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$inc": bson.M{"reputation": delta}}
	if err := updateOne(ctx, s.users, bson.M{"_id": id}, update, ErrUserNotFound); err != nil {
		return wrapUnlessSentinel("failed to increment reputation", err, ErrUserNotFound)
	}
	return nil
}

// AddBadge adds a badge label if not already held
func (s *MongoStore) AddBadge(ctx context.Context, id, badge string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$addToSet": bson.M{"badges": badge}}
	if err := updateOne(ctx, s.users, bson.M{"_id": id}, update, ErrUserNotFound); err != nil {
		return wrapUnlessSentinel("failed to add badge", err, ErrUserNotFound)
	}
	return nil
}

// SetBanned sets the banned flag
func (s *MongoStore) SetBanned(ctx context.Context, id string, banned bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isBanned": banned}}
	if err := updateOne(ctx, s.users, bson.M{"_id": id}, update, ErrUserNotFound); err != nil {
		return wrapUnlessSentinel("failed to set banned flag", err, ErrUserNotFound)
	}
	return nil
}

// ListUsers returns a page of users, newest first or by reputation
func (s *MongoStore) ListUsers(ctx context.Context, filter core.UserFilter) ([]core.User, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sort := bson.D{{Key: "createdAt", Value: -1}}
	if filter.Sort == core.UserSortReputation {
		sort = bson.D{{Key: "reputation", Value: -1}, {Key: "createdAt", Value: 1}}
	}
	users := make([]core.User, 0)
	total, err := findPage(ctx, s.users, bson.M{}, sort, filter.Page.Offset(), filter.Page.Limit, &users)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
