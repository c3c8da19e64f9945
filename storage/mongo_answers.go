package storage

import (
	"context"
	"fmt"
	"time"

	"agora/core"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateAnswer inserts a new answer
func (s *MongoStore) CreateAnswer(ctx context.Context, a *core.Answer) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	normalizeVotes(&a.Votes)
	if _, err := s.answers.InsertOne(ctx, a); err != nil {
		return insertErr("answer", err)
	}
	return nil
}

// GetAnswer retrieves a visible answer by ID
func (s *MongoStore) GetAnswer(ctx context.Context, id string) (*core.Answer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a core.Answer
	if err := findOne(ctx, s.answers, bson.M{"_id": id, "isDeleted": false}, &a, ErrAnswerNotFound); err != nil {
		if err == ErrAnswerNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find answer: %w", err)
	}
	return &a, nil
}

// ListAnswers returns visible answers, oldest first
func (s *MongoStore) ListAnswers(ctx context.Context, filter core.AnswerFilter) ([]core.Answer, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := bson.M{"isDeleted": false}
	if filter.Question != "" {
		query["question"] = filter.Question
	}
	if filter.Author != "" {
		query["author"] = filter.Author
	}
	if filter.Accepted != nil {
		query["isAccepted"] = *filter.Accepted
	}

	answers := make([]core.Answer, 0)
	sort := bson.D{{Key: "createdAt", Value: 1}}
	if filter.NewestFirst {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}
	total, err := findPage(ctx, s.answers, query, sort, filter.Page.Offset(), filter.Page.Limit, &answers)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, total, nil
}

// UpdateAnswerContent replaces the body of a visible answer
func (s *MongoStore) UpdateAnswerContent(ctx context.Context, id, content string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now().UTC()}}
	if err := updateOne(ctx, s.answers, bson.M{"_id": id, "isDeleted": false}, update, ErrAnswerNotFound); err != nil {
		return wrapUnlessSentinel("failed to update answer", err, ErrAnswerNotFound)
	}
	return nil
}

// ApplyAnswerVote moves a voter between vote sets of an answer
func (s *MongoStore) ApplyAnswerVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update, err := voteUpdate(voter, from, to, at)
	if err != nil {
		return err
	}
	if err := updateOne(ctx, s.answers, voteFilter(id, voter, from), update, ErrConflict); err != nil {
		return wrapUnlessSentinel("failed to apply answer vote", err, ErrConflict)
	}
	return nil
}

// MarkAnswerAccepted sets isAccepted on a visible answer
func (s *MongoStore) MarkAnswerAccepted(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isAccepted": true}}
	if err := updateOne(ctx, s.answers, bson.M{"_id": id, "isDeleted": false}, update, ErrAnswerNotFound); err != nil {
		return wrapUnlessSentinel("failed to mark answer accepted", err, ErrAnswerNotFound)
	}
	return nil
}

// UnmarkAnswerAccepted clears isAccepted regardless of visibility
func (s *MongoStore) UnmarkAnswerAccepted(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isAccepted": false}}
	if err := updateOne(ctx, s.answers, bson.M{"_id": id}, update, nil); err != nil {
		return fmt.Errorf("failed to unmark accepted answer: %w", err)
	}
	return nil
}

// UnmarkAnswersAcceptedExcept clears isAccepted on sibling answers
func (s *MongoStore) UnmarkAnswersAcceptedExcept(ctx context.Context, questionID, keepID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"question": questionID, "isAccepted": true}
	if keepID != "" {
		filter["_id"] = bson.M{"$ne": keepID}
	}
	result, err := s.answers.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isAccepted": false}})
	if err != nil {
		return 0, fmt.Errorf("failed to unmark accepted answers: %w", err)
	}
	return result.ModifiedCount, nil
}

// SoftDeleteAnswer flips the visibility flag forward and drops acceptance
func (s *MongoStore) SoftDeleteAnswer(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isDeleted": true, "isAccepted": false, "updatedAt": time.Now().UTC()}}
	if err := updateOne(ctx, s.answers, bson.M{"_id": id, "isDeleted": false}, update, ErrAnswerNotFound); err != nil {
		return wrapUnlessSentinel("failed to delete answer", err, ErrAnswerNotFound)
	}
	return nil
}

// SoftDeleteAnswersByQuestion cascades a question deletion to its answers
func (s *MongoStore) SoftDeleteAnswersByQuestion(ctx context.Context, questionID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isDeleted": true, "isAccepted": false}}
	result, err := s.answers.UpdateMany(ctx, bson.M{"question": questionID}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to cascade delete answers: %w", err)
	}
	return result.ModifiedCount, nil
}

// ScanDeletedAnswers iterates every soft-deleted answer with a cursor
func (s *MongoStore) ScanDeletedAnswers(ctx context.Context, fn func(*core.Answer) error) error {
	cursor, err := s.answers.Find(ctx, bson.M{"isDeleted": true})
	if err != nil {
		return fmt.Errorf("failed to scan deleted answers: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var a core.Answer
		if err := cursor.Decode(&a); err != nil {
			return fmt.Errorf("failed to decode answer: %w", err)
		}
		if err := fn(&a); err != nil {
			return err
		}
	}
	return cursor.Err()
}
