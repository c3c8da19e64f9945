package storage

import (
	"context"
	"fmt"
	"time"

	"agora/core"
	"go.mongodb.org/mongo-driver/bson"
)

// questionSort maps a listing order to a Mongo sort document
func questionSort(sort core.QuestionSort) bson.D {
	switch sort {
	case core.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}}
	case core.SortVotes:
		return bson.D{{Key: "voteScore", Value: -1}, {Key: "createdAt", Value: -1}}
	case core.SortAnswers:
		return bson.D{{Key: "answerCount", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

// CreateQuestion inserts a new question
func (s *MongoStore) CreateQuestion(ctx context.Context, q *core.Question) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	normalizeQuestion(q)
	if _, err := s.questions.InsertOne(ctx, q); err != nil {
		return insertErr("question", err)
	}
	return nil
}

// GetQuestion retrieves a visible question by ID
func (s *MongoStore) GetQuestion(ctx context.Context, id string) (*core.Question, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var q core.Question
	if err := findOne(ctx, s.questions, bson.M{"_id": id, "isDeleted": false}, &q, ErrQuestionNotFound); err != nil {
		if err == ErrQuestionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return &q, nil
}

// ListQuestions returns a page of visible questions and the total match count
func (s *MongoStore) ListQuestions(ctx context.Context, filter core.QuestionFilter) ([]core.Question, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if !filter.IncludeDeleted {
		query["isDeleted"] = false
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}
	if filter.Author != "" {
		query["author"] = filter.Author
	}

	questions := make([]core.Question, 0)
	total, err := findPage(ctx, s.questions, query, questionSort(filter.Sort), filter.Page.Offset(), filter.Page.Limit, &questions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

// UpdateQuestionContent replaces the editable fields of a visible question
func (s *MongoStore) UpdateQuestionContent(ctx context.Context, id, title, description string, tags []string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if tags == nil {
		tags = []string{}
	}
	update := bson.M{"$set": bson.M{
		"title":       title,
		"description": description,
		"tags":        tags,
		"updatedAt":   time.Now().UTC(),
	}}
	if err := updateOne(ctx, s.questions, bson.M{"_id": id, "isDeleted": false}, update, ErrQuestionNotFound); err != nil {
		return wrapUnlessSentinel("failed to update question", err, ErrQuestionNotFound)
	}
	return nil
}

// IncrementQuestionViews bumps the view counter
func (s *MongoStore) IncrementQuestionViews(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$inc": bson.M{"views": 1}}
	if err := updateOne(ctx, s.questions, bson.M{"_id": id, "isDeleted": false}, update, ErrQuestionNotFound); err != nil {
		return wrapUnlessSentinel("failed to increment views", err, ErrQuestionNotFound)
	}
	return nil
}

// ApplyQuestionVote moves a voter between vote sets of a question
func (s *MongoStore) ApplyQuestionVote(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update, err := voteUpdate(voter, from, to, at)
	if err != nil {
		return err
	}
	if err := updateOne(ctx, s.questions, voteFilter(id, voter, from), update, ErrConflict); err != nil {
		return wrapUnlessSentinel("failed to apply question vote", err, ErrConflict)
	}
	return nil
}

// AddQuestionAnswer appends an answer to a visible question
func (s *MongoStore) AddQuestionAnswer(ctx context.Context, questionID, answerID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": questionID, "isDeleted": false, "answers": bson.M{"$ne": answerID}}
	update := bson.M{
		"$push": bson.M{"answers": answerID},
		"$inc":  bson.M{"answerCount": 1},
	}
	if err := updateOne(ctx, s.questions, filter, update, ErrQuestionNotFound); err != nil {
		return wrapUnlessSentinel("failed to add answer to question", err, ErrQuestionNotFound)
	}
	return nil
}

// RemoveQuestionAnswer pulls an answer reference if present
func (s *MongoStore) RemoveQuestionAnswer(ctx context.Context, questionID, answerID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": questionID, "answers": answerID}
	update := bson.M{
		"$pull": bson.M{"answers": answerID},
		"$inc":  bson.M{"answerCount": -1},
	}
	if err := updateOne(ctx, s.questions, filter, update, nil); err != nil {
		return fmt.Errorf("failed to remove answer from question: %w", err)
	}
	return nil
}

// CompareAndSetAcceptedAnswer is the single enforcement point for acceptance
func (s *MongoStore) CompareAndSetAcceptedAnswer(ctx context.Context, questionID, prev, next string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": questionID, "isDeleted": false, "answers": next}
	if prev == "" {
		// matches a missing, null or empty reference
		filter["acceptedAnswer"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["acceptedAnswer"] = prev
	}
	update := bson.M{"$set": bson.M{"acceptedAnswer": next, "updatedAt": time.Now().UTC()}}

	if err := updateOne(ctx, s.questions, filter, update, ErrConflict); err != nil {
		return wrapUnlessSentinel("failed to set accepted answer", err, ErrConflict)
	}
	return nil
}

// ClearAcceptedAnswerIf unsets acceptedAnswer only when it points at answerID
func (s *MongoStore) ClearAcceptedAnswerIf(ctx context.Context, questionID, answerID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": questionID, "acceptedAnswer": answerID}
	update := bson.M{"$unset": bson.M{"acceptedAnswer": ""}}
	if err := updateOne(ctx, s.questions, filter, update, nil); err != nil {
		return fmt.Errorf("failed to clear accepted answer: %w", err)
	}
	return nil
}

// SoftDeleteQuestion flips the visibility flag forward
func (s *MongoStore) SoftDeleteQuestion(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now().UTC()}}
	if err := updateOne(ctx, s.questions, bson.M{"_id": id, "isDeleted": false}, update, ErrQuestionNotFound); err != nil {
		return wrapUnlessSentinel("failed to delete question", err, ErrQuestionNotFound)
	}
	return nil
}

// DetachQuestionAnswers drops answer references from a question
func (s *MongoStore) DetachQuestionAnswers(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"answers": []string{}, "answerCount": 0},
		"$unset": bson.M{"acceptedAnswer": ""},
	}
	if err := updateOne(ctx, s.questions, bson.M{"_id": id}, update, nil); err != nil {
		return fmt.Errorf("failed to detach answers: %w", err)
	}
	return nil
}

// ScanQuestions iterates every question with a cursor
func (s *MongoStore) ScanQuestions(ctx context.Context, fn func(*core.Question) error) error {
	cursor, err := s.questions.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to scan questions: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var q core.Question
		if err := cursor.Decode(&q); err != nil {
			return fmt.Errorf("failed to decode question: %w", err)
		}
		if err := fn(&q); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func normalizeQuestion(q *core.Question) {
	if q.Tags == nil {
		q.Tags = []string{}
	}
	if q.Answers == nil {
		q.Answers = []string{}
	}
	normalizeVotes(&q.Votes)
}

func normalizeVotes(v *core.Votes) {
	if v.Upvotes == nil {
		v.Upvotes = []core.VoteEntry{}
	}
	if v.Downvotes == nil {
		v.Downvotes = []core.VoteEntry{}
	}
}

// wrapUnlessSentinel adds context to driver errors but passes sentinels through
func wrapUnlessSentinel(msg string, err error, sentinel error) error {
	if err == sentinel {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
