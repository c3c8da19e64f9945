package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agora/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnswerService posts and edits answers
type AnswerService struct {
	questions QuestionStorage
	answers   AnswerStorage
	notifier  *Notifier
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewAnswerService creates an answer service
func NewAnswerService(questions QuestionStorage, answers AnswerStorage, notifier *Notifier, logger *zap.SugaredLogger) *AnswerService {
	if questions == nil || answers == nil {
		panic("question and answer storage are required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &AnswerService{
		questions: questions,
		answers:   answers,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create posts an answer to a visible question, links it from the question
// and notifies the question author and mentioned users.
//
// If the question is deleted while the answer is being written, the new
// answer is deleted too and core.ErrNotFound is returned.
func (s *AnswerService) Create(ctx context.Context, actor *core.Actor, questionID, content string) (*core.Answer, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", core.ErrValidation)
	}

	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a := &core.Answer{
		ID:        uuid.New().String(),
		Content:   content,
		Author:    actor.UserID,
		Question:  q.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.answers.CreateAnswer(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	if err := s.questions.AddQuestionAnswer(ctx, q.ID, a.ID); err != nil {
		if derr := s.answers.SoftDeleteAnswer(ctx, a.ID); derr != nil && !errors.Is(derr, core.ErrNotFound) {
			s.logger.Errorw("Failed to remove orphaned answer",
				"answer_id", a.ID,
				"question_id", q.ID,
				"error", derr)
		}
		return nil, err
	}

	s.notifier.NotifyAnswerReceived(q, a)
	s.notifier.NotifyMentions(ctx, a.Content, a.Author, q.ID, a.ID)

	s.logger.Infow("Answer created", "answer_id", a.ID, "question_id", q.ID, "author", a.Author)
	return a, nil
}

// Update edits an answer's content. Author or admin only.
func (s *AnswerService) Update(ctx context.Context, actor *core.Actor, id, content string) (*core.Answer, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", core.ErrValidation)
	}

	a, err := s.answers.GetAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate(a.Author) {
		return nil, fmt.Errorf("not allowed to update answer %s: %w", id, core.ErrForbidden)
	}
	if err := s.answers.UpdateAnswerContent(ctx, id, content); err != nil {
		return nil, err
	}
	a.Content = content
	a.UpdatedAt = s.now()
	return a, nil
}

// ListByAuthor returns a page of a user's visible answers
func (s *AnswerService) ListByAuthor(ctx context.Context, authorID string, page core.Page) ([]core.Answer, int64, error) {
	page = page.Normalize(DefaultPageLimit, MaxPageLimit)
	return s.answers.ListAnswers(ctx, core.AnswerFilter{Author: authorID, Page: page})
}
