package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"agora/core"
	"agora/metrics"
	"agora/storage"
	"go.uber.org/zap"
)

// AcceptResult describes the outcome of an accept call
type AcceptResult struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
	// Previous is the answer that lost acceptance, if any
	Previous string `json:"previous,omitempty"`
	// Changed is false when the answer was already accepted
	Changed bool `json:"changed"`
}

// AcceptanceService enforces at most one accepted answer per question
type AcceptanceService struct {
	questions QuestionStorage
	answers   AnswerStorage
	ledger    *Ledger
	notifier  *Notifier
	policy    core.SelfAcceptPolicy
	retry     RetryPolicy
	logger    *zap.SugaredLogger
}

// NewAcceptanceService creates an acceptance service
func NewAcceptanceService(
	questions QuestionStorage,
	answers AnswerStorage,
	ledger *Ledger,
	notifier *Notifier,
	policy core.SelfAcceptPolicy,
	retry RetryPolicy,
	logger *zap.SugaredLogger,
) *AcceptanceService {
	if questions == nil || answers == nil {
		panic("question and answer storage are required")
	}
	if ledger == nil || notifier == nil {
		panic("ledger and notifier are required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if policy == "" {
		policy = core.SelfAcceptCreditBoth
	}
	return &AcceptanceService{
		questions: questions,
		answers:   answers,
		ledger:    ledger,
		notifier:  notifier,
		policy:    policy,
		retry:     retry,
		logger:    logger,
	}
}

// Accept marks answerID as the accepted answer of questionID.
//
// BUSINESS LOGIC:
//  1. Only the question author may accept; admins get no override here
//  2. The answer must be visible and belong to the question
//  3. acceptedAnswer moves by compare-and-set from the value just read, so
//     concurrent accepts serialize and exactly one wins each step
//  4. The previous answer loses isAccepted, then the target gains it
//  5. Reputation is credited for the new acceptance only; the previous
//     acceptance is not reversed
//  6. The answer author is notified unless they are the actor
//
// Accepting the answer that is already accepted succeeds without side effects.
//
// ERRORS:
//   - core.ErrNotFound: question or answer missing, deleted, or unrelated
//   - core.ErrForbidden: actor is not the question author
func (s *AcceptanceService) Accept(ctx context.Context, actor *core.Actor, questionID, answerID string) (*AcceptResult, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, err
	}

	var (
		question *core.Question
		answer   *core.Answer
		previous string
		changed  bool
	)
	err := retryOnConflict(ctx, s.retry, "accept_answer", func() error {
		q, err := s.questions.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !actor.Owns(q.Author) {
			return fmt.Errorf("only the question author can accept an answer: %w", core.ErrForbidden)
		}
		a, err := s.answers.GetAnswer(ctx, answerID)
		if err != nil {
			return err
		}
		if a.Question != q.ID {
			return fmt.Errorf("answer %s does not belong to question %s: %w", a.ID, q.ID, storage.ErrAnswerNotFound)
		}
		if !slices.Contains(q.Answers, a.ID) {
			// the compare-and-set requires a listed answer; Repair reattaches it
			return fmt.Errorf("answer %s is not listed on question %s: %w", a.ID, q.ID, storage.ErrAnswerNotFound)
		}

		question, answer = q, a
		if q.AcceptedAnswer == a.ID {
			changed = false
			return nil
		}
		if err := s.questions.CompareAndSetAcceptedAnswer(ctx, q.ID, q.AcceptedAnswer, a.ID); err != nil {
			return err
		}
		previous, changed = q.AcceptedAnswer, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{QuestionID: question.ID, AnswerID: answer.ID, Previous: previous, Changed: changed}
	if !changed {
		if !answer.IsAccepted {
			// heal a flag left unset by an interrupted accept
			if err := s.answers.MarkAnswerAccepted(ctx, answer.ID); err != nil {
				return nil, fmt.Errorf("failed to mark answer accepted: %w", err)
			}
			s.settle(ctx, question.ID, answer.ID)
		}
		return result, nil
	}

	if previous != "" {
		if err := s.answers.UnmarkAnswerAccepted(ctx, previous); err != nil {
			return nil, fmt.Errorf("failed to clear previous accepted answer %s: %w", previous, err)
		}
	}
	if err := s.answers.MarkAnswerAccepted(ctx, answer.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// deleted between read and write: drop the reference we just set
			if cerr := s.questions.ClearAcceptedAnswerIf(ctx, question.ID, answer.ID); cerr != nil {
				s.logger.Errorw("Failed to roll back accepted answer",
					"question_id", question.ID,
					"answer_id", answer.ID,
					"error", cerr)
			}
		}
		return nil, fmt.Errorf("failed to mark answer accepted: %w", err)
	}
	s.settle(ctx, question.ID, answer.ID)

	s.ledger.Credit(s.policy.AcceptanceCredits(answer.Author, question.Author))
	s.notifier.NotifyAnswerAccepted(question, answer, actor.UserID)
	metrics.AnswersAccepted.Inc()

	s.logger.Infow("Answer accepted",
		"question_id", question.ID,
		"answer_id", answer.ID,
		"previous", previous,
		"actor", actor.UserID)
	return result, nil
}

// settle clears isAccepted flags that no longer match the question's
// reference. A concurrent accept may have moved acceptedAnswer after this
// call's compare-and-set but before its mark landed; whichever call marks
// last sees the final reference and clears the stale flag.
func (s *AcceptanceService) settle(ctx context.Context, questionID, marked string) {
	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		s.logger.Warnw("Failed to re-read question after accept",
			"question_id", questionID,
			"error", err)
		return
	}
	if q.AcceptedAnswer == marked {
		return
	}
	if _, err := s.answers.UnmarkAnswersAcceptedExcept(ctx, questionID, q.AcceptedAnswer); err != nil {
		s.logger.Warnw("Failed to clear superseded acceptance",
			"question_id", questionID,
			"answer_id", marked,
			"error", err)
	}
}
