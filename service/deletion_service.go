package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"agora/core"
	"agora/metrics"
	"go.uber.org/zap"
)

// DeletionService soft-deletes questions and answers. Each cascade is a
// sequence of idempotent single-document steps with the parent's visibility
// flag written first; Repair re-runs every step to finish interrupted
// cascades.
type DeletionService struct {
	questions QuestionStorage
	answers   AnswerStorage
	logger    *zap.SugaredLogger
}

// NewDeletionService creates a deletion service
func NewDeletionService(questions QuestionStorage, answers AnswerStorage, logger *zap.SugaredLogger) *DeletionService {
	if questions == nil || answers == nil {
		panic("question and answer storage are required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &DeletionService{questions: questions, answers: answers, logger: logger}
}

// DeleteQuestion hides a question and every answer referencing it.
//
// Steps: flip the question's isDeleted, mark all of its answers deleted
// (unconditionally, clearing isAccepted), then drop the question's answer
// references. A second call returns core.ErrNotFound.
func (s *DeletionService) DeleteQuestion(ctx context.Context, actor *core.Actor, questionID string) error {
	if err := actor.CanWrite(); err != nil {
		return err
	}

	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if !actor.CanModerate(q.Author) {
		return fmt.Errorf("not allowed to delete question %s: %w", questionID, core.ErrForbidden)
	}

	if err := s.questions.SoftDeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	metrics.SoftDeletes.WithLabelValues("question").Inc()

	cascaded, err := s.cascadeQuestion(ctx, questionID)
	if err != nil {
		s.logger.Errorw("Question cascade interrupted, run repair to finish it",
			"question_id", questionID,
			"error", err)
		return err
	}

	s.logger.Infow("Question deleted",
		"question_id", questionID,
		"actor", actor.UserID,
		"answers_deleted", cascaded)
	return nil
}

// DeleteAnswer hides an answer, removes it from its question's answer list
// and clears the question's acceptance if it pointed here. No other answer
// is promoted.
func (s *DeletionService) DeleteAnswer(ctx context.Context, actor *core.Actor, answerID string) error {
	if err := actor.CanWrite(); err != nil {
		return err
	}

	a, err := s.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	if !actor.CanModerate(a.Author) {
		return fmt.Errorf("not allowed to delete answer %s: %w", answerID, core.ErrForbidden)
	}

	if err := s.answers.SoftDeleteAnswer(ctx, answerID); err != nil {
		return err
	}
	metrics.SoftDeletes.WithLabelValues("answer").Inc()

	if err := s.detachAnswer(ctx, a.Question, a.ID); err != nil {
		s.logger.Errorw("Answer cascade interrupted, run repair to finish it",
			"answer_id", answerID,
			"question_id", a.Question,
			"error", err)
		return err
	}

	s.logger.Infow("Answer deleted",
		"answer_id", answerID,
		"question_id", a.Question,
		"actor", actor.UserID)
	return nil
}

func (s *DeletionService) cascadeQuestion(ctx context.Context, questionID string) (int64, error) {
	n, err := s.answers.SoftDeleteAnswersByQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.CascadedAnswerDeletes.Add(float64(n))
	}
	if err := s.questions.DetachQuestionAnswers(ctx, questionID); err != nil {
		return n, err
	}
	return n, nil
}

func (s *DeletionService) detachAnswer(ctx context.Context, questionID, answerID string) error {
	if err := s.questions.RemoveQuestionAnswer(ctx, questionID, answerID); err != nil {
		return err
	}
	return s.questions.ClearAcceptedAnswerIf(ctx, questionID, answerID)
}

// RepairReport summarizes a repair pass
type RepairReport struct {
	QuestionsScanned   int   `json:"questionsScanned"`
	DeletedQuestions   int   `json:"deletedQuestions"`
	AnswersCascaded    int64 `json:"answersCascaded"`
	DeletedAnswers     int   `json:"deletedAnswers"`
	AcceptanceCleared  int   `json:"acceptanceCleared"`
	AcceptanceRestored int   `json:"acceptanceRestored"`
	StaleFlagsCleared  int64 `json:"staleFlagsCleared"`
	AnswersReattached  int   `json:"answersReattached"`
}

// Repair re-runs every cascade step and re-syncs acceptance flags so that
// interrupted multi-step operations converge. Every step is idempotent, so
// running it twice changes nothing the second time.
func (s *DeletionService) Repair(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{}

	err := s.questions.ScanQuestions(ctx, func(q *core.Question) error {
		report.QuestionsScanned++
		if q.IsDeleted {
			report.DeletedQuestions++
			n, err := s.cascadeQuestion(ctx, q.ID)
			report.AnswersCascaded += n
			return err
		}
		if err := s.reattachAnswers(ctx, q, report); err != nil {
			return err
		}
		return s.resyncAcceptance(ctx, q, report)
	})
	if err != nil {
		return report, fmt.Errorf("failed to repair questions: %w", err)
	}

	err = s.answers.ScanDeletedAnswers(ctx, func(a *core.Answer) error {
		report.DeletedAnswers++
		if a.IsAccepted {
			if err := s.answers.UnmarkAnswerAccepted(ctx, a.ID); err != nil {
				return err
			}
			report.StaleFlagsCleared++
		}
		return s.detachAnswer(ctx, a.Question, a.ID)
	})
	if err != nil {
		return report, fmt.Errorf("failed to repair answers: %w", err)
	}

	s.logger.Infow("Repair completed",
		"questions_scanned", report.QuestionsScanned,
		"deleted_questions", report.DeletedQuestions,
		"answers_cascaded", report.AnswersCascaded,
		"deleted_answers", report.DeletedAnswers,
		"acceptance_cleared", report.AcceptanceCleared,
		"acceptance_restored", report.AcceptanceRestored,
		"stale_flags_cleared", report.StaleFlagsCleared,
		"answers_reattached", report.AnswersReattached)
	return report, nil
}

// reattachAnswers adds visible answers that point at the question but are
// missing from its answer list, as left by an answer create whose second
// write failed.
func (s *DeletionService) reattachAnswers(ctx context.Context, q *core.Question, report *RepairReport) error {
	visible, _, err := s.answers.ListAnswers(ctx, core.AnswerFilter{Question: q.ID})
	if err != nil {
		return err
	}
	for _, a := range visible {
		if slices.Contains(q.Answers, a.ID) {
			continue
		}
		err := s.questions.AddQuestionAnswer(ctx, q.ID, a.ID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			// deleted or attached since the scan read it
			continue
		case err != nil:
			return err
		}
		report.AnswersReattached++
		s.logger.Warnw("Reattached answer missing from its question",
			"question_id", q.ID,
			"answer_id", a.ID)
	}
	return nil
}

// resyncAcceptance makes the answers' isAccepted flags agree with the
// question's acceptedAnswer reference.
func (s *DeletionService) resyncAcceptance(ctx context.Context, q *core.Question, report *RepairReport) error {
	keep := q.AcceptedAnswer
	if keep != "" {
		a, err := s.answers.GetAnswer(ctx, keep)
		switch {
		case errors.Is(err, core.ErrNotFound) || (err == nil && a.Question != q.ID):
			if err := s.questions.ClearAcceptedAnswerIf(ctx, q.ID, keep); err != nil {
				return err
			}
			report.AcceptanceCleared++
			keep = ""
		case err != nil:
			return err
		case !a.IsAccepted:
			if err := s.answers.MarkAnswerAccepted(ctx, keep); err != nil {
				return err
			}
			report.AcceptanceRestored++
		}
	}

	n, err := s.answers.UnmarkAnswersAcceptedExcept(ctx, q.ID, keep)
	if err != nil {
		return err
	}
	report.StaleFlagsCleared += n
	return nil
}
