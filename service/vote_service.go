package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agora/core"
	"agora/metrics"
	"go.uber.org/zap"
)

// VoteResult describes an applied vote
type VoteResult struct {
	Target          core.VoteTarget `json:"target"`
	ID              string          `json:"id"`
	From            core.VoteState  `json:"from"`
	To              core.VoteState  `json:"to"`
	ReputationDelta int             `json:"reputationDelta"`
	VoteScore       int             `json:"voteScore"`
}

// votable is the part of a question or answer the state machine reads
type votable struct {
	author string
	votes  core.Votes
}

// VoteService runs the vote state machine for answers and questions
type VoteService struct {
	questions QuestionStorage
	answers   AnswerStorage
	ledger    *Ledger
	retry     RetryPolicy
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewVoteService creates a vote service
func NewVoteService(questions QuestionStorage, answers AnswerStorage, ledger *Ledger, retry RetryPolicy, logger *zap.SugaredLogger) *VoteService {
	if questions == nil || answers == nil {
		panic("question and answer storage are required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &VoteService{
		questions: questions,
		answers:   answers,
		ledger:    ledger,
		retry:     retry,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// VoteAnswer casts or switches the actor's vote on an answer.
//
// ERRORS:
//   - core.ErrUnauthenticated / core.ErrForbidden: actor may not write
//   - core.ErrValidation: unknown vote type
//   - core.ErrNotFound: answer missing or soft-deleted
//   - core.ErrSelfVoteForbidden: actor authored the answer
//   - core.ErrDuplicateVote: actor already cast this vote
func (s *VoteService) VoteAnswer(ctx context.Context, actor *core.Actor, answerID string, vote core.VoteType) (*VoteResult, error) {
	load := func(ctx context.Context) (*votable, error) {
		a, err := s.answers.GetAnswer(ctx, answerID)
		if err != nil {
			return nil, err
		}
		return &votable{author: a.Author, votes: a.Votes}, nil
	}
	return s.vote(ctx, actor, core.TargetAnswer, answerID, vote, load, s.answers.ApplyAnswerVote)
}

// VoteQuestion casts or switches the actor's vote on a question. Errors
// match VoteAnswer.
func (s *VoteService) VoteQuestion(ctx context.Context, actor *core.Actor, questionID string, vote core.VoteType) (*VoteResult, error) {
	load := func(ctx context.Context) (*votable, error) {
		q, err := s.questions.GetQuestion(ctx, questionID)
		if err != nil {
			return nil, err
		}
		return &votable{author: q.Author, votes: q.Votes}, nil
	}
	return s.vote(ctx, actor, core.TargetQuestion, questionID, vote, load, s.questions.ApplyQuestionVote)
}

type applyVoteFunc func(ctx context.Context, id, voter string, from, to core.VoteState, at time.Time) error

// vote validates, applies the set change as one conditional update, then
// credits the author with the net delta of the transition. A lost race
// reloads the target and re-plans.
func (s *VoteService) vote(
	ctx context.Context,
	actor *core.Actor,
	target core.VoteTarget,
	id string,
	vote core.VoteType,
	load func(context.Context) (*votable, error),
	apply applyVoteFunc,
) (*VoteResult, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, s.reject(target, "unauthorized", err)
	}
	if !vote.IsValid() {
		return nil, s.reject(target, "invalid", fmt.Errorf("%w: unknown vote type %q", core.ErrValidation, vote))
	}

	var (
		author     string
		transition core.VoteTransition
		score      int
	)
	err := retryOnConflict(ctx, s.retry, "vote_"+string(target), func() error {
		current, err := load(ctx)
		if err != nil {
			return err
		}
		if current.author == actor.UserID {
			return core.ErrSelfVoteForbidden
		}

		t, err := core.PlanVote(target, current.votes.StateOf(actor.UserID), vote)
		if err != nil {
			return err
		}
		if err := apply(ctx, id, actor.UserID, t.From, t.To, s.now()); err != nil {
			return err
		}

		author = current.author
		transition = t
		score = current.votes.Score() + stateWeight(t.To) - stateWeight(t.From)
		return nil
	})
	if err != nil {
		return nil, s.reject(target, rejectReason(err), err)
	}

	s.ledger.Apply(author, transition.Actions...)
	metrics.VotesCast.WithLabelValues(string(target), string(transition.From)+"->"+string(transition.To)).Inc()
	s.logger.Infow("Vote applied",
		"target", target,
		"target_id", id,
		"voter", actor.UserID,
		"from", transition.From,
		"to", transition.To)

	return &VoteResult{
		Target:          target,
		ID:              id,
		From:            transition.From,
		To:              transition.To,
		ReputationDelta: s.ledger.Catalog().Net(transition.Actions...),
		VoteScore:       score,
	}, nil
}

func (s *VoteService) reject(target core.VoteTarget, reason string, err error) error {
	metrics.VotesRejected.WithLabelValues(string(target), reason).Inc()
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrSelfVoteForbidden):
		return "self_vote"
	case errors.Is(err, core.ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, ErrContention):
		return "contention"
	default:
		return "error"
	}
}

func stateWeight(s core.VoteState) int {
	switch s {
	case core.VoteStateUpvoted:
		return 1
	case core.VoteStateDownvoted:
		return -1
	default:
		return 0
	}
}
