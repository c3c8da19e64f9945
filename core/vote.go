package core

import "fmt"

// VoteType is the direction of a submitted vote
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// IsValid checks if the vote type is valid
func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

// State returns the vote state a voter ends up in after casting v
func (v VoteType) State() VoteState {
	if v == VoteUp {
		return VoteStateUpvoted
	}
	return VoteStateDownvoted
}

// VoteState is the state of one (voter, target) pair
type VoteState string

const (
	VoteStateNone      VoteState = "none"
	VoteStateUpvoted   VoteState = "upvoted"
	VoteStateDownvoted VoteState = "downvoted"
)

// VoteTarget selects which kind of entity a vote applies to
type VoteTarget string

const (
	TargetAnswer   VoteTarget = "answer"
	TargetQuestion VoteTarget = "question"
)

// VoteTransition describes a legal move in the vote state machine and the
// ledger actions it triggers for the target's author.
type VoteTransition struct {
	From    VoteState
	To      VoteState
	Actions []ReputationAction
}

// PlanVote computes the transition from the current state for a new vote.
// It returns ErrDuplicateVote when the voter re-submits their current vote.
func PlanVote(target VoteTarget, current VoteState, vote VoteType) (VoteTransition, error) {
	if !vote.IsValid() {
		return VoteTransition{}, fmt.Errorf("%w: unknown vote type %q", ErrValidation, vote)
	}
	next := vote.State()
	if current == next {
		return VoteTransition{}, ErrDuplicateVote
	}

	t := VoteTransition{From: current, To: next}
	if current != VoteStateNone {
		t.Actions = append(t.Actions, removeAction(target, current))
	}
	t.Actions = append(t.Actions, castAction(target, next))
	return t, nil
}

func castAction(target VoteTarget, state VoteState) ReputationAction {
	switch {
	case target == TargetQuestion && state == VoteStateUpvoted:
		return ActionQuestionUpvote
	case target == TargetQuestion:
		return ActionQuestionDownvote
	case state == VoteStateUpvoted:
		return ActionAnswerUpvote
	default:
		return ActionAnswerDownvote
	}
}

func removeAction(target VoteTarget, state VoteState) ReputationAction {
	switch {
	case target == TargetQuestion && state == VoteStateUpvoted:
		return ActionQuestionUpvoteRemove
	case target == TargetQuestion:
		return ActionQuestionDownvoteRemove
	case state == VoteStateUpvoted:
		return ActionAnswerUpvoteRemove
	default:
		return ActionAnswerDownvoteRemove
	}
}
