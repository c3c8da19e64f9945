package core

import "fmt"

// ReputationAction names an entry in the reputation catalog
type ReputationAction string

const (
	ActionAnswerUpvote           ReputationAction = "answer_upvote"
	ActionAnswerUpvoteRemove     ReputationAction = "answer_upvote_remove"
	ActionAnswerDownvote         ReputationAction = "answer_downvote"
	ActionAnswerDownvoteRemove   ReputationAction = "answer_downvote_remove"
	ActionQuestionUpvote         ReputationAction = "question_upvote"
	ActionQuestionUpvoteRemove   ReputationAction = "question_upvote_remove"
	ActionQuestionDownvote       ReputationAction = "question_downvote"
	ActionQuestionDownvoteRemove ReputationAction = "question_downvote_remove"
	ActionAnswerAccepted         ReputationAction = "answer_accepted"
	ActionAcceptAnswer           ReputationAction = "accept_answer"
)

// ReputationCatalog maps actions to signed point deltas. Actions missing from
// the catalog are worth zero.
type ReputationCatalog map[ReputationAction]int

// DefaultReputationCatalog returns the stock point table
func DefaultReputationCatalog() ReputationCatalog {
	return ReputationCatalog{
		ActionAnswerUpvote:           10,
		ActionAnswerUpvoteRemove:     -10,
		ActionAnswerDownvote:         -2,
		ActionAnswerDownvoteRemove:   2,
		ActionQuestionUpvote:         5,
		ActionQuestionUpvoteRemove:   -5,
		ActionQuestionDownvote:       -2,
		ActionQuestionDownvoteRemove: 2,
		ActionAnswerAccepted:         15,
		ActionAcceptAnswer:           2,
	}
}

// Delta returns the points for an action, zero when unknown
func (c ReputationCatalog) Delta(action ReputationAction) int {
	return c[action]
}

// Net sums the deltas of several actions
func (c ReputationCatalog) Net(actions ...ReputationAction) int {
	total := 0
	for _, a := range actions {
		total += c.Delta(a)
	}
	return total
}

// Merge returns a copy of the catalog with overrides applied
func (c ReputationCatalog) Merge(overrides map[string]int) ReputationCatalog {
	out := make(ReputationCatalog, len(c)+len(overrides))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		out[ReputationAction(k)] = v
	}
	return out
}

// SelfAcceptPolicy controls crediting when a question author accepts their
// own answer. Both deltas then land on the same account.
type SelfAcceptPolicy string

const (
	// SelfAcceptCreditBoth credits answer_accepted and accept_answer
	SelfAcceptCreditBoth SelfAcceptPolicy = "credit_both"
	// SelfAcceptCreditAnswerOnly credits answer_accepted only
	SelfAcceptCreditAnswerOnly SelfAcceptPolicy = "credit_answer_only"
	// SelfAcceptCreditNone credits nothing
	SelfAcceptCreditNone SelfAcceptPolicy = "credit_none"
)

// ParseSelfAcceptPolicy validates a configured policy name
func ParseSelfAcceptPolicy(s string) (SelfAcceptPolicy, error) {
	switch p := SelfAcceptPolicy(s); p {
	case SelfAcceptCreditBoth, SelfAcceptCreditAnswerOnly, SelfAcceptCreditNone:
		return p, nil
	case "":
		return SelfAcceptCreditBoth, nil
	default:
		return "", fmt.Errorf("unknown self accept policy %q", s)
	}
}

// AcceptanceCredits returns the (user, action) pairs credited for an
// acceptance under the policy.
func (p SelfAcceptPolicy) AcceptanceCredits(answerAuthor, questionAuthor string) []Credit {
	credits := []Credit{
		{UserID: answerAuthor, Action: ActionAnswerAccepted},
		{UserID: questionAuthor, Action: ActionAcceptAnswer},
	}
	if answerAuthor != questionAuthor {
		return credits
	}
	switch p {
	case SelfAcceptCreditAnswerOnly:
		return credits[:1]
	case SelfAcceptCreditNone:
		return nil
	default:
		return credits
	}
}

// Credit is one ledger entry to apply
type Credit struct {
	UserID string
	Action ReputationAction
}
