package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanVote(t *testing.T) {
	catalog := DefaultReputationCatalog()

	tests := []struct {
		name     string
		target   VoteTarget
		current  VoteState
		vote     VoteType
		wantTo   VoteState
		wantNet  int
		wantErr  error
		nActions int
	}{
		{"answer none to up", TargetAnswer, VoteStateNone, VoteUp, VoteStateUpvoted, 10, nil, 1},
		{"answer none to down", TargetAnswer, VoteStateNone, VoteDown, VoteStateDownvoted, -2, nil, 1},
		{"answer up to down", TargetAnswer, VoteStateUpvoted, VoteDown, VoteStateDownvoted, -12, nil, 2},
		{"answer down to up", TargetAnswer, VoteStateDownvoted, VoteUp, VoteStateUpvoted, 12, nil, 2},
		{"answer duplicate up", TargetAnswer, VoteStateUpvoted, VoteUp, "", 0, ErrDuplicateVote, 0},
		{"answer duplicate down", TargetAnswer, VoteStateDownvoted, VoteDown, "", 0, ErrDuplicateVote, 0},
		{"question none to up", TargetQuestion, VoteStateNone, VoteUp, VoteStateUpvoted, 5, nil, 1},
		{"question up to down", TargetQuestion, VoteStateUpvoted, VoteDown, VoteStateDownvoted, -7, nil, 2},
		{"question down to up", TargetQuestion, VoteStateDownvoted, VoteUp, VoteStateUpvoted, 7, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := PlanVote(tt.target, tt.current, tt.vote)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.current, tr.From)
			assert.Equal(t, tt.wantTo, tr.To)
			assert.Len(t, tr.Actions, tt.nActions)
			assert.Equal(t, tt.wantNet, catalog.Net(tr.Actions...))
		})
	}
}

func TestPlanVote_InvalidType(t *testing.T) {
	_, err := PlanVote(TargetAnswer, VoteStateNone, VoteType("sideways"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVotes_StateOf(t *testing.T) {
	v := Votes{
		Upvotes:   []VoteEntry{{User: "u1"}},
		Downvotes: []VoteEntry{{User: "u2"}, {User: "u3"}},
	}

	assert.Equal(t, VoteStateUpvoted, v.StateOf("u1"))
	assert.Equal(t, VoteStateDownvoted, v.StateOf("u3"))
	assert.Equal(t, VoteStateNone, v.StateOf("u4"))
	assert.Equal(t, -1, v.Score())
}

// Undoing a vote must exactly cancel casting it, otherwise switching leaks points.
func TestDefaultCatalog_RemovalsCancelCasts(t *testing.T) {
	c := DefaultReputationCatalog()
	for _, target := range []VoteTarget{TargetAnswer, TargetQuestion} {
		for _, state := range []VoteState{VoteStateUpvoted, VoteStateDownvoted} {
			assert.Zero(t, c.Net(castAction(target, state), removeAction(target, state)),
				"%s/%s", target, state)
		}
	}
}
