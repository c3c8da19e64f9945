package storage

import (
	"fmt"
	"time"

	"agora/core"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	upvotesField   = "votes.upvotes"
	downvotesField = "votes.downvotes"
)

func voteSetField(state core.VoteState) string {
	if state == core.VoteStateUpvoted {
		return upvotesField
	}
	return downvotesField
}

func voteWeight(state core.VoteState) int {
	switch state {
	case core.VoteStateUpvoted:
		return 1
	case core.VoteStateDownvoted:
		return -1
	default:
		return 0
	}
}

// voteScoreDelta is the change in upvotes minus downvotes for a transition
func voteScoreDelta(from, to core.VoteState) int {
	return voteWeight(to) - voteWeight(from)
}

// voteFilter matches a visible document only while the voter is still in
// the from state, so a concurrent change makes the update miss.
func voteFilter(id, voter string, from core.VoteState) bson.M {
	filter := bson.M{"_id": id, "isDeleted": false}
	switch from {
	case core.VoteStateUpvoted:
		filter[upvotesField+".user"] = voter
		filter[downvotesField+".user"] = bson.M{"$ne": voter}
	case core.VoteStateDownvoted:
		filter[downvotesField+".user"] = voter
		filter[upvotesField+".user"] = bson.M{"$ne": voter}
	default:
		filter[upvotesField+".user"] = bson.M{"$ne": voter}
		filter[downvotesField+".user"] = bson.M{"$ne": voter}
	}
	return filter
}

// voteUpdate moves the voter between sets and adjusts voteScore in one
// document update.
func voteUpdate(voter string, from, to core.VoteState, at time.Time) (bson.M, error) {
	if from == to {
		return nil, fmt.Errorf("vote transition %s -> %s is not a change", from, to)
	}

	update := bson.M{
		"$inc": bson.M{"voteScore": voteScoreDelta(from, to)},
		"$set": bson.M{"updatedAt": at},
	}
	if to != core.VoteStateNone {
		update["$push"] = bson.M{voteSetField(to): core.VoteEntry{User: voter, CreatedAt: at}}
	}
	if from != core.VoteStateNone {
		update["$pull"] = bson.M{voteSetField(from): bson.M{"user": voter}}
	}
	return update, nil
}

// applyVoteInMemory performs the same transition on a Votes value
func applyVoteInMemory(v *core.Votes, voter string, from, to core.VoteState, at time.Time) {
	switch from {
	case core.VoteStateUpvoted:
		v.Upvotes = removeVoter(v.Upvotes, voter)
	case core.VoteStateDownvoted:
		v.Downvotes = removeVoter(v.Downvotes, voter)
	}
	entry := core.VoteEntry{User: voter, CreatedAt: at}
	switch to {
	case core.VoteStateUpvoted:
		v.Upvotes = append(v.Upvotes, entry)
	case core.VoteStateDownvoted:
		v.Downvotes = append(v.Downvotes, entry)
	}
}

func removeVoter(entries []core.VoteEntry, voter string) []core.VoteEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.User != voter {
			out = append(out, e)
		}
	}
	return out
}
