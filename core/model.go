package core

import "time"

// Role is the authorization role of a user
type Role string

const (
	// RoleUser is a regular member who can post, vote and accept
	RoleUser Role = "user"
	// RoleGuest can only read
	RoleGuest Role = "guest"
	// RoleAdmin can moderate any content
	RoleAdmin Role = "admin"
)

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleGuest, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a member of the site. Reputation is only ever changed through the
// reputation ledger.
type User struct {
	ID         string    `json:"id" bson:"_id"`
	Username   string    `json:"username" bson:"username"`
	Reputation int       `json:"reputation" bson:"reputation"`
	Badges     []string  `json:"badges" bson:"badges"`
	IsBanned   bool      `json:"isBanned" bson:"isBanned"`
	Role       Role      `json:"role" bson:"role"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// VoteEntry records a single voter in one of the vote sets
type VoteEntry struct {
	User      string    `json:"user" bson:"user"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Votes holds the two disjoint voter sets of a question or answer
type Votes struct {
	Upvotes   []VoteEntry `json:"upvotes" bson:"upvotes"`
	Downvotes []VoteEntry `json:"downvotes" bson:"downvotes"`
}

// StateOf returns the vote state of userID in these sets
func (v Votes) StateOf(userID string) VoteState {
	for _, e := range v.Upvotes {
		if e.User == userID {
			return VoteStateUpvoted
		}
	}
	for _, e := range v.Downvotes {
		if e.User == userID {
			return VoteStateDownvoted
		}
	}
	return VoteStateNone
}

// Score is upvotes minus downvotes
func (v Votes) Score() int {
	return len(v.Upvotes) - len(v.Downvotes)
}

// Question is a posted question. Answers lists visible answers in the order
// they were posted.
type Question struct {
	ID             string    `json:"id" bson:"_id"`
	Title          string    `json:"title" bson:"title"`
	Description    string    `json:"description" bson:"description"`
	Tags           []string  `json:"tags" bson:"tags"`
	Author         string    `json:"author" bson:"author"`
	Answers        []string  `json:"answers" bson:"answers"`
	AcceptedAnswer string    `json:"acceptedAnswer,omitempty" bson:"acceptedAnswer,omitempty"`
	IsDeleted      bool      `json:"isDeleted" bson:"isDeleted"`
	Votes          Votes     `json:"votes" bson:"votes"`
	VoteScore      int       `json:"voteScore" bson:"voteScore"`
	AnswerCount    int       `json:"answerCount" bson:"answerCount"`
	Views          int       `json:"views" bson:"views"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasAcceptedAnswer reports whether an accepted answer is recorded
func (q *Question) HasAcceptedAnswer() bool {
	return q.AcceptedAnswer != ""
}

// Answer is a reply to a question
type Answer struct {
	ID         string    `json:"id" bson:"_id"`
	Content    string    `json:"content" bson:"content"`
	Author     string    `json:"author" bson:"author"`
	Question   string    `json:"question" bson:"question"`
	IsAccepted bool      `json:"isAccepted" bson:"isAccepted"`
	IsDeleted  bool      `json:"isDeleted" bson:"isDeleted"`
	Votes      Votes     `json:"votes" bson:"votes"`
	VoteScore  int       `json:"voteScore" bson:"voteScore"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NotificationType is the kind of event a notification reports
type NotificationType string

const (
	NotificationAnswer         NotificationType = "answer"
	NotificationMention        NotificationType = "mention"
	NotificationAcceptedAnswer NotificationType = "accepted_answer"
	NotificationVote           NotificationType = "vote"
)

// IsValid checks if the notification type is valid
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationAnswer, NotificationMention, NotificationAcceptedAnswer, NotificationVote:
		return true
	default:
		return false
	}
}

// NotificationLink points at the question and/or answer that triggered a notification
type NotificationLink struct {
	Question string `json:"question,omitempty" bson:"question,omitempty"`
	Answer   string `json:"answer,omitempty" bson:"answer,omitempty"`
}

// Notification is an immutable event record. Only IsRead ever changes.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	Type      NotificationType `json:"type" bson:"type"`
	Content   string           `json:"content" bson:"content"`
	User      string           `json:"user" bson:"user"`
	From      string           `json:"from" bson:"from"`
	LinkTo    NotificationLink `json:"linkTo" bson:"linkTo"`
	IsRead    bool             `json:"isRead" bson:"isRead"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}

// MaxNotificationContentLength mirrors the collection validator on content
const MaxNotificationContentLength = 500
