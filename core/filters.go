package core

// QuestionSort is a listing order for questions
type QuestionSort string

const (
	SortNewest  QuestionSort = "newest"
	SortOldest  QuestionSort = "oldest"
	SortVotes   QuestionSort = "votes"
	SortAnswers QuestionSort = "answers"
)

// IsValid checks if the sort is valid
func (s QuestionSort) IsValid() bool {
	switch s {
	case SortNewest, SortOldest, SortVotes, SortAnswers:
		return true
	default:
		return false
	}
}

// Page is a 1-based page request
type Page struct {
	Page  int
	Limit int
}

// Offset converts the page to a skip count
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Normalize clamps the page to sane bounds
func (p Page) Normalize(defaultLimit, maxLimit int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// QuestionFilter selects questions for listings. Soft-deleted questions
// are only returned with IncludeDeleted, which is reserved for admins.
type QuestionFilter struct {
	Tag            string
	Author         string
	Sort           QuestionSort
	Page           Page
	IncludeDeleted bool
}

// AnswerFilter selects visible answers for listings, oldest first unless
// NewestFirst is set
type AnswerFilter struct {
	Question    string
	Author      string
	Accepted    *bool
	NewestFirst bool
	Page        Page
}

// UserSort is a listing order for users
type UserSort string

const (
	UserSortNewest     UserSort = "newest"
	UserSortReputation UserSort = "reputation"
)

// UserFilter selects users for admin listings
type UserFilter struct {
	Sort UserSort
	Page Page
}
