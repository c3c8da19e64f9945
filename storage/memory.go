package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"agora/core"
)

// MemoryStore is an in-process arena of entities keyed by id. Every method
// holds the lock for one logical document update, giving the same
// single-document atomicity the MongoDB backend offers and nothing more.
type MemoryStore struct {
	mu            sync.RWMutex
	questions     map[string]*core.Question
	answers       map[string]*core.Answer
	users         map[string]*core.User
	notifications map[string]*core.Notification
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions:     make(map[string]*core.Question),
		answers:       make(map[string]*core.Answer),
		users:         make(map[string]*core.User),
		notifications: make(map[string]*core.Notification),
	}
}

// EnsureIndexes is a no-op for the memory backend
func (m *MemoryStore) EnsureIndexes(context.Context) error { return nil }

// Close is a no-op for the memory backend
func (m *MemoryStore) Close(context.Context) error { return nil }

func copyVotes(v core.Votes) core.Votes {
	return core.Votes{
		Upvotes:   append([]core.VoteEntry{}, v.Upvotes...),
		Downvotes: append([]core.VoteEntry{}, v.Downvotes...),
	}
}

func copyQuestion(q *core.Question) *core.Question {
	c := *q
	c.Tags = append([]string{}, q.Tags...)
	c.Answers = append([]string{}, q.Answers...)
	c.Votes = copyVotes(q.Votes)
	return &c
}

func copyAnswer(a *core.Answer) *core.Answer {
	c := *a
	c.Votes = copyVotes(a.Votes)
	return &c
}

func copyUser(u *core.User) *core.User {
	c := *u
	c.Badges = append([]string{}, u.Badges...)
	return &c
}

func paginate(total int, page core.Page) (int, int) {
	start := page.Offset()
	if start > total {
		start = total
	}
	end := total
	if page.Limit > 0 && start+page.Limit < total {
		end = start + page.Limit
	}
	return start, end
}

// Questions

// CreateQuestion inserts a new question
func (m *MemoryStore) CreateQuestion(_ context.Context, q *core.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[q.ID]; ok {
		return ErrDuplicateKey
	}
	normalizeQuestion(q)
	m.questions[q.ID] = copyQuestion(q)
	return nil
}

// GetQuestion retrieves a visible question by ID
func (m *MemoryStore) GetQuestion(_ context.Context, id string) (*core.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[id]
	if !ok || q.IsDeleted {
		return nil, ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

// ListQuestions returns a page of questions and the total match count
func (m *MemoryStore) ListQuestions(_ context.Context, filter core.QuestionFilter) ([]core.Question, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]core.Question, 0)
	for _, q := range m.questions {
		if q.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Author != "" && q.Author != filter.Author {
			continue
		}
		if filter.Tag != "" && !containsString(q.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, *copyQuestion(q))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Sort {
		case core.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case core.SortVotes:
			if a.VoteScore != b.VoteScore {
				return a.VoteScore > b.VoteScore
			}
		case core.SortAnswers:
			if a.AnswerCount != b.AnswerCount {
				return a.AnswerCount > b.AnswerCount
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	start, end := paginate(len(matched), filter.Page)
	return matched[start:end], int64(len(matched)), nil
}

// UpdateQuestionContent replaces the editable fields of a visible question
func (m *MemoryStore) UpdateQuestionContent(_ context.Context, id, title, description string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok || q.IsDeleted {
		return ErrQuestionNotFound
	}
	q.Title = title
	q.Description = description
	q.Tags = append([]string{}, tags...)
	q.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementQuestionViews bumps the view counter
func (m *MemoryStore) IncrementQuestionViews(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok || q.IsDeleted {
		return ErrQuestionNotFound
	}
	q.Views++
	return nil
}

// ApplyQuestionVote moves a voter between vote sets of a question
func (m *MemoryStore) ApplyQuestionVote(_ context.Context, id, voter string, from, to core.VoteState, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok || q.IsDeleted || q.Votes.StateOf(voter) != from || from == to {
		return ErrConflict
	}
	applyVoteInMemory(&q.Votes, voter, from, to, at)
	q.VoteScore += voteScoreDelta(from, to)
	q.UpdatedAt = at
	return nil
}

// AddQuestionAnswer appends an answer to a visible question
func (m *MemoryStore) AddQuestionAnswer(_ context.Context, questionID, answerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[questionID]
	if !ok || q.IsDeleted || containsString(q.Answers, answerID) {
		return ErrQuestionNotFound
	}
	q.Answers = append(q.Answers, answerID)
	q.AnswerCount++
	return nil
}

// RemoveQuestionAnswer pulls an answer reference if present
func (m *MemoryStore) RemoveQuestionAnswer(_ context.Context, questionID, answerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[questionID]
	if !ok || !containsString(q.Answers, answerID) {
		return nil
	}
	kept := q.Answers[:0:0]
	for _, id := range q.Answers {
		if id != answerID {
			kept = append(kept, id)
		}
	}
	q.Answers = kept
	q.AnswerCount--
	return nil
}

// CompareAndSetAcceptedAnswer is the single enforcement point for acceptance
func (m *MemoryStore) CompareAndSetAcceptedAnswer(_ context.Context, questionID, prev, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[questionID]
	if !ok || q.IsDeleted || q.AcceptedAnswer != prev || !containsString(q.Answers, next) {
		return ErrConflict
	}
	q.AcceptedAnswer = next
	q.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearAcceptedAnswerIf unsets acceptedAnswer only when it points at answerID
func (m *MemoryStore) ClearAcceptedAnswerIf(_ context.Context, questionID, answerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.questions[questionID]; ok && q.AcceptedAnswer == answerID {
		q.AcceptedAnswer = ""
	}
	return nil
}

// SoftDeleteQuestion flips the visibility flag forward
func (m *MemoryStore) SoftDeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok || q.IsDeleted {
		return ErrQuestionNotFound
	}
	q.IsDeleted = true
	q.UpdatedAt = time.Now().UTC()
	return nil
}

// DetachQuestionAnswers drops answer references from a question
func (m *MemoryStore) DetachQuestionAnswers(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.questions[id]; ok {
		q.Answers = []string{}
		q.AnswerCount = 0
		q.AcceptedAnswer = ""
	}
	return nil
}

// ScanQuestions visits a snapshot of every question
func (m *MemoryStore) ScanQuestions(_ context.Context, fn func(*core.Question) error) error {
	m.mu.RLock()
	snapshot := make([]*core.Question, 0, len(m.questions))
	for _, q := range m.questions {
		snapshot = append(snapshot, copyQuestion(q))
	}
	m.mu.RUnlock()

	for _, q := range snapshot {
		if err := fn(q); err != nil {
			return err
		}
	}
	return nil
}

// Answers

// CreateAnswer inserts a new answer
func (m *MemoryStore) CreateAnswer(_ context.Context, a *core.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.answers[a.ID]; ok {
		return ErrDuplicateKey
	}
	normalizeVotes(&a.Votes)
	m.answers[a.ID] = copyAnswer(a)
	return nil
}

// GetAnswer retrieves a visible answer by ID
func (m *MemoryStore) GetAnswer(_ context.Context, id string) (*core.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.answers[id]
	if !ok || a.IsDeleted {
		return nil, ErrAnswerNotFound
	}
	return copyAnswer(a), nil
}

// ListAnswers returns visible answers, oldest first unless NewestFirst
func (m *MemoryStore) ListAnswers(_ context.Context, filter core.AnswerFilter) ([]core.Answer, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]core.Answer, 0)
	for _, a := range m.answers {
		if a.IsDeleted {
			continue
		}
		if filter.Question != "" && a.Question != filter.Question {
			continue
		}
		if filter.Author != "" && a.Author != filter.Author {
			continue
		}
		if filter.Accepted != nil && a.IsAccepted != *filter.Accepted {
			continue
		}
		matched = append(matched, *copyAnswer(a))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if filter.NewestFirst {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	start, end := paginate(len(matched), filter.Page)
	return matched[start:end], int64(len(matched)), nil
}

// UpdateAnswerContent replaces the body of a visible answer
func (m *MemoryStore) UpdateAnswerContent(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[id]
	if !ok || a.IsDeleted {
		return ErrAnswerNotFound
	}
	a.Content = content
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyAnswerVote moves a voter between vote sets of an answer
func (m *MemoryStore) ApplyAnswerVote(_ context.Context, id, voter string, from, to core.VoteState, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[id]
	if !ok || a.IsDeleted || a.Votes.StateOf(voter) != from || from == to {
		return ErrConflict
	}
	applyVoteInMemory(&a.Votes, voter, from, to, at)
	a.VoteScore += voteScoreDelta(from, to)
	a.UpdatedAt = at
	return nil
}

// MarkAnswerAccepted sets isAccepted on a visible answer
func (m *MemoryStore) MarkAnswerAccepted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[id]
	if !ok || a.IsDeleted {
		return ErrAnswerNotFound
	}
	a.IsAccepted = true
	return nil
}

// UnmarkAnswerAccepted clears isAccepted regardless of visibility
func (m *MemoryStore) UnmarkAnswerAccepted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.answers[id]; ok {
		a.IsAccepted = false
	}
	return nil
}

// UnmarkAnswersAcceptedExcept clears isAccepted on sibling answers
func (m *MemoryStore) UnmarkAnswersAcceptedExcept(_ context.Context, questionID, keepID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, a := range m.answers {
		if a.Question == questionID && a.IsAccepted && a.ID != keepID {
			a.IsAccepted = false
			n++
		}
	}
	return n, nil
}

// SoftDeleteAnswer flips the visibility flag forward and drops acceptance
func (m *MemoryStore) SoftDeleteAnswer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[id]
	if !ok || a.IsDeleted {
		return ErrAnswerNotFound
	}
	a.IsDeleted = true
	a.IsAccepted = false
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDeleteAnswersByQuestion cascades a question deletion to its answers
func (m *MemoryStore) SoftDeleteAnswersByQuestion(_ context.Context, questionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, a := range m.answers {
		if a.Question != questionID {
			continue
		}
		if !a.IsDeleted || a.IsAccepted {
			n++
		}
		a.IsDeleted = true
		a.IsAccepted = false
	}
	return n, nil
}

// ScanDeletedAnswers visits a snapshot of every soft-deleted answer
func (m *MemoryStore) ScanDeletedAnswers(_ context.Context, fn func(*core.Answer) error) error {
	m.mu.RLock()
	snapshot := make([]*core.Answer, 0)
	for _, a := range m.answers {
		if a.IsDeleted {
			snapshot = append(snapshot, copyAnswer(a))
		}
	}
	m.mu.RUnlock()

	for _, a := range snapshot {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// Users

// CreateUser inserts a new user; usernames are unique
func (m *MemoryStore) CreateUser(_ context.Context, u *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicateKey
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrDuplicateKey
		}
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

// GetUser retrieves a user by ID
func (m *MemoryStore) GetUser(_ context.Context, id string) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// GetUserByUsername retrieves a user by username
func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUsersByUsernames resolves a batch of usernames; unknown names are skipped
func (m *MemoryStore) GetUsersByUsernames(_ context.Context, usernames []string) ([]core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]core.User, 0, len(usernames))
	for _, u := range m.users {
		if containsString(usernames, u.Username) {
			users = append(users, *copyUser(u))
		}
	}
	return users, nil
}

// ListUsers returns a page of users, newest first or by reputation
func (m *MemoryStore) ListUsers(_ context.Context, filter core.UserFilter) ([]core.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]core.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *copyUser(u))
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if filter.Sort == core.UserSortReputation {
			if a.Reputation != b.Reputation {
				return a.Reputation > b.Reputation
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	start, end := paginate(len(users), filter.Page)
	return users[start:end], int64(len(users)), nil
}

// IncrementReputation applies a signed delta atomically
func (m *MemoryStore) IncrementReputation(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Reputation += delta
	return nil
}

// AddBadge adds a badge label if not already held
func (m *MemoryStore) AddBadge(_ context.Context, id, badge string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if !containsString(u.Badges, badge) {
		u.Badges = append(u.Badges, badge)
	}
	return nil
}

// SetBanned sets the banned flag
func (m *MemoryStore) SetBanned(_ context.Context, id string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

// Notifications

// CreateNotification inserts an immutable notification record
func (m *MemoryStore) CreateNotification(_ context.Context, n *core.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notifications[n.ID]; ok {
		return ErrDuplicateKey
	}
	c := *n
	m.notifications[n.ID] = &c
	return nil
}

// GetNotification retrieves a notification by ID
func (m *MemoryStore) GetNotification(_ context.Context, id string) (*core.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	c := *n
	return &c, nil
}

// ListNotifications returns a user's notifications, newest first
func (m *MemoryStore) ListNotifications(_ context.Context, userID string, page core.Page) ([]core.Notification, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]core.Notification, 0)
	for _, n := range m.notifications {
		if n.User == userID {
			matched = append(matched, *n)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := paginate(len(matched), page)
	return matched[start:end], int64(len(matched)), nil
}

// CountUnreadNotifications counts a user's unread notifications
func (m *MemoryStore) CountUnreadNotifications(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, n := range m.notifications {
		if n.User == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// CountNotifications counts all notifications
func (m *MemoryStore) CountNotifications(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.notifications)), nil
}

// MarkNotificationRead sets the read flag
func (m *MemoryStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a user read
func (m *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, n := range m.notifications {
		if n.User == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// DeleteNotification removes a notification
func (m *MemoryStore) DeleteNotification(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(m.notifications, id)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*MongoStore)(nil)
