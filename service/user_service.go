package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"agora/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// recentActivityLimit is how many recent questions and answers a profile shows
const recentActivityLimit = 5

// ProfileStats are counts over the user's visible content
type ProfileStats struct {
	QuestionCount       int64 `json:"questionCount"`
	AnswerCount         int64 `json:"answerCount"`
	AcceptedAnswerCount int64 `json:"acceptedAnswerCount"`
}

// Profile is a user with activity stats
type Profile struct {
	User            *core.User      `json:"user"`
	Stats           ProfileStats    `json:"stats"`
	RecentQuestions []core.Question `json:"recentQuestions"`
	RecentAnswers   []core.Answer   `json:"recentAnswers"`
}

// ProfileCache caches computed profile stats
type ProfileCache interface {
	GetProfileStats(ctx context.Context, userID string) (*ProfileStats, bool)
	SetProfileStats(ctx context.Context, userID string, stats *ProfileStats)
}

// UserService manages users and admin moderation
type UserService struct {
	users     UserStorage
	questions QuestionStorage
	answers   AnswerStorage
	ledger    *Ledger
	cache     ProfileCache
	logger    *zap.SugaredLogger
}

// NewUserService creates a user service. cache may be nil.
func NewUserService(users UserStorage, questions QuestionStorage, answers AnswerStorage, ledger *Ledger, cache ProfileCache, logger *zap.SugaredLogger) *UserService {
	if users == nil || questions == nil || answers == nil {
		panic("user, question and answer storage are required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &UserService{
		users:     users,
		questions: questions,
		answers:   answers,
		ledger:    ledger,
		cache:     cache,
		logger:    logger,
	}
}

// Create registers a user. Credentials are handled outside this service.
func (s *UserService) Create(ctx context.Context, username string, role core.Role) (*core.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-20 letters, digits or underscores", core.ErrValidation)
	}
	if role == "" {
		role = core.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrValidation, role)
	}

	u := &core.User{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		Badges:    []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	s.logger.Infow("User created", "user_id", u.ID, "username", username, "role", role)
	return u, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*core.User, error) {
	return s.users.GetUser(ctx, id)
}

// GetByUsername returns a user by username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.users.GetUserByUsername(ctx, username)
}

// Profile returns a user with stats and recent activity
func (s *UserService) Profile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	recent := core.Page{Page: 1, Limit: recentActivityLimit}
	questions, questionCount, err := s.questions.ListQuestions(ctx, core.QuestionFilter{Author: id, Sort: core.SortNewest, Page: recent})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	answers, answerCount, err := s.answers.ListAnswers(ctx, core.AnswerFilter{Author: id, NewestFirst: true, Page: recent})
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	stats, err := s.stats(ctx, id, questionCount, answerCount)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Stats: *stats, RecentQuestions: questions, RecentAnswers: answers}, nil
}

// stats combines the fresh visible counts with the accepted-answer count,
// which is the only figure served from the cache.
func (s *UserService) stats(ctx context.Context, id string, questionCount, answerCount int64) (*ProfileStats, error) {
	stats := &ProfileStats{QuestionCount: questionCount, AnswerCount: answerCount}
	if s.cache != nil {
		if cached, ok := s.cache.GetProfileStats(ctx, id); ok {
			stats.AcceptedAnswerCount = cached.AcceptedAnswerCount
			return stats, nil
		}
	}

	accepted := true
	_, acceptedCount, err := s.answers.ListAnswers(ctx, core.AnswerFilter{Author: id, Accepted: &accepted, Page: core.Page{Page: 1, Limit: 1}})
	if err != nil {
		return nil, fmt.Errorf("failed to count accepted answers: %w", err)
	}
	stats.AcceptedAnswerCount = acceptedCount

	if s.cache != nil {
		s.cache.SetProfileStats(ctx, id, stats)
	}
	return stats, nil
}

// ToggleBan flips a user's banned flag. Admin only; admins cannot be banned.
func (s *UserService) ToggleBan(ctx context.Context, actor *core.Actor, userID string) (*core.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("admin role required: %w", core.ErrForbidden)
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role == core.RoleAdmin {
		return nil, fmt.Errorf("cannot ban admin users: %w", core.ErrForbidden)
	}

	u.IsBanned = !u.IsBanned
	if err := s.users.SetBanned(ctx, userID, u.IsBanned); err != nil {
		return nil, err
	}
	s.logger.Infow("User ban toggled",
		"user_id", userID,
		"banned", u.IsBanned,
		"actor", actor.UserID)
	return u, nil
}

// AwardBadge grants a badge label. Admin only; the write itself is
// best-effort through the ledger.
func (s *UserService) AwardBadge(ctx context.Context, actor *core.Actor, userID, badge string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("admin role required: %w", core.ErrForbidden)
	}
	if badge == "" {
		return fmt.Errorf("%w: badge is required", core.ErrValidation)
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return err
	}
	s.ledger.AwardBadge(userID, badge)
	return nil
}
