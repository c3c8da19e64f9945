package service

import (
	"context"
	"fmt"

	"agora/core"
	"go.uber.org/zap"
)

// Admin listing bounds
const (
	adminRecentLimit  = 5
	adminTopUserLimit = 10
	adminDefaultLimit = 20
)

// DashboardTotals are site-wide counts; questions and answers count visible ones only
type DashboardTotals struct {
	Users         int64 `json:"totalUsers"`
	Questions     int64 `json:"totalQuestions"`
	Answers       int64 `json:"totalAnswers"`
	Notifications int64 `json:"totalNotifications"`
}

// RecentActivity holds the newest visible questions and answers
type RecentActivity struct {
	Questions []core.Question `json:"questions"`
	Answers   []core.Answer   `json:"answers"`
}

// Dashboard is the admin overview
type Dashboard struct {
	Stats          DashboardTotals `json:"stats"`
	RecentActivity RecentActivity  `json:"recentActivity"`
	TopUsers       []core.User     `json:"topUsers"`
}

// UserPage is one page of the admin user listing
type UserPage struct {
	Users   []core.User `json:"users"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasNext bool        `json:"hasNext"`
	HasPrev bool        `json:"hasPrev"`
}

// AdminService serves the read-only admin views. Every call requires the
// admin role.
type AdminService struct {
	users         UserLister
	questions     QuestionStorage
	answers       AnswerStorage
	notifications NotificationCounter
	logger        *zap.SugaredLogger
}

// NewAdminService creates an admin service
func NewAdminService(users UserLister, questions QuestionStorage, answers AnswerStorage, notifications NotificationCounter, logger *zap.SugaredLogger) *AdminService {
	if users == nil || questions == nil || answers == nil || notifications == nil {
		panic("user, question, answer and notification storage are required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &AdminService{
		users:         users,
		questions:     questions,
		answers:       answers,
		notifications: notifications,
		logger:        logger,
	}
}

func requireAdmin(actor *core.Actor) error {
	if actor == nil {
		return core.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("admin role required: %w", core.ErrForbidden)
	}
	return nil
}

// Dashboard returns totals, recent activity and the top users by reputation
func (s *AdminService) Dashboard(ctx context.Context, actor *core.Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	recent := core.Page{Page: 1, Limit: adminRecentLimit}
	questions, questionTotal, err := s.questions.ListQuestions(ctx, core.QuestionFilter{Sort: core.SortNewest, Page: recent})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent questions: %w", err)
	}
	answers, answerTotal, err := s.answers.ListAnswers(ctx, core.AnswerFilter{NewestFirst: true, Page: recent})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent answers: %w", err)
	}
	top, userTotal, err := s.users.ListUsers(ctx, core.UserFilter{
		Sort: core.UserSortReputation,
		Page: core.Page{Page: 1, Limit: adminTopUserLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load top users: %w", err)
	}
	notificationTotal, err := s.notifications.CountNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &Dashboard{
		Stats: DashboardTotals{
			Users:         userTotal,
			Questions:     questionTotal,
			Answers:       answerTotal,
			Notifications: notificationTotal,
		},
		RecentActivity: RecentActivity{Questions: questions, Answers: answers},
		TopUsers:       top,
	}, nil
}

// Users lists every user, newest first
func (s *AdminService) Users(ctx context.Context, actor *core.Actor, page core.Page) (*UserPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	page = page.Normalize(adminDefaultLimit, MaxPageLimit)

	users, total, err := s.users.ListUsers(ctx, core.UserFilter{Sort: core.UserSortNewest, Page: page})
	if err != nil {
		return nil, err
	}
	offset := page.Offset()
	return &UserPage{
		Users:   users,
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
		HasNext: int64(offset+page.Limit) < total,
		HasPrev: offset > 0,
	}, nil
}

// Questions lists questions newest first, soft-deleted ones included when asked
func (s *AdminService) Questions(ctx context.Context, actor *core.Actor, includeDeleted bool, page core.Page) (*QuestionPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	page = page.Normalize(adminDefaultLimit, MaxPageLimit)

	questions, total, err := s.questions.ListQuestions(ctx, core.QuestionFilter{
		Sort:           core.SortNewest,
		Page:           page,
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		return nil, err
	}
	offset := page.Offset()
	return &QuestionPage{
		Questions: questions,
		Total:     total,
		Page:      page.Page,
		Limit:     page.Limit,
		HasNext:   int64(offset+page.Limit) < total,
		HasPrev:   offset > 0,
	}, nil
}
