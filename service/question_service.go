package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agora/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Listing bounds
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// QuestionInput carries validated question fields
type QuestionInput struct {
	Title       string
	Description string
	Tags        []string
}

// QuestionDetail is a question with its visible answers, accepted first then oldest
type QuestionDetail struct {
	Question *core.Question `json:"question"`
	Answers  []core.Answer  `json:"answers"`
}

// QuestionPage is one page of a question listing
type QuestionPage struct {
	Questions []core.Question `json:"questions"`
	Total     int64           `json:"total"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
	HasNext   bool            `json:"hasNext"`
	HasPrev   bool            `json:"hasPrev"`
}

// QuestionService handles question CRUD and listings
type QuestionService struct {
	questions QuestionStorage
	answers   AnswerStorage
	notifier  *Notifier
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewQuestionService creates a question service
func NewQuestionService(questions QuestionStorage, answers AnswerStorage, notifier *Notifier, logger *zap.SugaredLogger) *QuestionService {
	if questions == nil || answers == nil {
		panic("question and answer storage are required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &QuestionService{
		questions: questions,
		answers:   answers,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create posts a new question and notifies mentioned users
func (s *QuestionService) Create(ctx context.Context, actor *core.Actor, in QuestionInput) (*core.Question, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", core.ErrValidation)
	}

	now := s.now()
	q := &core.Question{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        NormalizeTags(in.Tags),
		Author:      actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.notifier.NotifyMentions(ctx, q.Description, q.Author, q.ID, "")
	s.logger.Infow("Question created", "question_id", q.ID, "author", q.Author)
	return q, nil
}

// Get returns a visible question with its answers and counts the view.
// A failed view increment is logged and ignored.
func (s *QuestionService) Get(ctx context.Context, id string) (*QuestionDetail, error) {
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.questions.IncrementQuestionViews(ctx, id); err != nil {
		s.logger.Warnw("Failed to increment question views", "question_id", id, "error", err)
	} else {
		q.Views++
	}

	answers, _, err := s.answers.ListAnswers(ctx, core.AnswerFilter{Question: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].IsAccepted != answers[j].IsAccepted {
			return answers[i].IsAccepted
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})

	return &QuestionDetail{Question: q, Answers: answers}, nil
}

// Update edits a question's title, description or tags. Empty fields keep
// their current value. Author or admin only.
func (s *QuestionService) Update(ctx context.Context, actor *core.Actor, id string, in QuestionInput) (*core.Question, error) {
	if err := actor.CanWrite(); err != nil {
		return nil, err
	}
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate(q.Author) {
		return nil, fmt.Errorf("not allowed to update question %s: %w", id, core.ErrForbidden)
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		q.Title = t
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		q.Description = d
	}
	if len(in.Tags) > 0 {
		q.Tags = NormalizeTags(in.Tags)
	}
	if err := s.questions.UpdateQuestionContent(ctx, id, q.Title, q.Description, q.Tags); err != nil {
		return nil, err
	}
	q.UpdatedAt = s.now()
	return q, nil
}

// List returns a page of visible questions
func (s *QuestionService) List(ctx context.Context, filter core.QuestionFilter) (*QuestionPage, error) {
	if filter.Sort == "" {
		filter.Sort = core.SortNewest
	}
	if !filter.Sort.IsValid() {
		return nil, fmt.Errorf("%w: unknown sort %q", core.ErrValidation, filter.Sort)
	}
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	filter.Page = filter.Page.Normalize(DefaultPageLimit, MaxPageLimit)

	questions, total, err := s.questions.ListQuestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset := filter.Page.Offset()
	return &QuestionPage{
		Questions: questions,
		Total:     total,
		Page:      filter.Page.Page,
		Limit:     filter.Page.Limit,
		HasNext:   int64(offset+filter.Page.Limit) < total,
		HasPrev:   offset > 0,
	}, nil
}

// NormalizeTags lowercases, trims and de-duplicates tags keeping order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
