package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"agora/core"
	"agora/effects"
	"agora/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agora_http_requests_total")
}

func TestSwaggerDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2.0", doc["swagger"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, path := range []string{"/api/questions", "/api/questions/{id}/accept/{answerId}", "/api/admin/stats", "/api/admin/repair"} {
		assert.Contains(t, paths, path)
	}
}

func TestQuestionEndpoints(t *testing.T) {
	s := newTestServer(t)
	author, token := s.user(t, "asker", core.RoleUser)
	_, otherToken := s.user(t, "other", core.RoleUser)

	q := s.postQuestion(t, token)
	assert.Equal(t, author.ID, q.Author)
	assert.Equal(t, []string{"go", "concurrency"}, q.Tags)

	rec := s.do(t, http.MethodGet, "/api/questions/"+q.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[service.QuestionDetail](t, rec)
	assert.Equal(t, 1, detail.Question.Views)

	rec = s.do(t, http.MethodGet, "/api/questions?tag=go&sort=votes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[service.QuestionPage](t, rec)
	assert.EqualValues(t, 1, page.Total)
	assert.False(t, page.HasNext)

	rec = s.do(t, http.MethodGet, "/api/questions?sort=random", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/questions/"+q.ID, otherToken, map[string]string{"title": "A better title for this question"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/questions/"+q.ID, token, map[string]string{"title": "A better title for this question"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[core.Question](t, rec)
	assert.Equal(t, "A better title for this question", updated.Title)
	assert.Equal(t, q.Description, updated.Description)

	rec = s.do(t, http.MethodGet, "/api/questions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateQuestion_Rejections(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "asker", core.RoleUser)
	_, guestToken := s.user(t, "visitor", core.RoleGuest)

	tests := []struct {
		name     string
		token    string
		body     interface{}
		wantCode int
		wantMsg  string
	}{
		{"anonymous", "", validQuestion(), http.StatusUnauthorized, "authentication required"},
		{"guest", guestToken, validQuestion(), http.StatusForbidden, "forbidden"},
		{"short title", token, map[string]interface{}{
			"title": "Short", "description": "A long enough description here.", "tags": []string{"go"},
		}, http.StatusBadRequest, "title must be at least 10 characters"},
		{"no tags", token, map[string]interface{}{
			"title": "A perfectly fine title", "description": "A long enough description here.", "tags": []string{},
		}, http.StatusBadRequest, "tags must have at least 1 items"},
		{"too many tags", token, map[string]interface{}{
			"title": "A perfectly fine title", "description": "A long enough description here.",
			"tags": []string{"a", "b", "c", "d", "e", "f"},
		}, http.StatusBadRequest, "tags must have at most 5 items"},
		{"long tag", token, map[string]interface{}{
			"title": "A perfectly fine title", "description": "A long enough description here.",
			"tags": []string{"this-tag-is-far-too-long-to-accept"},
		}, http.StatusBadRequest, "tags[0] must be at most 20 characters"},
		{"unknown field", token, map[string]interface{}{
			"title": "A perfectly fine title", "description": "A long enough description here.",
			"tags": []string{"go"}, "author": "someone-else",
		}, http.StatusBadRequest, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/questions", tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Contains(t, decodeBody[errorResponse](t, rec).Error, tt.wantMsg)
		})
	}
}

func TestVoteEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, askerToken := s.user(t, "asker", core.RoleUser)
	responder, responderToken := s.user(t, "responder", core.RoleUser)
	_, voterToken := s.user(t, "voter", core.RoleUser)

	q := s.postQuestion(t, askerToken)
	a := s.postAnswer(t, responderToken, q.ID)

	rec := s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", voterToken, map[string]string{"type": "upvote"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[service.VoteResult](t, rec)
	assert.Equal(t, 10, result.ReputationDelta)
	assert.Equal(t, 1, result.VoteScore)
	assert.Equal(t, 10, s.reputation(t, responder.ID))

	rec = s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", voterToken, map[string]string{"type": "upvote"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", voterToken, map[string]string{"type": "downvote"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -12, decodeBody[service.VoteResult](t, rec).ReputationDelta)
	assert.Equal(t, -2, s.reputation(t, responder.ID))

	rec = s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", responderToken, map[string]string{"type": "upvote"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", "", map[string]string{"type": "upvote"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/answers/"+a.ID+"/vote", voterToken, map[string]string{"type": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "type must be one of")

	rec = s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/vote", voterToken, map[string]string{"type": "upvote"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeBody[service.VoteResult](t, rec).ReputationDelta)
}

func TestAcceptEndpoint(t *testing.T) {
	s := newTestServer(t)
	asker, askerToken := s.user(t, "asker", core.RoleUser)
	responder, responderToken := s.user(t, "responder", core.RoleUser)
	_, adminToken := s.user(t, "moderator", core.RoleAdmin)

	q := s.postQuestion(t, askerToken)
	a := s.postAnswer(t, responderToken, q.ID)

	rec := s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/accept/"+a.ID, responderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/accept/"+a.ID, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/accept/"+a.ID, askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[service.AcceptResult](t, rec)
	assert.True(t, result.Changed)
	assert.Empty(t, result.Previous)
	assert.Equal(t, 15, s.reputation(t, responder.ID))
	assert.Equal(t, 2, s.reputation(t, asker.ID))

	rec = s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/accept/"+a.ID, askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[service.AcceptResult](t, rec).Changed)
	assert.Equal(t, 15, s.reputation(t, responder.ID))

	rec = s.do(t, http.MethodGet, "/api/notifications", responderToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[service.NotificationPage](t, rec)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, core.NotificationAcceptedAnswer, page.Notifications[0].Type)
	assert.Equal(t, a.ID, page.Notifications[0].LinkTo.Answer)

	rec = s.do(t, http.MethodGet, "/api/questions/"+q.ID, "", nil)
	detail := decodeBody[service.QuestionDetail](t, rec)
	assert.Equal(t, a.ID, detail.Question.AcceptedAnswer)
	require.Len(t, detail.Answers, 1)
	assert.True(t, detail.Answers[0].IsAccepted)
}

func TestDeleteEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, askerToken := s.user(t, "asker", core.RoleUser)
	_, responderToken := s.user(t, "responder", core.RoleUser)
	_, otherToken := s.user(t, "other", core.RoleUser)

	q := s.postQuestion(t, askerToken)
	a1 := s.postAnswer(t, responderToken, q.ID)
	a2 := s.postAnswer(t, responderToken, q.ID)

	rec := s.do(t, http.MethodDelete, "/api/answers/"+a1.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/answers/"+a1.ID, responderToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/questions/"+q.ID, "", nil)
	detail := decodeBody[service.QuestionDetail](t, rec)
	require.Len(t, detail.Answers, 1)
	assert.Equal(t, a2.ID, detail.Answers[0].ID)
	assert.Equal(t, 1, detail.Question.AnswerCount)

	rec = s.do(t, http.MethodDelete, "/api/questions/"+q.ID, askerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/questions/"+q.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/answers/"+a2.ID, responderToken, map[string]string{"content": "An edited answer that is long enough."})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/questions/"+q.ID, askerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, askerToken := s.user(t, "asker", core.RoleUser)
	_, responderToken := s.user(t, "responder", core.RoleUser)

	q := s.postQuestion(t, askerToken)
	s.postAnswer(t, responderToken, q.ID)
	s.postAnswer(t, responderToken, q.ID)

	rec := s.do(t, http.MethodGet, "/api/notifications/unread-count", askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody[map[string]int64](t, rec)["unread"])

	rec = s.do(t, http.MethodGet, "/api/notifications?limit=1", askerToken, nil)
	page := decodeBody[service.NotificationPage](t, rec)
	require.Len(t, page.Notifications, 1)
	assert.True(t, page.HasNext)
	assert.Equal(t, core.NotificationAnswer, page.Notifications[0].Type)
	id := page.Notifications[0].ID

	rec = s.do(t, http.MethodPut, "/api/notifications/"+id+"/read", responderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/notifications/"+id+"/read", askerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/notifications/read-all", askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]int64](t, rec)["updated"])

	rec = s.do(t, http.MethodDelete, "/api/notifications/"+id, askerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	asker, askerToken := s.user(t, "asker", core.RoleUser)
	responder, responderToken := s.user(t, "responder", core.RoleUser)

	q := s.postQuestion(t, askerToken)
	a := s.postAnswer(t, responderToken, q.ID)
	rec := s.do(t, http.MethodPost, "/api/questions/"+q.ID+"/accept/"+a.ID, askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/"+responder.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody[service.Profile](t, rec)
	assert.EqualValues(t, 1, profile.Stats.AnswerCount)
	assert.EqualValues(t, 1, profile.Stats.AcceptedAnswerCount)
	assert.Equal(t, 15, profile.User.Reputation)

	rec = s.do(t, http.MethodGet, "/api/users/me", askerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[service.Profile](t, rec)
	assert.Equal(t, asker.ID, me.User.ID)
	assert.EqualValues(t, 1, me.Stats.QuestionCount)

	rec = s.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/"+responder.ID+"/answers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]interface{}](t, rec)["total"])
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	target, targetToken := s.user(t, "target", core.RoleUser)
	admin, adminToken := s.user(t, "moderator", core.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/admin/repair", targetToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/repair", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[service.RepairReport](t, rec).DeletedQuestions)

	rec = s.do(t, http.MethodPost, "/api/admin/users/"+target.ID+"/badges", adminToken, map[string]string{"badge": "helpful"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	u, err := s.store.GetUser(t.Context(), target.ID)
	require.NoError(t, err)
	assert.Contains(t, u.Badges, "helpful")

	rec = s.do(t, http.MethodPost, "/api/admin/users/"+target.ID+"/badges", targetToken, map[string]string{"badge": "self-made"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/admin/users/"+admin.ID+"/ban", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// cache the target's identity, then ban: the ban applies immediately
	rec = s.do(t, http.MethodGet, "/api/users/me", targetToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/admin/users/"+target.ID+"/ban", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[core.User](t, rec).IsBanned)

	rec = s.do(t, http.MethodGet, "/api/users/me", targetToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "banned")

	rec = s.do(t, http.MethodPut, "/api/admin/users/"+target.ID+"/ban", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/users/me", targetToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSideEffectFailuresEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.user(t, "someone", core.RoleUser)
	_, adminToken := s.user(t, "moderator", core.RoleAdmin)

	require.NoError(t, s.failures.Record(t.Context(), effects.Failure{Effect: "reputation", Error: "store down"}))

	rec := s.do(t, http.MethodGet, "/api/admin/side-effect-failures", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/side-effect-failures?limit=10", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	failures := decodeBody[[]effects.Failure](t, rec)
	require.Len(t, failures, 1)
	assert.Equal(t, "reputation", failures[0].Effect)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "trace-123\n<script>")
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "trace-123script", rec.Header().Get(RequestIDHeader))

	rec = s.do(t, http.MethodGet, "/api/questions/missing", "", nil)
	generated := rec.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, decodeBody[errorResponse](t, rec).RequestID)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrUnauthenticated, http.StatusUnauthorized},
		{core.ErrForbidden, http.StatusForbidden},
		{core.ErrValidation, http.StatusBadRequest},
		{core.ErrSelfVoteForbidden, http.StatusBadRequest},
		{core.ErrDuplicateVote, http.StatusConflict},
		{service.ErrContention, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	msg := sanitizeErrorMessage("dial mongodb://admin:hunter2@db:27017 failed")
	assert.NotContains(t, msg, "hunter2")
	assert.Contains(t, msg, "[DATABASE_CONNECTION]")

	msg = sanitizeErrorMessage("rejected Bearer abc.def")
	assert.Equal(t, "rejected bearer REDACTED", msg)

	msg = sanitizeErrorMessage("question " + strings.Repeat("é", 2*maxErrorMessageLength) + " not found")
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, maxErrorMessageLength, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, "é..."))
}

func TestAdminViews(t *testing.T) {
	s := newTestServer(t)
	_, askerToken := s.user(t, "asker", core.RoleUser)
	_, responderToken := s.user(t, "responder", core.RoleUser)
	_, adminToken := s.user(t, "moderator", core.RoleAdmin)

	kept := s.postQuestion(t, askerToken)
	s.postAnswer(t, responderToken, kept.ID)
	removed := s.postQuestion(t, askerToken)
	rec := s.do(t, http.MethodDelete, "/api/questions/"+removed.ID, askerToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, path := range []string{"/api/admin/stats", "/api/admin/users", "/api/admin/questions"} {
		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, askerToken, nil).Code, path)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", nil).Code, path)
	}

	rec = s.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dashboard := decodeBody[service.Dashboard](t, rec)
	assert.EqualValues(t, 3, dashboard.Stats.Users)
	assert.EqualValues(t, 1, dashboard.Stats.Questions)
	assert.EqualValues(t, 1, dashboard.Stats.Answers)
	assert.EqualValues(t, 1, dashboard.Stats.Notifications)
	require.Len(t, dashboard.RecentActivity.Questions, 1)
	assert.Equal(t, kept.ID, dashboard.RecentActivity.Questions[0].ID)
	assert.Len(t, dashboard.TopUsers, 3)

	rec = s.do(t, http.MethodGet, "/api/admin/users?limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[service.UserPage](t, rec)
	assert.EqualValues(t, 3, users.Total)
	assert.Len(t, users.Users, 2)
	assert.True(t, users.HasNext)

	rec = s.do(t, http.MethodGet, "/api/admin/questions", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[service.QuestionPage](t, rec).Total)

	rec = s.do(t, http.MethodGet, "/api/admin/questions?includeDeleted=true", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[service.QuestionPage](t, rec)
	assert.EqualValues(t, 2, all.Total)
	var deleted int
	for _, q := range all.Questions {
		if q.IsDeleted {
			deleted++
			assert.Equal(t, removed.ID, q.ID)
		}
	}
	assert.Equal(t, 1, deleted)
}
