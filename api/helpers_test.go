package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/config"
	"agora/core"
	"agora/effects"
	"agora/service"
	"agora/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "q8Zr2LxV7nP4kT9wB3mY6cH1sD5fJ0gE"

func newTestConfig() *config.Config {
	var c config.Config
	c.Storage.Backend = config.BackendMemory
	c.API.Host = "127.0.0.1"
	c.API.AllowedOrigins = []string{"http://localhost:3000"}
	c.API.RateLimit.RequestsPerSecond = 1000
	c.API.RateLimit.Burst = 1000
	c.API.IdentityCache.Size = 100
	c.API.IdentityCache.TTL = time.Minute
	c.Auth.JWTSecret = testSecret
	c.Auth.JWTExpiry = time.Hour
	c.Auth.Issuer = "agora-test"
	return &c
}

// testServer wires the API over a memory store with inline side effects
type testServer struct {
	api      *API
	store    *storage.MemoryStore
	failures *effects.MemoryFailureLog
	hub      *Hub
	users    *service.UserService
	config   *config.Config
}

func newTestServer(t *testing.T, mutate ...func(c *config.Config)) *testServer {
	t.Helper()
	cfg := newTestConfig()
	for _, m := range mutate {
		m(cfg)
	}
	logger := zaptest.NewLogger(t).Sugar()

	store := storage.NewMemoryStore()
	failures := effects.NewMemoryFailureLog(100)
	dispatcher := effects.NewInline(failures, logger)
	hub := NewHub(logger)

	retry := service.RetryPolicy{MaxRetries: 20, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	ledger := service.NewLedger(store, nil, dispatcher, logger)
	notifier := service.NewNotifier(store, store, dispatcher, logger).WithPublisher(hub)
	users := service.NewUserService(store, store, store, ledger, nil, logger)

	services := Services{
		Questions:     service.NewQuestionService(store, store, notifier, logger),
		Answers:       service.NewAnswerService(store, store, notifier, logger),
		Votes:         service.NewVoteService(store, store, ledger, retry, logger),
		Acceptance:    service.NewAcceptanceService(store, store, ledger, notifier, core.SelfAcceptCreditBoth, retry, logger),
		Deletion:      service.NewDeletionService(store, store, logger),
		Notifications: service.NewNotificationService(store, nil, logger),
		Users:         users,
		Admin:         service.NewAdminService(store, store, store, store, logger),
		Failures:      failures,
	}

	a := NewAPI(services, hub, cfg, logger)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	return &testServer{api: a, store: store, failures: failures, hub: hub, users: users, config: cfg}
}

// user creates a member and returns it with a signed token
func (s *testServer) user(t *testing.T, username string, role core.Role) (*core.User, string) {
	t.Helper()
	u, err := s.users.Create(context.Background(), username, role)
	require.NoError(t, err)
	token, err := GenerateToken(u, s.config)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func validQuestion() map[string]interface{} {
	return map[string]interface{}{
		"title":       "How do I cancel a context in Go?",
		"description": "I start a goroutine and want to stop it cleanly from the caller.",
		"tags":        []string{"go", "Concurrency"},
	}
}

// postQuestion creates a question over HTTP and returns it
func (s *testServer) postQuestion(t *testing.T, token string) core.Question {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/questions", token, validQuestion())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[core.Question](t, rec)
}

// postAnswer creates an answer over HTTP and returns it
func (s *testServer) postAnswer(t *testing.T, token, questionID string) core.Answer {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/questions/"+questionID+"/answers", token,
		map[string]string{"content": "Use context.WithCancel and call cancel when done."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[core.Answer](t, rec)
}

func (s *testServer) reputation(t *testing.T, userID string) int {
	t.Helper()
	u, err := s.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.Reputation
}
