// Package api exposes the Q&A services over HTTP and streams notifications
// over websockets.
//
//	@title						Agora Q&A API
//	@version					1.0
//	@description				Questions, answers, votes, acceptance and notifications
//	@host						localhost:8080
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer access token, e.g. "Bearer <token>"
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agora/config"
	"agora/core"
	_ "agora/docs"
	"agora/effects"
	"agora/service"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services bundles the business services the handlers call
type Services struct {
	Questions     *service.QuestionService
	Answers       *service.AnswerService
	Votes         *service.VoteService
	Acceptance    *service.AcceptanceService
	Deletion      *service.DeletionService
	Notifications *service.NotificationService
	Users         *service.UserService
	Admin         *service.AdminService
	// Failures is the side-effect failure log shown to admins
	Failures effects.FailureLog
	// Health is optional
	Health HealthChecker
}

// API holds the API server
type API struct {
	router         *mux.Router
	handler        http.Handler
	server         *http.Server
	services       Services
	hub            *Hub
	identities     *expirable.LRU[string, *core.User]
	config         *config.Config
	logger         *zap.SugaredLogger
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewAPI creates a new API server. hub may be nil, which disables the
// notification stream endpoint.
func NewAPI(services Services, hub *Hub, cfg *config.Config, logger *zap.SugaredLogger) *API {
	if services.Users == nil {
		panic("user service is required")
	}
	size := cfg.API.IdentityCache.Size
	if size <= 0 {
		size = 1000
	}
	a := &API{
		router:       mux.NewRouter(),
		services:     services,
		hub:          hub,
		identities:   expirable.NewLRU[string, *core.User](size, nil, cfg.API.IdentityCache.TTL),
		config:       cfg,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	a.setupRoutes()
	a.handler = a.corsMiddleware(a.router)
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:           a.handler,
		ReadTimeout:       cfg.API.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.API.WriteTimeout,
	}
	go a.cleanupRateLimiters(10 * time.Minute)
	return a
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.rateLimitMiddleware)
	a.router.Use(a.identityMiddleware)

	r := a.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/questions", a.listQuestions).Methods(http.MethodGet)
	r.HandleFunc("/questions", a.createQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}", a.getQuestion).Methods(http.MethodGet)
	r.HandleFunc("/questions/{id}", a.updateQuestion).Methods(http.MethodPut)
	r.HandleFunc("/questions/{id}", a.deleteQuestion).Methods(http.MethodDelete)
	r.HandleFunc("/questions/{id}/vote", a.voteQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}/answers", a.createAnswer).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}/accept/{answerId}", a.acceptAnswer).Methods(http.MethodPost)

	r.HandleFunc("/answers/{id}", a.updateAnswer).Methods(http.MethodPut)
	r.HandleFunc("/answers/{id}", a.deleteAnswer).Methods(http.MethodDelete)
	r.HandleFunc("/answers/{id}/vote", a.voteAnswer).Methods(http.MethodPost)

	r.HandleFunc("/notifications", a.listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/unread-count", a.unreadCount).Methods(http.MethodGet)
	r.HandleFunc("/notifications/read-all", a.markAllNotificationsRead).Methods(http.MethodPut)
	r.HandleFunc("/notifications/{id}/read", a.markNotificationRead).Methods(http.MethodPut)
	r.HandleFunc("/notifications/{id}", a.deleteNotification).Methods(http.MethodDelete)

	r.HandleFunc("/users/me", a.getCurrentUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", a.getUserProfile).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/answers", a.listUserAnswers).Methods(http.MethodGet)

	r.HandleFunc("/admin/stats", a.adminDashboard).Methods(http.MethodGet)
	r.HandleFunc("/admin/users", a.adminListUsers).Methods(http.MethodGet)
	r.HandleFunc("/admin/questions", a.adminListQuestions).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}/ban", a.toggleBan).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id}/badges", a.awardBadge).Methods(http.MethodPost)
	r.HandleFunc("/admin/repair", a.runRepair).Methods(http.MethodPost)
	r.HandleFunc("/admin/side-effect-failures", a.listSideEffectFailures).Methods(http.MethodGet)

	if a.hub != nil {
		a.router.HandleFunc("/ws", a.serveWs).Methods(http.MethodGet)
	}
	a.router.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)
	a.router.Handle("/metrics", promhttp.Handler())
	a.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}

// Handler returns the root handler including CORS handling
func (a *API) Handler() http.Handler {
	return a.handler
}

// Start serves HTTP until Stop is called. It returns nil on graceful shutdown.
func (a *API) Start() error {
	a.logger.Infow("API server listening", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.hub != nil {
		a.hub.Stop()
	}
	return a.server.Shutdown(ctx)
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Reports storage health
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	api.errorResponse	"Storage unavailable"
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	if a.services.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.services.Health.HealthCheck(ctx); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "Storage unavailable", err, a.logger)
			return
		}
	}
	a.respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
