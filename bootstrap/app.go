package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/api"
	"agora/config"
	"agora/effects"
	"agora/service"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 15 * time.Second

// App represents the agora server with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Storage  *StorageComponents
	Effects  *effects.Pool
	Failures effects.FailureLog
	Hub      *api.Hub
	Services api.Services

	APIServer *api.API

	serverErr chan error
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sugar.Info("agora starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}

	app, err := NewAppWithConfig(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Logger = logger
	return app, nil
}

// NewAppWithConfig wires storage, side effects and services from an
// already loaded configuration.
func NewAppWithConfig(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    sugar.Desugar(),
		Sugar:     sugar,
		serverErr: make(chan error, 1),
	}

	components, err := InitStorage(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Storage = components

	app.Effects, app.Failures = InitEffects(ctx, cfg, components.Redis, sugar)
	app.Hub = api.NewHub(sugar)
	app.Services = NewServices(cfg, components, app.Effects, app.Failures, app.Hub, sugar)

	return app, nil
}

// NewServices builds the business services over one store. publisher may be
// nil when no live clients are served.
func NewServices(
	cfg *config.Config,
	components *StorageComponents,
	dispatcher effects.Dispatcher,
	failures effects.FailureLog,
	publisher service.Publisher,
	sugar *zap.SugaredLogger,
) api.Services {
	store := components.Store

	var unread service.UnreadCache
	var profiles service.ProfileCache
	if components.Redis != nil {
		readCache := service.NewRedisReadCache(components.Redis, cfg.Redis.UnreadTTL, cfg.Redis.ProfileTTL, sugar)
		unread = readCache
		profiles = readCache
	}

	retry := service.RetryPolicy{
		MaxRetries:      cfg.Retry.MaxRetries,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
	if retry.MaxRetries == 0 || retry.InitialInterval <= 0 {
		retry = service.DefaultRetryPolicy()
	}

	ledger := service.NewLedger(store, cfg.ReputationCatalog(), dispatcher, sugar)
	notifier := service.NewNotifier(store, store, dispatcher, sugar)
	if publisher != nil {
		notifier.WithPublisher(publisher)
	}
	if unread != nil {
		notifier.WithUnreadCache(unread)
	}

	return api.Services{
		Questions:     service.NewQuestionService(store, store, notifier, sugar),
		Answers:       service.NewAnswerService(store, store, notifier, sugar),
		Votes:         service.NewVoteService(store, store, ledger, retry, sugar),
		Acceptance:    service.NewAcceptanceService(store, store, ledger, notifier, cfg.SelfAcceptPolicy(), retry, sugar),
		Deletion:      service.NewDeletionService(store, store, sugar),
		Notifications: service.NewNotificationService(store, unread, sugar),
		Users:         service.NewUserService(store, store, store, ledger, profiles, sugar),
		Admin:         service.NewAdminService(store, store, store, store, sugar),
		Failures:      failures,
		Health:        components,
	}
}

// Start launches the HTTP server in the background.
func (a *App) Start(ctx context.Context) error {
	if a.APIServer != nil {
		return errors.New("app already started")
	}
	a.APIServer = api.NewAPI(a.Services, a.Hub, a.Config, a.Sugar)

	go func() {
		if err := a.APIServer.Start(); err != nil {
			a.Sugar.Errorw("API server failed", "error", err)
			a.serverErr <- err
		}
	}()

	a.Sugar.Infow("agora started",
		"addr", fmt.Sprintf("%s:%d", a.Config.API.Host, a.Config.API.Port),
		"storage_backend", a.Config.Storage.Backend)
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the server
// stops on its own.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Received shutdown signal", "signal", sig.String())
	case <-a.serverErr:
	}
}

// Shutdown stops the server, drains side effects, then closes storage.
// Effects drain before storage closes so queued writes still land.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.APIServer != nil {
		a.Sugar.Info("Phase 1: Stopping API server...")
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("API server shutdown failed", "error", err)
		}
	} else if a.Hub != nil {
		a.Hub.Stop()
	}

	if a.Effects != nil {
		a.Sugar.Info("Phase 2: Draining side effects...")
		if err := a.Effects.Stop(); err != nil && !errors.Is(err, effects.ErrPoolNotRunning) {
			a.Sugar.Errorw("Effect pool shutdown failed", "error", err)
		}
	}

	if a.Storage != nil {
		a.Sugar.Info("Phase 3: Closing storage...")
		if err := a.Storage.Close(ctx); err != nil {
			a.Sugar.Errorw("Storage shutdown failed", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
