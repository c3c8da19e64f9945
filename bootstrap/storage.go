package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"agora/config"
	"agora/core"
	"agora/effects"
	"agora/storage"

	"go.uber.org/zap"
)

// failureLogKey is the Redis list holding recent side-effect failures
const failureLogKey = "agora:effects:failures"

// StorageComponents holds the store and the optional Redis connection.
type StorageComponents struct {
	Store  storage.Store
	Mongo  *storage.MongoDB
	Memory *storage.MemoryStore
	Redis  *core.RedisCache
}

// HealthCheck pings the primary store. The memory backend is always healthy.
func (s *StorageComponents) HealthCheck(ctx context.Context) error {
	if s.Mongo == nil {
		return nil
	}
	return s.Mongo.HealthCheck(ctx)
}

// Close releases Redis and the store.
func (s *StorageComponents) Close(ctx context.Context) error {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	if s.Store != nil {
		return s.Store.Close(ctx)
	}
	return nil
}

// InitMongoDB connects to MongoDB with retry logic.
func InitMongoDB(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.MongoDB, error) {
	const maxRetries = 3
	retryDelays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

	var mongoDB *storage.MongoDB
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			sugar.Infow("Retrying MongoDB connection",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", retryDelays[attempt-1])
			time.Sleep(retryDelays[attempt-1])
		}

		mongoDB, lastErr = storage.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize, sugar)
		if lastErr == nil {
			break
		}

		sugar.Warnw("MongoDB connection attempt failed",
			"attempt", attempt+1,
			"error", lastErr)
	}

	if lastErr != nil {
		printFatal("MongoDB Connection Failed", ClassifyConnectionError("MongoDB", lastErr, cfg.MongoDB.URI))
		return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries+1, lastErr)
	}
	return mongoDB, nil
}

// InitStorage opens the configured backend and, when enabled, Redis.
func InitStorage(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*StorageComponents, error) {
	components := &StorageComponents{}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		sugar.Warn("Using in-memory storage: data is lost on restart")
		components.Memory = storage.NewMemoryStore()
		components.Store = components.Memory
	default:
		mongoDB, err := InitMongoDB(cfg, sugar)
		if err != nil {
			return nil, err
		}
		store := storage.NewMongoStore(mongoDB, cfg.MongoDB.Timeout, sugar)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = mongoDB.Close(context.Background())
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		components.Mongo = mongoDB
		components.Store = store
	}

	redisCache, err := InitRedis(ctx, cfg, sugar)
	if err != nil {
		_ = components.Close(context.Background())
		return nil, err
	}
	components.Redis = redisCache

	return components, nil
}

// InitRedis connects to Redis when enabled. In graceful mode an unreachable
// Redis is logged and skipped, since it only holds derived data.
func InitRedis(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*core.RedisCache, error) {
	if !cfg.Redis.Enabled {
		sugar.Info("Redis disabled, read caches and durable failure log are off")
		return nil, nil
	}

	cache := core.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		_ = cache.Close()
		if cfg.IsGracefulMode() {
			sugar.Warnw("Redis unreachable, continuing without it",
				"addr", cfg.Redis.Addr,
				"error", err)
			return nil, nil
		}
		printFatal("Redis Connection Failed", ClassifyConnectionError("Redis", err, cfg.Redis.Addr))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sugar.Infow("Connected to Redis", "addr", cfg.Redis.Addr)
	return cache, nil
}

// InitEffects builds the failure log and starts the side-effect pool.
func InitEffects(ctx context.Context, cfg *config.Config, redisCache *core.RedisCache, sugar *zap.SugaredLogger) (*effects.Pool, effects.FailureLog) {
	var failures effects.FailureLog
	if redisCache != nil {
		failures = effects.NewRedisFailureLog(redisCache.Client(), failureLogKey, cfg.Effects.FailureLogSize)
	} else {
		failures = effects.NewMemoryFailureLog(cfg.Effects.FailureLogSize)
	}

	pool := effects.NewPool(ctx, cfg.Effects.Workers, cfg.Effects.QueueSize, failures, sugar)
	if cfg.Effects.TaskTimeout > 0 {
		pool.SetTaskTimeout(cfg.Effects.TaskTimeout)
	}
	pool.Start()
	return pool, failures
}

func printFatal(title, message string) {
	fmt.Fprintf(os.Stderr, "\n========================================\n")
	fmt.Fprintf(os.Stderr, "FATAL: %s\n", title)
	fmt.Fprintf(os.Stderr, "========================================\n")
	fmt.Fprintf(os.Stderr, "%s\n", message)
	fmt.Fprintf(os.Stderr, "========================================\n\n")
}
