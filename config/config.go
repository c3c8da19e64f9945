package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"agora/core"

	"github.com/spf13/viper"
)

// StartupMode defines how agora handles optional dependency failures
type StartupMode string

const (
	// StartupModeStrict fails fast when an enabled dependency is unreachable (default)
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful starts without optional dependencies such as Redis
	StartupModeGraceful StartupMode = "graceful"
)

// Storage backends
const (
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// Config holds all configuration for the agora service
type Config struct {
	StartupMode StartupMode `mapstructure:"startup_mode"`

	Storage struct {
		// Backend is "mongodb" (default) or "memory"
		Backend string `mapstructure:"backend"`
	} `mapstructure:"storage"`

	MongoDB struct {
		URI         string        `mapstructure:"uri"`
		Database    string        `mapstructure:"database"`
		MaxPoolSize uint64        `mapstructure:"max_pool_size"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"mongodb"`

	Redis struct {
		Enabled    bool          `mapstructure:"enabled"`
		Addr       string        `mapstructure:"addr"`
		Password   string        `mapstructure:"password"`
		DB         int           `mapstructure:"db"`
		PoolSize   int           `mapstructure:"pool_size"`
		UnreadTTL  time.Duration `mapstructure:"unread_ttl"`
		ProfileTTL time.Duration `mapstructure:"profile_ttl"`
	} `mapstructure:"redis"`

	API struct {
		Host           string        `mapstructure:"host"`
		Port           int           `mapstructure:"port"`
		AllowedOrigins []string      `mapstructure:"allowed_origins"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		RateLimit      struct {
			RequestsPerSecond float64 `mapstructure:"requests_per_second"`
			Burst             int     `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
		IdentityCache struct {
			Size int           `mapstructure:"size"`
			TTL  time.Duration `mapstructure:"ttl"`
		} `mapstructure:"identity_cache"`
	} `mapstructure:"api"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
		Issuer    string        `mapstructure:"issuer"`
	} `mapstructure:"auth"`

	Secrets struct {
		Provider string `mapstructure:"provider"` // env, vault, aws
		Vault    struct {
			Address string `mapstructure:"address"`
			Token   string `mapstructure:"token"`
			Path    string `mapstructure:"path"`
		} `mapstructure:"vault"`
		AWS struct {
			Region    string `mapstructure:"region"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
			SecretID  string `mapstructure:"secret_id"`
		} `mapstructure:"aws"`
	} `mapstructure:"secrets"`

	Effects struct {
		Workers        int           `mapstructure:"workers"`
		QueueSize      int           `mapstructure:"queue_size"`
		FailureLogSize int           `mapstructure:"failure_log_size"`
		TaskTimeout    time.Duration `mapstructure:"task_timeout"`
	} `mapstructure:"effects"`

	Retry struct {
		MaxRetries      uint64        `mapstructure:"max_retries"`
		InitialInterval time.Duration `mapstructure:"initial_interval"`
		MaxInterval     time.Duration `mapstructure:"max_interval"`
	} `mapstructure:"retry"`

	Reputation struct {
		// Catalog overrides individual point values, keyed by action name
		Catalog          map[string]int `mapstructure:"catalog"`
		SelfAcceptPolicy string         `mapstructure:"self_accept_policy"`
	} `mapstructure:"reputation"`
}

func setDefaults() {
	viper.SetDefault("startup_mode", string(StartupModeStrict))

	viper.SetDefault("storage.backend", BackendMongoDB)

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "agora")
	viper.SetDefault("mongodb.max_pool_size", 50)
	viper.SetDefault("mongodb.timeout", 5*time.Second)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.unread_ttl", 5*time.Minute)
	viper.SetDefault("redis.profile_ttl", 1*time.Minute)

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("api.read_timeout", 15*time.Second)
	viper.SetDefault("api.write_timeout", 15*time.Second)
	viper.SetDefault("api.rate_limit.requests_per_second", 20)
	viper.SetDefault("api.rate_limit.burst", 40)
	viper.SetDefault("api.identity_cache.size", 10000)
	viper.SetDefault("api.identity_cache.ttl", 30*time.Second)

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiry", 24*time.Hour)
	viper.SetDefault("auth.issuer", "agora")

	viper.SetDefault("secrets.provider", SecretProviderEnv)
	viper.SetDefault("secrets.vault.address", "http://127.0.0.1:8200")
	viper.SetDefault("secrets.vault.path", "secret/agora")
	viper.SetDefault("secrets.aws.region", "us-east-1")
	viper.SetDefault("secrets.aws.secret_id", "agora/secrets")

	viper.SetDefault("effects.workers", 4)
	viper.SetDefault("effects.queue_size", 1024)
	viper.SetDefault("effects.failure_log_size", 1000)
	viper.SetDefault("effects.task_timeout", 5*time.Second)

	viper.SetDefault("retry.max_retries", 5)
	viper.SetDefault("retry.initial_interval", 10*time.Millisecond)
	viper.SetDefault("retry.max_interval", 200*time.Millisecond)

	viper.SetDefault("reputation.self_accept_policy", string(core.SelfAcceptCreditBoth))
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("AGORA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Shorter name for the secret most often injected by orchestrators
	_ = viper.BindEnv("auth.jwt_secret", "AGORA_AUTH_JWT_SECRET", "AGORA_JWT_SECRET")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	manager, err := NewSecretManager(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager: %w", err)
	}
	if err := LoadSecrets(&config, manager); err != nil {
		return nil, err
	}
	return &config, nil
}

// IsGracefulMode reports whether optional dependencies may fail at startup
func (c *Config) IsGracefulMode() bool {
	return c.StartupMode == StartupModeGraceful
}

// ReputationCatalog returns the default catalog with configured overrides
func (c *Config) ReputationCatalog() core.ReputationCatalog {
	return core.DefaultReputationCatalog().Merge(c.Reputation.Catalog)
}

// SelfAcceptPolicy returns the parsed self accept policy
func (c *Config) SelfAcceptPolicy() core.SelfAcceptPolicy {
	p, err := core.ParseSelfAcceptPolicy(c.Reputation.SelfAcceptPolicy)
	if err != nil {
		return core.SelfAcceptCreditBoth
	}
	return p
}

func validateConfig(config *Config) error {
	switch config.StartupMode {
	case "", StartupModeStrict, StartupModeGraceful:
	default:
		return fmt.Errorf("invalid startup_mode %q (must be strict or graceful)", config.StartupMode)
	}

	switch config.Storage.Backend {
	case BackendMongoDB:
		if !strings.HasPrefix(config.MongoDB.URI, "mongodb://") && !strings.HasPrefix(config.MongoDB.URI, "mongodb+srv://") {
			return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
		}
		parsed, err := url.Parse(config.MongoDB.URI)
		if err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("invalid MongoDB URI: missing host")
		}
		if config.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database cannot be empty")
		}
		if config.MongoDB.Timeout <= 0 {
			return fmt.Errorf("mongodb.timeout must be positive")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid storage backend %q (must be %s or %s)", config.Storage.Backend, BackendMongoDB, BackendMemory)
	}

	if config.Redis.Enabled {
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis.addr cannot be empty when redis is enabled")
		}
		if config.Redis.PoolSize < 1 {
			return fmt.Errorf("redis.pool_size must be positive, got %d", config.Redis.PoolSize)
		}
	}

	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d (must be 1-65535)", config.API.Port)
	}
	if config.API.RateLimit.RequestsPerSecond <= 0 || config.API.RateLimit.Burst < 1 {
		return fmt.Errorf("api.rate_limit requires positive requests_per_second and burst")
	}

	if err := validateJWTSecret(config.Auth.JWTSecret); err != nil {
		return err
	}
	if config.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("auth.jwt_expiry must be positive")
	}
	switch config.Secrets.Provider {
	case "", SecretProviderEnv:
	case SecretProviderVault:
		if config.Secrets.Vault.Address == "" {
			return fmt.Errorf("secrets.vault.address cannot be empty with the vault provider")
		}
	case SecretProviderAWS:
		if config.Secrets.AWS.Region == "" {
			return fmt.Errorf("secrets.aws.region cannot be empty with the aws provider")
		}
	default:
		return fmt.Errorf("unsupported secret provider: %s", config.Secrets.Provider)
	}

	if config.Effects.Workers < 1 || config.Effects.Workers > 256 {
		return fmt.Errorf("effects.workers must be between 1 and 256, got %d", config.Effects.Workers)
	}
	if config.Effects.QueueSize < 1 {
		return fmt.Errorf("effects.queue_size must be positive, got %d", config.Effects.QueueSize)
	}
	if config.Effects.FailureLogSize < 1 {
		return fmt.Errorf("effects.failure_log_size must be positive, got %d", config.Effects.FailureLogSize)
	}

	if config.Retry.InitialInterval <= 0 || config.Retry.MaxInterval < config.Retry.InitialInterval {
		return fmt.Errorf("retry intervals must be positive with max_interval >= initial_interval")
	}

	if _, err := core.ParseSelfAcceptPolicy(config.Reputation.SelfAcceptPolicy); err != nil {
		return err
	}
	known := core.DefaultReputationCatalog()
	for action := range config.Reputation.Catalog {
		if _, ok := known[core.ReputationAction(action)]; !ok {
			return fmt.Errorf("unknown reputation action %q in reputation.catalog", action)
		}
	}

	return nil
}

// validateJWTSecret rejects short or obviously weak signing secrets. An
// empty secret is allowed and disables authenticated routes.
func validateJWTSecret(secret string) error {
	if secret == "" {
		return nil
	}
	if len(secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters (256 bits) for security")
	}
	weakSecrets := []string{
		"secret", "password", "changeme", "default", "admin",
		"jwt_secret", "supersecret", "mysecret", "test", "example",
	}
	lower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.Contains(lower, weak) {
			return fmt.Errorf("JWT secret appears to contain weak/default value: please use a cryptographically secure random string")
		}
	}
	return nil
}
