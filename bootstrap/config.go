package bootstrap

import (
	"fmt"
	"os"

	"agora/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output.
func InitLogger() (*zap.Logger, *zap.SugaredLogger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapcore.DebugLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}

	startupMode := cfg.StartupMode
	if startupMode == "" {
		startupMode = config.StartupModeStrict
	}
	sugar.Infow("Startup mode",
		"mode", string(startupMode),
		"description", describeStartupMode(startupMode))

	sugar.Infow("Config loaded",
		"storage_backend", cfg.Storage.Backend,
		"redis_enabled", cfg.Redis.Enabled,
		"api_port", cfg.API.Port,
		"self_accept_policy", cfg.SelfAcceptPolicy())

	if cfg.Auth.JWTSecret == "" {
		sugar.Warn("auth.jwt_secret is empty: every request is anonymous and writes are refused")
	}

	return cfg, nil
}

func describeStartupMode(mode config.StartupMode) string {
	if mode == config.StartupModeGraceful {
		return "will start without Redis if it is unreachable"
	}
	return "will fail fast on any initialization error"
}
