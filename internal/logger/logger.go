package logger

import (
	"fmt"

	"github.com/straye-as/crm-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new structured logger
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithActor adds the acting identity to logger. An empty actorID logs as anonymous.
func WithActor(logger *zap.Logger, actorID, effectiveRole string, sessionAdmin bool) *zap.Logger {
	if actorID == "" {
		return logger.With(zap.Bool("anonymous", true))
	}
	return logger.With(
		zap.String("actor_id", actorID),
		zap.String("effective_role", effectiveRole),
		zap.Bool("session_admin", sessionAdmin),
	)
}

// AccessFields describes an access decision for log entries
func AccessFields(resource, operation, reason string) []zap.Field {
	fields := []zap.Field{
		zap.String("resource", resource),
		zap.String("operation", operation),
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	return fields
}
