package logger

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TokenHeader is the response header carrying the profiler token of a request.
const TokenHeader = "X-Debug-Token"

// Config selects the level ("debug" or "info") and the encoding ("json" or
// "console").
type Config struct {
	Level  string
	Format string
}

// New creates a new zap logger based on the configuration.
func New(cfg Config) (*zap.Logger, error) {
	var config zap.Config
	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"

	return config.Build()
}

// WithToken returns a logger with the debug_token field set from the
// response headers, if the profiler assigned one.
func WithToken(l *zap.Logger, h http.Header) *zap.Logger {
	if token := h.Get(TokenHeader); token != "" {
		return l.With(zap.String("debug_token", token))
	}
	return l
}
