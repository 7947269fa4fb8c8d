package logger

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RayIDKey is both the fiber local and the log field carrying the request id.
const RayIDKey = "ray_id"

// New builds the process logger. Debug level switches to zap's development defaults;
// the console format drops stack traces and colours the level.
func New(cfg *Config) (*zap.Logger, error) {
	zc, err := zapConfig(cfg)
	if err != nil {
		return nil, err
	}
	return zc.Build()
}

func zapConfig(cfg *Config) (zap.Config, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.MessageKey = "message"
	return zc, nil
}

// WithRayID tags l with the request id stored on c, if any.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	if id, _ := c.Locals(RayIDKey).(string); id != "" {
		return l.With(zap.String(RayIDKey, id))
	}
	return l
}
