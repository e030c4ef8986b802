// Package logger holds the process-wide zap logger of the back-office.
//
// The level lives in a zap.AtomicLevel so operators can raise it to debug
// through /api/v1/log/level while chasing a permission issue, without a
// restart. Production runs emit JSON; console output is for local work.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	global      *zap.Logger
	atomicLevel = zap.NewAtomicLevel()
	once        sync.Once
)

// ValidateSettings reports whether level and format can build a logger.
// An empty format means json.
func ValidateSettings(level, format string) error {
	if _, err := zapcore.ParseLevel(level); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	switch format {
	case "", FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("log format %q: want %s or %s", format, FormatJSON, FormatConsole)
	}
}

// Init builds the global logger once. Later calls are no-ops.
func Init(level, format string) error {
	var initErr error
	once.Do(func() {
		if err := ValidateSettings(level, format); err != nil {
			initErr = err
			return
		}
		_ = atomicLevel.UnmarshalText([]byte(level))

		cfg := zap.NewProductionConfig()
		if format == FormatConsole {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.Level = atomicLevel

		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			initErr = fmt.Errorf("build logger: %w", err)
			return
		}
		global = l
	})
	return initErr
}

// SetLevel changes the level of the running logger.
func SetLevel(level string) error {
	return atomicLevel.UnmarshalText([]byte(level))
}

// GetLevel returns the current level.
func GetLevel() zapcore.Level {
	return atomicLevel.Level()
}

// L returns the global logger. It panics if Init has not been called.
func L() *zap.Logger {
	if global == nil {
		panic("logger.Init() must be called before logger.L()")
	}
	return global
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// HTTPHandler exposes the level at /api/v1/log/level:
//
//	GET  /api/v1/log/level                        current level
//	PUT  /api/v1/log/level -d '{"level":"debug"}' change level
func HTTPHandler() *zap.AtomicLevel {
	return &atomicLevel
}

// ForRole returns a child logger tagged with the role being worked on.
// A zero roleID marks a role that has not been stored yet.
func ForRole(restaurantID, roleID int64) *zap.Logger {
	fields := []zap.Field{zap.Int64("restaurant_id", restaurantID)}
	if roleID != 0 {
		fields = append(fields, zap.Int64("role_id", roleID))
	}
	return L().With(fields...)
}

// Sync flushes buffered entries.
func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}
