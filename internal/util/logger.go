package util

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init builds the process logger the first time it is called; later calls
// return the same logger. Production uses sampled JSON-friendly output with
// ISO8601 timestamps, anything else the colored development console.
func Init(environment, level, format string) *zap.Logger {
	once.Do(func() {
		globalLogger = build(environment, level, format)
		zap.ReplaceGlobals(globalLogger)
	})
	return globalLogger
}

func build(environment, level, format string) *zap.Logger {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.DisableStacktrace = true
		config.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(parseLogLevel(level))
	config.Encoding = "console"
	if format == "json" {
		config.Encoding = "json"
	}
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.InitialFields = map[string]interface{}{"service": "smsglue"}

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger
}

// Named returns a child of the process logger scoped to a component.
func Named(component string) *zap.Logger {
	return Get().Named(component)
}

// Get returns the process logger, initializing a production logger when
// nothing called Init first.
func Get() *zap.Logger {
	if globalLogger == nil {
		return Init("production", "info", "json")
	}
	return globalLogger
}

func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

// parseLogLevel maps LOG_LEVEL to a zap level, defaulting to info.
func parseLogLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// caller skips the package-level wrappers below when reporting the call site.
func caller() *zap.Logger {
	return Get().WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) { caller().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { caller().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { caller().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { caller().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { caller().Fatal(msg, fields...) }

func String(key, value string) zap.Field { return zap.String(key, value) }
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }
func Int(key string, value int) zap.Field { return zap.Int(key, value) }
func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

// ErrorField is zap.Error under a name that does not clash with Error.
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// Identifier logs an account identifier or token as its clear-text hint only.
func Identifier(key, value string) zap.Field {
	return zap.String(key, RedactKey(value))
}
