// Package logger wraps zap.Logger the way the originating codebase's
// service entrypoints do: a thin struct embedding *zap.Logger, a Config
// driving level/encoding/development mode (output always goes to stdout),
// and New/NewDevelopment constructors.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level       string
	Encoding    string
	Development bool
}

// Logger wraps zap.Logger so callers can add project-specific helpers
// later without touching every call site.
type Logger struct {
	*zap.Logger
}

// New builds a Logger from Config. Encoding "console" yields human-readable
// output; anything else (including the empty string) yields JSON.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{zap.New(core, opts...)}, nil
}

// NewDevelopment returns a Logger preconfigured for local development:
// console encoding, debug level, colorized levels.
func NewDevelopment() (*Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{l}, nil
}

// With returns a Logger with the given fields added to every subsequent
// entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named adds a sub-scope name to the logger, joined with the parent's name
// by a dot.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
