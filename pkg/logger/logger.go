package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. Development environments get the console encoder
// with caller info; everything else logs JSON at level.
func New(env, level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	switch strings.ToLower(format) {
	case "console":
		cfg.Encoding = "console"
	case "json":
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Must is New for main, falling back to a no-op logger on error
func Must(env, level, format string) *zap.Logger {
	l, err := New(env, level, format)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
