package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		want  zapcore.Level
	}{
		{"production info", "production", "info", zapcore.InfoLevel},
		{"development debug", "development", "debug", zapcore.DebugLevel},
		{"upper case", "production", "WARN", zapcore.WarnLevel},
		{"unknown level falls back", "production", "loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.env, tt.level, "json")
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %v should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %v should be disabled", tt.want-1)
			}
		})
	}
}
