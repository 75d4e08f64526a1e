package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		debug bool
		want  zapcore.Level
	}{
		{"info", "info", false, zapcore.InfoLevel},
		{"warn", "warn", false, zapcore.WarnLevel},
		{"unknown falls back", "loud", false, zapcore.InfoLevel},
		{"debug forces debug", "error", true, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.debug)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("level %v not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("level below %v unexpectedly enabled", tt.want)
			}
		})
	}
}
