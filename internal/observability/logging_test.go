package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/grievance-desk/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		cfg := &config.Config{
			App:    config.AppConfig{Name: "grievance-desk", Env: "production"},
			Logger: config.LoggerConfig{Level: tc.level},
		}
		logger, err := NewLogger(cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.level, err)
		}
		if !logger.Core().Enabled(tc.want) {
			t.Fatalf("%s: level %s disabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
			t.Fatalf("%s: level below %s enabled", tc.level, tc.want)
		}
	}
}
