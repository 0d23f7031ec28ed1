package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitLogger(tt.level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if GetLogger() == nil {
				t.Fatal("GetLogger() returned nil")
			}

			level, err := ParseLevel(tt.level)
			if err != nil {
				t.Fatalf("ParseLevel(%q): %v", tt.level, err)
			}
			if level != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, level, tt.want)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := InitLogger("invalid"); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	globalLogger = nil

	logger := GetLogger()
	if logger != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestInitLoggerWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerWithWriter("warn", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log := GetLogger()
	log.Info("hidden")
	log.Warn("shown", "voice", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "voice=3") {
		t.Errorf("warn record missing from output: %q", out)
	}
}
