package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streambench/internal/infra/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")
	log, closer, err := New(config.LoggerConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("run started", "requests", 5)
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "run started") {
		t.Errorf("log output missing message: %s", data)
	}
}

func TestNewStderrNoop(t *testing.T) {
	_, closer, err := New(config.LoggerConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := closer(); err != nil {
		t.Errorf("closer: %v", err)
	}
}
