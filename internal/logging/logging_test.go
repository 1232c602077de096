package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodflip.log")

	logger, closer := New("info", path)
	logger.Info("backend committed", "backend", "simulated")
	logger.Debug("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"msg":"backend committed"`) || !strings.Contains(content, `"backend":"simulated"`) {
		t.Fatalf("expected JSON record in file, got %q", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Fatalf("debug record should be filtered at info level")
	}
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer := New("debug", "")
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
