package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REPLY_PROVIDER", "REPLY_TIMEOUT", "LOG_LEVEL", "DETECTOR_PRIMARY_URL", "DETECTOR_LABELS_FILE", "DETECTOR_SIMULATOR_SEED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.Detector.InitTimeout != 10*time.Second || cfg.Detector.SimulatedInterval != 3*time.Second {
		t.Fatalf("unexpected detector config %+v", cfg.Detector)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected info log level, got %s", cfg.Log.Level)
	}
}

func TestLoadServerAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := loadServerConfig()
	if err != nil || cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q (err=%v)", cfg.Addr, err)
	}

	t.Setenv("PORT", "80 80")
	if _, err := loadServerConfig(); err == nil {
		t.Fatalf("expected error for invalid PORT")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"REPLY_PROVIDER":        "gemini",
		"LOG_LEVEL":             "loud",
		"DETECTOR_INIT_TIMEOUT": "soon",
		"DETECTOR_PRIMARY_URL":  "not a url",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadSimulatorSeed(t *testing.T) {
	t.Setenv("DETECTOR_SIMULATOR_SEED", "1234")
	cfg, err := loadDetectorConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SimulatorSeed != 1234 {
		t.Fatalf("expected seed 1234, got %d", cfg.SimulatorSeed)
	}
}

func TestLoadLabelOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "Primary:\n  contempt: disgusted\nsecondary:\n  fear: fearful\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	overrides, err := LoadLabelOverrides(path)
	if err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	if overrides["primary"]["contempt"] != "disgusted" {
		t.Fatalf("expected primary override, got %v", overrides)
	}
	if overrides["secondary"]["fear"] != "fearful" {
		t.Fatalf("expected secondary override, got %v", overrides)
	}

	if _, err := LoadLabelOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	cfg := AIConfig{Provider: ProviderOpenAI, OpenAIModel: "gpt-4o-mini"}
	if _, err := cfg.NewChatModel(context.Background()); err == nil {
		t.Fatalf("expected error without api key")
	}

	cfg = AIConfig{Provider: ProviderArk}
	if _, err := cfg.NewChatModel(context.Background()); err == nil {
		t.Fatalf("expected error without ark model")
	}
}

func TestNewChatModelOpenAI(t *testing.T) {
	cfg := AIConfig{Provider: ProviderOpenAI, OpenAIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}
	m, err := cfg.NewChatModel(context.Background())
	if err != nil {
		t.Fatalf("new chat model: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a chat model")
	}
}
