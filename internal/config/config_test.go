package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"honyaku/internal/config"
)

func TestLoadFromCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("first load should write a default config file: %v", err)
	}
	if cfg.API.Configured() {
		t.Error("fresh config must not look configured")
	}
	if cfg.Translation.ChunkSizeChars != 4000 {
		t.Errorf("translation.chunk_size_chars = %d, want 4000", cfg.Translation.ChunkSizeChars)
	}
	if cfg.NameScout.ChunkSizeChars != 2500 {
		t.Errorf("name_scout.chunk_size_chars = %d, want 2500", cfg.NameScout.ChunkSizeChars)
	}
	if cfg.Translation.HistoryLength != 5 {
		t.Errorf("translation.history_length = %d, want 5", cfg.Translation.HistoryLength)
	}
	if cfg.Prompts.ContentTranslation == "" || cfg.Prompts.NameScout == "" {
		t.Error("default prompts must not be empty")
	}
}

func TestLoadFromReadsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
key = "sk-real-key"
model = "some-model"

[translation]
chunk_size_chars = 1234
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if !cfg.API.Configured() {
		t.Error("real key should count as configured")
	}
	if cfg.API.Model != "some-model" {
		t.Errorf("api.model = %q", cfg.API.Model)
	}
	if cfg.Translation.ChunkSizeChars != 1234 {
		t.Errorf("chunk_size_chars = %d, want 1234", cfg.Translation.ChunkSizeChars)
	}
	// Untouched sections keep their defaults.
	if cfg.Translation.Retries != 3 {
		t.Errorf("retries = %d, want default 3", cfg.Translation.Retries)
	}
	if cfg.ScoutAPI.Configured() {
		t.Error("scout API should still be unconfigured")
	}
}

func TestLoadFromRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if err := cfg.Validate(true); err == nil {
		t.Error("placeholder key should fail validation")
	}

	cfg.API.Key = "sk-real-key"
	if err := cfg.Validate(false); err != nil {
		t.Errorf("Validate(false) failed: %v", err)
	}
	if err := cfg.Validate(true); err == nil {
		t.Error("missing scout key should fail when scouting is required")
	} else if !strings.Contains(err.Error(), "scout_api") {
		t.Errorf("error should name the missing key: %v", err)
	}

	cfg.ScoutAPI.Key = "sk-scout-key"
	if err := cfg.Validate(true); err != nil {
		t.Errorf("Validate(true) failed: %v", err)
	}

	cfg.Translation.ChunkSizeChars = 0
	if err := cfg.Validate(false); err == nil {
		t.Error("zero chunk size should fail validation")
	}
}

func TestNamesDirOverride(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	cfg.Paths.NamesDirectory = "/tmp/custom-names"
	dir, err := cfg.NamesDir()
	if err != nil {
		t.Fatalf("NamesDir() failed: %v", err)
	}
	if dir != "/tmp/custom-names" {
		t.Errorf("NamesDir() = %q", dir)
	}
}
