package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.K != 10 || cfg.Model.Iterations != 200 {
		t.Errorf("model defaults = (%d, %d), want (10, 200)", cfg.Model.K, cfg.Model.Iterations)
	}
	if cfg.Vocabulary.Abs != 5 || cfg.Vocabulary.Fallback != 100 {
		t.Errorf("vocabulary defaults = (%d, %d), want (5, 100)", cfg.Vocabulary.Abs, cfg.Vocabulary.Fallback)
	}
	if cfg.Update.Chunks != "month" || cfg.Update.Memory != "month" {
		t.Errorf("update defaults = (%q, %q), want monthly", cfg.Update.Chunks, cfg.Update.Memory)
	}
	if cfg.Store.Type != "none" || cfg.Snapshot.Path != "model.json" {
		t.Errorf("persistence defaults = (%q, %q)", cfg.Store.Type, cfg.Snapshot.Path)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "model:\n  k: 25\nupdate:\n  chunks: quarter\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.K != 25 {
		t.Errorf("K = %d, want 25", cfg.Model.K)
	}
	if cfg.Update.Chunks != "quarter" {
		t.Errorf("Chunks = %q, want quarter", cfg.Update.Chunks)
	}
	if cfg.Update.Memory != "month" {
		t.Errorf("Memory = %q, want defaulted month", cfg.Update.Memory)
	}
	if cfg.Model.Iterations != 200 {
		t.Errorf("Iterations = %d, want defaulted 200", cfg.Model.Iterations)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Model.K = 7
	cfg.Vocabulary.Rel = 0.001
	cfg.Update.ComputeTopics = true
	cfg.Store.Type = "sqlite"
	cfg.Store.Path = "audit.db"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
