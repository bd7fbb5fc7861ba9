package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("expected default workers 4, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Extraction.MinQualityScore != 0.5 {
		t.Fatalf("expected default quality floor 0.5, got %v", cfg.Extraction.MinQualityScore)
	}
	if got := cfg.Extraction.BackendOrder; len(got) != 3 || got[0] != "textlayer" {
		t.Fatalf("unexpected default backend order: %v", got)
	}
}

func TestLoadDerivesWorkspacePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.toml")
	body := `
[paths]
workspace_dir = "` + dir + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if want := filepath.Join(dir, "registry.json"); cfg.Registry.Path != want {
		t.Fatalf("expected derived registry path %q, got %q", want, cfg.Registry.Path)
	}
	if want := filepath.Join(dir, "ledger.db"); cfg.Ledger.Path != want {
		t.Fatalf("expected derived ledger path %q, got %q", want, cfg.Ledger.Path)
	}
	if cfg.RegistryLockPath() != cfg.Registry.Path+".lock" {
		t.Fatalf("unexpected lock path %q", cfg.RegistryLockPath())
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Registry.Path = filepath.Join(cfg.Paths.WorkspaceDir, "registry.json")
	cfg.Ledger.Path = filepath.Join(cfg.Paths.WorkspaceDir, "ledger.db")
	cfg.Extraction.BackendOrder = []string{"textlayer", "carrier-pigeon"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("expected backend name in error, got %v", err)
	}
}

func TestValidateRejectsBadQualityFloor(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Registry.Path = filepath.Join(cfg.Paths.WorkspaceDir, "registry.json")
	cfg.Ledger.Path = filepath.Join(cfg.Paths.WorkspaceDir, "ledger.db")
	cfg.Extraction.MinQualityScore = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for quality floor above 1")
	}
}

func TestValidateRejectsBackoffCeilingBelowBase(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Registry.Path = filepath.Join(cfg.Paths.WorkspaceDir, "registry.json")
	cfg.Ledger.Path = filepath.Join(cfg.Paths.WorkspaceDir, "ledger.db")
	cfg.Pipeline.BackoffBaseSeconds = 30
	cfg.Pipeline.BackoffCeilingSeconds = 5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for backoff ceiling below base")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[extraction]") {
		t.Fatal("expected extraction section in sample config")
	}
}
