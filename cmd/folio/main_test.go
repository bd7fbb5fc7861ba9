package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
workspace_dir = %q
log_dir = %q
staging_dir = %q
`, base, filepath.Join(base, "logs"), filepath.Join(base, "staging"))

	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigNewCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "new", "--path", target)
	if err != nil {
		t.Fatalf("config new: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCLI(t, "config", "new", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := runCLI(t, "config", "new", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config new --overwrite: %v", err)
	}
}

func TestConfigValidateMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	out, err := runCLI(t, "config", "validate", "--path", missing)
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "defaults are valid") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigShowCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "backend_order") || !strings.Contains(out, "textlayer") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRegistryStatsEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "registry", "stats")
	if err != nil {
		t.Fatalf("registry stats: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Total") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRegistryListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "registry", "list")
	if err != nil {
		t.Fatalf("registry list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Registry is empty.") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRegistryListRejectsUnknownStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, "--config", configPath, "registry", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestLedgerRecentEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "ledger", "recent")
	if err != nil {
		t.Fatalf("ledger recent: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ledger is empty.") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("a very long title that should be cut", 10); got != "a very ..." {
		t.Fatalf("got %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "folio ") {
		t.Fatalf("unexpected version output: %q", out)
	}
}
