package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"folio/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Workspace directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}

	missing := CheckDirectoryAccess("Workspace directory", filepath.Join(dir, "absent"))
	if missing.Passed {
		t.Fatalf("expected failure for missing directory, got %+v", missing)
	}

	file := filepath.Join(dir, "file")
	testsupport.WriteFile(t, file, []byte("x"))
	notDir := CheckDirectoryAccess("Workspace directory", file)
	if notDir.Passed {
		t.Fatalf("expected failure for non-directory, got %+v", notDir)
	}
}

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-tool")
	testsupport.WriteFile(t, bin, []byte("#!/bin/sh\n"))
	if err := os.Chmod(bin, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Setenv("PATH", dir)

	if result := CheckBinary("Text layer tool", "fake-tool"); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := CheckBinary("Text layer tool", "no-such-tool"); result.Passed {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result := CheckBinary("Text layer tool", " "); result.Passed {
		t.Fatalf("expected failure for empty binary, got %+v", result)
	}
}

func TestCheckMLService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	if result := CheckMLService(ctx, server.URL, "good-key"); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := CheckMLService(ctx, server.URL, "bad-key"); result.Passed {
		t.Fatalf("expected auth failure, got %+v", result)
	}
	if result := CheckMLService(ctx, "", ""); result.Passed {
		t.Fatalf("expected failure for missing url, got %+v", result)
	}
}

func TestRunAllSkipsDisabledBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StagingDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg.Extraction.BackendOrder = []string{"rawtext"}

	results := RunAll(context.Background(), cfg)
	for _, result := range results {
		if result.Name == "Text layer tool" || result.Name == "ML conversion service" {
			t.Fatalf("unexpected check %q for disabled backend", result.Name)
		}
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v, want the three directory checks", results)
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed([]Result{{Passed: true}, {Passed: true}}) {
		t.Fatal("expected AllPassed true")
	}
	if AllPassed([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("expected AllPassed false")
	}
}
