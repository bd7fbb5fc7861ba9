package extraction_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"folio/internal/document"
	"folio/internal/extraction"
	"folio/internal/services"
)

type fakeExecutor struct {
	output []byte
	err    error
	binary string
	args   []string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func stagedDoc(t *testing.T, payload string) document.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("stage payload: %v", err)
	}
	return document.Document{Title: "t", ContentPath: path}
}

func TestTextLayerReturnsStdout(t *testing.T) {
	execStub := &fakeExecutor{output: []byte("extracted body text\n")}
	backend, err := extraction.NewTextLayerBackend("pdftotext", 5, extraction.WithExecutor(execStub))
	if err != nil {
		t.Fatalf("NewTextLayerBackend: %v", err)
	}

	draft, err := backend.Attempt(context.Background(), stagedDoc(t, "%PDF"))
	if err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}
	if draft.Content != "extracted body text" {
		t.Fatalf("unexpected draft content %q", draft.Content)
	}
	if execStub.binary != "pdftotext" {
		t.Fatalf("unexpected binary %q", execStub.binary)
	}
	if len(execStub.args) != 3 || execStub.args[0] != "-layout" || execStub.args[2] != "-" {
		t.Fatalf("unexpected args %v", execStub.args)
	}
}

func TestTextLayerEmptyOutputIsPermanent(t *testing.T) {
	backend, err := extraction.NewTextLayerBackend("pdftotext", 5, extraction.WithExecutor(&fakeExecutor{output: []byte("  \n")}))
	if err != nil {
		t.Fatalf("NewTextLayerBackend: %v", err)
	}
	_, err = backend.Attempt(context.Background(), stagedDoc(t, "%PDF"))
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for empty text layer, got %v", err)
	}
}

func TestTextLayerMissingToolIsUnavailable(t *testing.T) {
	backend, err := extraction.NewTextLayerBackend("pdftotext", 5, extraction.WithExecutor(&fakeExecutor{err: exec.ErrNotFound}))
	if err != nil {
		t.Fatalf("NewTextLayerBackend: %v", err)
	}
	_, err = backend.Attempt(context.Background(), stagedDoc(t, "%PDF"))
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error for missing tool, got %v", err)
	}
}

func TestTextLayerMissingPayloadIsValidation(t *testing.T) {
	backend, err := extraction.NewTextLayerBackend("pdftotext", 5)
	if err != nil {
		t.Fatalf("NewTextLayerBackend: %v", err)
	}
	_, err = backend.Attempt(context.Background(), document.Document{Title: "t"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without staged payload, got %v", err)
	}
}

func TestTextLayerRequiresBinary(t *testing.T) {
	if _, err := extraction.NewTextLayerBackend("  ", 5); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestMLServiceSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content":"converted markdown","pages":12}`))
	}))
	defer server.Close()

	backend, err := extraction.NewMLServiceBackend(server.URL, "secret", 5)
	if err != nil {
		t.Fatalf("NewMLServiceBackend: %v", err)
	}
	draft, err := backend.Attempt(context.Background(), stagedDoc(t, "%PDF payload"))
	if err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}
	if draft.Content != "converted markdown" {
		t.Fatalf("unexpected content %q", draft.Content)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestMLServiceStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusTooManyRequests, services.ErrRateLimited},
		{http.StatusUnauthorized, services.ErrPermanent},
		{http.StatusForbidden, services.ErrPermanent},
		{http.StatusInternalServerError, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
		{http.StatusUnprocessableEntity, services.ErrPermanent},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		backend, err := extraction.NewMLServiceBackend(server.URL, "", 5)
		if err != nil {
			t.Fatalf("NewMLServiceBackend: %v", err)
		}
		_, err = backend.Attempt(context.Background(), stagedDoc(t, "%PDF"))
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected marker %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestMLServiceUnreachable(t *testing.T) {
	backend, err := extraction.NewMLServiceBackend("http://127.0.0.1:1", "", 1)
	if err != nil {
		t.Fatalf("NewMLServiceBackend: %v", err)
	}
	_, err = backend.Attempt(context.Background(), stagedDoc(t, "%PDF"))
	if !errors.Is(err, services.ErrUnavailable) && !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected unavailable or timeout, got %v", err)
	}
}

func TestRawTextSalvagesPrintableRuns(t *testing.T) {
	doc := stagedDoc(t, "\x00\x01Introduction to the method\x02\xff more text here\x00ab")
	backend := extraction.NewRawTextBackend()
	draft, err := backend.Attempt(context.Background(), doc)
	if err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}
	want := "Introduction to the method  more text here"
	if draft.Content != want {
		t.Fatalf("unexpected salvage %q, want %q", draft.Content, want)
	}
}

func TestRawTextBinaryOnlyPayloadFails(t *testing.T) {
	doc := stagedDoc(t, "\x00\x01\x02\x03ab\x00")
	backend := extraction.NewRawTextBackend()
	if _, err := backend.Attempt(context.Background(), doc); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
