package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"folio/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTimeout, "extraction", "textlayer", "dump failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extraction", "textlayer", "dump failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "pipeline", "dispatch", "queue hiccup", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "a", "b", "c", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "a", "b", "c", nil), true},
		{"rate limited", services.Wrap(services.ErrRateLimited, "a", "b", "c", nil), true},
		{"unavailable", services.Wrap(services.ErrUnavailable, "a", "b", "c", nil), true},
		{"permanent", services.Wrap(services.ErrPermanent, "a", "b", "c", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "a", "b", "c", nil), false},
		{"bare deadline", context.DeadlineExceeded, true},
		{"untagged", errors.New("mystery"), false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJobID(ctx, "job-9")
	ctx = services.WithIdentity(ctx, "doi:10.1/xyz")

	if v, ok := services.RunIDFromContext(ctx); !ok || v != "run-1" {
		t.Fatalf("run id round trip failed: %q %v", v, ok)
	}
	if v, ok := services.JobIDFromContext(ctx); !ok || v != "job-9" {
		t.Fatalf("job id round trip failed: %q %v", v, ok)
	}
	if v, ok := services.IdentityFromContext(ctx); !ok || v != "doi:10.1/xyz" {
		t.Fatalf("identity round trip failed: %q %v", v, ok)
	}
	if _, ok := services.RunIDFromContext(context.Background()); ok {
		t.Fatal("expected missing run id on background context")
	}
}
