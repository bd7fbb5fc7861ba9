package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: flaky networks, busy
	// services, anything that may succeed on a later attempt.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks deadline overruns at a backend or service boundary.
	ErrTimeout = errors.New("timeout")
	// ErrRateLimited marks explicit throttling responses from a service.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable marks a dependency that cannot be reached at all.
	ErrUnavailable = errors.New("unavailable")
	// ErrPermanent marks failures that will not succeed on retry, such as
	// malformed input or rejected credentials.
	ErrPermanent = errors.New("permanent failure")
	// ErrValidation marks locally detected bad input.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the scheduler should retry after this error.
// Only transient classes qualify; permanent and validation failures never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrValidation) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	// Deadline overruns surface as context errors when a backend honors its
	// deadline without wrapping.
	return errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
