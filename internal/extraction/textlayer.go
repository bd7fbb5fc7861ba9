package extraction

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"folio/internal/document"
	"folio/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, errors.New(msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// TextLayerOption configures the text layer backend.
type TextLayerOption func(*TextLayerBackend)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) TextLayerOption {
	return func(b *TextLayerBackend) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// TextLayerBackend dumps a PDF's embedded text layer via an external tool.
// Fast and dependency-light, but useless on scanned documents and prone to
// garbled output on exotic encodings. Running the tool in a child process
// keeps any crash there out of this process.
type TextLayerBackend struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewTextLayerBackend constructs the backend. timeoutSeconds bounds each
// invocation in addition to the caller's context deadline.
func NewTextLayerBackend(binary string, timeoutSeconds int, opts ...TextLayerOption) (*TextLayerBackend, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("text layer binary required")
	}
	b := &TextLayerBackend{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *TextLayerBackend) Name() string { return "textlayer" }

// Attempt runs the dump tool against the staged payload and returns its
// stdout as the draft content.
func (b *TextLayerBackend) Attempt(ctx context.Context, doc document.Document) (Draft, error) {
	if strings.TrimSpace(doc.ContentPath) == "" {
		return Draft{}, services.Wrap(services.ErrValidation, "extraction", b.Name(), "document has no staged payload", nil)
	}

	runCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	out, err := b.exec.Run(runCtx, b.binary, []string{"-layout", doc.ContentPath, "-"})
	if err != nil {
		return Draft{}, b.classify(runCtx, err)
	}

	content := strings.TrimSpace(string(out))
	if content == "" {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "document has no text layer", nil)
	}
	return Draft{Content: content}, nil
}

func (b *TextLayerBackend) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "extraction", b.Name(), "text dump exceeded deadline", err)
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrUnavailable, "extraction", b.Name(), "text dump tool not installed", err)
	default:
		return services.Wrap(services.ErrPermanent, "extraction", b.Name(), "text dump failed", err)
	}
}
