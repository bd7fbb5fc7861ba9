package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/document"
	"folio/internal/extraction"
	"folio/internal/logging"
	"folio/internal/services"
)

// maxPayloadBytes bounds a fetched document payload.
const maxPayloadBytes = 256 << 20

// DocumentProcessor is the production Processor: it stages the document
// payload locally when needed, then runs the extraction fallback chain.
type DocumentProcessor struct {
	orchestrator *extraction.Orchestrator
	client       *http.Client
	stagingDir   string
	logger       *slog.Logger
}

// NewDocumentProcessor wires the processor from configuration. The HTTP client
// carries no global timeout; per-attempt deadlines come from the job context.
func NewDocumentProcessor(cfg *config.Config, orchestrator *extraction.Orchestrator, logger *slog.Logger) *DocumentProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DocumentProcessor{
		orchestrator: orchestrator,
		client:       &http.Client{},
		stagingDir:   cfg.Paths.StagingDir,
		logger:       logging.NewComponentLogger(logger, "processor"),
	}
}

// Process stages the payload and extracts it. Fetch failures and retryable
// extraction exhaustion surface as classified errors so the scheduler can
// distinguish retryable trouble from permanent rejection.
func (p *DocumentProcessor) Process(ctx context.Context, doc document.Document) (extraction.Outcome, error) {
	if strings.TrimSpace(doc.ContentPath) == "" {
		if strings.TrimSpace(doc.ContentURL) == "" {
			return extraction.Outcome{}, services.Wrap(services.ErrValidation, "processor", "stage", "document has neither content path nor content URL", nil)
		}
		path, err := p.fetch(ctx, doc)
		if err != nil {
			return extraction.Outcome{}, err
		}
		doc.ContentPath = path
		defer os.Remove(path)
	}

	return p.orchestrator.Extract(ctx, doc)
}

func (p *DocumentProcessor) fetch(ctx context.Context, doc document.Document) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.ContentURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "processor", "fetch", fmt.Sprintf("build request for %s", doc.ContentURL), err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrTimeout, "processor", "fetch", doc.ContentURL, ctx.Err())
		}
		return "", services.Wrap(services.ErrUnavailable, "processor", "fetch", doc.ContentURL, err)
	}
	defer resp.Body.Close()

	if err := classifyFetchStatus(resp.StatusCode, doc.ContentURL); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.stagingDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPermanent, "processor", "fetch", "create staging directory", err)
	}

	path := filepath.Join(p.stagingDir, uuid.NewString()+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "processor", "fetch", "create staging file", err)
	}

	written, copyErr := io.Copy(out, io.LimitReader(resp.Body, maxPayloadBytes))
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "processor", "fetch", "copy payload", copyErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "processor", "fetch", "flush staging file", closeErr)
	}
	if written == 0 {
		os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "processor", "fetch", "empty payload from "+doc.ContentURL, nil)
	}

	p.logger.Debug("payload staged",
		logging.String("url", doc.ContentURL),
		logging.String("path", path),
		logging.Int("bytes", int(written)),
	)
	return path, nil
}

func classifyFetchStatus(status int, url string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "processor", "fetch", fmt.Sprintf("%s returned %d", url, status), nil)
	case status == http.StatusRequestTimeout || status >= 500:
		return services.Wrap(services.ErrTransient, "processor", "fetch", fmt.Sprintf("%s returned %d", url, status), nil)
	default:
		return services.Wrap(services.ErrPermanent, "processor", "fetch", fmt.Sprintf("%s returned %d", url, status), nil)
	}
}
