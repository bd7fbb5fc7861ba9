package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"folio/internal/document"
	"folio/internal/services"
)

// MLServiceBackend sends the staged payload to an external ML conversion
// service. Slow and occasionally flaky, but the highest-fidelity option for
// scanned or layout-heavy documents.
type MLServiceBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

type mlConvertResponse struct {
	Content string `json:"content"`
	Pages   int    `json:"pages"`
}

// NewMLServiceBackend constructs the backend. timeoutSeconds bounds each
// conversion request in addition to the caller's context deadline.
func NewMLServiceBackend(baseURL, apiKey string, timeoutSeconds int) (*MLServiceBackend, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ml service url required")
	}
	timeout := time.Duration(timeoutSeconds) * time.Second
	return &MLServiceBackend{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}, nil
}

func (b *MLServiceBackend) Name() string { return "mlservice" }

// Attempt uploads the payload for conversion and returns the service's
// extracted content.
func (b *MLServiceBackend) Attempt(ctx context.Context, doc document.Document) (Draft, error) {
	if strings.TrimSpace(doc.ContentPath) == "" {
		return Draft{}, services.Wrap(services.ErrValidation, "extraction", b.Name(), "document has no staged payload", nil)
	}

	payload, err := os.ReadFile(doc.ContentPath)
	if err != nil {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "read staged payload", err)
	}

	runCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, b.baseURL+"/v1/convert", bytes.NewReader(payload))
	if err != nil {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "build request", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Draft{}, services.Wrap(services.ErrTimeout, "extraction", b.Name(), "conversion exceeded deadline", err)
		}
		return Draft{}, services.Wrap(services.ErrUnavailable, "extraction", b.Name(), "conversion service unreachable", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(b.Name(), resp.StatusCode); err != nil {
		return Draft{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return Draft{}, services.Wrap(services.ErrTransient, "extraction", b.Name(), "read conversion response", err)
	}

	var converted mlConvertResponse
	if err := json.Unmarshal(body, &converted); err != nil {
		return Draft{}, services.Wrap(services.ErrTransient, "extraction", b.Name(), "decode conversion response", err)
	}
	if strings.TrimSpace(converted.Content) == "" {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "conversion produced no content", nil)
	}
	return Draft{Content: converted.Content}, nil
}

func classifyStatus(backend string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "extraction", backend, "conversion service throttled request", nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrPermanent, "extraction", backend, fmt.Sprintf("authentication rejected (status %d)", status), nil)
	case status >= 500:
		return services.Wrap(services.ErrTransient, "extraction", backend, fmt.Sprintf("conversion service error (status %d)", status), nil)
	default:
		return services.Wrap(services.ErrPermanent, "extraction", backend, fmt.Sprintf("conversion rejected (status %d)", status), nil)
	}
}
