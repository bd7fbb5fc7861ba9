// Package discovery lists candidate documents from an arXiv-style HTML
// listing source.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"folio/internal/config"
	"folio/internal/document"
	"folio/internal/logging"
	"folio/internal/services"
)

// Client crawls category listing pages and extracts candidate documents.
type Client struct {
	client   *http.Client
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

// NewClient wires a listing client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Discovery.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	pageSize := cfg.Discovery.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimSuffix(cfg.Discovery.BaseURL, "/"),
		pageSize: pageSize,
		logger:   logging.NewComponentLogger(logger, "discovery"),
	}
}

// List walks the recent-listing pages for each category and returns the
// deduplicated candidates.
func (c *Client) List(ctx context.Context, categories []string) ([]document.Document, error) {
	if len(categories) == 0 {
		return nil, services.Wrap(services.ErrValidation, "discovery", "list", "no categories configured", nil)
	}

	results := make([]document.Document, 0)
	seen := map[string]struct{}{}

	for _, category := range categories {
		skip := 0
		for {
			pageURL, err := c.buildPageURL(category, skip)
			if err != nil {
				return nil, err
			}

			page, err := c.fetchPage(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", category, err)
			}

			docs, processed := c.extractDocuments(page)
			for _, doc := range docs {
				key := doc.IdentityKey()
				if key == "" {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				results = append(results, doc)
			}

			if processed < c.pageSize {
				break
			}
			skip += c.pageSize
		}
	}

	c.logger.Info("discovery finished",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.Int("category_count", len(categories)),
		logging.Int("document_count", len(results)),
	)
	return results, nil
}

func (c *Client) buildPageURL(category string, skip int) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/list/%s/recent", c.baseURL, category))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "discovery", "list", "invalid listing url for "+category, err)
	}
	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(c.pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "discovery", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", "folio/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "discovery", "fetch", pageURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, "discovery", "fetch", fmt.Sprintf("%s returned %s", pageURL, resp.Status), nil)
	case resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "discovery", "fetch", fmt.Sprintf("%s returned %s", pageURL, resp.Status), nil)
	default:
		return nil, services.Wrap(services.ErrPermanent, "discovery", "fetch", fmt.Sprintf("%s returned %s", pageURL, resp.Status), nil)
	}

	page, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "parse", pageURL, err)
	}
	return page, nil
}

// extractDocuments parses one listing page. Listings pair a <dt> carrying the
// identifier links with a <dd> carrying title and abstract.
func (c *Client) extractDocuments(page *goquery.Document) ([]document.Document, int) {
	var (
		docs      []document.Document
		processed int
	)

	page.Find("dl > dt").Each(func(i int, dt *goquery.Selection) {
		dd := dt.Next()
		processed++

		doc, ok := c.parseEntry(dt, dd)
		if !ok {
			return
		}
		docs = append(docs, doc)
	})

	return docs, processed
}

func (c *Client) parseEntry(dt, dd *goquery.Selection) (document.Document, bool) {
	abs := dt.Find(`a[href*="/abs/"]`).First()
	sourceID := strings.TrimSpace(abs.Text())
	if href, exists := abs.Attr("href"); exists && sourceID == "" {
		sourceID = strings.TrimPrefix(href, "/abs/")
	}
	sourceID = strings.TrimPrefix(sourceID, "arXiv:")
	if sourceID == "" {
		return document.Document{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := strings.TrimSpace(dd.Find("p.mathjax").First().Text())
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(i int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	doi := strings.TrimSpace(dd.Find(".list-doi a").First().Text())

	contentURL := fmt.Sprintf("%s/pdf/%s", c.baseURL, sourceID)
	if href, exists := dt.Find(`a[href*="/pdf/"]`).First().Attr("href"); exists {
		if strings.HasPrefix(href, "http") {
			contentURL = href
		} else {
			contentURL = c.baseURL + href
		}
	}

	return document.Document{
		DOI:        doi,
		SourceID:   sourceID,
		Title:      title,
		Abstract:   abstract,
		Authors:    authors,
		ContentURL: contentURL,
	}, true
}
