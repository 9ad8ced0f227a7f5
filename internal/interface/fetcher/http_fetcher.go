package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fare-crawler-service/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// HTTPFetcher retrieves results pages with a plain GET.
// It suits mirrors or test fixtures that serve pre-rendered markup.
type HTTPFetcher struct {
	urlTemplate string
	userAgent   string
	client      *http.Client
	logger      logger.Logger
}

// NewHTTPFetcher creates a new HTTP page fetcher
func NewHTTPFetcher(urlTemplate, userAgent string, timeout time.Duration, log logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		urlTemplate: urlTemplate,
		userAgent:   userAgent,
		client:      &http.Client{Timeout: timeout},
		logger:      log.With("component", "http_fetcher"),
	}
}

// Fetch downloads and parses the search page
func (f *HTTPFetcher) Fetch(ctx context.Context, origin, destination, date string) (*goquery.Document, error) {
	pageURL := BuildSearchURL(f.urlTemplate, origin, destination, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	f.logger.Debug("Fetched page", "url", pageURL, "status", resp.StatusCode)
	return doc, nil
}

// Close drops idle keep-alive connections
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
