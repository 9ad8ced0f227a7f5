package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fare-crawler-service/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const scrollToBottom = `window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`

// ChromeOptions configures the headless browser fetcher
type ChromeOptions struct {
	URLTemplate    string
	Headless       bool
	UserAgent      string
	Timeout        time.Duration
	SettleDelay    time.Duration
	ScrollCount    int
	ScrollInterval time.Duration
}

// ChromeFetcher renders results pages in a shared headless Chrome.
// The browser starts on the first Fetch and Close shuts it down.
type ChromeFetcher struct {
	opts   ChromeOptions
	logger logger.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromeFetcher creates a new browser-backed page fetcher
func NewChromeFetcher(opts ChromeOptions, log logger.Logger) *ChromeFetcher {
	return &ChromeFetcher{
		opts:   opts,
		logger: log.With("component", "chrome_fetcher"),
	}
}

func (f *ChromeFetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil {
		return f.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if f.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Launch the browser now so start-up failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	f.browserCtx = browserCtx
	f.cancelAlloc = cancelAlloc
	f.cancelBrowser = cancelBrowser
	f.logger.Info("Browser started", "headless", f.opts.Headless)
	return browserCtx, nil
}

// Fetch navigates to the search page, lets it settle and scrolls to trigger lazy loading
func (f *ChromeFetcher) Fetch(ctx context.Context, origin, destination, date string) (*goquery.Document, error) {
	browserCtx, err := f.browser()
	if err != nil {
		return nil, err
	}

	pageURL := BuildSearchURL(f.opts.URLTemplate, origin, destination, date)

	tab, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tab, f.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(f.opts.SettleDelay),
	); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}

	for i := 0; i < f.opts.ScrollCount; i++ {
		var height float64
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(scrollToBottom, &height)); err != nil {
			f.logger.Warn("Scroll failed", "url", pageURL, "attempt", i+1, "error", err)
		} else {
			f.logger.Debug("Scrolled to bottom", "url", pageURL, "attempt", i+1, "height", height)
		}
		if err := chromedp.Run(tabCtx, chromedp.Sleep(f.opts.ScrollInterval)); err != nil {
			return nil, fmt.Errorf("interrupted while loading %s: %w", pageURL, err)
		}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page source: %w", err)
	}
	return doc, nil
}

// Close shuts the browser down; the next Fetch starts a new one
func (f *ChromeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx == nil {
		return nil
	}
	f.cancelBrowser()
	f.cancelAlloc()
	f.browserCtx = nil
	f.logger.Info("Browser closed")
	return nil
}
