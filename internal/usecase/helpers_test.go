package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test", prometheus.NewRegistry())
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// listing wraps the inner markup in a flight-box and returns that node
func listing(t *testing.T, inner string) *goquery.Selection {
	t.Helper()
	doc := parseDoc(t, `<html><body><div class="flight-box">`+inner+`</div></body></html>`)
	return doc.Find("div.flight-box").First()
}

func resultsPage(boxes ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="flight-box"><div class="promo">今日特价</div></div>`)
	for _, box := range boxes {
		b.WriteString(`<div class="flight-box">` + box + `</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func flightBox(airline, legs, price string) string {
	var b strings.Builder
	b.WriteString(`<div class="airline-name">` + airline + `</div>`)
	for _, leg := range strings.Split(legs, ",") {
		b.WriteString(`<span class="plane-No">` + leg + ` 空客320(中)</span>`)
	}
	b.WriteString(`<div class="depart-box"><div class="time">08:00</div><div class="airport">首都国际机场T3</div></div>`)
	b.WriteString(`<div class="arrive-box"><div class="time">10:15</div><div class="airport">虹桥国际机场T2</div></div>`)
	b.WriteString(`<span class="price">` + price + `</span>`)
	return b.String()
}

type fakeRoutes struct {
	routes []entity.Route
	err    error
	calls  int
}

func (f *fakeRoutes) LoadRoutes(ctx context.Context) ([]entity.Route, error) {
	f.calls++
	return f.routes, f.err
}

type fetchCall struct {
	Origin, Destination, Date string
}

type fakeFetcher struct {
	mu    sync.Mutex
	page  func(origin, destination, date string) (string, error)
	calls []fetchCall
}

func (f *fakeFetcher) Fetch(ctx context.Context, origin, destination, date string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{origin, destination, date})
	f.mu.Unlock()

	html, err := f.page(origin, destination, date)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

type fakeStore struct {
	mu       sync.Mutex
	readyErr error
	saveErr  func(records []entity.FlightRecord) error
	attempts int
	saved    [][]entity.FlightRecord
}

func (f *fakeStore) Ready(ctx context.Context) error {
	return f.readyErr
}

func (f *fakeStore) SaveBatch(ctx context.Context, records []entity.FlightRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	if f.saveErr != nil {
		if err := f.saveErr(records); err != nil {
			return err
		}
	}
	f.saved = append(f.saved, records)
	return nil
}

type fakePublisher struct {
	published [][]entity.FlightRecord
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, records []entity.FlightRecord) error {
	f.published = append(f.published, records)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

type fakeRunRepo struct {
	mu      sync.Mutex
	created []entity.CrawlRun
	updated []entity.CrawlRun
}

func (f *fakeRunRepo) Create(ctx context.Context, run *entity.CrawlRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *run)
	return nil
}

func (f *fakeRunRepo) Update(ctx context.Context, run *entity.CrawlRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *run)
	return nil
}

func (f *fakeRunRepo) Latest(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) lastUpdate() entity.CrawlRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated[len(f.updated)-1]
}

type fakeLock struct {
	held     bool
	acquires atomic.Int32
	releases atomic.Int32
}

func (f *fakeLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	f.acquires.Add(1)
	return !f.held, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases.Add(1)
	return nil
}

type fakeCloser struct {
	closes atomic.Int32
}

func (f *fakeCloser) Close() error {
	f.closes.Add(1)
	return nil
}
