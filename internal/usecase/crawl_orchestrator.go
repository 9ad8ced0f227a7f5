package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"
	"fare-crawler-service/pkg/logger"
	"fare-crawler-service/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// OrchestratorOptions tunes a crawl invocation
type OrchestratorOptions struct {
	Retry            RetryPolicy
	TargetCarriers   []string
	DateWindowDays   int
	FetchMinInterval time.Duration
	ListingSelector  string
}

// RunSummary describes the last finished or aborted crawl invocation
type RunSummary struct {
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	Dates            []string  `json:"dates"`
	Routes           int       `json:"routes"`
	Pairs            int       `json:"pairs"`
	PairsFailed      int       `json:"pairsFailed"`
	PairsEmpty       int       `json:"pairsEmpty"`
	RecordsPersisted int       `json:"recordsPersisted"`
	Aborted          bool      `json:"aborted"`
}

// CrawlOrchestrator walks every route/date pair and persists the target-carrier flights
type CrawlOrchestrator struct {
	routes     repository.RouteRepository
	fetcher    repository.PageFetcher
	store      repository.FlightRecordRepository
	publisher  repository.FlightPublisher
	extractor  *RecordExtractor
	classifier *ItineraryClassifier
	filter     *CarrierFilter
	opts       OrchestratorOptions
	limiter    *rate.Limiter
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	logger     logger.Logger
	metrics    *metrics.Metrics

	mu   sync.Mutex
	last RunSummary
}

// NewCrawlOrchestrator creates a new crawl orchestrator
func NewCrawlOrchestrator(
	routes repository.RouteRepository,
	fetcher repository.PageFetcher,
	store repository.FlightRecordRepository,
	publisher repository.FlightPublisher,
	extractor *RecordExtractor,
	classifier *ItineraryClassifier,
	filter *CarrierFilter,
	opts OrchestratorOptions,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *CrawlOrchestrator {
	limit := rate.Inf
	if opts.FetchMinInterval > 0 {
		limit = rate.Every(opts.FetchMinInterval)
	}
	if opts.ListingSelector == "" {
		opts.ListingSelector = entity.DefaultListingSelectors().Listing
	}

	return &CrawlOrchestrator{
		routes:     routes,
		fetcher:    fetcher,
		store:      store,
		publisher:  publisher,
		extractor:  extractor,
		classifier: classifier,
		filter:     filter,
		opts:       opts,
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
		sleep:      sleepContext,
		logger:     logger.With("component", "crawl_orchestrator"),
		metrics:    metrics,
	}
}

// Run crawls every date from tomorrow onwards against every route, dates outermost.
// Only setup failures are returned; a failed pair is logged and the loop moves on.
// Cancelling ctx stops the loop before the next pair.
func (o *CrawlOrchestrator) Run(ctx context.Context) error {
	summary := RunSummary{StartedAt: o.now()}
	defer func() {
		summary.FinishedAt = o.now()
		o.mu.Lock()
		o.last = summary
		o.mu.Unlock()
	}()

	if err := o.store.Ready(ctx); err != nil {
		summary.Aborted = true
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	summary.Dates = SearchDates(summary.StartedAt, o.opts.DateWindowDays)

	routes, err := o.routes.LoadRoutes(ctx)
	if err != nil {
		summary.Aborted = true
		return fmt.Errorf("%w: %w", ErrRouteSource, err)
	}
	summary.Routes = len(routes)

	o.logger.Info("Starting crawl", "routes", len(routes), "dates", summary.Dates)

	for _, date := range summary.Dates {
		for _, route := range routes {
			if err := ctx.Err(); err != nil {
				summary.Aborted = true
				o.logger.Warn("Crawl stopped before finishing", "pairs", summary.Pairs, "error", err)
				return err
			}

			summary.Pairs++
			records, err := o.RunRouteDate(ctx, route.Origin, route.Destination, date)
			switch {
			case err != nil:
				summary.PairsFailed++
				o.metrics.PairsTotal.WithLabelValues("failed").Inc()
				o.logger.Error("Route/date pair failed", "error", err)
			case len(records) == 0:
				summary.PairsEmpty++
				o.metrics.PairsTotal.WithLabelValues("empty").Inc()
			default:
				summary.RecordsPersisted += len(records)
				o.metrics.PairsTotal.WithLabelValues("persisted").Inc()
			}
		}
	}

	o.logger.Info("Crawl finished",
		"pairs", summary.Pairs,
		"failed", summary.PairsFailed,
		"empty", summary.PairsEmpty,
		"persisted", summary.RecordsPersisted)

	return nil
}

// RunRouteDate fetches, extracts, filters and persists one search. A missing page
// or an empty listing set yields no records and no error; only exhausted
// persistence retries are reported as a *PairError.
func (o *CrawlOrchestrator) RunRouteDate(ctx context.Context, origin, destination, date string) ([]entity.FlightRecord, error) {
	log := o.logger.With("origin", origin, "destination", destination, "date", date)

	// Fetching
	if err := o.limiter.Wait(ctx); err != nil {
		log.Warn("Fetch skipped", "error", err)
		return nil, nil
	}
	doc, err := o.fetcher.Fetch(ctx, origin, destination, date)
	if err != nil {
		log.Warn("Failed to fetch results page", "error", err)
		return nil, nil
	}
	if doc == nil {
		log.Warn("Results page unavailable")
		return nil, nil
	}

	listings := doc.Find(o.opts.ListingSelector)
	if listings.Length() == 0 {
		log.Warn("No flight listings found")
		return nil, nil
	}

	// Extracting; the first node is a header, not an itinerary
	records := make([]entity.FlightRecord, 0, listings.Length()-1)
	listings.Slice(1, goquery.ToEnd).Each(func(_ int, listing *goquery.Selection) {
		record := o.extractor.Extract(listing, origin, destination, date)
		records = append(records, o.classifier.ClassifyAndName(listing, record))
	})
	o.metrics.ListingsExtracted.Add(float64(len(records)))

	// Filtering
	filtered := o.filter.Filter(records, o.opts.TargetCarriers)
	if len(filtered) == 0 {
		log.Warn("No target-carrier flights found", "extracted", len(records))
		return filtered, nil
	}

	// Persisting
	err = o.opts.Retry.Do(ctx, o.sleep,
		func(attempt int, delay time.Duration, err error) {
			o.metrics.PersistRetries.Inc()
			log.Warn("Failed to save flight records, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err)
		},
		func(ctx context.Context) error {
			return o.store.SaveBatch(ctx, filtered)
		},
	)
	if err != nil {
		return nil, &PairError{Origin: origin, Destination: destination, Date: date, Err: err}
	}
	o.metrics.RecordsPersisted.Add(float64(len(filtered)))
	log.Info("Saved flight records", "count", len(filtered), "extracted", len(records))

	if err := o.publisher.Publish(ctx, filtered); err != nil {
		log.Warn("Failed to publish flight records", "error", err)
	}

	return filtered, nil
}

// LastSummary returns the summary of the most recent Run
func (o *CrawlOrchestrator) LastSummary() RunSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}
