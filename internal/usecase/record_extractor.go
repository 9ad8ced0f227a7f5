package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/pkg/logger"
	"fare-crawler-service/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// amountPattern accepts plain decimal amounts only, no exponents or digit separators
var amountPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// searchDateLayouts are tried in order when canonicalising a search date
var searchDateLayouts = []string{entity.SearchDateLayout, "2006-1-2"}

// RecordExtractor turns one listing node into a FlightRecord
type RecordExtractor struct {
	selectors entity.ListingSelectors
	now       func() time.Time
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewRecordExtractor creates a new record extractor
func NewRecordExtractor(selectors entity.ListingSelectors, logger logger.Logger, metrics *metrics.Metrics) *RecordExtractor {
	return &RecordExtractor{
		selectors: selectors,
		now:       time.Now,
		logger:    logger.With("component", "record_extractor"),
		metrics:   metrics,
	}
}

// Extract reads every field of the listing. Missing fields become "N/A",
// a missing or unparseable price becomes nil. The airline is left for the classifier.
func (e *RecordExtractor) Extract(listing *goquery.Selection, searchDeparture, searchArrival, searchDepartureDate string) entity.FlightRecord {
	departAirport, departTime := e.boxFields(listing, e.selectors.DepartBox)
	arriveAirport, arriveTime := e.boxFields(listing, e.selectors.ArriveBox)

	return entity.FlightRecord{
		Airline:             entity.NotAvailable,
		DepartureAirport:    departAirport,
		ArrivalAirport:      arriveAirport,
		DepartureTime:       departTime,
		ArrivalTime:         arriveTime,
		TransferInfo:        textOrNA(listing.Find(e.selectors.TransferInfo).First()),
		Price:               e.price(listing),
		LegIdentifiers:      e.legIdentifiers(listing),
		SearchDeparture:     searchDeparture,
		SearchArrival:       searchArrival,
		SearchDepartureDate: e.canonicalDate(searchDepartureDate),
		CrawlTimestamp:      e.now().Truncate(time.Second),
	}
}

func (e *RecordExtractor) legIdentifiers(listing *goquery.Selection) string {
	var legs []string
	listing.Find(e.selectors.LegMarker).Each(func(_ int, marker *goquery.Selection) {
		if fields := strings.Fields(marker.Text()); len(fields) > 0 {
			legs = append(legs, fields[0])
		}
	})

	if len(legs) == 0 {
		return entity.NotAvailable
	}
	return strings.Join(legs, entity.LegDelimiter)
}

func (e *RecordExtractor) boxFields(listing *goquery.Selection, boxSelector string) (airport, at string) {
	box := listing.Find(boxSelector).First()
	if box.Length() == 0 {
		return entity.NotAvailable, entity.NotAvailable
	}
	return textOrNA(box.Find(e.selectors.Airport).First()), textOrNA(box.Find(e.selectors.Time).First())
}

func (e *RecordExtractor) price(listing *goquery.Selection) *float64 {
	node := listing.Find(e.selectors.Price).First()
	if node.Length() == 0 {
		return nil
	}

	raw := strippedText(node)
	price, ok := ParsePrice(raw)
	if !ok && raw != "" && raw != entity.NotAvailable {
		e.logger.Warn("Failed to parse price", "raw", raw)
		e.metrics.PriceParseAnomalies.Inc()
	}
	return price
}

func (e *RecordExtractor) canonicalDate(raw string) string {
	for _, layout := range searchDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(entity.SearchDateLayout)
		}
	}
	e.logger.Warn("Search date is not in YYYY-MM-DD form, keeping it as is", "date", raw)
	return raw
}

// ParsePrice strips leading currency symbols and grouping commas and parses the rest.
// It reports false for empty, "N/A" or anything that is not a plain decimal amount.
func ParsePrice(raw string) (*float64, bool) {
	cleaned := strings.TrimLeftFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if !amountPattern.MatchString(cleaned) {
		return nil, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false
	}
	return &value, true
}

// textOrNA returns the stripped text of the node, or "N/A" when it is missing or blank
func textOrNA(node *goquery.Selection) string {
	if text := strippedText(node); text != "" {
		return text
	}
	return entity.NotAvailable
}

// strippedText trims every text fragment under the selection and joins the
// non-empty ones without a separator, dropping the page's layout whitespace.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
