package usecase

import (
	"strings"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// ItineraryClassifier names the carriers of a listing and tells direct from transfer
type ItineraryClassifier struct {
	selectors entity.ListingSelectors
	logger    logger.Logger
}

// NewItineraryClassifier creates a new itinerary classifier
func NewItineraryClassifier(selectors entity.ListingSelectors, logger logger.Logger) *ItineraryClassifier {
	return &ItineraryClassifier{
		selectors: selectors,
		logger:    logger.With("component", "itinerary_classifier"),
	}
}

// ClassifyAndName returns the record with its airline filled in. One named carrier
// is a single-leg itinerary, several are joined with " + " as a transfer.
// The classification ignores how many leg identifiers the record has.
func (c *ItineraryClassifier) ClassifyAndName(listing *goquery.Selection, record entity.FlightRecord) entity.FlightRecord {
	var names []string
	listing.Find(c.selectors.AirlineName).Each(func(_ int, node *goquery.Selection) {
		if name := strippedText(node); name != "" {
			names = append(names, name)
		}
	})

	switch len(names) {
	case 0:
		return record.WithAirline(c.fallbackName(listing))
	case 1:
		c.logger.Debug("Single-leg itinerary", "airline", names[0], "legs", record.LegIdentifiers)
		return record.WithAirline(names[0])
	default:
		airline := strings.Join(names, entity.LegDelimiter)
		c.logger.Debug("Transfer itinerary", "airline", airline, "legs", record.LegIdentifiers)
		return record.WithAirline(airline)
	}
}

func (c *ItineraryClassifier) fallbackName(listing *goquery.Selection) string {
	name := entity.NotAvailable
	listing.Find(c.selectors.AirlineFallback).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if text := strippedText(node); text != "" {
			name = text
			return false
		}
		return true
	})
	return name
}
