package usecase

import (
	"strings"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/pkg/logger"
	"fare-crawler-service/pkg/metrics"
)

// CarrierFilter keeps the records flown at least partly by a target carrier
type CarrierFilter struct {
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewCarrierFilter creates a new carrier filter
func NewCarrierFilter(logger logger.Logger, metrics *metrics.Metrics) *CarrierFilter {
	return &CarrierFilter{
		logger:  logger.With("component", "carrier_filter"),
		metrics: metrics,
	}
}

// Filter preserves order. A record is kept when any of its legs contains any
// allow-listed code as a substring; records without identifiers are dropped.
func (f *CarrierFilter) Filter(records []entity.FlightRecord, allowList []string) []entity.FlightRecord {
	kept := make([]entity.FlightRecord, 0, len(records))
	for _, record := range records {
		if MatchesCarrier(record.Legs(), allowList) {
			kept = append(kept, record)
		}
	}

	dropped := len(records) - len(kept)
	f.metrics.RecordsDropped.Add(float64(dropped))
	f.logger.Info("Filtered flight records", "retained", len(kept), "dropped", dropped)
	return kept
}

// MatchesCarrier reports whether any leg contains any code.
// Empty codes never match.
func MatchesCarrier(legs []string, allowList []string) bool {
	for _, leg := range legs {
		for _, code := range allowList {
			if code != "" && strings.Contains(leg, code) {
				return true
			}
		}
	}
	return false
}
