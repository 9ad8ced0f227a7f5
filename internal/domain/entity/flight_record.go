// internal/domain/entity/flight_record.go
package entity

import (
	"strings"
	"time"
)

// NotAvailable marks a field that was absent from the listing
const NotAvailable = "N/A"

// LegDelimiter joins multi-leg airline names and leg identifiers
const LegDelimiter = " + "

// SearchDateLayout is the canonical form of a search departure date
const SearchDateLayout = "2006-01-02"

// FlightRecord is one itinerary option scraped from a results page.
// Price is nil when the listing had no price or it could not be parsed.
type FlightRecord struct {
	Airline             string    `json:"airline" bson:"airline"`
	DepartureAirport    string    `json:"departureAirport" bson:"departureAirport"`
	ArrivalAirport      string    `json:"arrivalAirport" bson:"arrivalAirport"`
	DepartureTime       string    `json:"departureTime" bson:"departureTime"`
	ArrivalTime         string    `json:"arrivalTime" bson:"arrivalTime"`
	TransferInfo        string    `json:"transferInfo" bson:"transferInfo"`
	Price               *float64  `json:"price" bson:"price"`
	LegIdentifiers      string    `json:"legIdentifiers" bson:"legIdentifiers"`
	SearchDeparture     string    `json:"searchDeparture" bson:"searchDeparture"`
	SearchArrival       string    `json:"searchArrival" bson:"searchArrival"`
	SearchDepartureDate string    `json:"searchDepartureDate" bson:"searchDepartureDate"`
	CrawlTimestamp      time.Time `json:"crawlTimestamp" bson:"crawlTimestamp"`
}

// Legs splits the leg identifiers into individual flight numbers.
// A record without identifiers has no legs.
func (r FlightRecord) Legs() []string {
	if r.LegIdentifiers == "" || r.LegIdentifiers == NotAvailable {
		return nil
	}
	return strings.Split(r.LegIdentifiers, LegDelimiter)
}

// WithAirline returns a copy of the record carrying the given airline name
func (r FlightRecord) WithAirline(airline string) FlightRecord {
	r.Airline = airline
	return r
}

// PublishKey identifies the search that produced the record
func (r FlightRecord) PublishKey() string {
	return r.SearchDeparture + "-" + r.SearchArrival + "-" + r.SearchDepartureDate
}
