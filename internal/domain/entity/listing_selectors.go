package entity

// ListingSelectors holds the CSS selectors used to read a results page
type ListingSelectors struct {
	Listing         string
	LegMarker       string
	AirlineName     string
	AirlineFallback string
	DepartBox       string
	ArriveBox       string
	Airport         string
	Time            string
	TransferInfo    string
	Price           string
}

// DefaultListingSelectors matches the markup of the ctrip one-way list page
func DefaultListingSelectors() ListingSelectors {
	return ListingSelectors{
		Listing:         "div.flight-box",
		LegMarker:       "span.plane-No",
		AirlineName:     "div.airline-name",
		AirlineFallback: ".airline-name",
		DepartBox:       "div.depart-box",
		ArriveBox:       "div.arrive-box",
		Airport:         "div.airport",
		Time:            "div.time",
		TransferInfo:    "div.transfer-info-group",
		Price:           "span.price",
	}
}
