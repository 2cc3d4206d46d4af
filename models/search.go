package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date layout used in forms, query strings and JSON.
const DateLayout = "2006-01-02"

// SearchCriteria is what the landing page collects and the results page consumes.
type SearchCriteria struct {
	OriginName          string     `json:"from"`
	DestinationName     string     `json:"to"`
	DepartureDate       time.Time  `json:"-"`
	ReturnDate          *time.Time `json:"-"`
	AllowNearbyAirports bool       `json:"nearbyAirports"`
}

type searchCriteriaJSON struct {
	OriginName          string `json:"from"`
	DestinationName     string `json:"to"`
	DepartureDate       string `json:"departureDate"`
	ReturnDate          string `json:"returnDate,omitempty"`
	AllowNearbyAirports bool   `json:"nearbyAirports"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (c SearchCriteria) MarshalJSON() ([]byte, error) {
	out := searchCriteriaJSON{
		OriginName:          c.OriginName,
		DestinationName:     c.DestinationName,
		AllowNearbyAirports: c.AllowNearbyAirports,
	}
	if !c.DepartureDate.IsZero() {
		out.DepartureDate = c.DepartureDate.Format(DateLayout)
	}
	if c.ReturnDate != nil {
		out.ReturnDate = c.ReturnDate.Format(DateLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts YYYY-MM-DD dates; an empty return date means one-way.
func (c *SearchCriteria) UnmarshalJSON(data []byte) error {
	var in searchCriteriaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := ParseCriteria(in.OriginName, in.DestinationName, in.DepartureDate, in.ReturnDate, in.AllowNearbyAirports)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SearchResult is what the results page renders.
type SearchResult struct {
	Criteria   SearchCriteria  `json:"criteria"`
	Flights    []Itinerary     `json:"flights"`
	Assessment PriceAssessment `json:"assessment"`
}
