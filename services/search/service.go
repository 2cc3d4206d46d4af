// Package search turns landing-page criteria into a priced result set.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"flylow/models"
	"flylow/services/airports"
	"flylow/services/flights"
	"flylow/services/pricing"
)

var (
	ErrAirportNotFound = errors.New("airport data not found for selected locations")
	ErrNoResults       = errors.New("no flights available for the selected criteria")
)

type directory interface {
	Lookup(title string) (models.AirportRecord, error)
}

var _ directory = (*airports.Directory)(nil)

// Service resolves airports, queries the flight API and scores the timing.
type Service struct {
	airports directory
	searcher flights.Searcher
	location *time.Location
	now      func() time.Time
}

// NewService creates a search service. Dates are evaluated in loc.
func NewService(dir directory, searcher flights.Searcher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		airports: dir,
		searcher: searcher,
		location: loc,
		now:      time.Now,
	}
}

// Search runs one search: a single upstream query for the departure date.
// A return date is carried in the criteria only. ctx bounds the call.
func (s *Service) Search(ctx context.Context, criteria models.SearchCriteria) (models.SearchResult, error) {
	origin, err := s.airports.Lookup(criteria.OriginName)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("%w: %v", ErrAirportNotFound, err)
	}
	destination, err := s.airports.Lookup(criteria.DestinationName)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("%w: %v", ErrAirportNotFound, err)
	}

	found, err := s.searcher.Search(ctx, flights.SearchRequest{
		Origin:      origin,
		Destination: destination,
		Date:        criteria.DepartureDate,
	})
	if err != nil {
		log.Printf("[search] %s -> %s on %s failed: %v",
			origin.SkyID, destination.SkyID, criteria.DepartureDate.Format(models.DateLayout), err)
		return models.SearchResult{}, err
	}
	if len(found) == 0 {
		return models.SearchResult{}, ErrNoResults
	}

	return models.SearchResult{
		Criteria:   criteria,
		Flights:    found,
		Assessment: s.Assess(criteria.DepartureDate),
	}, nil
}

// Assess scores departure against today's date in the service location.
func (s *Service) Assess(departure time.Time) models.PriceAssessment {
	return pricing.Assess(departure, pricing.CalendarDate(s.now().In(s.location)))
}
