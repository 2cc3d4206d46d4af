package flights

import (
	"context"
	"errors"
	"time"

	"flylow/models"
)

var (
	ErrUpstream     = errors.New("flight search upstream error")
	ErrNoFlightData = errors.New("no flight data available")
)

// SearchRequest identifies one leg to price.
type SearchRequest struct {
	Origin      models.AirportRecord
	Destination models.AirportRecord
	Date        time.Time
}

// Searcher returns the priced itineraries for one leg.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error)
}
