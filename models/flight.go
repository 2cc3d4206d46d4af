package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Itinerary is one priced flight option returned by the flight-search API.
type Itinerary struct {
	Airline         string    `json:"airline"`
	LogoURL         string    `json:"logo"`
	PriceDisplay    string    `json:"price"`
	DurationMinutes int       `json:"durationMinutes"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	StopCount       int       `json:"stops"`
	FlightNumber    string    `json:"flightNumber"`
}

// Duration renders the flight duration as "Xh Ym".
func (i Itinerary) Duration() string {
	return FormatDuration(i.DurationMinutes)
}

// FormatDuration renders minutes as "Xh Ym".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// MarshalJSON adds the formatted duration next to the raw minutes.
func (i Itinerary) MarshalJSON() ([]byte, error) {
	type ItineraryAlias Itinerary // prevent recursion
	return json.Marshal(struct {
		ItineraryAlias
		Duration string `json:"duration"`
	}{
		ItineraryAlias: ItineraryAlias(i),
		Duration:       i.Duration(),
	})
}

// FavoriteFlight is an itinerary snapshot saved by a user. It is never
// mutated after creation.
type FavoriteFlight struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Flight      Itinerary `json:"flight"`
	SavedAt     time.Time `json:"savedAt"`
}

// UserRecord is the per-user document holding saved flights.
type UserRecord struct {
	ID        string           `json:"id"`
	Favorites []FavoriteFlight `json:"favorites"`
	CreatedAt time.Time        `json:"createdAt"`
}
