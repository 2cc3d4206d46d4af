package flights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flylow/models"
)

const sampleResponse = `{
  "status": true,
  "data": {
    "itineraries": [
      {
        "id": "13554-2506010630--32480-0-9451-2506010750",
        "price": {"raw": 39.99, "formatted": "€40"},
        "legs": [{
          "durationInMinutes": 80,
          "stopCount": 0,
          "departure": "2025-06-01T06:30:00",
          "arrival": "2025-06-01T07:50:00",
          "carriers": {"marketing": [{"name": "Ryanair", "logoUrl": "https://logos.skyscnr.com/images/airlines/favicon/FR.png"}]},
          "segments": [{"flightNumber": "202"}]
        }]
      },
      {"id": "broken", "price": {"formatted": "€1"}, "legs": []}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *SkyScrapperClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSkyScrapperClient(ClientConfig{APIKey: "secret", BaseURL: srv.URL})
}

func testRequest() SearchRequest {
	return SearchRequest{
		Origin:      models.AirportRecord{SuggestionTitle: "Dublin (DUB)", SkyID: "DUB", EntityID: "95673529"},
		Destination: models.AirportRecord{SuggestionTitle: "London Stansted (STN)", SkyID: "STN", EntityID: "95565052"},
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSearch_SendsFixedParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, searchPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "DUB", q.Get("originSkyId"))
		assert.Equal(t, "STN", q.Get("destinationSkyId"))
		assert.Equal(t, "95673529", q.Get("originEntityId"))
		assert.Equal(t, "95565052", q.Get("destinationEntityId"))
		assert.Equal(t, "economy", q.Get("cabinClass"))
		assert.Equal(t, "1", q.Get("adults"))
		assert.Equal(t, "price_low", q.Get("sortBy"))
		assert.Equal(t, "EUR", q.Get("currency"))
		assert.Equal(t, "en-GB", q.Get("market"))
		assert.Equal(t, "IE", q.Get("countryCode"))
		assert.Equal(t, "2025-06-01", q.Get("date"))
		assert.Equal(t, "secret", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, defaultHost, r.Header.Get("x-rapidapi-host"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	})

	_, err := client.Search(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestSearch_MapsFirstLeg(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	})

	got, err := client.Search(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, got, 1)

	it := got[0]
	assert.Equal(t, "Ryanair", it.Airline)
	assert.Equal(t, "€40", it.PriceDisplay)
	assert.Equal(t, 80, it.DurationMinutes)
	assert.Equal(t, "1h 20m", it.Duration())
	assert.Equal(t, 0, it.StopCount)
	assert.Equal(t, "202", it.FlightNumber)
	assert.Equal(t, time.Date(2025, 6, 1, 6, 30, 0, 0, time.UTC), it.Departure)
	assert.Equal(t, time.Date(2025, 6, 1, 7, 50, 0, 0, time.UTC), it.Arrival)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"You are not subscribed to this API."}`, http.StatusForbidden)
	})

	_, err := client.Search(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSearch_MissingItineraries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": false, "message": [{"date": "date in the past"}]}`))
	})

	_, err := client.Search(context.Background(), testRequest())
	assert.True(t, errors.Is(err, ErrNoFlightData))
}

func TestSearch_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Search(ctx, testRequest())
	assert.Error(t, err)
}
