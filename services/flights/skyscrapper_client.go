package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"flylow/models"
)

const (
	defaultBaseURL = "https://sky-scrapper.p.rapidapi.com"
	defaultHost    = "sky-scrapper.p.rapidapi.com"
	searchPath     = "/api/v2/flights/searchFlights"

	cabinClass = "economy"
	adults     = "1"
	sortBy     = "price_low"
)

// ClientConfig holds the Sky-Scrapper connection settings. The API key stays
// on the server.
type ClientConfig struct {
	APIKey            string
	Host              string
	BaseURL           string
	Currency          string
	Market            string
	CountryCode       string
	RequestsPerSecond float64
}

// SkyScrapperClient queries the Sky-Scrapper flight search API on RapidAPI.
type SkyScrapperClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	host       string
	baseURL    string
	currency   string
	market     string
	country    string
}

var _ Searcher = (*SkyScrapperClient)(nil)

// NewSkyScrapperClient creates a client; zero config values fall back to the
// public RapidAPI endpoint and EUR / en-GB / IE.
func NewSkyScrapperClient(cfg ClientConfig) *SkyScrapperClient {
	c := &SkyScrapperClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		host:       firstNonEmpty(cfg.Host, defaultHost),
		baseURL:    strings.TrimRight(firstNonEmpty(cfg.BaseURL, defaultBaseURL), "/"),
		currency:   firstNonEmpty(cfg.Currency, "EUR"),
		market:     firstNonEmpty(cfg.Market, "en-GB"),
		country:    firstNonEmpty(cfg.CountryCode, "IE"),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type searchResponse struct {
	Status bool `json:"status"`
	Data   *struct {
		Itineraries []apiItinerary `json:"itineraries"`
	} `json:"data"`
	Message json.RawMessage `json:"message,omitempty"`
}

type apiItinerary struct {
	ID    string `json:"id"`
	Price struct {
		Raw       float64 `json:"raw"`
		Formatted string  `json:"formatted"`
	} `json:"price"`
	Legs []struct {
		DurationInMinutes int    `json:"durationInMinutes"`
		StopCount         int    `json:"stopCount"`
		Departure         string `json:"departure"`
		Arrival           string `json:"arrival"`
		Carriers          struct {
			Marketing []struct {
				Name    string `json:"name"`
				LogoURL string `json:"logoUrl"`
			} `json:"marketing"`
		} `json:"carriers"`
		Segments []struct {
			FlightNumber string `json:"flightNumber"`
		} `json:"segments"`
	} `json:"legs"`
}

// Search performs a single GET for the leg described by req.
func (c *SkyScrapperClient) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("originSkyId", req.Origin.SkyID)
	params.Set("destinationSkyId", req.Destination.SkyID)
	params.Set("originEntityId", req.Origin.EntityID)
	params.Set("destinationEntityId", req.Destination.EntityID)
	params.Set("cabinClass", cabinClass)
	params.Set("adults", adults)
	params.Set("sortBy", sortBy)
	params.Set("currency", c.currency)
	params.Set("market", c.market)
	params.Set("countryCode", c.country)
	params.Set("date", req.Date.Format(models.DateLayout))

	endpoint := c.baseURL + searchPath + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("x-rapidapi-key", c.apiKey)
	httpReq.Header.Set("x-rapidapi-host", c.host)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[skyscrapper] search %s->%s %s failed: status=%d body=%s",
			req.Origin.SkyID, req.Destination.SkyID, req.Date.Format(models.DateLayout), resp.StatusCode, strings.TrimSpace(string(body)))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if payload.Data == nil || payload.Data.Itineraries == nil {
		return nil, ErrNoFlightData
	}

	itineraries := make([]models.Itinerary, 0, len(payload.Data.Itineraries))
	for _, it := range payload.Data.Itineraries {
		mapped, ok := mapItinerary(it)
		if !ok {
			log.Printf("[skyscrapper] skipping itinerary %q without legs or carriers", it.ID)
			continue
		}
		itineraries = append(itineraries, mapped)
	}

	log.Printf("[skyscrapper] search %s->%s %s returned %d itineraries in %v",
		req.Origin.SkyID, req.Destination.SkyID, req.Date.Format(models.DateLayout), len(itineraries), time.Since(start).Round(time.Millisecond))
	return itineraries, nil
}

func mapItinerary(it apiItinerary) (models.Itinerary, bool) {
	if len(it.Legs) == 0 {
		return models.Itinerary{}, false
	}
	leg := it.Legs[0]
	if len(leg.Carriers.Marketing) == 0 {
		return models.Itinerary{}, false
	}

	out := models.Itinerary{
		Airline:         leg.Carriers.Marketing[0].Name,
		LogoURL:         leg.Carriers.Marketing[0].LogoURL,
		PriceDisplay:    it.Price.Formatted,
		DurationMinutes: leg.DurationInMinutes,
		Departure:       parseLegTime(leg.Departure),
		Arrival:         parseLegTime(leg.Arrival),
		StopCount:       leg.StopCount,
	}
	if len(leg.Segments) > 0 {
		out.FlightNumber = leg.Segments[0].FlightNumber
	}
	return out, true
}

// parseLegTime reads the API's local timestamps, which come without an offset.
func parseLegTime(value string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
