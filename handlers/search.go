package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"flylow/models"
	"flylow/services/flights"
	"flylow/services/search"
)

// User-facing search messages.
const (
	AirportNotFoundMessage = "Airport data not found for selected locations."
	FlightDataMessage      = "Failed to load flight data. Please check the input parameters or try again later."
)

type searchService interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (models.SearchResult, error)
	Assess(departure time.Time) models.PriceAssessment
}

var _ searchService = (*search.Service)(nil)

// searchFailure classifies a search error into a status and message.
func searchFailure(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrAirportNotFound):
		return http.StatusUnprocessableEntity, AirportNotFoundMessage
	case errors.Is(err, search.ErrNoResults), errors.Is(err, flights.ErrNoFlightData):
		return http.StatusNotFound, FlightDataMessage
	case errors.Is(err, context.Canceled):
		return 499, FlightDataMessage
	default:
		return http.StatusBadGateway, FlightDataMessage
	}
}

// SearchHandler runs flight searches and price assessments.
type SearchHandler struct {
	search searchService
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(svc searchService) *SearchHandler {
	return &SearchHandler{search: svc}
}

// Search accepts criteria as JSON and returns flights with the assessment.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.search.Search(r.Context(), criteria)
	if err != nil {
		status, msg := searchFailure(err)
		if status != 499 {
			log.Printf("[search] %v", err)
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Pricing returns the assessment for ?departureDate=YYYY-MM-DD.
func (h *SearchHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	departure, err := models.ParseDate(r.URL.Query().Get("departureDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.search.Assess(departure))
}
