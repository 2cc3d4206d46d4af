package handlers

import (
	"net/http"

	"flylow/models"
	"flylow/services/airports"
)

type airportSuggester interface {
	Suggest(input string) []models.AirportRecord
}

var _ airportSuggester = (*airports.Directory)(nil)

// AirportsHandler serves autocomplete suggestions.
type AirportsHandler struct {
	directory airportSuggester
}

// NewAirportsHandler creates an airports handler.
func NewAirportsHandler(directory airportSuggester) *AirportsHandler {
	return &AirportsHandler{directory: directory}
}

// Suggest returns records whose title contains q, case-insensitively, in file order.
func (h *AirportsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestions := h.directory.Suggest(r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []models.AirportRecord{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}
