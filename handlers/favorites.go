package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"flylow/internal/auth"
	"flylow/models"
	"flylow/services/favorites"
)

type favoritesService interface {
	List(ctx context.Context, userID string) ([]models.FavoriteFlight, error)
	Add(ctx context.Context, userID string, flight models.Itinerary) (models.FavoriteFlight, error)
	Remove(ctx context.Context, userID, favoriteID string) (bool, error)
	RemoveMatching(ctx context.Context, userID string, flight models.Itinerary) (bool, error)
}

var _ favoritesService = (*favorites.Service)(nil)

// FavoritesHandler exposes the signed-in user's saved flights.
type FavoritesHandler struct {
	favorites favoritesService
}

// NewFavoritesHandler creates a favorites handler.
func NewFavoritesHandler(svc favoritesService) *FavoritesHandler {
	return &FavoritesHandler{favorites: svc}
}

// List returns saved flights in the order they were added.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.favorites.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		log.Printf("[favorites] list: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load saved flights")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Add saves the itinerary in the body.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var flight models.Itinerary
	if err := json.NewDecoder(r.Body).Decode(&flight); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fav, err := h.favorites.Add(r.Context(), auth.GetAccountID(r), flight)
	if err != nil {
		log.Printf("[favorites] add: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save flight.")
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// Remove deletes a saved flight by id. Unknown ids are a no-op.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.favorites.Remove(r.Context(), auth.GetAccountID(r), mux.Vars(r)["id"])
	if err != nil {
		log.Printf("[favorites] remove: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove flight")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// RemoveMatching deletes the first saved flight equal to the itinerary in the body.
func (h *FavoritesHandler) RemoveMatching(w http.ResponseWriter, r *http.Request) {
	var flight models.Itinerary
	if err := json.NewDecoder(r.Body).Decode(&flight); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	removed, err := h.favorites.RemoveMatching(r.Context(), auth.GetAccountID(r), flight)
	if err != nil {
		log.Printf("[favorites] remove matching: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove flight")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
