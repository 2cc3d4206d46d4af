// Package favorites manages the flights users save from search results.
package favorites

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"flylow/models"
)

var (
	ErrUserIDRequired     = errors.New("user id is required")
	ErrFavoriteIDRequired = errors.New("favorite id is required")
)

// Service adds, lists and removes saved flights on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wraps store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns the user's favorites in insertion order.
func (s *Service) List(ctx context.Context, userID string) ([]models.FavoriteFlight, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	record, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return []models.FavoriteFlight{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user record: %w", err)
	}
	if record.Favorites == nil {
		return []models.FavoriteFlight{}, nil
	}
	return record.Favorites, nil
}

// Add saves a snapshot of flight, creating the user's record on first use.
// The same flight may be saved more than once.
func (s *Service) Add(ctx context.Context, userID string, flight models.Itinerary) (models.FavoriteFlight, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.FavoriteFlight{}, ErrUserIDRequired
	}

	now := s.now().UTC()
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return models.FavoriteFlight{}, fmt.Errorf("get user record: %w", err)
		}
		if err := s.store.CreateUser(ctx, userID, models.UserRecord{ID: userID, CreatedAt: now}); err != nil {
			return models.FavoriteFlight{}, fmt.Errorf("create user record: %w", err)
		}
	}

	fav := models.FavoriteFlight{
		ID:          uuid.NewString(),
		Fingerprint: Fingerprint(flight),
		Flight:      flight,
		SavedAt:     now,
	}
	if err := s.store.AddFavorite(ctx, userID, fav); err != nil {
		log.Printf("[favorites] save failed user=%s flight=%s: %v", userID, flight.FlightNumber, err)
		return models.FavoriteFlight{}, fmt.Errorf("add favorite: %w", err)
	}
	return fav, nil
}

// Remove deletes the favorite with the given id.
func (s *Service) Remove(ctx context.Context, userID, favoriteID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}
	favoriteID = strings.TrimSpace(favoriteID)
	if favoriteID == "" {
		return false, ErrFavoriteIDRequired
	}

	removed, err := s.store.RemoveFavorite(ctx, userID, favoriteID)
	if err != nil {
		log.Printf("[favorites] remove failed user=%s id=%s: %v", userID, favoriteID, err)
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return removed, nil
}

// RemoveMatching deletes the first favorite structurally equal to flight.
// It is a no-op when no such favorite exists.
func (s *Service) RemoveMatching(ctx context.Context, userID string, flight models.Itinerary) (bool, error) {
	favorites, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}

	fingerprint := Fingerprint(flight)
	for _, fav := range favorites {
		if fav.Fingerprint == fingerprint {
			return s.Remove(ctx, userID, fav.ID)
		}
	}
	return false, nil
}

// Fingerprint hashes every field of an itinerary so equal snapshots share it.
func Fingerprint(flight models.Itinerary) string {
	fields := []string{
		flight.Airline,
		flight.LogoURL,
		flight.PriceDisplay,
		strconv.Itoa(flight.DurationMinutes),
		flight.Departure.UTC().Format(time.RFC3339Nano),
		flight.Arrival.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(flight.StopCount),
		flight.FlightNumber,
	}
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
