package favorites

import (
	"context"
	"errors"

	"flylow/models"
)

// ErrUserNotFound is returned by stores when no record exists for a user.
var ErrUserNotFound = errors.New("user record not found")

// Store is the per-user document store holding saved flights.
type Store interface {
	// GetUser returns the record for id, or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (models.UserRecord, error)
	// CreateUser creates the record for id. Creating an existing record is a no-op.
	CreateUser(ctx context.Context, id string, record models.UserRecord) error
	// AddFavorite appends fav to the user's list.
	AddFavorite(ctx context.Context, id string, fav models.FavoriteFlight) error
	// RemoveFavorite deletes the favorite with favoriteID and reports whether it existed.
	RemoveFavorite(ctx context.Context, id, favoriteID string) (bool, error)
	Close() error
}
