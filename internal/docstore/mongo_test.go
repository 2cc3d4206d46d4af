package docstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"flylow/models"
	"flylow/services/favorites"
)

func sampleFavorite() models.FavoriteFlight {
	flight := models.Itinerary{
		Airline:         "Aer Lingus",
		LogoURL:         "https://logos.skyscnr.com/images/airlines/favicon/EI.png",
		PriceDisplay:    "€89",
		DurationMinutes: 75,
		Departure:       time.Date(2025, 7, 3, 8, 0, 0, 0, time.UTC),
		Arrival:         time.Date(2025, 7, 3, 9, 15, 0, 0, time.UTC),
		StopCount:       0,
		FlightNumber:    "EI154",
	}
	return models.FavoriteFlight{
		ID:          "fav-1",
		Fingerprint: favorites.Fingerprint(flight),
		Flight:      flight,
		SavedAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFavoriteDocRoundTripsThroughBSON(t *testing.T) {
	fav := sampleFavorite()
	doc := userDoc{ID: "u1", Favorites: []favoriteDoc{toFavoriteDoc(fav)}, CreatedAt: fav.SavedAt}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded userDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	record := decoded.toModel()
	require.Len(t, record.Favorites, 1)
	got := record.Favorites[0]
	assert.Equal(t, fav.ID, got.ID)
	assert.Equal(t, fav.Fingerprint, got.Fingerprint)
	assert.Equal(t, fav.Flight.FlightNumber, got.Flight.FlightNumber)
	assert.True(t, fav.Flight.Departure.Equal(got.Flight.Departure))
	assert.Equal(t, favorites.Fingerprint(fav.Flight), favorites.Fingerprint(got.Flight))
}

func TestEmptyUserDocHasNonNilFavorites(t *testing.T) {
	record := userDoc{ID: "u1"}.toModel()
	assert.NotNil(t, record.Favorites)
	assert.Empty(t, record.Favorites)
}

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), "", "")
	assert.True(t, errors.Is(err, ErrURIRequired))
}

// TestMongoStoreIntegration runs against a live server when FLYLOW_TEST_MONGO_URI is set.
func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("FLYLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FLYLOW_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	store, err := Connect(ctx, uri, "flylow_test")
	require.NoError(t, err)
	defer store.Close()

	userID := "it-" + uuid.NewString()
	defer store.users.DeleteOne(ctx, bson.M{"_id": userID})

	_, err = store.GetUser(ctx, userID)
	require.ErrorIs(t, err, favorites.ErrUserNotFound)

	require.ErrorIs(t, store.AddFavorite(ctx, userID, sampleFavorite()), favorites.ErrUserNotFound)

	require.NoError(t, store.CreateUser(ctx, userID, models.UserRecord{}))
	require.NoError(t, store.CreateUser(ctx, userID, models.UserRecord{}))
	require.NoError(t, store.AddFavorite(ctx, userID, sampleFavorite()))

	record, err := store.GetUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, record.Favorites, 1)

	removed, err := store.RemoveFavorite(ctx, userID, "fav-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.RemoveFavorite(ctx, userID, "fav-1")
	require.NoError(t, err)
	assert.False(t, removed)
}
