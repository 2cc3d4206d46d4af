// Package docstore keeps user favorites in MongoDB, one document per user.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flylow/models"
	"flylow/services/favorites"
)

const (
	DefaultDatabase   = "flylow"
	usersCollection   = "user_records"
	connectTimeout    = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

var ErrURIRequired = errors.New("mongo uri is required")

type userDoc struct {
	ID        string        `bson:"_id"`
	Favorites []favoriteDoc `bson:"favorites"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type favoriteDoc struct {
	ID              string    `bson:"id"`
	Fingerprint     string    `bson:"fingerprint"`
	Airline         string    `bson:"airline"`
	LogoURL         string    `bson:"logoUrl"`
	PriceDisplay    string    `bson:"price"`
	DurationMinutes int       `bson:"durationMinutes"`
	Departure       time.Time `bson:"departure"`
	Arrival         time.Time `bson:"arrival"`
	StopCount       int       `bson:"stops"`
	FlightNumber    string    `bson:"flightNumber"`
	SavedAt         time.Time `bson:"savedAt"`
}

func toFavoriteDoc(fav models.FavoriteFlight) favoriteDoc {
	return favoriteDoc{
		ID:              fav.ID,
		Fingerprint:     fav.Fingerprint,
		Airline:         fav.Flight.Airline,
		LogoURL:         fav.Flight.LogoURL,
		PriceDisplay:    fav.Flight.PriceDisplay,
		DurationMinutes: fav.Flight.DurationMinutes,
		Departure:       fav.Flight.Departure.UTC(),
		Arrival:         fav.Flight.Arrival.UTC(),
		StopCount:       fav.Flight.StopCount,
		FlightNumber:    fav.Flight.FlightNumber,
		SavedAt:         fav.SavedAt.UTC(),
	}
}

func (d favoriteDoc) toModel() models.FavoriteFlight {
	return models.FavoriteFlight{
		ID:          d.ID,
		Fingerprint: d.Fingerprint,
		Flight: models.Itinerary{
			Airline:         d.Airline,
			LogoURL:         d.LogoURL,
			PriceDisplay:    d.PriceDisplay,
			DurationMinutes: d.DurationMinutes,
			Departure:       d.Departure,
			Arrival:         d.Arrival,
			StopCount:       d.StopCount,
			FlightNumber:    d.FlightNumber,
		},
		SavedAt: d.SavedAt,
	}
}

func (d userDoc) toModel() models.UserRecord {
	record := models.UserRecord{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Favorites: make([]models.FavoriteFlight, 0, len(d.Favorites)),
	}
	for _, fav := range d.Favorites {
		record.Favorites = append(record.Favorites, fav.toModel())
	}
	return record
}

// MongoStore implements favorites.Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

var _ favorites.Store = (*MongoStore)(nil)

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, ErrURIRequired
	}
	if database == "" {
		database = DefaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Printf("[docstore] connected to mongo database=%s", database)
	return &MongoStore{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}, nil
}

// GetUser loads the user document.
func (s *MongoStore) GetUser(ctx context.Context, id string) (models.UserRecord, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserRecord{}, favorites.ErrUserNotFound
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("find user record: %w", err)
	}
	return doc.toModel(), nil
}

// CreateUser inserts the document unless one already exists.
func (s *MongoStore) CreateUser(ctx context.Context, id string, record models.UserRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	favs := make([]favoriteDoc, 0, len(record.Favorites))
	for _, fav := range record.Favorites {
		favs = append(favs, toFavoriteDoc(fav))
	}

	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": bson.M{"favorites": favs, "createdAt": createdAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("create user record: %w", err)
	}
	return nil
}

// AddFavorite pushes fav onto the end of the user's list.
func (s *MongoStore) AddFavorite(ctx context.Context, id string, fav models.FavoriteFlight) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"favorites": toFavoriteDoc(fav)}},
	)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if res.MatchedCount == 0 {
		return favorites.ErrUserNotFound
	}
	return nil
}

// RemoveFavorite pulls the favorite with favoriteID.
func (s *MongoStore) RemoveFavorite(ctx context.Context, id, favoriteID string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"favorites": bson.M{"id": favoriteID}}},
	)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
