package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flylow/models"
	"flylow/services/favorites"
)

// FavoriteRepository stores user records and their saved flights.
type FavoriteRepository struct {
	db *DB
}

var _ favorites.Store = (*FavoriteRepository)(nil)

// NewFavoriteRepository creates a repository on db.
func NewFavoriteRepository(db *DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// GetUser returns the record with its favorites ordered by insertion.
func (r *FavoriteRepository) GetUser(ctx context.Context, id string) (models.UserRecord, error) {
	var record models.UserRecord
	err := r.db.conn.QueryRowContext(ctx,
		r.db.rebind("SELECT id, created_at FROM user_records WHERE id = ?"), id,
	).Scan(&record.ID, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, favorites.ErrUserNotFound
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("query user record: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, r.db.rebind(`
		SELECT id, fingerprint, airline, logo_url, price_display, duration_minutes,
		       departure_at, arrival_at, stop_count, flight_number, saved_at
		FROM favorite_flights
		WHERE user_id = ?
		ORDER BY seq`), id)
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	record.Favorites = []models.FavoriteFlight{}
	for rows.Next() {
		var fav models.FavoriteFlight
		if err := rows.Scan(
			&fav.ID, &fav.Fingerprint,
			&fav.Flight.Airline, &fav.Flight.LogoURL, &fav.Flight.PriceDisplay, &fav.Flight.DurationMinutes,
			&fav.Flight.Departure, &fav.Flight.Arrival, &fav.Flight.StopCount, &fav.Flight.FlightNumber,
			&fav.SavedAt,
		); err != nil {
			return models.UserRecord{}, fmt.Errorf("scan favorite: %w", err)
		}
		record.Favorites = append(record.Favorites, fav)
	}
	return record, rows.Err()
}

// CreateUser inserts the record; an existing record is left untouched.
func (r *FavoriteRepository) CreateUser(ctx context.Context, id string, record models.UserRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		r.db.rebind("INSERT INTO user_records (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING"),
		id, createdAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert user record: %w", err)
	}
	for _, fav := range record.Favorites {
		if err := r.insertFavorite(ctx, tx, id, fav); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddFavorite appends fav to the user's list.
func (r *FavoriteRepository) AddFavorite(ctx context.Context, id string, fav models.FavoriteFlight) error {
	var exists int
	err := r.db.conn.QueryRowContext(ctx,
		r.db.rebind("SELECT 1 FROM user_records WHERE id = ?"), id,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return favorites.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("query user record: %w", err)
	}
	return r.insertFavorite(ctx, r.db.conn, id, fav)
}

// RemoveFavorite deletes one favorite by id.
func (r *FavoriteRepository) RemoveFavorite(ctx context.Context, id, favoriteID string) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		r.db.rebind("DELETE FROM favorite_flights WHERE user_id = ? AND id = ?"), id, favoriteID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the underlying database.
func (r *FavoriteRepository) Close() error {
	return r.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *FavoriteRepository) insertFavorite(ctx context.Context, ex execer, userID string, fav models.FavoriteFlight) error {
	_, err := ex.ExecContext(ctx, r.db.rebind(`
		INSERT INTO favorite_flights (
			id, user_id, fingerprint, airline, logo_url, price_display, duration_minutes,
			departure_at, arrival_at, stop_count, flight_number, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		fav.ID, userID, fav.Fingerprint,
		fav.Flight.Airline, fav.Flight.LogoURL, fav.Flight.PriceDisplay, fav.Flight.DurationMinutes,
		fav.Flight.Departure.UTC(), fav.Flight.Arrival.UTC(), fav.Flight.StopCount, fav.Flight.FlightNumber,
		fav.SavedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}
