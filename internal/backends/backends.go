// Package backends opens the configured favourites store.
package backends

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/afero"

	"flylow/config"
	"flylow/internal/database"
	"flylow/internal/docstore"
	"flylow/services/favorites"
)

// OpenFavorites returns the store selected by store.backend.
func OpenFavorites(ctx context.Context, cfg config.Config, fs afero.Fs) (favorites.Store, error) {
	backend := cfg.Store.Backend
	if backend == "" {
		backend = config.StoreFile
	}

	var (
		store favorites.Store
		err   error
	)
	switch backend {
	case config.StoreFile:
		store, err = favorites.NewFileStore(fs, cfg.Storage.Dir)
	case config.StoreSQLite:
		var db *database.DB
		db, err = database.NewDB(database.Config{Driver: database.DriverSQLite, DatabasePath: cfg.SQLitePath()})
		if err == nil {
			store = database.NewFavoriteRepository(db)
		}
	case config.StorePostgres:
		var db *database.DB
		db, err = database.NewDB(database.Config{Driver: database.DriverPostgres, DSN: cfg.Store.PostgresURL})
		if err == nil {
			store = database.NewFavoriteRepository(db)
		}
	case config.StoreMongo:
		store, err = docstore.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreBackend, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s favorites store: %w", backend, err)
	}

	log.Printf("[backends] favorites stored in %s backend", backend)
	return store, nil
}
