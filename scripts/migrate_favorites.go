package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/afero"

	"flylow/config"
	"flylow/internal/backends"
	"flylow/services/favorites"
)

// Copies favorites.json from a storage directory into the backend selected by
// the current configuration (FLYLOW_STORE_BACKEND and friends).
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate_favorites <storage_dir> [config.yaml]")
	}

	configFile := ""
	if len(os.Args) > 2 {
		configFile = os.Args[2]
	}
	cfg, err := config.Load(configFile, ".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store.Backend == config.StoreFile {
		log.Fatal("store.backend is file; set it to sqlite, postgres or mongo")
	}

	fs := afero.NewOsFs()
	src, err := favorites.NewFileStore(afero.NewReadOnlyFs(fs), os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read favorites: %v", err)
	}

	ctx := context.Background()
	dst, err := backends.OpenFavorites(ctx, cfg, fs)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer dst.Close()

	records := src.Export()
	res, err := backends.Copy(ctx, records, dst)
	if err != nil {
		log.Fatalf("Migration stopped after %d users: %v", res.Copied, err)
	}
	log.Printf("Migration complete: %d users copied, %d already present (of %d)", res.Copied, res.Skipped, len(records))
}
