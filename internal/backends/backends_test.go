package backends

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flylow/config"
	"flylow/models"
	"flylow/services/favorites"
)

func TestOpenFavorites_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Config{Storage: config.Storage{Dir: "/data"}}

	store, err := OpenFavorites(context.Background(), cfg, fs)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*favorites.FileStore)
	assert.True(t, ok)
}

func TestOpenFavorites_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Storage: config.Storage{Dir: dir},
		Store:   config.Store{Backend: config.StoreSQLite, SQLitePath: filepath.Join(dir, "fav.db")},
	}

	store, err := OpenFavorites(context.Background(), cfg, afero.NewOsFs())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, "u1", models.UserRecord{}))
	record, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", record.ID)
}

func TestOpenFavorites_UnknownBackend(t *testing.T) {
	cfg := config.Config{Store: config.Store{Backend: "redis"}}
	_, err := OpenFavorites(context.Background(), cfg, afero.NewMemMapFs())
	assert.ErrorIs(t, err, config.ErrUnknownStoreBackend)
}
