package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"flylow/models"
)

var ErrStorageDirRequired = errors.New("storage directory not provided")

// FileStore keeps every user record in a single JSON file.
type FileStore struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	records map[string]models.UserRecord
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store persisting to favorites.json inside storageDir.
func NewFileStore(fs afero.Fs, storageDir string) (*FileStore, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if exists, _ := afero.DirExists(fs, storageDir); !exists {
		if err := fs.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create favorites dir: %w", err)
		}
	}

	store := &FileStore{
		fs:      fs,
		path:    filepath.Join(storageDir, "favorites.json"),
		records: make(map[string]models.UserRecord),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *FileStore) GetUser(_ context.Context, id string) (models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return models.UserRecord{}, ErrUserNotFound
	}
	record.Favorites = append([]models.FavoriteFlight(nil), record.Favorites...)
	return record, nil
}

func (s *FileStore) CreateUser(_ context.Context, id string, record models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		return nil
	}
	record.ID = id
	record.Favorites = append([]models.FavoriteFlight(nil), record.Favorites...)
	s.records[id] = record

	if err := s.saveLocked(); err != nil {
		delete(s.records, id)
		return err
	}
	return nil
}

func (s *FileStore) AddFavorite(_ context.Context, id string, fav models.FavoriteFlight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return ErrUserNotFound
	}
	previous := record.Favorites
	record.Favorites = append(append([]models.FavoriteFlight(nil), previous...), fav)
	s.records[id] = record

	if err := s.saveLocked(); err != nil {
		record.Favorites = previous
		s.records[id] = record
		return err
	}
	return nil
}

func (s *FileStore) RemoveFavorite(_ context.Context, id, favoriteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return false, nil
	}

	idx := -1
	for i, fav := range record.Favorites {
		if fav.ID == favoriteID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	previous := record.Favorites
	updated := make([]models.FavoriteFlight, 0, len(previous)-1)
	updated = append(updated, previous[:idx]...)
	updated = append(updated, previous[idx+1:]...)
	record.Favorites = updated
	s.records[id] = record

	if err := s.saveLocked(); err != nil {
		record.Favorites = previous
		s.records[id] = record
		return false, err
	}
	return true, nil
}

// Export returns every record ordered by user id.
func (s *FileStore) Export() []models.UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UserRecord, 0, len(s.records))
	for _, record := range s.records {
		record.Favorites = append([]models.FavoriteFlight(nil), record.Favorites...)
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open favorites file: %w", err)
	}
	defer file.Close()

	var stored []models.UserRecord
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode favorites: %w", err)
	}

	s.records = make(map[string]models.UserRecord, len(stored))
	for _, record := range stored {
		if strings.TrimSpace(record.ID) == "" {
			continue
		}
		s.records[record.ID] = record
	}
	return nil
}

// saveLocked writes all records atomically. Must be called with mu held.
func (s *FileStore) saveLocked() error {
	stored := make([]models.UserRecord, 0, len(s.records))
	for _, record := range s.records {
		stored = append(stored, record)
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].ID < stored[j].ID
	})

	tmp := s.path + ".tmp"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create favorites temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stored); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync favorites: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close favorites temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace favorites file: %w", err)
	}
	return nil
}
