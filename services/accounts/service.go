// Package accounts stores email/password and linked OAuth accounts.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"flylow/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmail       = errors.New("email address is badly formatted")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrWrongPassword      = errors.New("wrong password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrExternalIDRequired = errors.New("external id is required")
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// dummyHash keeps SignIn timing similar for unknown emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("flylow-dummy-password"), bcrypt.DefaultCost)

// Service manages persistence of user accounts.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	path     string
	accounts map[string]models.Account
}

// NewService creates an accounts service storing accounts.json inside storageDir.
func NewService(fs afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if ok, _ := afero.DirExists(fs, storageDir); !ok {
		if err := fs.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create accounts dir: %w", err)
		}
	}

	svc := &Service{
		fs:       fs,
		path:     filepath.Join(storageDir, "accounts.json"),
		accounts: make(map[string]models.Account),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return authError(CodeInvalidEmail, ErrEmailRequired)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return authError(CodeInvalidEmail, ErrInvalidEmail)
	}
	return nil
}

// Get returns the account with the given ID if present.
func (s *Service) Get(id string) (models.Account, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	return account, ok
}

// GetByEmail looks up an account case-insensitively.
func (s *Service) GetByEmail(email string) (models.Account, bool) {
	email = normalizeEmail(email)
	if email == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findByEmailLocked(email)
}

func (s *Service) findByEmailLocked(email string) (models.Account, bool) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return models.Account{}, false
}

// SignUp registers a password account. Failures are *AuthError values.
func (s *Service) SignUp(email, pass string) (models.Account, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return models.Account{}, err
	}
	if len(pass) < MinPasswordLength {
		return models.Account{}, authError(CodeWeakPassword, ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findByEmailLocked(email); exists {
		return models.Account{}, authError(CodeEmailInUse, ErrEmailExists)
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     models.ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return account, s.insertLocked(account)
}

// SignIn verifies the email and password.
func (s *Service) SignIn(email, pass string) (models.Account, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return models.Account{}, err
	}

	s.mu.RLock()
	account, found := s.findByEmailLocked(email)
	s.mu.RUnlock()

	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pass))
		return models.Account{}, authError(CodeUserNotFound, ErrAccountNotFound)
	}
	if account.Disabled {
		return models.Account{}, authError(CodeUserDisabled, ErrAccountDisabled)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(pass)); err != nil {
		return models.Account{}, authError(CodeWrongPassword, ErrWrongPassword)
	}
	return account, nil
}

// LinkExternal returns the account bound to provider/externalID, creating it
// when needed. An existing password account with the same email is linked
// instead of duplicated. Created accounts get an unusable random password.
func (s *Service) LinkExternal(provider, externalID, email string) (models.Account, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return models.Account{}, false, ErrExternalIDRequired
	}
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Provider == provider && a.ExternalID == externalID {
			if a.Disabled {
				return models.Account{}, false, authError(CodeUserDisabled, ErrAccountDisabled)
			}
			return a, false, nil
		}
	}

	now := time.Now().UTC()
	if email != "" {
		if existing, ok := s.findByEmailLocked(email); ok {
			if existing.Disabled {
				return models.Account{}, false, authError(CodeUserDisabled, ErrAccountDisabled)
			}
			prev := existing
			existing.ExternalID = externalID
			if existing.Provider == "" {
				existing.Provider = provider
			}
			existing.UpdatedAt = now
			s.accounts[existing.ID] = existing
			if err := s.saveLocked(); err != nil {
				s.accounts[existing.ID] = prev
				return models.Account{}, false, err
			}
			return existing, false, nil
		}
	}

	random, err := password.Generate(32, 8, 0, false, true)
	if err != nil {
		return models.Account{}, false, fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(random), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, false, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     provider,
		ExternalID:   externalID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insertLocked(account); err != nil {
		return models.Account{}, false, err
	}
	return account, true, nil
}

// SetDisabled enables or disables an account.
func (s *Service) SetDisabled(id string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	prev := account
	account.Disabled = disabled
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	if err := s.saveLocked(); err != nil {
		s.accounts[id] = prev
		return err
	}
	return nil
}

func (s *Service) insertLocked(account models.Account) error {
	s.accounts[account.ID] = account
	if err := s.saveLocked(); err != nil {
		delete(s.accounts, account.ID)
		return err
	}
	return nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read accounts file: %w", err)
	}

	var stored []models.AccountStorage
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode accounts: %w", err)
	}

	s.accounts = make(map[string]models.Account, len(stored))
	for _, accountStorage := range stored {
		if strings.TrimSpace(accountStorage.ID) == "" {
			continue
		}
		account := accountStorage.ToAccount()
		account.Email = normalizeEmail(account.Email)
		if account.UpdatedAt.IsZero() {
			account.UpdatedAt = account.CreatedAt
		}
		s.accounts[account.ID] = account
	}

	return nil
}

func (s *Service) saveLocked() error {
	storage := make([]models.AccountStorage, 0, len(s.accounts))
	for _, account := range s.accounts {
		storage = append(storage, account.ToStorage())
	}
	sort.Slice(storage, func(i, j int) bool {
		return storage[i].CreatedAt.Before(storage[j].CreatedAt)
	})

	data, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write accounts temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}
