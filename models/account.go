package models

import (
	"encoding/json"
	"time"
)

const (
	// ProviderPassword marks accounts created through email/password sign-up.
	ProviderPassword = "password"
	// ProviderGoogle marks accounts created through Google sign-in.
	ProviderGoogle = "google"
)

// Account represents a traveller who can sign in and keep saved flights.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash, never part of API responses
	Provider     string    `json:"provider"`
	ExternalID   string    `json:"externalId,omitempty"` // user id at the OAuth provider
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MarshalJSON keeps the password hash out of API responses.
func (a Account) MarshalJSON() ([]byte, error) {
	type AccountAlias Account // prevent recursion
	return json.Marshal(&struct {
		AccountAlias
	}{
		AccountAlias: AccountAlias(a),
	})
}

// AccountStorage is the on-disk form of an Account, including the hash.
type AccountStorage struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Provider     string    `json:"provider"`
	ExternalID   string    `json:"externalId,omitempty"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToStorage converts an Account to AccountStorage for persistence.
func (a Account) ToStorage() AccountStorage {
	return AccountStorage(a)
}

// ToAccount converts an AccountStorage back to Account.
func (as AccountStorage) ToAccount() Account {
	return Account(as)
}
