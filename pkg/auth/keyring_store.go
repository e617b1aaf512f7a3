package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "stickerdl"
	keyringUser    = "bot_token"
)

// KeyringStore keeps the token in the system keychain
type KeyringStore struct{}

// NewKeyringStore checks the keychain and fails when it cannot be used
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string {
	return "system keyring"
}

func (k *KeyringStore) Load() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return token, nil
}

func (k *KeyringStore) Save(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
