package auth

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"stickerdl/pkg/config"
	apperrors "stickerdl/pkg/errors"
)

// TokenStore persists a single bot token
type TokenStore interface {
	// Name identifies the backend in user-facing messages
	Name() string

	// Load returns ErrTokenNotFound when nothing usable is stored
	Load() (string, error)

	// Save overwrites the stored token wholesale
	Save(token string) error

	// Delete removes the stored token; deleting nothing is not an error
	Delete() error
}

// Manager reads the token from the first store that has one and writes it
// to the first store that accepts it
type Manager struct {
	stores []TokenStore
}

// NewManager builds the store chain for the configured backend. The
// read-only environment store always comes first so STICKERDL_BOT_TOKEN
// overrides whatever is on disk.
func NewManager(cfg *config.CredentialsConfig) (*Manager, error) {
	path := cfg.File
	if path == "" {
		path = DefaultTokenPath()
	}

	stores := []TokenStore{NewEnvironmentStore()}

	switch cfg.Backend {
	case config.BackendFile, "":
		stores = append(stores, NewFileStore(path))
	case config.BackendKeyring:
		if keyringStore, err := NewKeyringStore(); err == nil {
			stores = append(stores, keyringStore)
		}
		stores = append(stores, NewFileStore(path))
	case config.BackendEncrypted:
		encPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".enc"
		encryptedStore, err := NewEncryptedFileStore(encPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted store: %w", err)
		}
		stores = append(stores, encryptedStore)
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Load returns the first stored token and the name of the store holding it.
// Unreadable stores are skipped; the caller prompts when nothing is found.
func (m *Manager) Load() (string, string, error) {
	var errs []error
	for _, store := range m.stores {
		token, err := store.Load()
		if err == nil && token != "" {
			return token, store.Name(), nil
		}
		if err != nil && !errors.Is(err, ErrTokenNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	if len(errs) > 0 {
		return "", "", fmt.Errorf("%w (%v)", ErrTokenNotFound, errors.Join(errs...))
	}
	return "", "", ErrTokenNotFound
}

// Save validates token and writes it to the first writable store, returning
// that store's name. When every store refuses, the error wraps
// ErrStoreUnavailable and the token is only good for this session.
func (m *Manager) Save(token string) (string, error) {
	if err := ValidateToken(token); err != nil {
		return "", err
	}

	var errs []error
	for _, store := range m.stores {
		err := store.Save(token)
		if err == nil {
			return store.Name(), nil
		}
		if !errors.Is(err, ErrReadOnly) {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}

	if len(errs) == 0 {
		return "", ErrStoreUnavailable
	}
	return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.Join(errs...))
}

// Delete removes the token from every writable store
func (m *Manager) Delete() error {
	var errs []error
	for _, store := range m.stores {
		if err := store.Delete(); err != nil && !errors.Is(err, ErrReadOnly) {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// StoreNames lists the chain in lookup order
func (m *Manager) StoreNames() []string {
	names := make([]string, len(m.stores))
	for i, s := range m.stores {
		names[i] = s.Name()
	}
	return names
}

// DefaultTokenPath is the plaintext token file used when none is configured
func DefaultTokenPath() string {
	return filepath.Join(config.ConfigDir(), "credentials.json")
}

// ValidateToken rejects values that can never be a bot token. It does not
// contact the API; a well-formed but revoked token is caught on first use.
func ValidateToken(token string) error {
	if token == "" {
		return apperrors.NewInvalidInputError("bot token is empty")
	}
	for _, r := range token {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return apperrors.NewInvalidInputError("bot token contains whitespace or control characters")
		}
	}
	return nil
}

// MaskToken masks all but the first 4 and last 4 characters of a token
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrTokenNotFound    = errors.New("bot token not found")
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrReadOnly         = errors.New("credential store is read-only")
)
