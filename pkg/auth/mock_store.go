package auth

import "sync"

// MockStore is an in-memory TokenStore for tests
type MockStore struct {
	mu    sync.Mutex
	token string
	saves int

	// Error injection for testing
	LoadError   error
	SaveError   error
	DeleteError error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{}
}

// NewMockStoreWithToken creates a mock store that already holds token
func NewMockStoreWithToken(token string) *MockStore {
	return &MockStore{token: token}
}

func (m *MockStore) Name() string {
	return "mock"
}

func (m *MockStore) Load() (string, error) {
	if m.LoadError != nil {
		return "", m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrTokenNotFound
	}
	return m.token, nil
}

func (m *MockStore) Save(token string) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves++
	return nil
}

func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Token returns what is currently stored
func (m *MockStore) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Saves returns how many successful saves happened
func (m *MockStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// NewMockManager creates a manager backed by a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
