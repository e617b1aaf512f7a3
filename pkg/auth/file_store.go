package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the token in a plaintext JSON file: {"bot_token": "..."}.
// A file holding only the bare token is accepted on load.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type tokenFile struct {
	BotToken string `json:"bot_token"`
}

// NewFileStore creates a plaintext token store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Name() string {
	return "file " + f.path
}

// Path returns the file location
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", ErrTokenNotFound
	}

	if strings.HasPrefix(text, "{") {
		var tf tokenFile
		if err := json.Unmarshal([]byte(text), &tf); err != nil {
			return "", fmt.Errorf("failed to parse token file: %w", err)
		}
		token := strings.TrimSpace(tf.BotToken)
		if token == "" {
			return "", ErrTokenNotFound
		}
		return token, nil
	}

	if err := ValidateToken(text); err != nil {
		return "", fmt.Errorf("token file is not a bare token: %w", err)
	}
	return text, nil
}

func (f *FileStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	content, err := json.Marshal(tokenFile{BotToken: token})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
