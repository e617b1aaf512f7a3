package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
	"stickerdl/pkg/config"
	apperrors "stickerdl/pkg/errors"
)

const testToken = "123456789:AAEtestTokenValue_abcdefghij"

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range TokenEnvVars {
		t.Setenv(name, "")
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	manager, store := NewMockManager()

	if _, _, err := manager.Load(); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Expected ErrTokenNotFound on empty store, got %v", err)
	}

	name, err := manager.Save(testToken)
	if err != nil {
		t.Fatalf("Failed to save token: %v", err)
	}
	if name != "mock" {
		t.Errorf("Expected token saved to mock store, got %s", name)
	}

	token, source, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load token: %v", err)
	}
	if token != testToken || source != "mock" {
		t.Errorf("Load() = %q from %q", token, source)
	}

	if err := manager.Delete(); err != nil {
		t.Fatalf("Failed to delete token: %v", err)
	}
	if store.Token() != "" {
		t.Error("Token should be removed")
	}
}

func TestManagerSaveRejectsInvalidToken(t *testing.T) {
	manager, store := NewMockManager()

	for _, token := range []string{"", "has space", "tab\there"} {
		_, err := manager.Save(token)
		if !apperrors.IsInvalidInput(err) {
			t.Errorf("Save(%q) error = %v, want invalid input", token, err)
		}
	}
	if store.Saves() != 0 {
		t.Error("Invalid tokens must not reach the store")
	}
}

func TestManagerSaveFallsThrough(t *testing.T) {
	failing := NewMockStore()
	failing.SaveError = errors.New("disk full")
	working := NewMockStore()

	manager := NewManagerWithStores(NewEnvironmentStore(), failing, working)
	if _, err := manager.Save(testToken); err != nil {
		t.Fatalf("Expected fallback store to accept token: %v", err)
	}
	if working.Token() != testToken {
		t.Error("Token should land in the fallback store")
	}
}

func TestManagerSaveAllStoresFail(t *testing.T) {
	failing := NewMockStore()
	failing.SaveError = errors.New("permission denied")

	manager := NewManagerWithStores(NewEnvironmentStore(), failing)
	_, err := manager.Save(testToken)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected underlying cause in message, got %v", err)
	}
}

func TestManagerLoadSkipsBrokenStore(t *testing.T) {
	broken := NewMockStore()
	broken.LoadError = errors.New("corrupt")
	good := NewMockStoreWithToken(testToken)

	manager := NewManagerWithStores(broken, good)
	token, _, err := manager.Load()
	if err != nil || token != testToken {
		t.Fatalf("Load() = %q, %v", token, err)
	}

	manager = NewManagerWithStores(broken)
	_, _, err = manager.Load()
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Expected ErrTokenNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("Expected store failure in message, got %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearTokenEnv(t)
	path := filepath.Join(t.TempDir(), "credentials.json")
	manager, err := NewManager(&config.CredentialsConfig{Backend: config.BackendFile, File: path})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Save(testToken); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "999:fromEnvironment")
	token, source, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if token != "999:fromEnvironment" || source != "environment" {
		t.Errorf("Load() = %q from %q, want environment token", token, source)
	}
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	if err := store.Save(testToken); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != `{"bot_token":"`+testToken+`"}` {
		t.Errorf("Unexpected file content %s", content)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// overwrite wholesale
	if err := store.Save("42:other"); err != nil {
		t.Fatal(err)
	}
	token, err := store.Load()
	if err != nil || token != "42:other" {
		t.Errorf("Load() = %q, %v", token, err)
	}
}

func TestFileStoreLoadVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{name: "json", content: `{"bot_token": "1:abc"}`, want: "1:abc"},
		{name: "bare token with newline", content: "1:abc\n", want: "1:abc"},
		{name: "empty file", content: "  \n", wantErr: ErrTokenNotFound},
		{name: "json without token", content: `{"other": 1}`, wantErr: ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			got, err := NewFileStore(path).Load()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Load() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"bot_token":`), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load()
	if err == nil || errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestFileStoreMissingAndDelete(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	if _, err := store.Load(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("Deleting a missing file should succeed: %v", err)
	}
}

func TestFileStoreUnwritablePath(t *testing.T) {
	clearTokenEnv(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	manager := NewManagerWithStores(NewEnvironmentStore(), NewFileStore(filepath.Join(blocker, "credentials.json")))
	_, err := manager.Save(testToken)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable for unwritable path, got %v", err)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}

	if err := store.Save(testToken); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), testToken) {
		t.Error("Token must not be stored in plaintext")
	}

	token, err := store.Load()
	if err != nil || token != testToken {
		t.Errorf("Load() = %q, %v", token, err)
	}

	t.Setenv(PassphraseEnvVar, "wrong-passphrase")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Load(); err == nil {
		t.Error("Expected decryption failure with wrong passphrase")
	}

	if err := store.Delete(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Encrypted file should be removed")
	}
}

func TestEncryptedStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testToken); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); err != nil {
		t.Fatalf("Expected generated passphrase file: %v", err)
	}

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	token, err := reopened.Load()
	if err != nil || token != testToken {
		t.Errorf("Load() after reopen = %q, %v", token, err)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Keyring should be available with the mock provider: %v", err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}
	if err := store.Save(testToken); err != nil {
		t.Fatal(err)
	}
	token, err := store.Load()
	if err != nil || token != testToken {
		t.Errorf("Load() = %q, %v", token, err)
	}
	if err := store.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("Deleting twice should succeed: %v", err)
	}
}

func TestNewManagerBackends(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PassphraseEnvVar, "test-passphrase")
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    []string
	}{
		{config.BackendFile, []string{"environment", "file " + filepath.Join(dir, "credentials.json")}},
		{config.BackendKeyring, []string{"environment", "system keyring", "file " + filepath.Join(dir, "credentials.json")}},
		{config.BackendEncrypted, []string{"environment", "encrypted file " + filepath.Join(dir, "credentials.enc")}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			manager, err := NewManager(&config.CredentialsConfig{
				Backend: tt.backend,
				File:    filepath.Join(dir, "credentials.json"),
			})
			if err != nil {
				t.Fatal(err)
			}
			got := manager.StoreNames()
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("StoreNames() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := NewManager(&config.CredentialsConfig{Backend: "vault"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{testToken, "1234...ghij"},
		{"short", "********"},
		{"", "********"},
	}
	for _, tt := range tests {
		if got := MaskToken(tt.input); got != tt.want {
			t.Errorf("MaskToken(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteTokenGuide(t *testing.T) {
	var sb strings.Builder
	WriteTokenGuide(&sb)
	if !strings.Contains(sb.String(), "@BotFather") {
		t.Error("Guide should mention @BotFather")
	}
}
