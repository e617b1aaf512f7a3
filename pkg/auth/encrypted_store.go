package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// PassphraseEnvVar overrides the generated passphrase file
	PassphraseEnvVar = "STICKERDL_PASSPHRASE"
)

// EncryptedFileStore keeps the token AES-256-GCM encrypted on disk. The key
// is derived with PBKDF2-SHA256 from a passphrase taken from
// STICKERDL_PASSPHRASE or a generated .passphrase file next to the store.
type EncryptedFileStore struct {
	filepath   string
	passphrase string
	mu         sync.Mutex
}

type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a new encrypted token store
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	passphrase, err := loadPassphrase(filepath.Join(dir, ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}

	return &EncryptedFileStore{filepath: filePath, passphrase: passphrase}, nil
}

func (e *EncryptedFileStore) Name() string {
	return "encrypted file " + e.filepath
}

func (e *EncryptedFileStore) Load() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	content, err := os.ReadFile(e.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read encrypted store: %w", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return "", fmt.Errorf("failed to parse file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plaintext, err := decrypt(sealed, e.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token (wrong passphrase?): %w", err)
	}
	if len(plaintext) == 0 {
		return "", ErrTokenNotFound
	}
	return string(plaintext), nil
}

// Save uses a fresh salt and nonce on every write
func (e *EncryptedFileStore) Save(token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	sealed, err := encrypt([]byte(token), e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	content, err := json.MarshalIndent(encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Version:   1,
		Modified:  time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	tempFile := e.filepath + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tempFile, e.filepath)
}

func (e *EncryptedFileStore) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Remove(e.filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove encrypted store: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

func loadPassphrase(passphraseFile string) (string, error) {
	if pass := os.Getenv(PassphraseEnvVar); pass != "" {
		return pass, nil
	}

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
