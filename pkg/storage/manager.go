package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Manager owns one sticker set directory and tracks which files exist in it
type Manager struct {
	outputDir string
	existing  map[string]bool
	mu        sync.RWMutex
}

// NewManager creates <baseDir>/<setName> and records the files already in it
func NewManager(baseDir, setName string) (*Manager, error) {
	name := filepath.Base(filepath.Clean(setName))
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return nil, fmt.Errorf("invalid set directory name %q", setName)
	}

	outputDir := filepath.Join(baseDir, name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		existing:  make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records finished files, ignoring leftovers of
// interrupted writes
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		m.existing[entry.Name()] = true
	}
	return nil
}

// FileName builds "<uniqueID>_<alphanumeric emoji chars><ext>", dropping the
// underscore when the emoji has no letters or digits
func FileName(uniqueID, emoji, ext string) string {
	var b strings.Builder
	for _, r := range emoji {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if b.Len() == 0 {
		return uniqueID + ext
	}
	return uniqueID + "_" + b.String() + ext
}

// Exists checks if name is present in the set directory
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	known := m.existing[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.existing[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save streams r into name via a temporary file and an atomic rename
func (m *Manager) Save(r io.Reader, name string) (int64, error) {
	filename := m.Path(name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to save %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.existing[name] = true
	m.mu.Unlock()

	return n, nil
}

// Path returns the full path of name inside the set directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// GetOutputDir returns the set directory
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
