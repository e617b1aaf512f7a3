package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stickerdl/pkg/telegram"
)

// FileName is the manifest written into each set directory
const FileName = "pack.json"

// Item statuses
const (
	StatusConverted = "converted"
	StatusKept      = "kept"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusPending   = "pending"
)

// PackManifest describes one downloaded sticker set
type PackManifest struct {
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	StickerType  string          `json:"sticker_type,omitempty"`
	Bot          string          `json:"bot,omitempty"`
	DownloadedAt time.Time       `json:"downloaded_at"`
	Stickers     []StickerRecord `json:"stickers"`
}

// StickerRecord is the outcome for one sticker
type StickerRecord struct {
	Index        int    `json:"index"`
	FileUniqueID string `json:"file_unique_id"`
	Emoji        string `json:"emoji,omitempty"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	File         string `json:"file,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// FromStickerSet builds a manifest with every sticker pending
func FromStickerSet(set *telegram.StickerSet) *PackManifest {
	m := &PackManifest{
		Name:         set.Name,
		Title:        set.Title,
		StickerType:  set.StickerType,
		DownloadedAt: time.Now().UTC(),
		Stickers:     make([]StickerRecord, len(set.Stickers)),
	}

	for i, s := range set.Stickers {
		m.Stickers[i] = StickerRecord{
			Index:        i,
			FileUniqueID: s.FileUniqueID,
			Emoji:        s.Emoji,
			Format:       s.Format(),
			Width:        s.Width,
			Height:       s.Height,
			Status:       StatusPending,
		}
	}
	return m
}

// Record sets the outcome of sticker i. Out of range indexes are ignored.
func (m *PackManifest) Record(i int, file, status string, size int64, err error) {
	if i < 0 || i >= len(m.Stickers) {
		return
	}
	r := &m.Stickers[i]
	r.File = file
	r.Status = status
	r.Size = size
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
}

// Count returns how many stickers have status
func (m *PackManifest) Count(status string) int {
	n := 0
	for _, s := range m.Stickers {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Save writes the manifest to <dir>/pack.json
func (m *PackManifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(dir, FileName)
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// Load reads <dir>/pack.json
func Load(dir string) (*PackManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m PackManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Exists checks if a manifest is present in dir
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
