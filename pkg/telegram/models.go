package telegram

import (
	"path"
	"strings"
)

// Sticker formats
const (
	FormatStatic   = "static"
	FormatAnimated = "animated"
	FormatVideo    = "video"
)

// StickerSet is the result of getStickerSet
type StickerSet struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	StickerType string    `json:"sticker_type"`
	IsAnimated  bool      `json:"is_animated"`
	IsVideo     bool      `json:"is_video"`
	Stickers    []Sticker `json:"stickers"`
}

// Sticker is one item of a set. FileID is only valid for this bot.
type Sticker struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Type         string `json:"type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	IsAnimated   bool   `json:"is_animated"`
	IsVideo      bool   `json:"is_video"`
	Emoji        string `json:"emoji,omitempty"`
	SetName      string `json:"set_name,omitempty"`
	FileSize     int    `json:"file_size,omitempty"`
}

// Format reports whether the sticker is a still image, Lottie or video
func (s Sticker) Format() string {
	switch {
	case s.IsAnimated:
		return FormatAnimated
	case s.IsVideo:
		return FormatVideo
	default:
		return FormatStatic
	}
}

// IsStatic reports whether the sticker can be converted to PNG
func (s Sticker) IsStatic() bool {
	return s.Format() == FormatStatic
}

// DefaultExt is the extension Telegram uses for the sticker format
func (s Sticker) DefaultExt() string {
	switch s.Format() {
	case FormatAnimated:
		return ".tgs"
	case FormatVideo:
		return ".webm"
	default:
		return ".webp"
	}
}

// RemoteFile is a resolved download location. URL embeds the bot token and
// must not be logged.
type RemoteFile struct {
	FileID string
	Path   string
	URL    string
	Size   int64
}

// Ext returns the extension of the remote path, lower-cased
func (f RemoteFile) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}
