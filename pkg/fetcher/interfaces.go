package fetcher

import (
	"context"

	"stickerdl/internal/downloader"
	"stickerdl/pkg/telegram"
)

// StickerAPI is the part of the Bot API the pipeline needs
type StickerAPI interface {
	GetStickerSet(ctx context.Context, name string) (*telegram.StickerSet, error)
	downloader.FileSource
}
