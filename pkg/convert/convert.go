// Package convert turns downloaded sticker images into PNG files.
package convert

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"
	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
)

// MaxCanvasSize bounds Options.CanvasSize
const MaxCanvasSize = 4096

var convertible = map[string]bool{
	".webp": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsConvertible reports whether files with ext can be decoded
func IsConvertible(ext string) bool {
	return convertible[strings.ToLower(ext)]
}

// Options control conversion
type Options struct {
	// CanvasSize > 0 fits every image onto a transparent square canvas
	CanvasSize int
	// KeepSource leaves the original file next to the PNG
	KeepSource bool
}

// Converter re-encodes images as PNG, preserving alpha
type Converter struct {
	opts   Options
	logger logger.Logger
}

// New creates a converter
func New(opts Options, log logger.Logger) *Converter {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.CanvasSize < 0 {
		opts.CanvasSize = 0
	}
	if opts.CanvasSize > MaxCanvasSize {
		opts.CanvasSize = MaxCanvasSize
	}
	return &Converter{opts: opts, logger: log.WithField("component", "converter")}
}

// TargetName returns the PNG name for a source file name
func TargetName(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".png"
}

// ConvertFile converts src to a PNG next to it and returns the PNG path.
// The source is removed afterwards unless KeepSource is set. On failure the
// source stays on disk.
func (c *Converter) ConvertFile(src string) (string, error) {
	dst := TargetName(src)
	if err := c.Convert(src, dst); err != nil {
		return "", err
	}

	if !c.opts.KeepSource && filepath.Clean(src) != filepath.Clean(dst) {
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			c.logger.WithError(err).WarnWithFields("Failed to remove source", map[string]interface{}{
				"file": filepath.Base(src),
			})
		}
	}
	return dst, nil
}

// Convert decodes src and writes dst as PNG via a temporary file
func (c *Converter) Convert(src, dst string) error {
	if !IsConvertible(filepath.Ext(src)) {
		return apperrors.NewConversionError(nil, fmt.Sprintf("unsupported format %q", filepath.Ext(src)))
	}

	f, err := os.Open(src)
	if err != nil {
		return apperrors.NewConversionError(err, "failed to open "+filepath.Base(src))
	}
	img, format, err := Decode(f)
	f.Close()
	if err != nil {
		return apperrors.NewConversionError(err, "failed to decode "+filepath.Base(src))
	}

	out := c.Render(ToNRGBA(img))

	tempFile := dst + ".tmp"
	w, err := os.Create(tempFile)
	if err != nil {
		return apperrors.NewConversionError(err, "failed to create "+filepath.Base(dst))
	}

	if err := Encode(w, out); err != nil {
		w.Close()
		os.Remove(tempFile)
		return apperrors.NewConversionError(err, "failed to encode "+filepath.Base(dst))
	}
	if err := w.Close(); err != nil {
		os.Remove(tempFile)
		return apperrors.NewConversionError(err, "failed to close "+filepath.Base(dst))
	}
	if err := os.Rename(tempFile, dst); err != nil {
		os.Remove(tempFile)
		return apperrors.NewConversionError(err, "failed to rename "+filepath.Base(dst))
	}

	c.logger.DebugWithFields("Image converted", map[string]interface{}{
		"file":   filepath.Base(dst),
		"format": format,
		"width":  out.Bounds().Dx(),
		"height": out.Bounds().Dy(),
	})
	return nil
}

// Decode reads any registered image format (webp, png, jpeg)
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(bufio.NewReader(r))
}

// Encode writes img as PNG
func Encode(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	if err := png.Encode(bw, img); err != nil {
		return err
	}
	return bw.Flush()
}

// ToNRGBA converts the YCbCr images produced by the WEBP and JPEG decoders to
// straight-alpha NRGBA so they encode as 8-bit PNG. Other images are returned
// unchanged.
func ToNRGBA(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.NYCbCrA:
		dst := ycbcrToNRGBA(&src.YCbCr)
		b := dst.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[dst.PixOffset(x, y)+3] = src.A[src.AOffset(x, y)]
			}
		}
		return dst
	case *image.YCbCr:
		return ycbcrToNRGBA(src)
	}
	return img
}

// ycbcrToNRGBA returns an opaque NRGBA copy of src
func ycbcrToNRGBA(src *image.YCbCr) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			yi, ci := src.YOffset(x, y), src.COffset(x, y)
			r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = bl
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

// Render applies the canvas option. Without a canvas the image is returned
// unchanged.
func (c *Converter) Render(img image.Image) image.Image {
	n := c.opts.CanvasSize
	if n <= 0 {
		return img
	}
	return fitCanvas(img, n)
}

// fitCanvas centers img on an n x n transparent canvas, downscaling it to fit
func fitCanvas(img image.Image, n int) image.Image {
	size := img.Bounds().Size()
	scale := 1.0
	if size.X > n || size.Y > n {
		scale = float64(n) / float64(max(size.X, size.Y))
	}

	center := float64(n) / 2
	dc := gg.NewContext(n, n)
	dc.ScaleAbout(scale, scale, center, center)
	dc.DrawImageAnchored(img, n/2, n/2, 0.5, 0.5)
	return dc.Image()
}
